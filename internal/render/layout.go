/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

// Line and page estimation for fixed-width Courier layout.
// Every element occupies at least one line; longer text wraps at the
// element's column width. Wide East Asian characters take two columns.

import (
	"golang.org/x/text/width"

	"goscreenwriter/internal/fountain"
)

// DefaultLinesPerPage is the usual number of Courier 12pt lines on a US-letter page.
const DefaultLinesPerPage = 55

const fallbackColumn = 60

// TextWidth returns the display width of s in monospace columns.
func TextWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

// displayText is the text as typeset, which is what occupies columns.
func displayText(el fountain.Element) string {
	if el.Type == fountain.Parenthetical {
		return "(" + el.Text + ")"
	}
	return el.Text
}

// ElementLines returns max(1, ceil(width/column)) for a single element.
func ElementLines(el fountain.Element, styles *StyleSheet) int {
	col := styles.Resolve(el.Type).Column
	if col <= 0 {
		col = fallbackColumn
	}
	n := (TextWidth(displayText(el)) + col - 1) / col
	if n < 1 {
		return 1
	}
	return n
}

// CountLines sums ElementLines over all elements.
func CountLines(elements []fountain.Element, styles *StyleSheet) int {
	total := 0
	for _, el := range elements {
		total += ElementLines(el, styles)
	}
	return total
}

// EstimatePages returns ceil(lineCount / linesPerPage). A non-positive
// linesPerPage falls back to DefaultLinesPerPage.
func EstimatePages(lineCount, linesPerPage int) int {
	if linesPerPage <= 0 {
		linesPerPage = DefaultLinesPerPage
	}
	if lineCount <= 0 {
		return 0
	}
	return (lineCount + linesPerPage - 1) / linesPerPage
}
