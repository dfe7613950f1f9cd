/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render turns classified screenplay elements into an HTML document
// and estimates its printed length.
package render

import (
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"goscreenwriter/internal/fountain"
)

// Options controls Render. The zero value renders a full document without CSS.
type Options struct {
	IncludeCSS bool
	Title      string // document <title>; empty falls back to "Untitled"
	BodyOnly   bool   // emit only the screenplay markup, no <html> shell
	DataLines  bool   // add data-line attributes with 1-based source lines
	TitlePage  map[string]string

	// LinesPerPage defaults to DefaultLinesPerPage when <= 0.
	LinesPerPage int
	// Styles defaults to the builtin layout when nil.
	Styles *StyleSheet
}

// Result is the rendered document plus its length estimate.
type Result struct {
	HTML           string `json:"html"`
	EstimatedPages int    `json:"estimatedPages"`
	LineCount      int    `json:"lineCount"`
	LinesPerPage   int    `json:"linesPerPage"`
}

// titlePageOrder fixes the order of well-known title page keys.
var titlePageOrder = []string{"title", "credit", "author", "authors", "source", "draft date", "date", "contact", "copyright", "notes", "revision"}

var (
	reToken = regexp.MustCompile(`\S+`)
	reSFX   = regexp.MustCompile(`^(\p{Lu}[\p{Lu}'\-]*\p{Lu})([.,!?;:]*)$`)
)

// Render builds HTML for the elements. It performs no I/O and returns
// byte-identical output for equal inputs.
func Render(elements []fountain.Element, opts Options) Result {
	lpp := opts.LinesPerPage
	if lpp <= 0 {
		lpp = DefaultLinesPerPage
	}
	lines := CountLines(elements, opts.Styles)

	var b strings.Builder
	b.Grow(256 + 64*len(elements))
	if !opts.BodyOnly {
		title := strings.TrimSpace(opts.Title)
		if title == "" {
			title = "Untitled"
		}
		b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n<title>")
		b.WriteString(html.EscapeString(title))
		b.WriteString("</title>\n")
		if opts.IncludeCSS {
			writeStyle(&b, opts.Styles)
		}
		b.WriteString("</head>\n<body>\n")
	} else if opts.IncludeCSS {
		writeStyle(&b, opts.Styles)
	}

	writeTitlePage(&b, opts.TitlePage)
	b.WriteString("<div class=\"screenplay\">\n")
	for _, el := range elements {
		writeElement(&b, el, opts.DataLines)
	}
	b.WriteString("</div>\n")

	if !opts.BodyOnly {
		b.WriteString("</body>\n</html>\n")
	}
	return Result{
		HTML:           b.String(),
		EstimatedPages: EstimatePages(lines, lpp),
		LineCount:      lines,
		LinesPerPage:   lpp,
	}
}

func writeStyle(b *strings.Builder, styles *StyleSheet) {
	b.WriteString("<style>\n")
	b.WriteString(CSS(styles))
	b.WriteString("</style>\n")
}

func writeElement(b *strings.Builder, el fountain.Element, dataLines bool) {
	tag := "p"
	if el.Type == fountain.SceneHeading {
		tag = "h2"
	}
	b.WriteString("<")
	b.WriteString(tag)
	b.WriteString(" class=\"")
	b.WriteString(el.Type.String())
	b.WriteString("\"")
	if dataLines {
		b.WriteString(" data-line=\"")
		b.WriteString(strconv.Itoa(el.LineNumber))
		b.WriteString("\"")
	}
	b.WriteString(">")
	switch el.Type {
	case fountain.Action:
		b.WriteString(emphasizeSFX(el.Text))
	case fountain.Parenthetical:
		b.WriteString("(")
		b.WriteString(html.EscapeString(el.Text))
		b.WriteString(")")
	default:
		b.WriteString(html.EscapeString(el.Text))
	}
	b.WriteString("</")
	b.WriteString(tag)
	b.WriteString(">\n")
}

// emphasizeSFX escapes action text and wraps standalone ALL-CAPS tokens of
// two or more letters in a sound-effect span. Trailing punctuation stays
// outside the span.
func emphasizeSFX(text string) string {
	var b strings.Builder
	last := 0
	for _, loc := range reToken.FindAllStringIndex(text, -1) {
		b.WriteString(html.EscapeString(text[last:loc[0]]))
		tok := text[loc[0]:loc[1]]
		if m := reSFX.FindStringSubmatch(tok); m != nil {
			b.WriteString(`<span class="sfx">`)
			b.WriteString(html.EscapeString(m[1]))
			b.WriteString(`</span>`)
			b.WriteString(html.EscapeString(m[2]))
		} else {
			b.WriteString(html.EscapeString(tok))
		}
		last = loc[1]
	}
	b.WriteString(html.EscapeString(text[last:]))
	return b.String()
}

func writeTitlePage(b *strings.Builder, tp map[string]string) {
	if len(tp) == 0 {
		return
	}
	seen := make(map[string]bool, len(tp))
	keys := make([]string, 0, len(tp))
	for _, k := range titlePageOrder {
		if _, ok := tp[k]; ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var extra []string
	for k := range tp {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	keys = append(keys, extra...)

	b.WriteString("<div class=\"title-page\">\n")
	for _, k := range keys {
		parts := strings.Split(tp[k], "\n")
		for i := range parts {
			parts[i] = html.EscapeString(parts[i])
		}
		b.WriteString("<p class=\"tp-")
		b.WriteString(html.EscapeString(strings.ReplaceAll(k, " ", "-")))
		b.WriteString("\">")
		b.WriteString(strings.Join(parts, "<br>"))
		b.WriteString("</p>\n")
	}
	b.WriteString("</div>\n")
}
