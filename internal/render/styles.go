/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import "goscreenwriter/internal/fountain"

// ElementStyle is the fixed layout rule for one element type.
// Offsets and widths are inches measured from the left edge of the text block
// (which itself sits 1.5in from the paper edge). Column is the number of
// Courier characters that fit on one line of the element.
type ElementStyle struct {
	Column     int
	MarginLeft float64
	Width      float64
	Align      string // "left" | "center" | "right"
	Bold       bool
	Uppercase  bool
	Tight      bool // no blank line after the element (cues, parentheticals)
}

// Builtin styles follow the usual US-letter screenplay layout.
var builtinStyles = map[fountain.ElementType]ElementStyle{
	fountain.SceneHeading:  {Column: 60, MarginLeft: 0, Width: 6.0, Align: "left", Bold: true, Uppercase: true},
	fountain.Action:        {Column: 60, MarginLeft: 0, Width: 6.0, Align: "left"},
	fountain.Character:     {Column: 38, MarginLeft: 2.2, Width: 3.8, Align: "left", Uppercase: true, Tight: true},
	fountain.Dialogue:      {Column: 35, MarginLeft: 1.0, Width: 3.5, Align: "left"},
	fountain.Parenthetical: {Column: 25, MarginLeft: 1.6, Width: 2.5, Align: "left", Tight: true},
	fountain.Transition:    {Column: 60, MarginLeft: 0, Width: 6.0, Align: "right", Uppercase: true},
	fountain.Centered:      {Column: 60, MarginLeft: 0, Width: 6.0, Align: "center"},
}

// BuiltinStyle returns the default style for t.
func BuiltinStyle(t fountain.ElementType) ElementStyle { return builtinStyles[t] }

// StyleSheet resolves element styles with precedence Document > House > Builtin.
// House carries studio or paper-size conventions; Document carries overrides
// for a single script.
type StyleSheet struct {
	House    map[fountain.ElementType]ElementStyle
	Document map[fountain.ElementType]ElementStyle
}

// NewStyleSheet creates a stylesheet with empty override scopes.
func NewStyleSheet() *StyleSheet {
	return &StyleSheet{
		House:    map[fountain.ElementType]ElementStyle{},
		Document: map[fountain.ElementType]ElementStyle{},
	}
}

// WithHouse returns a copy with the provided house-level overrides merged.
func (s *StyleSheet) WithHouse(over map[fountain.ElementType]ElementStyle) *StyleSheet {
	cp := s.clone()
	for k, v := range over {
		cp.House[k] = v
	}
	return cp
}

// WithDocument returns a copy with the provided document-level overrides merged.
func (s *StyleSheet) WithDocument(over map[fountain.ElementType]ElementStyle) *StyleSheet {
	cp := s.clone()
	for k, v := range over {
		cp.Document[k] = v
	}
	return cp
}

// WithColumns returns a copy whose house scope overrides only the column
// widths of the given types. Non-positive widths are ignored.
func (s *StyleSheet) WithColumns(cols map[fountain.ElementType]int) *StyleSheet {
	over := make(map[fountain.ElementType]ElementStyle, len(cols))
	for t, c := range cols {
		if c <= 0 {
			continue
		}
		st := s.Resolve(t)
		st.Column = c
		over[t] = st
	}
	return s.WithHouse(over)
}

// Resolve returns the effective style for t. A nil stylesheet yields builtins.
func (s *StyleSheet) Resolve(t fountain.ElementType) ElementStyle {
	if s != nil {
		if st, ok := s.Document[t]; ok {
			return st
		}
		if st, ok := s.House[t]; ok {
			return st
		}
	}
	return builtinStyles[t]
}

func (s *StyleSheet) clone() *StyleSheet {
	cp := NewStyleSheet()
	if s == nil {
		return cp
	}
	for k, v := range s.House {
		cp.House[k] = v
	}
	for k, v := range s.Document {
		cp.Document[k] = v
	}
	return cp
}
