/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package fountain cleans loosely structured screenplay text and classifies
// its lines into screenplay elements. Both stages are pure functions: they
// take their input by value and return fresh results on every call.
package fountain

// ElementType is the closed set of screenplay element kinds.
type ElementType int

const (
	SceneHeading ElementType = iota
	Action
	Character
	Dialogue
	Parenthetical
	Transition
	Centered
)

// ElementTypes lists every element type in declaration order.
// Consumers iterate this instead of ranging over a map to stay deterministic.
var ElementTypes = []ElementType{SceneHeading, Action, Character, Dialogue, Parenthetical, Transition, Centered}

var elementTypeNames = [...]string{
	SceneHeading:  "scene-heading",
	Action:        "action",
	Character:     "character",
	Dialogue:      "dialogue",
	Parenthetical: "parenthetical",
	Transition:    "transition",
	Centered:      "centered",
}

// String returns the kebab-case name used in HTML classes and reports.
func (t ElementType) String() string {
	if t < 0 || int(t) >= len(elementTypeNames) {
		return "unknown"
	}
	return elementTypeNames[t]
}

// ParseElementType maps a kebab-case name back to its ElementType.
func ParseElementType(s string) (ElementType, bool) {
	for i, n := range elementTypeNames {
		if n == s {
			return ElementType(i), true
		}
	}
	return 0, false
}

// MarshalText encodes the type by name so JSON reports stay readable.
func (t ElementType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// Element is one classified source line. LineNumber is 1-based and refers to
// the cleaned content handed to Parse.
type Element struct {
	Type       ElementType `json:"type"`
	Text       string      `json:"text"`
	LineNumber int         `json:"lineNumber"`
}

// CharacterListBlock is a CHARACTERS: heading plus its bulleted names.
// StartLine is the heading line, EndLine the last bullet line (both 1-based, inclusive).
type CharacterListBlock struct {
	StartLine  int      `json:"startLine"`
	EndLine    int      `json:"endLine"`
	Characters []string `json:"characters"`
}

// Contains reports whether the 1-based line lies within the block.
func (b CharacterListBlock) Contains(line int) bool {
	return line >= b.StartLine && line <= b.EndLine
}

// PreprocessMetadata carries statistics about the cleaned content.
type PreprocessMetadata struct {
	ProcessedLineCount int `json:"processedLineCount"`
}

// PreprocessResult is the output of Preprocess.
type PreprocessResult struct {
	Content        string               `json:"content"`
	TitlePage      map[string]string    `json:"titlePage"`
	CharacterLists []CharacterListBlock `json:"characterLists"`
	Metadata       PreprocessMetadata   `json:"metadata"`
}

// ParseMetadata carries per-type element counts. All seven types are always present.
type ParseMetadata struct {
	ElementCounts map[ElementType]int `json:"elementCounts"`
}

// ParseResult is the output of Parse. Elements are in source line order.
type ParseResult struct {
	Elements []Element     `json:"elements"`
	Metadata ParseMetadata `json:"metadata"`
}
