/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package validate re-checks parsed and rendered screenplays and reports
// problems as data. Four independent passes run on every call and their
// issues are concatenated: page length, classification, heuristics and
// HTML quality.
package validate

import (
	"fmt"
	"math"
	"strings"

	"goscreenwriter/internal/fountain"
	"goscreenwriter/internal/render"
)

// DefaultTolerance is the accepted relative deviation from the expected page count.
const DefaultTolerance = 0.10

// Heuristic thresholds on element-type ratios.
const (
	minActionRatio   = 0.10
	maxDialogueRatio = 0.80
)

// Options controls Validate.
type Options struct {
	// ExpectedPages enables the page-length pass when > 0.
	ExpectedPages float64
	// Tolerance defaults to DefaultTolerance when 0.
	Tolerance float64
	// CharacterLists, when given, are checked for leaked cues and dialogue.
	CharacterLists []fountain.CharacterListBlock
}

// Validate checks elements and their render result. Content problems are
// returned as issues; only inconsistent arguments produce a *ContractViolation.
func Validate(elements []fountain.Element, rr render.Result, opts Options) (Report, error) {
	if err := checkContract(elements, rr, opts); err != nil {
		return Report{}, err
	}
	tol := opts.Tolerance
	if tol == 0 {
		tol = DefaultTolerance
	}

	var issues []Issue
	issues = append(issues, checkPageLength(rr, opts.ExpectedPages, tol)...)
	issues = append(issues, checkClassification(elements, opts.CharacterLists)...)
	issues = append(issues, checkHeuristics(elements)...)
	issues = append(issues, checkHTML(rr.HTML)...)
	return newReport(issues), nil
}

func checkContract(elements []fountain.Element, rr render.Result, opts Options) error {
	switch {
	case math.IsNaN(opts.ExpectedPages) || opts.ExpectedPages < 0:
		return &ContractViolation{Field: "expectedPages", Reason: fmt.Sprintf("must be a non-negative number, got %v", opts.ExpectedPages)}
	case math.IsNaN(opts.Tolerance) || opts.Tolerance < 0:
		return &ContractViolation{Field: "tolerance", Reason: fmt.Sprintf("must be a non-negative number, got %v", opts.Tolerance)}
	case rr.LineCount < 0 || rr.EstimatedPages < 0:
		return &ContractViolation{Field: "renderResult", Reason: "negative line or page count"}
	case len(elements) == 0 && rr.LineCount != 0:
		return &ContractViolation{Field: "renderResult", Reason: fmt.Sprintf("%d lines rendered for zero elements", rr.LineCount)}
	case rr.LineCount < len(elements):
		return &ContractViolation{Field: "renderResult", Reason: fmt.Sprintf("%d lines cannot hold %d elements", rr.LineCount, len(elements))}
	case rr.LinesPerPage > 0 && rr.EstimatedPages != render.EstimatePages(rr.LineCount, rr.LinesPerPage):
		return &ContractViolation{Field: "renderResult", Reason: fmt.Sprintf("estimatedPages %d does not match %d lines at %d per page", rr.EstimatedPages, rr.LineCount, rr.LinesPerPage)}
	}
	return nil
}

func checkPageLength(rr render.Result, expected, tol float64) []Issue {
	if expected <= 0 {
		return nil
	}
	lo, hi := expected*(1-tol), expected*(1+tol)
	est := float64(rr.EstimatedPages)
	details := fmt.Sprintf("estimated=%d expected=%g tolerance=%g%% lines=%d", rr.EstimatedPages, expected, tol*100, rr.LineCount)
	if est < lo || est > hi {
		return []Issue{{
			Severity: SeverityWarning,
			Category: CategoryPageLength,
			Message:  fmt.Sprintf("estimated %d pages, outside %g-%g for an expected %g", rr.EstimatedPages, lo, hi, expected),
			Details:  details,
		}}
	}
	return []Issue{{
		Severity: SeverityInfo,
		Category: CategoryPageLength,
		Message:  fmt.Sprintf("estimated %d pages, within tolerance of the expected %g", rr.EstimatedPages, expected),
		Details:  details,
	}}
}

func isSpeech(t fountain.ElementType) bool {
	return t == fountain.Character || t == fountain.Parenthetical || t == fountain.Dialogue
}

// adjacent reports whether b directly follows a in the source. Elements
// without line numbers are treated as adjacent.
func adjacent(a, b fountain.Element) bool {
	if a.LineNumber <= 0 || b.LineNumber <= 0 {
		return true
	}
	return b.LineNumber == a.LineNumber+1
}

func checkClassification(elements []fountain.Element, lists []fountain.CharacterListBlock) []Issue {
	var issues []Issue
	for i, el := range elements {
		var prev, next *fountain.Element
		if i > 0 {
			prev = &elements[i-1]
		}
		if i+1 < len(elements) {
			next = &elements[i+1]
		}

		if prev != nil && prev.LineNumber > 0 && el.LineNumber > 0 && el.LineNumber <= prev.LineNumber {
			issues = append(issues, Issue{
				Severity: SeverityError, Category: CategoryClassification, LineNumber: el.LineNumber,
				Message: fmt.Sprintf("element on line %d is out of source order", el.LineNumber),
			})
		}

		switch el.Type {
		case fountain.Dialogue:
			if prev == nil || !isSpeech(prev.Type) || !adjacent(*prev, el) {
				issues = append(issues, Issue{
					Severity: SeverityError, Category: CategoryClassification, LineNumber: el.LineNumber,
					Message: "dialogue is not preceded by a character cue or parenthetical",
					Details: el.Text,
				})
			}
			if t := strings.TrimSpace(el.Text); strings.HasPrefix(t, "-") || strings.HasPrefix(t, "•") || strings.HasPrefix(t, "*") {
				issues = append(issues, Issue{
					Severity: SeverityError, Category: CategoryClassification, LineNumber: el.LineNumber,
					Message: "dialogue starts with a bullet marker; a character list was probably read as speech",
					Details: el.Text,
				})
			}
		case fountain.Character:
			if next == nil || (next.Type != fountain.Dialogue && next.Type != fountain.Parenthetical) {
				issues = append(issues, Issue{
					Severity: SeverityWarning, Category: CategoryClassification, LineNumber: el.LineNumber,
					Message: fmt.Sprintf("character cue %q is not followed by dialogue", el.Text),
				})
			}
		case fountain.Parenthetical:
			if prev == nil || !isSpeech(prev.Type) || !adjacent(*prev, el) {
				issues = append(issues, Issue{
					Severity: SeverityWarning, Category: CategoryClassification, LineNumber: el.LineNumber,
					Message: "parenthetical outside a speech block",
					Details: el.Text,
				})
			}
		}

		if el.Type == fountain.Character || el.Type == fountain.Dialogue {
			for _, b := range lists {
				if b.Contains(el.LineNumber) {
					issues = append(issues, Issue{
						Severity: SeverityError, Category: CategoryClassification, LineNumber: el.LineNumber,
						Message: fmt.Sprintf("%s inside character list (lines %d-%d)", el.Type, b.StartLine, b.EndLine),
						Details: el.Text,
					})
					break
				}
			}
		}
	}
	return issues
}

func checkHeuristics(elements []fountain.Element) []Issue {
	counts := make(map[fountain.ElementType]int, len(fountain.ElementTypes))
	for _, el := range elements {
		counts[el.Type]++
	}
	total := len(elements)
	ratio := func(t fountain.ElementType) float64 {
		if total == 0 {
			return 0
		}
		return float64(counts[t]) / float64(total)
	}

	var issues []Issue
	if total == 0 {
		issues = append(issues, Issue{Severity: SeverityInfo, Category: CategoryHeuristic, Message: "document has no elements"})
	}
	if r := ratio(fountain.Action); r < minActionRatio {
		issues = append(issues, Issue{
			Severity: SeverityWarning, Category: CategoryHeuristic,
			Message: fmt.Sprintf("action makes up %.1f%% of elements (expected at least %.0f%%)", r*100, minActionRatio*100),
		})
	}
	if r := ratio(fountain.Dialogue); r > maxDialogueRatio {
		issues = append(issues, Issue{
			Severity: SeverityWarning, Category: CategoryHeuristic,
			Message: fmt.Sprintf("dialogue makes up %.1f%% of elements (expected at most %.0f%%)", r*100, maxDialogueRatio*100),
		})
	}
	if counts[fountain.SceneHeading] == 0 {
		issues = append(issues, Issue{Severity: SeverityWarning, Category: CategoryHeuristic, Message: "no scene headings found"})
	}
	return issues
}
