/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package validate

import "fmt"

// Severity of a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Category groups issues by the pass that produced them.
type Category string

const (
	CategoryPageLength     Category = "page-length"
	CategoryClassification Category = "classification"
	CategoryHeuristic      Category = "heuristic"
	CategoryHTMLQuality    Category = "html-quality"
)

// Issue is a single finding. Details is optional free-form context;
// LineNumber is set when the issue points at one element.
type Issue struct {
	Severity   Severity `json:"severity"`
	Category   Category `json:"category"`
	Message    string   `json:"message"`
	Details    string   `json:"details,omitempty"`
	LineNumber int      `json:"lineNumber,omitempty"`
}

// Summary counts issues by severity.
type Summary struct {
	TotalIssues int `json:"totalIssues"`
	Errors      int `json:"errors"`
	Warnings    int `json:"warnings"`
	Infos       int `json:"infos"`
}

// Report is the validator output. Valid is true exactly when Summary.Errors is zero.
type Report struct {
	Valid   bool    `json:"valid"`
	Issues  []Issue `json:"issues"`
	Summary Summary `json:"summary"`
}

// ContractViolation reports a programmer error in the arguments to Validate,
// as opposed to a problem in the screenplay itself.
type ContractViolation struct {
	Field  string
	Reason string
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("validate: contract violation on %s: %s", e.Field, e.Reason)
}

func newReport(issues []Issue) Report {
	r := Report{Issues: issues}
	if r.Issues == nil {
		r.Issues = []Issue{}
	}
	for _, is := range r.Issues {
		switch is.Severity {
		case SeverityError:
			r.Summary.Errors++
		case SeverityWarning:
			r.Summary.Warnings++
		case SeverityInfo:
			r.Summary.Infos++
		}
	}
	r.Summary.TotalIssues = len(r.Issues)
	r.Valid = r.Summary.Errors == 0
	return r
}
