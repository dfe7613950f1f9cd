/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package validate

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	reStrayBold    = regexp.MustCompile(`\*\*[^*\n]+\*\*`)
	reStrayItalic  = regexp.MustCompile(`(?m)(?:^|[^*\w])\*[^*\s][^*\n]*?\*(?:[^*\w]|$)`)
	reStrayHeading = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]+\S`)
	reDocument     = regexp.MustCompile(`(?i)<!doctype\s+html|<html[\s>]`)
	reDoctype      = regexp.MustCompile(`(?i)<!doctype\s+html`)
)

// visibleText strips every tag and drops the content of head-only elements
// such as <style> and <title>, leaving what a reader would see.
func visibleText(doc string) string {
	return html.UnescapeString(bluemonday.StrictPolicy().Sanitize(doc))
}

func checkHTML(doc string) []Issue {
	var issues []Issue
	text := visibleText(doc)

	leftovers := []struct {
		re   *regexp.Regexp
		what string
	}{
		{reStrayBold, "bold markdown (**text**)"},
		{reStrayItalic, "italic markdown (*text*)"},
		{reStrayHeading, "markdown heading (# text)"},
	}
	for _, l := range leftovers {
		if m := l.re.FindAllString(text, -1); len(m) > 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Category: CategoryHTMLQuality,
				Message:  "rendered text contains leftover " + l.what,
				Details:  fmt.Sprintf("%d occurrence(s), first: %q", len(m), strings.TrimSpace(m[0])),
			})
		}
	}

	if !reDocument.MatchString(doc) {
		return issues
	}
	if n := len(reDoctype.FindAllStringIndex(doc, -1)); n > 1 {
		issues = append(issues, Issue{
			Severity: SeverityError, Category: CategoryHTMLQuality,
			Message: fmt.Sprintf("document declares <!DOCTYPE html> %d times", n),
		})
	}
	lower := strings.ToLower(doc)
	for _, tag := range []string{"</body>", "</html>"} {
		if !strings.Contains(lower, tag) {
			issues = append(issues, Issue{
				Severity: SeverityError, Category: CategoryHTMLQuality,
				Message: "full document is missing " + tag,
			})
		}
	}
	return issues
}
