/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package fountain

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Patterns used by the cleaning passes.
var (
	reBoneyard    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reNote        = regexp.MustCompile(`(?s)\[\[.*?\]\]`)
	reTitleKV     = regexp.MustCompile(`^([A-Za-z][A-Za-z ]*?)\s*:\s*(.*)$`)
	reMDHeader    = regexp.MustCompile(`^\s*#{1,6}\s+(.+?)\s*$`)
	reMDRule      = regexp.MustCompile(`^\s*(?:-{3,}|\*{3,}|_{3,})\s*$`)
	reMDLink      = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	reMDCode      = regexp.MustCompile("`([^`]+)`")
	reMDBoldStar  = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	reMDBoldUnder = regexp.MustCompile(`__([^_]+)__`)
	reMDEmStar    = regexp.MustCompile(`\*([^*\s](?:[^*]*[^*\s])?)\*`)
	reMDEmUnder   = regexp.MustCompile(`(^|[^\w])_([^_\s](?:[^_]*[^_\s])?)_($|[^\w])`)
	reCastHeading = regexp.MustCompile(`(?i)^\s*characters(?:\s+present)?\s*:\s*$`)
	reBullet      = regexp.MustCompile(`^\s*[-*•]\s+(.*)$`)
)

// titleKeys are the keys accepted on the first title-page line. Later lines
// of the same block may use any Key: value pair.
var titleKeys = map[string]bool{
	"title":      true,
	"credit":     true,
	"author":     true,
	"authors":    true,
	"source":     true,
	"draft date": true,
	"date":       true,
	"contact":    true,
	"copyright":  true,
	"notes":      true,
	"revision":   true,
}

// Preprocess cleans raw screenplay text: comments and markdown noise are
// removed, whitespace is normalised, the title page is lifted into TitlePage
// and bulleted character lists are recorded so Parse can keep them out of
// dialogue. Line numbers in CharacterLists refer to the returned Content.
func Preprocess(raw string) PreprocessResult {
	res := PreprocessResult{TitlePage: map[string]string{}}

	text := norm.NFC.String(raw)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = stripComments(text)

	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t")
	}
	lines = trimBlankEdges(lines)
	lines = extractTitlePage(lines, res.TitlePage)

	cleaned := make([]string, 0, len(lines))
	for _, ln := range lines {
		if reMDRule.MatchString(ln) {
			cleaned = append(cleaned, "")
			continue
		}
		cleaned = append(cleaned, strings.TrimRight(stripMarkdown(ln), " \t"))
	}
	cleaned = trimBlankEdges(collapseBlankRuns(cleaned))

	if len(cleaned) == 0 {
		return res
	}
	res.Content = strings.Join(cleaned, "\n")
	res.CharacterLists = detectCharacterLists(cleaned)
	res.Metadata.ProcessedLineCount = len(cleaned)
	return res
}

// stripComments removes boneyard blocks and [[notes]]. An unterminated /*
// swallows the rest of the document.
func stripComments(s string) string {
	s = reBoneyard.ReplaceAllString(s, "")
	if i := strings.Index(s, "/*"); i >= 0 {
		s = s[:i]
	}
	return reNote.ReplaceAllString(s, "")
}

// stripMarkdown removes inline markdown decoration from a single line.
func stripMarkdown(ln string) string {
	if m := reMDHeader.FindStringSubmatch(ln); m != nil {
		ln = m[1]
	}
	ln = reMDCode.ReplaceAllString(ln, "$1")
	ln = reMDLink.ReplaceAllString(ln, "$1")
	ln = reMDBoldStar.ReplaceAllString(ln, "$1")
	ln = reMDBoldUnder.ReplaceAllString(ln, "$1")
	ln = reMDEmStar.ReplaceAllString(ln, "$1")
	// Adjacent _a_ _b_ share a boundary character, so repeat until stable.
	for {
		next := reMDEmUnder.ReplaceAllString(ln, "${1}${2}${3}")
		if next == ln {
			break
		}
		ln = next
	}
	return ln
}

// extractTitlePage consumes a leading Key: value block into dst and returns
// the remaining lines. Indented lines continue the previous value.
func extractTitlePage(lines []string, dst map[string]string) []string {
	if len(lines) == 0 {
		return lines
	}
	m := reTitleKV.FindStringSubmatch(lines[0])
	if m == nil || !titleKeys[normalizeKey(m[1])] {
		return lines
	}
	var last string
	i := 0
	for ; i < len(lines); i++ {
		ln := lines[i]
		if strings.TrimSpace(ln) == "" {
			break
		}
		if last != "" && (strings.HasPrefix(ln, "   ") || strings.HasPrefix(ln, "\t")) {
			v := strings.TrimSpace(ln)
			if dst[last] == "" {
				dst[last] = v
			} else {
				dst[last] += "\n" + v
			}
			continue
		}
		if startsScript(strings.TrimSpace(ln)) {
			break
		}
		kv := reTitleKV.FindStringSubmatch(ln)
		if kv == nil {
			break
		}
		last = normalizeKey(kv[1])
		dst[last] = strings.TrimSpace(stripMarkdown(kv[2]))
	}
	return lines[i:]
}

// startsScript reports whether a line belongs to the script body even though
// it looks like a Key: value pair, e.g. "FADE IN:".
func startsScript(line string) bool {
	if _, ok := transitionText(line); ok {
		return true
	}
	_, ok := sceneHeadingText(line)
	return ok
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.Join(strings.Fields(k), " "))
}

// collapseBlankRuns limits consecutive blank lines to two.
func collapseBlankRuns(lines []string) []string {
	out := lines[:0:0]
	blanks := 0
	for _, ln := range lines {
		if ln == "" {
			blanks++
			if blanks > 2 {
				continue
			}
		} else {
			blanks = 0
		}
		out = append(out, ln)
	}
	return out
}

func trimBlankEdges(lines []string) []string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}

// detectCharacterLists finds CHARACTERS: headings followed by bullet runs.
func detectCharacterLists(lines []string) []CharacterListBlock {
	var blocks []CharacterListBlock
	for i := 0; i < len(lines); i++ {
		if !reCastHeading.MatchString(lines[i]) {
			continue
		}
		j := i + 1
		var names []string
		for ; j < len(lines); j++ {
			m := reBullet.FindStringSubmatch(lines[j])
			if m == nil {
				break
			}
			if name := strings.TrimSpace(m[1]); name != "" {
				names = append(names, name)
			}
		}
		if j == i+1 {
			continue
		}
		blocks = append(blocks, CharacterListBlock{StartLine: i + 1, EndLine: j, Characters: names})
		i = j - 1
	}
	return blocks
}
