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
	"unicode"
	"unicode/utf8"
)

var (
	reSceneHeading = regexp.MustCompile(`(?i)^(INT|EXT|INT\.?/EXT\.?|I/E)[.\s]`)
	reBulletLine   = regexp.MustCompile(`^[-*•]\s`)
)

// transitions is the known transition vocabulary. Any ALL-CAPS line ending
// in " TO:" is accepted as well.
var transitions = map[string]bool{
	"CUT TO:":         true,
	"SMASH CUT TO:":   true,
	"MATCH CUT TO:":   true,
	"JUMP CUT TO:":    true,
	"DISSOLVE TO:":    true,
	"FADE TO:":        true,
	"FADE TO BLACK.":  true,
	"FADE TO BLACK:":  true,
	"FADE IN:":        true,
	"FADE OUT.":       true,
	"FADE OUT:":       true,
	"CUT TO BLACK.":   true,
	"WIPE TO:":        true,
	"TIME CUT:":       true,
	"INTERCUT WITH:":  true,
	"BACK TO SCENE:":  true,
	"FREEZE FRAME.":   true,
	"FREEZE FRAME:":   true,
	"IRIS OUT.":       true,
	"SPLIT SCREEN:":   true,
	"END CREDITS:":    true,
	"SMASH TO BLACK.": true,
}

// speechState tracks where the forward pass is inside a speech block.
type speechState int

const (
	speechNone speechState = iota
	speechCue              // after a character cue or parenthetical; dialogue expected
	speechDialogue         // inside dialogue lines
)

// Parse classifies cleaned content into screenplay elements in one forward
// pass. Lines inside a character-list block are always action. ALL-CAPS lines
// become character cues only when the following line can carry speech; any
// line that matches nothing more specific is action.
func Parse(content string, characterLists []CharacterListBlock) ParseResult {
	res := ParseResult{Metadata: ParseMetadata{ElementCounts: make(map[ElementType]int, len(ElementTypes))}}
	for _, t := range ElementTypes {
		res.Metadata.ElementCounts[t] = 0
	}
	if content == "" {
		return res
	}

	lines := strings.Split(content, "\n")
	inList := func(idx int) bool {
		for _, b := range characterLists {
			if b.Contains(idx + 1) {
				return true
			}
		}
		return false
	}

	state := speechNone
	emit := func(t ElementType, text string, idx int) {
		res.Elements = append(res.Elements, Element{Type: t, Text: text, LineNumber: idx + 1})
		res.Metadata.ElementCounts[t]++
	}

	for i, raw := range lines {
		line := strings.TrimSpace(raw)

		if inList(i) {
			state = speechNone
			if line != "" {
				emit(Action, line, i)
			}
			continue
		}
		if line == "" {
			state = speechNone
			continue
		}
		if text, ok := sceneHeadingText(line); ok {
			state = speechNone
			emit(SceneHeading, text, i)
			continue
		}
		if text, ok := transitionText(line); ok {
			state = speechNone
			emit(Transition, text, i)
			continue
		}
		if text, ok := centeredText(line); ok {
			state = speechNone
			emit(Centered, text, i)
			continue
		}
		// A cue opens a block after a blank line or right after dialogue, never
		// straight after a cue or a line of action.
		if cueBoundary(lines, i, state) && isCueCandidate(line) && speechFollows(lines, i, inList) {
			state = speechCue
			emit(Character, line, i)
			continue
		}
		if state != speechNone && isParenthetical(line) {
			state = speechCue
			emit(Parenthetical, strings.TrimSpace(line[1:len(line)-1]), i)
			continue
		}
		if state != speechNone {
			state = speechDialogue
			emit(Dialogue, line, i)
			continue
		}
		emit(Action, line, i)
	}
	return res
}

func sceneHeadingText(line string) (string, bool) {
	if strings.HasPrefix(line, ".") {
		r, _ := utf8.DecodeRuneInString(line[1:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return strings.TrimSpace(line[1:]), true
		}
	}
	if reSceneHeading.MatchString(line) {
		return line, true
	}
	return "", false
}

func transitionText(line string) (string, bool) {
	if strings.HasPrefix(line, ">") && !strings.HasSuffix(line, "<") {
		return strings.TrimSpace(line[1:]), true
	}
	if !isAllCaps(line) {
		return "", false
	}
	if !strings.HasSuffix(line, ":") && !strings.HasSuffix(line, ".") {
		return "", false
	}
	if transitions[line] || strings.HasSuffix(line, " TO:") {
		return line, true
	}
	return "", false
}

func centeredText(line string) (string, bool) {
	if len(line) >= 2 && strings.HasPrefix(line, ">") && strings.HasSuffix(line, "<") {
		return strings.TrimSpace(line[1 : len(line)-1]), true
	}
	return "", false
}

func isParenthetical(line string) bool {
	return len(line) >= 2 && strings.HasPrefix(line, "(") && strings.HasSuffix(line, ")")
}

// isCueCandidate reports whether a line has the shape of a speaker cue.
// Labels ending in ':', bullets and parentheticals never qualify.
func isCueCandidate(line string) bool {
	if !isAllCaps(line) || reBulletLine.MatchString(line) || isParenthetical(line) {
		return false
	}
	return !strings.HasSuffix(line, ":")
}

// cueBoundary is the lookbehind half of cue detection.
func cueBoundary(lines []string, i int, state speechState) bool {
	if i == 0 || strings.TrimSpace(lines[i-1]) == "" {
		return true
	}
	return state == speechDialogue
}

// speechFollows looks at the next line: a cue needs a parenthetical or a
// plausible dialogue line directly below it.
func speechFollows(lines []string, i int, inList func(int) bool) bool {
	if i+1 >= len(lines) || inList(i+1) {
		return false
	}
	next := strings.TrimSpace(lines[i+1])
	if next == "" {
		return false
	}
	if isParenthetical(next) {
		return true
	}
	if reBulletLine.MatchString(next) {
		return false
	}
	if _, ok := sceneHeadingText(next); ok {
		return false
	}
	if _, ok := transitionText(next); ok {
		return false
	}
	if _, ok := centeredText(next); ok {
		return false
	}
	return true
}

// isAllCaps requires at least one letter and no lower-case letters.
func isAllCaps(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}
