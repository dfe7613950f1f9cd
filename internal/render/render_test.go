/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goscreenwriter/internal/fountain"
)

func sample() []fountain.Element {
	return []fountain.Element{
		{Type: fountain.SceneHeading, Text: "INT. OFFICE - DAY", LineNumber: 1},
		{Type: fountain.Action, Text: "The phone goes RING! Sarah & I wait.", LineNumber: 3},
		{Type: fountain.Character, Text: "SARAH", LineNumber: 5},
		{Type: fountain.Parenthetical, Text: "concerned", LineNumber: 6},
		{Type: fountain.Dialogue, Text: "Are you <okay>?", LineNumber: 7},
		{Type: fountain.Transition, Text: "CUT TO:", LineNumber: 9},
		{Type: fountain.Centered, Text: "THE END", LineNumber: 11},
	}
}

func TestRenderFullDocumentIsWellFormed(t *testing.T) {
	res := Render(sample(), Options{IncludeCSS: true, Title: "Pilot"})
	h := res.HTML

	assert.Equal(t, 1, strings.Count(h, "<!DOCTYPE html>"))
	assert.Equal(t, 1, strings.Count(h, "<html"))
	assert.Equal(t, 1, strings.Count(h, "</html>"))
	assert.Equal(t, 1, strings.Count(h, "<body>"))
	assert.Equal(t, 1, strings.Count(h, "</body>"))
	assert.Equal(t, 1, strings.Count(h, "<style>"))
	assert.Contains(t, h, "<title>Pilot</title>")
	assert.Contains(t, h, `<h2 class="scene-heading">INT. OFFICE - DAY</h2>`)
	assert.Contains(t, h, `<p class="parenthetical">(concerned)</p>`)
	assert.Contains(t, h, `<p class="dialogue">Are you &lt;okay&gt;?</p>`)
	assert.Contains(t, h, `<p class="transition">CUT TO:</p>`)
	assert.Contains(t, h, `<p class="centered">THE END</p>`)
}

func TestRenderTitleFallbackAndNoCSS(t *testing.T) {
	res := Render(nil, Options{})
	assert.Contains(t, res.HTML, "<title>Untitled</title>")
	assert.NotContains(t, res.HTML, "<style>")
	assert.Equal(t, 0, res.LineCount)
	assert.Equal(t, 0, res.EstimatedPages)
	assert.Equal(t, DefaultLinesPerPage, res.LinesPerPage)
}

func TestRenderBodyOnly(t *testing.T) {
	res := Render(sample(), Options{BodyOnly: true, DataLines: true})
	assert.NotContains(t, res.HTML, "<html")
	assert.NotContains(t, res.HTML, "<!DOCTYPE")
	assert.True(t, strings.HasPrefix(res.HTML, `<div class="screenplay">`))
	assert.Contains(t, res.HTML, `<p class="character" data-line="5">SARAH</p>`)
}

func TestRenderSFXEmphasis(t *testing.T) {
	got := emphasizeSFX("The phone goes RING! Sarah & I wait. KA-BOOM, then A hush.")
	want := `The phone goes <span class="sfx">RING</span>! Sarah &amp; I wait. <span class="sfx">KA-BOOM</span>, then A hush.`
	assert.Equal(t, want, got)
}

func TestRenderSFXAppliedOncePerToken(t *testing.T) {
	got := emphasizeSFX("BANG BANG")
	assert.Equal(t, 2, strings.Count(got, `<span class="sfx">`))
	assert.NotContains(t, got, `<span class="sfx"><span`)
}

func TestRenderTitlePage(t *testing.T) {
	res := Render(nil, Options{TitlePage: map[string]string{
		"zeta":       "custom",
		"author":     "Jane Roe",
		"title":      "Big <Fish>",
		"draft date": "today",
		"contact":    "Line one\nLine two",
	}})
	h := res.HTML
	iTitle := strings.Index(h, `class="tp-title"`)
	iAuthor := strings.Index(h, `class="tp-author"`)
	iDraft := strings.Index(h, `class="tp-draft-date"`)
	iZeta := strings.Index(h, `class="tp-zeta"`)
	require.True(t, iTitle >= 0 && iAuthor > iTitle && iDraft > iAuthor && iZeta > iDraft, h)
	assert.Contains(t, h, "Big &lt;Fish&gt;")
	assert.Contains(t, h, "Line one<br>Line two")
}

func TestRenderIdempotent(t *testing.T) {
	opts := Options{IncludeCSS: true, Title: "X", DataLines: true, TitlePage: map[string]string{"title": "X", "b": "1", "a": "2"}}
	a := Render(sample(), opts)
	b := Render(sample(), opts)
	assert.Equal(t, a, b)
}

func TestRenderHouseStyleInCSS(t *testing.T) {
	ss := NewStyleSheet().WithColumns(map[fountain.ElementType]int{fountain.Dialogue: 30})
	css := CSS(ss)
	assert.Contains(t, css, ".screenplay .dialogue { margin-left: 1in; width: 3.5in; text-align: left; }")
	assert.Contains(t, css, ".screenplay .transition { margin-left: 0in; width: 6in; text-align: right; text-transform: uppercase; }")
	assert.Equal(t, 30, ss.Resolve(fountain.Dialogue).Column)
}
