/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goscreenwriter/internal/config"
	"goscreenwriter/internal/fountain"
	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/validate"
)

const kettle = `Title: The Kettle
Author: Jo Writer

INT. KITCHEN - NIGHT

The kettle SCREAMS on the stove.

Characters:
- MARA
- TOM

MARA
(groggy)
Who put this on?

TOM
Not me.

CUT TO:
`

func quiet() Options { return Options{Logger: applog.Discard()} }

func TestConvertEndToEnd(t *testing.T) {
	opts := quiet()
	opts.Render.IncludeCSS = true
	res, err := Convert(kettle, opts)
	require.NoError(t, err)

	assert.Equal(t, "The Kettle", res.Preprocess.TitlePage["title"])
	require.Len(t, res.Preprocess.CharacterLists, 1)

	var types []fountain.ElementType
	for _, el := range res.Parse.Elements {
		types = append(types, el.Type)
	}
	assert.Equal(t, []fountain.ElementType{
		fountain.SceneHeading, fountain.Action,
		fountain.Action, fountain.Action, fountain.Action,
		fountain.Character, fountain.Parenthetical, fountain.Dialogue,
		fountain.Character, fountain.Dialogue,
		fountain.Transition,
	}, types)

	h := res.Render.HTML
	assert.Contains(t, h, "<title>The Kettle</title>")
	assert.Contains(t, h, `<p class="tp-author">Jo Writer</p>`)
	assert.Contains(t, h, `<span class="sfx">SCREAMS</span>`)
	assert.True(t, res.Report.Valid, "%+v", res.Report.Issues)
	assert.Equal(t, res.Report.Summary.Errors == 0, res.Report.Valid)
}

func TestCharacterListsNeverSpeak(t *testing.T) {
	res, err := Convert(kettle, quiet())
	require.NoError(t, err)
	for _, el := range res.Parse.Elements {
		for _, b := range res.Preprocess.CharacterLists {
			if b.Contains(el.LineNumber) {
				assert.NotEqual(t, fountain.Character, el.Type, "line %d", el.LineNumber)
				assert.NotEqual(t, fountain.Dialogue, el.Type, "line %d", el.LineNumber)
			}
		}
	}
}

func TestConvertIsIdempotent(t *testing.T) {
	a, err := Convert(kettle, quiet())
	require.NoError(t, err)
	b, err := Convert(kettle, quiet())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTitleFallback(t *testing.T) {
	opts := quiet()
	opts.Render.Title = "Explicit"
	res, err := Convert(kettle, opts)
	require.NoError(t, err)
	assert.Contains(t, res.Render.HTML, "<title>Explicit</title>")

	res, err = Convert("INT. ROOM - DAY\n\nNothing happens.", quiet())
	require.NoError(t, err)
	assert.Contains(t, res.Render.HTML, "<title>Untitled</title>")

	assert.Equal(t, "Line one", documentTitle("", map[string]string{"title": "Line one\nLine two"}, ""))
}

func TestDefaultTitleIsOnlyAFallback(t *testing.T) {
	opts := quiet()
	opts.DefaultTitle = "House Draft"
	res, err := Convert(kettle, opts)
	require.NoError(t, err)
	assert.Contains(t, res.Render.HTML, "<title>The Kettle</title>")

	res, err = Convert("INT. ROOM - DAY\n\nNothing happens.", opts)
	require.NoError(t, err)
	assert.Contains(t, res.Render.HTML, "<title>House Draft</title>")
}

func TestConvertEmptyInput(t *testing.T) {
	res, err := Convert("", quiet())
	require.NoError(t, err)
	assert.Empty(t, res.Parse.Elements)
	assert.Zero(t, res.Render.LineCount)
	assert.True(t, res.Report.Valid)
}

func TestConvertRejectsBadOptions(t *testing.T) {
	opts := quiet()
	opts.Validate.ExpectedPages = -5
	_, err := Convert(kettle, opts)
	var cv *validate.ContractViolation
	require.True(t, errors.As(err, &cv), "got %v", err)
	assert.Equal(t, "expectedPages", cv.Field)
}

func TestConvertAllKeepsOrder(t *testing.T) {
	var docs []Document
	for i := 0; i < 12; i++ {
		docs = append(docs, Document{
			Name: fmt.Sprintf("doc%02d.fountain", i),
			Text: fmt.Sprintf("Title: Episode %d\n\nINT. SET %d - DAY\n\nA beat.", i, i),
		})
	}
	opts := quiet()
	opts.Concurrency = 3
	results, err := ConvertAll(context.Background(), docs, opts)
	require.NoError(t, err)
	require.Len(t, results, len(docs))
	for i, r := range results {
		assert.Equal(t, docs[i].Name, r.Name)
		assert.Contains(t, r.Render.HTML, fmt.Sprintf("<title>Episode %d</title>", i))
	}
}

func TestConvertAllPropagatesErrors(t *testing.T) {
	opts := quiet()
	opts.Validate.Tolerance = -1
	_, err := ConvertAll(context.Background(), []Document{{Name: "a.fountain", Text: "x"}}, opts)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "a.fountain: "))
	var cv *validate.ContractViolation
	assert.True(t, errors.As(err, &cv))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ConvertAll(ctx, []Document{{Name: "b", Text: "y"}}, quiet())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFromConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Layout.LinesPerPage = 50
	cfg.Layout.Columns = map[string]int{"dialogue": 30}
	cfg.Render.DefaultTitle = "House Draft"
	cfg.Validation.PageTolerance = 0.2

	opts, err := FromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 50, opts.Render.LinesPerPage)
	assert.True(t, opts.Render.IncludeCSS)
	assert.Empty(t, opts.Render.Title)
	assert.Equal(t, "House Draft", opts.DefaultTitle)
	assert.Equal(t, 0.2, opts.Validate.Tolerance)
	assert.Equal(t, 30, opts.Render.Styles.Resolve(fountain.Dialogue).Column)

	cfg.Layout.Columns = map[string]int{"monologue": 10}
	_, err = FromConfig(cfg)
	assert.Error(t, err)
}

func TestFingerprintTracksOutputOptions(t *testing.T) {
	base := quiet()
	fp := base.Fingerprint()
	assert.Equal(t, fp, Options{Concurrency: 8}.Fingerprint(), "logger and concurrency do not affect output")

	changed := []func(*Options){
		func(o *Options) { o.Render.IncludeCSS = true },
		func(o *Options) { o.Render.BodyOnly = true },
		func(o *Options) { o.Render.Title = "X" },
		func(o *Options) { o.DefaultTitle = "X" },
		func(o *Options) { o.Render.LinesPerPage = 60 },
		func(o *Options) { o.Validate.ExpectedPages = 90 },
		func(o *Options) { o.Validate.Tolerance = 0.3 },
		func(o *Options) {
			o.Render.Styles = nil
			cfg := config.Defaults()
			cfg.Layout.Columns = map[string]int{"action": 40}
			c, _ := FromConfig(cfg)
			o.Render.Styles = c.Render.Styles
		},
	}
	for i, mut := range changed {
		o := quiet()
		mut(&o)
		assert.NotEqual(t, fp, o.Fingerprint(), "mutation %d", i)
	}
}
