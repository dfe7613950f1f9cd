/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goscreenwriter/internal/cache"
)

const pilot = `Title: Pilot
Author: Sam Lee

INT. DINER - NIGHT

Rain on the glass. A bell DINGS.

WAITRESS
(tired)
Coffee?

SAM
Always.
`

// badMarkup keeps an asterisk pair the markdown cleaner cannot close.
const badMarkup = "INT. SHOP - DAY\n\nThe sign reads *OPEN *\n"

func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache-home"))
	for _, k := range []string{"GSW_LINES_PER_PAGE", "GSW_PAGE_TOLERANCE", "GSW_INCLUDE_CSS", "GSW_LOG_LEVEL", "GSW_LOG_FORMAT", "GSW_LOG_SOURCE", "GSW_LOG_FILE"} {
		t.Setenv(k, "")
	}
	return dir
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestVersionCommand(t *testing.T) {
	isolateEnv(t)
	code, out, _ := runCLI(t, "version")
	assert.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(out, "goscreenwriter "), out)
}

func TestConvertWritesHTMLNextToInput(t *testing.T) {
	dir := isolateEnv(t)
	in := writeFile(t, dir, "pilot.fountain", pilot)

	code, _, errOut := runCLI(t, "convert", in)
	require.Equal(t, 0, code, errOut)

	b, err := os.ReadFile(filepath.Join(dir, "pilot.html"))
	require.NoError(t, err)
	h := string(b)
	assert.Contains(t, h, "<title>Pilot</title>")
	assert.Contains(t, h, "<style>")
	assert.Contains(t, h, `<p class="character">WAITRESS</p>`)
	assert.Contains(t, errOut, "pilot.fountain: valid")
}

func TestConvertToStdoutFragment(t *testing.T) {
	dir := isolateEnv(t)
	in := writeFile(t, dir, "pilot.fountain", pilot)

	code, out, errOut := runCLI(t, "convert", "--fragment", "--no-css", "-o", "-", in)
	require.Equal(t, 0, code, errOut)
	assert.NotContains(t, out, "<html")
	assert.NotContains(t, out, "<style>")
	assert.Contains(t, out, `<div class="screenplay">`)

	code, _, errOut = runCLI(t, "convert", "--json", "-o", "-", in)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "--json")
}

func TestCheckExitCodes(t *testing.T) {
	dir := isolateEnv(t)
	good := writeFile(t, dir, "good.fountain", pilot)
	bad := writeFile(t, dir, "bad.fountain", badMarkup)

	code, out, _ := runCLI(t, "check", good)
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "good.fountain: valid")

	code, out, _ = runCLI(t, "check", bad)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "INVALID")
	assert.Contains(t, out, "html-quality")
	_, err := os.Stat(filepath.Join(dir, "bad.html"))
	assert.True(t, os.IsNotExist(err), "check must not write HTML")
}

func TestCheckJSONWithExpectedPages(t *testing.T) {
	dir := isolateEnv(t)
	in := writeFile(t, dir, "pilot.fountain", pilot)

	code, out, _ := runCLI(t, "check", "--json", "--expected-pages", "40", in)
	require.Equal(t, 0, code)
	var got struct {
		Name           string `json:"name"`
		EstimatedPages int    `json:"estimatedPages"`
		Report         struct {
			Valid  bool `json:"valid"`
			Issues []struct {
				Severity string `json:"severity"`
				Category string `json:"category"`
			} `json:"issues"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 1, got.EstimatedPages)
	assert.True(t, got.Report.Valid)
	var pageWarnings int
	for _, is := range got.Report.Issues {
		if is.Category == "page-length" && is.Severity == "warning" {
			pageWarnings++
		}
	}
	assert.Equal(t, 1, pageWarnings)

	code, _, errOut := runCLI(t, "check", "--expected-pages=-2", in)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "contract violation")
}

func TestBatchUsesCacheOnSecondRun(t *testing.T) {
	dir := isolateEnv(t)
	a := writeFile(t, dir, "a.fountain", pilot)
	b := writeFile(t, dir, "b.fountain", strings.Replace(pilot, "Pilot", "Second", 1))
	outDir := filepath.Join(dir, "html")
	cacheDir := filepath.Join(dir, "cache")

	type row struct {
		Name   string `json:"name"`
		Output string `json:"output"`
		Cached bool   `json:"cached"`
	}
	runBatch := func() []row {
		code, out, errOut := runCLI(t, "batch", "--json", "--cache-dir", cacheDir, "--out-dir", outDir, "-j", "2", a, b)
		require.Equal(t, 0, code, errOut)
		var rows []row
		require.NoError(t, json.Unmarshal([]byte(out), &rows))
		require.Len(t, rows, 2)
		return rows
	}

	first := runBatch()
	assert.Equal(t, a, first[0].Name)
	assert.Equal(t, b, first[1].Name)
	assert.False(t, first[0].Cached || first[1].Cached)

	second := runBatch()
	assert.True(t, second[0].Cached && second[1].Cached)

	h, err := os.ReadFile(filepath.Join(outDir, "b.html"))
	require.NoError(t, err)
	assert.Contains(t, string(h), "<title>Second</title>")
}

func TestDefaultCacheDir(t *testing.T) {
	dir := isolateEnv(t)
	in := writeFile(t, dir, "pilot.fountain", pilot)

	for i, want := range []bool{false, true} {
		code, out, errOut := runCLI(t, "check", "--cache", "--json", in)
		require.Equal(t, 0, code, errOut)
		var got struct {
			Cached bool `json:"cached"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, want, got.Cached, "run %d", i)
	}
	_, err := os.Stat(filepath.Join(dir, "cache-home", "goscreenwriter", cache.FileName))
	assert.NoError(t, err)
}

func TestInvalidConfigFails(t *testing.T) {
	dir := isolateEnv(t)
	cfg := writeFile(t, dir, "config.yaml", "layout:\n  lines_per_page: zero\n")
	in := writeFile(t, dir, "pilot.fountain", pilot)

	code, _, errOut := runCLI(t, "--config", cfg, "check", in)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "lines_per_page")
}

func TestConfigShapesOutput(t *testing.T) {
	dir := isolateEnv(t)
	cfg := writeFile(t, dir, "config.yaml", "render:\n  include_css: false\n  data_lines: true\nlogging:\n  level: INFO\n  format: Console\n")
	in := writeFile(t, dir, "pilot.fountain", pilot)

	code, out, errOut := runCLI(t, "--config", cfg, "convert", "-o", "-", in)
	require.Equal(t, 0, code, errOut)
	assert.NotContains(t, out, "<style>")
	assert.Contains(t, out, `data-line="`)
}
