/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

// isolate points the per-user config dir at an empty temp dir and clears
// every override variable.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	for _, k := range []string{EnvLinesPerPage, EnvPageTolerance, EnvIncludeCSS, EnvLogLevel, EnvLogFormat, EnvLogSource, EnvLogFile} {
		t.Setenv(k, "")
	}
}

func TestLoadWithoutFileGivesDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 55, cfg.Layout.LinesPerPage)
	assert.True(t, cfg.Render.IncludeCSS)
	assert.Equal(t, 0.10, cfg.Validation.PageTolerance)
	assert.Equal(t, Defaults().Logging.Level, cfg.Logging.Level)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	isolate(t)
	p := writeConfig(t, `
config_version: 1
layout:
  lines_per_page: 60
  columns:
    dialogue: 30
render:
  default_title: "  Draft  "
  data_lines: true
logging:
  level: DEBUG
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Layout.LinesPerPage)
	assert.Equal(t, 30, cfg.Layout.Columns["dialogue"])
	assert.True(t, cfg.Render.IncludeCSS, "include_css absent from the file keeps its default")
	assert.Equal(t, "Draft", cfg.Render.DefaultTitle)
	assert.True(t, cfg.Render.DataLines)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadAcceptsMixedCaseLogging(t *testing.T) {
	isolate(t)
	cases := []struct {
		body, level, format string
	}{
		{"logging:\n  level: Info\n  format: JSON\n", "info", "json"},
		{"logging:\n  level: WARNING\n", "warning", "console"},
		{"logging:\n  format: Json\n", "info", "json"},
	}
	for _, c := range cases {
		cfg, err := Load(writeConfig(t, c.body))
		require.NoError(t, err, c.body)
		assert.Equal(t, c.level, cfg.Logging.Level, c.body)
		assert.Equal(t, c.format, cfg.Logging.Format, c.body)
	}

	_, err := Load(writeConfig(t, "logging:\n  level: LOUD\n"))
	var se *SchemaError
	assert.ErrorAs(t, err, &se, "unknown levels still fail the schema")
}

func TestLoadRejectsSchemaViolations(t *testing.T) {
	isolate(t)
	p := writeConfig(t, `
layout:
  lines_per_page: "many"
  columns:
    monologue: 20
render:
  colour: blue
logging:
  format: xml
`)
	_, err := Load(p)
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.GreaterOrEqual(t, len(se.Problems), 4, "every failing field is listed: %v", se.Problems)
	assert.Contains(t, err.Error(), p)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadEmptyFile(t *testing.T) {
	isolate(t)
	cfg, err := Load(writeConfig(t, "\n"))
	require.NoError(t, err)
	assert.Equal(t, 55, cfg.Layout.LinesPerPage)
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLinesPerPage, "50")
	t.Setenv(EnvPageTolerance, "0.25")
	t.Setenv(EnvIncludeCSS, "off")
	t.Setenv(EnvLogLevel, "ERROR")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "/tmp/gsw.log")

	cfg, err := Load(writeConfig(t, "layout:\n  lines_per_page: 60\n"))
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Layout.LinesPerPage)
	assert.Equal(t, 0.25, cfg.Validation.PageTolerance)
	assert.False(t, cfg.Render.IncludeCSS)

	lo := cfg.LogOptions()
	assert.Equal(t, "error", lo.Level)
	assert.Equal(t, "json", lo.Format)
	assert.True(t, lo.AddSource)
	assert.Equal(t, "/tmp/gsw.log", lo.File)

	env, ok := EnvOverrideFor("layout.lines_per_page")
	assert.True(t, ok)
	assert.Equal(t, EnvLinesPerPage, env)
	_, ok = EnvOverrideFor("render.default_title")
	assert.False(t, ok, "default_title has no env override")
}

func TestEnvOverridesIgnoreGarbage(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLinesPerPage, "-3")
	t.Setenv(EnvPageTolerance, "lots")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 55, cfg.Layout.LinesPerPage)
	assert.Equal(t, 0.10, cfg.Validation.PageTolerance)
}

func TestSaveThenLoad(t *testing.T) {
	isolate(t)
	cfg := Defaults()
	cfg.Layout.Columns = map[string]int{"action": 58}
	cfg.Render.DefaultTitle = "Pilot"
	require.NoError(t, Save("", cfg))

	path, err := ConfigPath()
	require.NoError(t, err)
	assert.FileExists(t, path)

	got, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 58, got.Layout.Columns["action"])
	assert.Equal(t, "Pilot", got.Render.DefaultTitle)
}
