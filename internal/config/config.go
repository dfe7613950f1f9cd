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
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	applog "goscreenwriter/internal/log"
)

// AppConfig is the user-editable configuration persisted as YAML.
// Environment variables are read-only overrides applied after the file.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type LayoutConfig struct {
	LinesPerPage int `yaml:"lines_per_page"`
	// Columns overrides characters per line, keyed by element type name
	// ("dialogue", "scene-heading", ...).
	Columns map[string]int `yaml:"columns,omitempty"`
}

type RenderConfig struct {
	IncludeCSS   bool   `yaml:"include_css"`
	DefaultTitle string `yaml:"default_title"`
	DataLines    bool   `yaml:"data_lines"`
}

type ValidationConfig struct {
	PageTolerance float64 `yaml:"page_tolerance"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int              `yaml:"config_version"`
	Layout        LayoutConfig     `yaml:"layout"`
	Render        RenderConfig     `yaml:"render"`
	Validation    ValidationConfig `yaml:"validation"`
	Logging       LoggingConfig    `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Layout:        LayoutConfig{LinesPerPage: 55},
		Render:        RenderConfig{IncludeCSS: true},
		Validation:    ValidationConfig{PageTolerance: 0.10},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvLinesPerPage  = "GSW_LINES_PER_PAGE"
	EnvPageTolerance = "GSW_PAGE_TOLERANCE"
	EnvIncludeCSS    = "GSW_INCLUDE_CSS"
	// EnvLogLevel Logging envs, shared with internal/log.
	EnvLogLevel  = "GSW_LOG_LEVEL"
	EnvLogFormat = "GSW_LOG_FORMAT"
	EnvLogSource = "GSW_LOG_SOURCE"
	EnvLogFile   = "GSW_LOG_FILE"
)

//go:embed schema.json
var schemaJSON []byte

// SchemaError lists every field of a config file that failed the schema.
type SchemaError struct {
	Path     string
	Problems []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Path, strings.Join(e.Problems, "; "))
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "GoScreenwriter")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "GoScreenwriter")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "goscreenwriter")
		} else if home := os.Getenv("HOME"); home != "" {
			base = filepath.Join(home, ".config", "goscreenwriter")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the config file, applies defaults and merges environment
// overrides. An empty path means the per-user file, which may be absent;
// an explicit path must exist.
func Load(path string) (AppConfig, error) {
	cfg := Defaults()
	explicit := path != ""
	if !explicit {
		p, err := ConfigPath()
		if err != nil {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(path, data, &cfg); err != nil {
			return Defaults(), err
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Defaults(), fmt.Errorf("read config: %w", err)
	}
	applyEnvOverrides(&cfg)
	normalize(&cfg)
	return cfg, nil
}

// decode validates the raw document against the embedded schema and
// unmarshals it over cfg, so keys absent from the file keep their defaults.
func decode(path string, data []byte, cfg *AppConfig) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if doc == nil {
		return nil
	}
	foldLogging(doc)
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validate config %s: %w", path, err)
	}
	if !res.Valid() {
		se := &SchemaError{Path: path}
		for _, e := range res.Errors() {
			se.Problems = append(se.Problems, e.String())
		}
		return se
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// foldLogging lowercases logging.level and logging.format in the raw
// document so the schema enums accept "DEBUG" or "JSON" like normalize does.
func foldLogging(doc any) {
	root, ok := doc.(map[string]any)
	if !ok {
		return
	}
	lg, ok := root["logging"].(map[string]any)
	if !ok {
		return
	}
	for _, k := range []string{"level", "format"} {
		if v, ok := lg[k].(string); ok {
			lg[k] = strings.ToLower(strings.TrimSpace(v))
		}
	}
}

// Save writes cfg as YAML. An empty path means the per-user file.
func Save(path string, cfg AppConfig) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func normalize(cfg *AppConfig) {
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	cfg.Logging.File = strings.TrimSpace(cfg.Logging.File)
	cfg.Render.DefaultTitle = strings.TrimSpace(cfg.Render.DefaultTitle)
	if cfg.Layout.LinesPerPage <= 0 {
		cfg.Layout.LinesPerPage = Defaults().Layout.LinesPerPage
	}
	if cfg.Validation.PageTolerance < 0 {
		cfg.Validation.PageTolerance = Defaults().Validation.PageTolerance
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvLinesPerPage)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Layout.LinesPerPage = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvPageTolerance)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.Validation.PageTolerance = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvIncludeCSS)); v != "" {
		cfg.Render.IncludeCSS = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env := map[string]string{
		"layout.lines_per_page":     EnvLinesPerPage,
		"validation.page_tolerance": EnvPageTolerance,
		"render.include_css":        EnvIncludeCSS,
		"logging.level":             EnvLogLevel,
		"logging.format":            EnvLogFormat,
		"logging.source":            EnvLogSource,
		"logging.file":              EnvLogFile,
	}[key]
	if env != "" && os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}

// LogOptions maps the logging section onto logger options.
func (c AppConfig) LogOptions() applog.Options {
	return applog.Options{
		Level:     c.Logging.Level,
		Format:    c.Logging.Format,
		AddSource: c.Logging.Source,
		File:      c.Logging.File,
	}
}
