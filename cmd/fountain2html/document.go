/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"goscreenwriter/internal/cache"
	"goscreenwriter/internal/pipeline"
	"goscreenwriter/internal/render"
	"goscreenwriter/internal/validate"
)

// outcome is what the CLI needs from one conversion, whether it came from
// the pipeline or the cache.
type outcome struct {
	Name           string          `json:"name"`
	Output         string          `json:"output,omitempty"`
	Cached         bool            `json:"cached"`
	EstimatedPages int             `json:"estimatedPages"`
	LineCount      int             `json:"lineCount"`
	Report         validate.Report `json:"report"`

	Render render.Result `json:"-"`
}

func (o *outcome) set(rr render.Result, rep validate.Report) {
	o.Render = rr
	o.EstimatedPages = rr.EstimatedPages
	o.LineCount = rr.LineCount
	o.Report = rep
}

func (a *app) openCache(ctx context.Context) (*cache.Store, error) {
	dir := strings.TrimSpace(a.cacheDir)
	if dir == "" {
		if !a.useCache {
			return nil, nil
		}
		d, err := cache.DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	return cache.Open(ctx, dir)
}

// trimCache keeps the cache under --cache-max-mb. Failures only warn.
func (a *app) trimCache(ctx context.Context, store *cache.Store) {
	if a.cacheMaxMB <= 0 {
		return
	}
	n, err := store.EvictToFit(ctx, int64(a.cacheMaxMB)<<20)
	if err != nil {
		a.log.Warn("cache eviction failed", slog.Any("err", err))
		return
	}
	if n > 0 {
		a.log.Debug("cache trimmed", slog.Int("evicted", n))
	}
}

// convertFiles converts paths, serving hits from store (which may be nil)
// and running the misses through pipeline.ConvertAll.
func (a *app) convertFiles(ctx context.Context, paths []string, opts pipeline.Options, store *cache.Store) ([]outcome, error) {
	fp := opts.Fingerprint()
	outs := make([]outcome, len(paths))
	keys := make([]string, len(paths))
	var (
		docs    []pipeline.Document
		missIdx []int
	)
	for i, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		outs[i].Name = p
		keys[i] = cache.Key(string(raw), fp)
		if store != nil {
			e, ok, err := store.Get(ctx, keys[i])
			if err != nil {
				a.log.Warn("cache lookup failed", slog.String("file", p), slog.Any("err", err))
			}
			if ok {
				var rep validate.Report
				if err := json.Unmarshal(e.Report, &rep); err == nil {
					outs[i].Cached = true
					outs[i].set(render.Result{HTML: e.HTML, EstimatedPages: e.EstimatedPages, LineCount: e.LineCount, LinesPerPage: e.LinesPerPage}, rep)
					a.log.Debug("cache hit", slog.String("file", p))
					continue
				}
			}
		}
		docs = append(docs, pipeline.Document{Name: p, Text: string(raw)})
		missIdx = append(missIdx, i)
	}

	results, err := pipeline.ConvertAll(ctx, docs, opts)
	if err != nil {
		return nil, err
	}
	for j, res := range results {
		i := missIdx[j]
		outs[i].set(res.Render, res.Report)
		if store == nil {
			continue
		}
		rep, err := json.Marshal(res.Report)
		if err != nil {
			return nil, fmt.Errorf("encode report: %w", err)
		}
		e := cache.Entry{
			Key: keys[i], HTML: res.Render.HTML, EstimatedPages: res.Render.EstimatedPages,
			LineCount: res.Render.LineCount, LinesPerPage: res.Render.LinesPerPage,
			Valid: res.Report.Valid, Report: rep,
		}
		if err := store.Put(ctx, e); err != nil {
			a.log.Warn("cache store failed", slog.String("file", paths[i]), slog.Any("err", err))
		}
	}
	return outs, nil
}

// htmlPath returns the default output next to the input: pilot.fountain -> pilot.html.
func htmlPath(input, outDir string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + ".html"
	if outDir != "" {
		return filepath.Join(outDir, base)
	}
	return filepath.Join(filepath.Dir(input), base)
}

func writeHTML(path, html string, stdout io.Writer) error {
	if path == "-" {
		_, err := io.WriteString(stdout, html)
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(html), 0o644)
}

// printReports writes reports as JSON or as a plain summary with one row per issue.
func (a *app) printReports(w io.Writer, outs []outcome) error {
	if a.jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(outs) == 1 {
			return enc.Encode(outs[0])
		}
		return enc.Encode(outs)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, o := range outs {
		status := "valid"
		if !o.Report.Valid {
			status = "INVALID"
		}
		s := o.Report.Summary
		fmt.Fprintf(tw, "%s: %s, %d pages (%d lines), %d errors, %d warnings, %d info\n",
			o.Name, status, o.Render.EstimatedPages, o.Render.LineCount, s.Errors, s.Warnings, s.Infos)
		for _, is := range o.Report.Issues {
			loc := "-"
			if is.LineNumber > 0 {
				loc = fmt.Sprintf("line %d", is.LineNumber)
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", is.Severity, is.Category, loc, is.Message)
		}
	}
	return tw.Flush()
}

func anyInvalid(outs []outcome) bool {
	for _, o := range outs {
		if !o.Report.Valid {
			return true
		}
	}
	return false
}
