/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pipeline runs preprocess, parse, render and validate in order and
// hands back every intermediate result.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"goscreenwriter/internal/config"
	"goscreenwriter/internal/fountain"
	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/render"
	"goscreenwriter/internal/validate"
	"goscreenwriter/internal/version"
)

// Options configures a conversion. Render.TitlePage and
// Validate.CharacterLists are filled from the preprocessed document.
type Options struct {
	Render   render.Options
	Validate validate.Options

	// DefaultTitle is used when neither Render.Title nor the title page
	// names the document.
	DefaultTitle string
	// Concurrency bounds ConvertAll; <= 0 means GOMAXPROCS.
	Concurrency int
	// Logger defaults to the application logger tagged "pipeline".
	Logger *slog.Logger
}

// Result carries the output of every stage.
type Result struct {
	Name       string                    `json:"name,omitempty"`
	Preprocess fountain.PreprocessResult `json:"preprocess"`
	Parse      fountain.ParseResult      `json:"parse"`
	Render     render.Result             `json:"render"`
	Report     validate.Report           `json:"report"`
}

// Document is one named input for ConvertAll.
type Document struct {
	Name string
	Text string
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return applog.WithComponent("pipeline")
}

// Convert runs the four stages on raw Fountain text. The only error is a
// *validate.ContractViolation caused by inconsistent options.
func Convert(raw string, opts Options) (Result, error) {
	return convert(context.Background(), raw, opts)
}

func convert(ctx context.Context, raw string, opts Options) (Result, error) {
	l := applog.WithOperation(opts.logger(), "convert")
	start := time.Now()

	pre := fountain.Preprocess(raw)
	parsed := fountain.Parse(pre.Content, pre.CharacterLists)

	ro := opts.Render
	ro.TitlePage = pre.TitlePage
	ro.Title = documentTitle(ro.Title, pre.TitlePage, opts.DefaultTitle)
	rr := render.Render(parsed.Elements, ro)

	vo := opts.Validate
	vo.CharacterLists = pre.CharacterLists
	rep, err := validate.Validate(parsed.Elements, rr, vo)
	if err != nil {
		l.ErrorContext(ctx, "validation rejected its inputs", slog.Any("err", err))
		return Result{}, fmt.Errorf("pipeline: %w", err)
	}

	l.DebugContext(ctx, "converted",
		slog.Int("elements", len(parsed.Elements)),
		slog.Int("lines", rr.LineCount),
		slog.Int("pages", rr.EstimatedPages),
		slog.Int("errors", rep.Summary.Errors),
		slog.Int("warnings", rep.Summary.Warnings),
		slog.Duration("took", time.Since(start)),
	)
	return Result{Preprocess: pre, Parse: parsed, Render: rr, Report: rep}, nil
}

// documentTitle picks the explicit title, then the first line of the title
// page's title, then fallback. Render itself falls back to "Untitled".
func documentTitle(explicit string, tp map[string]string, fallback string) string {
	if t := strings.TrimSpace(explicit); t != "" {
		return t
	}
	if t, ok := tp["title"]; ok {
		first, _, _ := strings.Cut(t, "\n")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	return strings.TrimSpace(fallback)
}

// ConvertAll converts independent documents in parallel. Results keep the
// input order. The first failure cancels documents that have not started.
func ConvertAll(ctx context.Context, docs []Document, opts Options) ([]Result, error) {
	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	l := applog.WithOperation(opts.logger(), "convert_all")
	results := make([]Result, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, d := range docs {
		i, d := i, d
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			dctx := applog.ContextWithDocument(gctx, d.Name)
			res, err := convert(dctx, d.Text, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", d.Name, err)
			}
			res.Name = d.Name
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	l.InfoContext(ctx, "batch converted", slog.Int("documents", len(docs)), slog.Int("concurrency", limit))
	return results, nil
}

// FromConfig builds conversion options from the application config.
func FromConfig(cfg config.AppConfig) (Options, error) {
	opts := Options{
		Render: render.Options{
			IncludeCSS:   cfg.Render.IncludeCSS,
			DataLines:    cfg.Render.DataLines,
			LinesPerPage: cfg.Layout.LinesPerPage,
		},
		Validate:     validate.Options{Tolerance: cfg.Validation.PageTolerance},
		DefaultTitle: cfg.Render.DefaultTitle,
	}
	if len(cfg.Layout.Columns) > 0 {
		cols := make(map[fountain.ElementType]int, len(cfg.Layout.Columns))
		for name, n := range cfg.Layout.Columns {
			t, ok := fountain.ParseElementType(name)
			if !ok {
				return Options{}, fmt.Errorf("layout.columns: unknown element type %q", name)
			}
			cols[t] = n
		}
		opts.Render.Styles = render.NewStyleSheet().WithColumns(cols)
	}
	return opts, nil
}

// Fingerprint identifies every option that changes the output, for use as
// part of a cache key. Logger and Concurrency are excluded.
func (o Options) Fingerprint() string {
	var b strings.Builder
	b.WriteString("v=")
	b.WriteString(version.Version)
	fmt.Fprintf(&b, ";css=%t;body=%t;data=%t;title=%q;deftitle=%q;lpp=%d",
		o.Render.IncludeCSS, o.Render.BodyOnly, o.Render.DataLines, strings.TrimSpace(o.Render.Title),
		strings.TrimSpace(o.DefaultTitle), o.Render.LinesPerPage)
	fmt.Fprintf(&b, ";exp=%s;tol=%s",
		strconv.FormatFloat(o.Validate.ExpectedPages, 'g', -1, 64), strconv.FormatFloat(o.Validate.Tolerance, 'g', -1, 64))
	b.WriteString(";cols=")
	for i, t := range fountain.ElementTypes {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(o.Render.Styles.Resolve(t).Column))
	}
	return b.String()
}
