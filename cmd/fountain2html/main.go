/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Command fountain2html converts Fountain screenplays to HTML and reports
// classification, length and markup problems.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"goscreenwriter/internal/config"
	"goscreenwriter/internal/crash"
	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/pipeline"
)

// errInvalid signals that at least one document failed validation. The
// report has already been printed, so main only sets the exit code.
var errInvalid = errors.New("validation failed")

// app carries state shared by the subcommands of one invocation.
type app struct {
	out    io.Writer
	errOut io.Writer

	configPath    string
	verbose       bool
	useCache      bool
	cacheDir      string
	cacheMaxMB    int
	expectedPages float64
	tolerance     float64
	noCSS         bool
	title         string
	fragment      bool
	jsonOut       bool

	cfg config.AppConfig
	log *slog.Logger
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}
	root := &cobra.Command{
		Use:   "fountain2html",
		Short: "Convert Fountain screenplays to HTML",
		Long: `fountain2html turns Fountain-formatted screenplays into styled HTML,
estimates the printed page count and checks the result for misclassified
speech, leftover markdown and length problems.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default: per-user config.yaml)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	pf.BoolVar(&a.useCache, "cache", false, "reuse conversions from the per-user cache")
	pf.StringVar(&a.cacheDir, "cache-dir", "", "reuse conversions stored in this directory (implies --cache)")
	pf.IntVar(&a.cacheMaxMB, "cache-max-mb", 64, "evict least recently used cache entries above this size (0 keeps everything)")
	pf.Float64Var(&a.expectedPages, "expected-pages", 0, "expected page count; enables the page-length check")
	pf.Float64Var(&a.tolerance, "tolerance", 0, "accepted page deviation as a fraction (default from config, 0.10)")
	pf.BoolVar(&a.noCSS, "no-css", false, "omit the embedded stylesheet")
	pf.StringVar(&a.title, "title", "", "document title (default: title page, then \"Untitled\")")
	pf.BoolVar(&a.fragment, "fragment", false, "emit only the screenplay markup without the <html> shell")
	pf.BoolVar(&a.jsonOut, "json", false, "print validation reports as JSON")

	root.AddCommand(a.convertCmd(), a.checkCmd(), a.batchCmd(), a.versionCmd())
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	lo := cfg.LogOptions()
	lo.Writer = a.errOut
	if a.verbose {
		lo.Level = "debug"
	}
	applog.Init(lo)
	a.cfg = cfg
	a.log = applog.WithComponent("cli")
	return nil
}

// options merges config values with command-line flags.
func (a *app) options() (pipeline.Options, error) {
	opts, err := pipeline.FromConfig(a.cfg)
	if err != nil {
		return pipeline.Options{}, err
	}
	if a.noCSS {
		opts.Render.IncludeCSS = false
	}
	if t := strings.TrimSpace(a.title); t != "" {
		opts.Render.Title = t
	}
	opts.Render.BodyOnly = a.fragment
	opts.Validate.ExpectedPages = a.expectedPages
	if a.tolerance != 0 {
		opts.Validate.Tolerance = a.tolerance
	}
	opts.Logger = applog.WithComponent("pipeline")
	return opts, nil
}

func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	root := newRootCmd(out, errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errInvalid):
		return 1
	default:
		fmt.Fprintln(errOut, "Error:", err)
		return 1
	}
}

func main() {
	defer crash.Recover(crash.Info{Command: strings.Join(os.Args, " "), Inputs: os.Args[1:]})
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
