/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"goscreenwriter/internal/pipeline"
	"goscreenwriter/internal/version"
)

func (a *app) convertCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Convert one screenplay to HTML",
		Long: `Convert writes <name>.html next to the input (or to --output, "-" for stdout)
and prints the validation summary to stderr. Validation problems do not change
the exit code; use check for that.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "-" && a.jsonOut {
				return errors.New("--json cannot share stdout with --output -")
			}
			outs, err := a.runFiles(cmd, args)
			if err != nil {
				return err
			}
			o := &outs[0]
			o.Output = output
			if o.Output == "" {
				o.Output = htmlPath(args[0], "")
			}
			if err := writeHTML(o.Output, o.Render.HTML, cmd.OutOrStdout()); err != nil {
				return fmt.Errorf("write %s: %w", o.Output, err)
			}
			a.log.Info("converted", slog.String("in", args[0]), slog.String("out", o.Output),
				slog.Int("pages", o.Render.EstimatedPages), slog.Bool("cached", o.Cached))
			if a.jsonOut {
				return a.printReports(cmd.OutOrStdout(), outs)
			}
			return a.printReports(cmd.ErrOrStderr(), outs)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file ("-" for stdout)`)
	return cmd
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a screenplay without writing HTML",
		Long:  `Check prints the validation report and exits with status 1 when it contains errors.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outs, err := a.runFiles(cmd, args)
			if err != nil {
				return err
			}
			if err := a.printReports(cmd.OutOrStdout(), outs); err != nil {
				return err
			}
			if anyInvalid(outs) {
				return errInvalid
			}
			return nil
		},
	}
}

func (a *app) batchCmd() *cobra.Command {
	var (
		outDir      string
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "batch <files...>",
		Short: "Convert several screenplays in parallel",
		Long: `Batch converts every file independently, writes the HTML next to each input
(or into --out-dir) and exits with status 1 if any report contains errors.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.options()
			if err != nil {
				return err
			}
			opts.Concurrency = concurrency
			outs, err := a.runFilesWith(cmd, args, opts)
			if err != nil {
				return err
			}
			for i := range outs {
				outs[i].Output = htmlPath(outs[i].Name, outDir)
				if err := writeHTML(outs[i].Output, outs[i].Render.HTML, cmd.OutOrStdout()); err != nil {
					return fmt.Errorf("write %s: %w", outs[i].Output, err)
				}
			}
			if err := a.printReports(cmd.OutOrStdout(), outs); err != nil {
				return err
			}
			if anyInvalid(outs) {
				return errInvalid
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out-dir", "", "directory for the generated HTML files")
	cmd.Flags().IntVarP(&concurrency, "jobs", "j", 0, "parallel conversions (default: number of CPUs)")
	return cmd
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func (a *app) runFiles(cmd *cobra.Command, paths []string) ([]outcome, error) {
	opts, err := a.options()
	if err != nil {
		return nil, err
	}
	return a.runFilesWith(cmd, paths, opts)
}

func (a *app) runFilesWith(cmd *cobra.Command, paths []string, opts pipeline.Options) ([]outcome, error) {
	store, err := a.openCache(cmd.Context())
	if err != nil {
		return nil, err
	}
	if store != nil {
		defer func() {
			if err := store.Close(); err != nil {
				a.log.Warn("close cache", slog.Any("err", err))
			}
		}()
	}
	outs, err := a.convertFiles(cmd.Context(), paths, opts, store)
	if err == nil && store != nil {
		a.trimCache(cmd.Context(), store)
	}
	return outs, err
}
