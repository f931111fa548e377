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
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rpyslides/internal/pipeline"
)

type buildFlags struct {
	output   string
	format   string
	entry    string
	fallback bool
	assets   string
	title    string
	author   string
	watch    bool
}

func (a *app) buildCmd() *cobra.Command {
	var f buildFlags
	cmd := &cobra.Command{
		Use:   "build [script.rpy]",
		Short: "Compile a script into a slide deck",
		Long: `Compiles the script (default: input from the config, script.rpy) and writes
the deck. Without --output the file is written next to the script with the
extension of the format (.tex, .pdf, .json).

With --watch the deck is rebuilt every time the script is saved until
interrupted; build errors are reported and the watch goes on.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.scriptArg(args)
			a.applyBuildFlags(cmd, f)
			if f.watch {
				return a.watch(cmd.Context())
			}
			out, err := pipeline.Run(cmd.Context(), a.cfg)
			if err != nil {
				return failed(err)
			}
			fmt.Fprintf(a.stdout, "wrote %s (%d slides, %s)\n", out.Path, len(out.Slides), out.Format)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.output, "output", "o", "", "output file")
	fl.StringVarP(&f.format, "format", "f", "", "beamer|pdf|json")
	fl.StringVar(&f.entry, "entry", "", "label to start from")
	fl.BoolVar(&f.fallback, "allow-entry-fallback", false, "start at the first line when the entry label is missing")
	fl.StringVar(&f.assets, "assets", "", "sprite directory, relative to the script")
	fl.StringVar(&f.title, "title", "", "deck title")
	fl.StringVar(&f.author, "author", "", "deck author")
	fl.BoolVarP(&f.watch, "watch", "w", false, "rebuild whenever the script changes")
	return cmd
}

// applyBuildFlags overrides configuration with the flags actually given.
func (a *app) applyBuildFlags(cmd *cobra.Command, f buildFlags) {
	fl := cmd.Flags()
	if fl.Changed("output") {
		a.cfg.Output = f.output
	}
	if fl.Changed("format") {
		a.cfg.Format = f.format
	}
	if fl.Changed("entry") {
		a.cfg.Entry = f.entry
	}
	if fl.Changed("allow-entry-fallback") {
		a.cfg.AllowEntryFallback = f.fallback
	}
	if fl.Changed("assets") {
		a.cfg.AssetsDir = f.assets
	}
	if fl.Changed("title") {
		a.cfg.Title = f.title
	}
	if fl.Changed("author") {
		a.cfg.Author = f.author
	}
}

func (a *app) watch(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := pipeline.Watch(ctx, a.cfg, pipeline.DefaultDebounce, func(out pipeline.Output, err error) {
		if err != nil {
			a.log.Error("build failed", slog.Any("err", err))
			fmt.Fprintln(a.stderr, "Error:", err)
			return
		}
		fmt.Fprintf(a.stdout, "wrote %s (%d slides, %s)\n", out.Path, len(out.Slides), out.Format)
	})
	return failed(err)
}
