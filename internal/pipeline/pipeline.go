/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pipeline wires the compiler stages together: read the script, classify
// and assemble it, build the registry, walk the story into slides, render and write.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"rpyslides/internal/assets"
	"rpyslides/internal/config"
	"rpyslides/internal/deck"
	applog "rpyslides/internal/log"
	"rpyslides/internal/render"
	"rpyslides/internal/script"
	"rpyslides/internal/storage"
)

// Result is a compiled script.
type Result struct {
	Lines    []script.LogicalLine
	Registry *script.Registry
	Slides   []deck.Slide
}

// Compile turns script source into slides. It reads nothing from disk.
func Compile(src string, opts deck.Options) (Result, error) {
	lines, err := script.Parse(src)
	if err != nil {
		return Result{}, err
	}
	reg := script.NewRegistry(lines)
	slides, err := deck.Build(lines, reg, opts)
	if err != nil {
		return Result{}, err
	}
	return Result{Lines: lines, Registry: reg, Slides: slides}, nil
}

// Options derives traversal options from cfg.
func Options(cfg config.AppConfig) deck.Options {
	return deck.Options{Entry: cfg.Entry, AllowEntryFallback: cfg.AllowEntryFallback}
}

// CompileFile reads cfg.Input and compiles it.
func CompileFile(cfg config.AppConfig) (Result, error) {
	src, err := storage.ReadScript(cfg.Input)
	if err != nil {
		return Result{}, err
	}
	res, err := Compile(src, Options(cfg))
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", cfg.Input, err)
	}
	return res, nil
}

// Document prepares res for rendering with the title, author and sprite
// directory from cfg. A relative assets_dir is taken relative to the script.
func Document(cfg config.AppConfig, res Result) render.Document {
	doc := render.Document{
		Title:      cfg.Title,
		Author:     cfg.Author,
		Characters: res.Registry,
		Slides:     res.Slides,
	}
	if dir := strings.TrimSpace(cfg.AssetsDir); dir != "" {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(filepath.Dir(cfg.Input), dir)
		}
		doc.Sprites = assets.NewResolver(dir)
	}
	return doc
}

// OutputPath is cfg.Output, or the input path with the format's extension.
func OutputPath(cfg config.AppConfig, f render.Format) string {
	if out := strings.TrimSpace(cfg.Output); out != "" {
		return out
	}
	return strings.TrimSuffix(cfg.Input, filepath.Ext(cfg.Input)) + f.Ext()
}

// Output describes a finished build.
type Output struct {
	Result
	Format render.Format
	Path   string
	Bytes  int
}

// Run compiles cfg.Input, renders it in cfg.Format and writes the output file.
// Nothing is written when any stage fails.
func Run(ctx context.Context, cfg config.AppConfig) (Output, error) {
	l := applog.WithOperation(applog.WithComponent("pipeline"), "run").With(slog.String("input", cfg.Input))
	start := time.Now()

	f, err := render.ParseFormat(cfg.Format)
	if err != nil {
		return Output{}, err
	}
	res, err := CompileFile(cfg)
	if err != nil {
		return Output{}, err
	}

	var buf bytes.Buffer
	if err := render.Render(&buf, f, Document(cfg, res)); err != nil {
		return Output{}, err
	}
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	out := Output{Result: res, Format: f, Path: OutputPath(cfg, f), Bytes: buf.Len()}
	if err := storage.WriteFile(out.Path, buf.Bytes()); err != nil {
		return Output{}, err
	}
	l.Info("deck written",
		slog.String("output", out.Path),
		slog.String("format", string(f)),
		slog.Int("slides", len(res.Slides)),
		slog.Duration("took", time.Since(start)),
	)
	return out, nil
}

// Index compiles cfg.Input and stores the deck in the SQLite index at cfg.Index.
func Index(ctx context.Context, cfg config.AppConfig) (storage.Run, error) {
	res, err := CompileFile(cfg)
	if err != nil {
		return storage.Run{}, err
	}
	path := cfg.Index
	if strings.TrimSpace(path) == "" {
		path = storage.DefaultIndexFile
	}
	return storage.WriteIndex(ctx, path, cfg.Input, res.Registry, res.Slides)
}
