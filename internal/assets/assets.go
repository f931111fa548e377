/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package assets locates character sprite images on disk.
// A sprite is looked up by its show key ("eileen happy") with either spaces or
// underscores in the file name. Missing sprites are not an error.
package assets

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	applog "rpyslides/internal/log"
)

// Extensions are tried in this order for every candidate name.
var Extensions = []string{".png", ".jpg", ".jpeg", ".webp", ".gif", ".bmp"}

// Image describes a sprite found on disk.
type Image struct {
	Path   string
	Format string // as reported by image.DecodeConfig: png, jpeg, gif, webp, bmp
	Width  int
	Height int
}

// Resolver finds sprites below Dir and remembers the answers.
type Resolver struct {
	Dir   string
	cache map[string]*Image
}

func NewResolver(dir string) *Resolver {
	return &Resolver{Dir: dir, cache: map[string]*Image{}}
}

// Find returns the sprite for key, or false if none exists or it cannot be decoded.
func (r *Resolver) Find(key string) (Image, bool) {
	if r == nil || strings.TrimSpace(key) == "" {
		return Image{}, false
	}
	if img, ok := r.cache[key]; ok {
		if img == nil {
			return Image{}, false
		}
		return *img, true
	}
	img := r.probe(key)
	r.cache[key] = img
	if img == nil {
		return Image{}, false
	}
	return *img, true
}

func (r *Resolver) probe(key string) *Image {
	l := applog.WithOperation(applog.WithComponent("assets"), "probe")
	for _, name := range candidates(key) {
		for _, ext := range Extensions {
			p := filepath.Join(r.Dir, name+ext)
			f, err := os.Open(p)
			if err != nil {
				continue
			}
			cfg, format, err := image.DecodeConfig(f)
			_ = f.Close()
			if err != nil {
				l.Warn("sprite not decodable", slog.String("path", p), slog.Any("err", err))
				continue
			}
			return &Image{Path: p, Format: format, Width: cfg.Width, Height: cfg.Height}
		}
	}
	l.Debug("no sprite", slog.String("key", key))
	return nil
}

func candidates(key string) []string {
	out := []string{key}
	if u := strings.Join(strings.Fields(key), "_"); u != key {
		out = append(out, u)
	}
	return out
}

// PNG returns the sprite encoded as PNG. PNG files are returned as is; other
// formats are decoded and re-encoded.
func (img Image) PNG() ([]byte, error) {
	data, err := os.ReadFile(img.Path)
	if err != nil {
		return nil, err
	}
	if img.Format == "png" {
		return data, nil
	}
	m, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", img.Path, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, m); err != nil {
		return nil, fmt.Errorf("encode %s: %w", img.Path, err)
	}
	return buf.Bytes(), nil
}
