/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render turns a built slide deck into an output document:
// a LaTeX beamer source, a PDF, or a JSON dump.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"rpyslides/internal/assets"
	"rpyslides/internal/deck"
	"rpyslides/internal/script"
)

// Format names an output format.
type Format string

const (
	FormatBeamer Format = "beamer"
	FormatPDF    Format = "pdf"
	FormatJSON   Format = "json"
)

// Formats lists the supported formats.
var Formats = []Format{FormatBeamer, FormatPDF, FormatJSON}

// ParseFormat accepts a format name or a file extension (tex, pdf, json).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "beamer", "tex", "latex":
		return FormatBeamer, nil
	case "pdf":
		return FormatPDF, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// Ext returns the conventional file extension for f, with the dot.
func (f Format) Ext() string {
	switch f {
	case FormatPDF:
		return ".pdf"
	case FormatJSON:
		return ".json"
	default:
		return ".tex"
	}
}

// Document is everything a renderer needs.
type Document struct {
	Title      string
	Author     string
	Characters *script.Registry
	Slides     []deck.Slide
	// Sprites resolves stage keys to images; nil renders no images.
	Sprites *assets.Resolver
}

// Render writes doc to w in format f.
func Render(w io.Writer, f Format, doc Document) error {
	switch f {
	case FormatBeamer:
		return Beamer(w, doc)
	case FormatPDF:
		return PDF(w, doc)
	case FormatJSON:
		return JSON(w, doc)
	}
	return fmt.Errorf("unknown output format %q", f)
}

// labelIndex maps every label to the index of the slide it targets.
func labelIndex(slides []deck.Slide) map[string]int {
	m := map[string]int{}
	for _, s := range slides {
		for _, lb := range s.Labels() {
			if _, dup := m[lb]; !dup {
				m[lb] = s.Index
			}
		}
	}
	return m
}

// hexColor parses "#rgb" or "#rrggbb" into its components.
func hexColor(s string) (r, g, b int, ok bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), true
}
