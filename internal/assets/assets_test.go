/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package assets

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeImage(t *testing.T, path string, enc func(*os.File, image.Image) error) {
	t.Helper()
	m := image.NewRGBA(image.Rect(0, 0, 4, 6))
	m.Set(1, 1, color.RGBA{R: 255, A: 255})
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := enc(f, m); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestFindPrefersSpacesThenUnderscores(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "eileen_happy.jpg"), func(f *os.File, m image.Image) error { return jpeg.Encode(f, m, nil) })
	writeImage(t, filepath.Join(dir, "lucy.png"), func(f *os.File, m image.Image) error { return png.Encode(f, m) })

	r := NewResolver(dir)
	img, ok := r.Find("eileen happy")
	if !ok {
		t.Fatalf("expected eileen happy to resolve")
	}
	if img.Format != "jpeg" || img.Width != 4 || img.Height != 6 {
		t.Fatalf("unexpected image: %+v", img)
	}
	if _, ok := r.Find("lucy"); !ok {
		t.Fatalf("expected lucy to resolve")
	}
	if _, ok := r.Find("nobody"); ok {
		t.Fatalf("expected nobody to be missing")
	}
	if _, ok := r.Find(""); ok {
		t.Fatalf("empty key must not resolve")
	}
}

func TestFindSkipsUndecodableFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not a png"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, ok := NewResolver(dir).Find("broken"); ok {
		t.Fatalf("undecodable sprite should be treated as missing")
	}
}

func TestFindCachesResults(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(dir)
	if _, ok := r.Find("late"); ok {
		t.Fatalf("expected miss")
	}
	writeImage(t, filepath.Join(dir, "late.png"), func(f *os.File, m image.Image) error { return png.Encode(f, m) })
	if _, ok := r.Find("late"); ok {
		t.Fatalf("expected cached miss")
	}
	if _, ok := NewResolver(dir).Find("late"); !ok {
		t.Fatalf("fresh resolver should see the file")
	}
}

func TestPNGTranscodes(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "j.jpg"), func(f *os.File, m image.Image) error { return jpeg.Encode(f, m, nil) })
	img, ok := NewResolver(dir).Find("j")
	if !ok {
		t.Fatalf("expected j to resolve")
	}
	data, err := img.PNG()
	if err != nil {
		t.Fatalf("PNG: %v", err)
	}
	if _, format, err := image.DecodeConfig(bytes.NewReader(data)); err != nil || format != "png" {
		t.Fatalf("expected png output, got %q, %v", format, err)
	}
}
