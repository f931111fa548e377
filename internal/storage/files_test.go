/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadScript_StripsBOM(t *testing.T) {
	p := filepath.Join(t.TempDir(), "script.rpy")
	if err := os.WriteFile(p, append([]byte{0xEF, 0xBB, 0xBF}, "label start:\n"...), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := ReadScript(p)
	if err != nil {
		t.Fatalf("ReadScript error: %v", err)
	}
	if s != "label start:\n" {
		t.Fatalf("unexpected content %q", s)
	}
}

func TestReadScript_MissingFails(t *testing.T) {
	if _, err := ReadScript(filepath.Join(t.TempDir(), "nope.rpy")); err == nil {
		t.Fatalf("expected error for missing script")
	}
	if _, err := ReadScript(" "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestWriteFile_CreatesDirsAndReplaces(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "out", "deck", "script.tex")
	if err := WriteFile(p, []byte("first")); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if err := WriteFile(p, []byte("second")); err != nil {
		t.Fatalf("WriteFile overwrite error: %v", err)
	}
	got, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != "second" {
		t.Fatalf("roundtrip mismatch: %q", got)
	}
	// no temp files left behind
	ents, _ := os.ReadDir(filepath.Dir(p))
	if len(ents) != 1 {
		t.Fatalf("expected only the output file, got %d entries", len(ents))
	}
}
