/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"errors"
	"testing"
)

func TestParseBasicScript(t *testing.T) {
	input := `# The Question
define s = Character("Sylvie", color="#c8ffc8")
define m = Character("Me", color="#c8c8ff")

label start:
    scene bg lecturehall

    "It's only when I hear the sounds of shuffling feet..."

    show sylvie green smile

    s "Hi there! How was class?"

    menu:
        "As soon as she catches my eye, I decide..."

        "To ask her right away.":
            jump rightaway

        "To ask her later.":
            jump later

label rightaway:
    m "Will you be my artist?"
    return
`
	lines, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	kinds := make([]string, 0, len(lines))
	for _, ll := range lines {
		kinds = append(kinds, kindOf(ll.Statement))
	}
	want := []string{
		"define", "define", "label", "scene", "dialogue", "show", "dialogue",
		"menu", "dialogue", "choice", "jump", "choice", "jump",
		"label", "dialogue", "end",
	}
	if len(kinds) != len(want) {
		t.Fatalf("got %d logical lines %v, want %d %v", len(kinds), kinds, len(want), want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("line %d: got %s, want %s (all: %v)", i, kinds[i], want[i], kinds)
		}
	}
	if lines[2].LineNo != 5 || lines[2].Indent != 0 {
		t.Fatalf("unexpected label position: %+v", lines[2])
	}
	if lines[3].Indent != 4 {
		t.Fatalf("expected indent 4 for scene, got %d", lines[3].Indent)
	}
}

func TestParseFoldsStageDirectionIntoShow(t *testing.T) {
	input := `label start:
    show eileen happy:
        xalign 0.9
    show lucy at left
    "between"
        leftcenter
`
	lines, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 5 {
		t.Fatalf("expected 5 logical lines, got %d: %+v", len(lines), lines)
	}
	show, ok := lines[1].Statement.(Show)
	if !ok || show.Key != "eileen happy" || show.Position != Right {
		t.Fatalf("expected folded show at right, got %#v", lines[1].Statement)
	}
	if s, ok := lines[2].Statement.(Show); !ok || s.Position != Left {
		t.Fatalf("expected unfolded show at left, got %#v", lines[2].Statement)
	}
	// A direction not directly after a show stays in the sequence.
	if _, ok := lines[4].Statement.(StageDirection); !ok {
		t.Fatalf("expected standalone stage direction, got %#v", lines[4].Statement)
	}
}

func TestAssemblerChainsFoldsIntoShow(t *testing.T) {
	var a Assembler
	a.Append(LogicalLine{Statement: Show{Key: "a", Position: Center}})
	a.Append(LogicalLine{Statement: StageDirection{Position: Off}})
	a.Append(LogicalLine{Statement: StageDirection{Position: Left}})
	lines := a.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	// the fold leaves the show last, so the next direction folds too
	if s := lines[0].Statement.(Show); s.Position != Left {
		t.Fatalf("expected show at left, got %v", s.Position)
	}
	a.Append(LogicalLine{Statement: Scene{}})
	a.Append(LogicalLine{Statement: StageDirection{Position: Right}})
	if n := len(a.Lines()); n != 3 {
		t.Fatalf("expected direction after scene kept, got %d lines", n)
	}
}

func TestParseMalformedReportsLine(t *testing.T) {
	input := "label start:\n    \"fine\"\n    $ renpy.say(e, \"broken)\n"
	_, err := Parse(input)
	var le *LineError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LineError, got %v", err)
	}
	if le.Line != 3 {
		t.Fatalf("expected line 3, got %d", le.Line)
	}
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed in chain, got %v", err)
	}
}

func TestParseDropsUnrecognizedLines(t *testing.T) {
	lines, err := Parse("label start:\nimage bg = \"bg.png\"\nwith fade\n\"text\"\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 logical lines, got %d", len(lines))
	}
}

func TestRegistryNarratorAndLastDefinitionWins(t *testing.T) {
	lines, err := Parse(`define e = Character("Eileen", color="#fff")
define e = Character("Eileen Two")
define b = Character("Bob")
`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	r := NewRegistry(lines)
	if ch, err := r.Lookup(""); err != nil || ch.Name != "" {
		t.Fatalf("narrator lookup = %+v, %v", ch, err)
	}
	if ch, _ := r.Lookup("e"); ch.Name != "Eileen Two" || ch.Color != "" {
		t.Fatalf("expected later definition, got %+v", ch)
	}
	if _, err := r.Lookup("zed"); !errors.Is(err, ErrUnknownCharacter) {
		t.Fatalf("expected ErrUnknownCharacter, got %v", err)
	}
	if keys := r.Keys(); len(keys) != 2 || keys[0] != "b" || keys[1] != "e" || r.Len() != 2 {
		t.Fatalf("unexpected keys: %v (len %d)", keys, r.Len())
	}
}

func kindOf(st Statement) string {
	switch st.(type) {
	case Definition:
		return "define"
	case Label:
		return "label"
	case Dialogue:
		return "dialogue"
	case Menu:
		return "menu"
	case Choice:
		return "choice"
	case Jump:
		return "jump"
	case End:
		return "end"
	case Show:
		return "show"
	case StageDirection:
		return "direction"
	case Scene:
		return "scene"
	default:
		return "?"
	}
}
