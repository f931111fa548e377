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
	"reflect"
	"testing"
)

func TestClassifyStatements(t *testing.T) {
	c := NewClassifier()
	if _, err := c.Classify(`define e = Character("Eileen", color="#c8ffc8")`); err != nil {
		t.Fatalf("define: %v", err)
	}

	cases := []struct {
		line string
		want Statement
	}{
		{`label start:`, Label{Key: "start"}},
		{`    "Hello there"`, Dialogue{Text: "Hello there"}},
		{`"Alice" "Hello there"`, Dialogue{Text: "Hello there"}},
		{`        "Yes":`, Choice{Text: "Yes"}},
		{`    "Maybe" if curious:   `, Choice{Text: "Maybe"}},
		{`    menu:`, Menu{}},
		{`menu where_to:`, Menu{}},
		{`            jump go_yes`, Jump{Key: "go_yes"}},
		{`    return`, End{}},
		{`    $ renpy.say(e, "Spoken \"aloud\"")`, Dialogue{CharacterKey: "e", Text: `Spoken "aloud"`}},
		{`    $ renpy.say(None, "Narrated")`, Dialogue{Text: "Narrated"}},
		{`    show eileen happy at left`, Show{Key: "eileen happy", Position: Left}},
		{`    show eileen happy at right with dissolve`, Show{Key: "eileen happy", Position: Right}},
		{`    show eileen happy at truecenter`, Show{Key: "eileen happy", Position: Center}},
		{`    show lucy:`, Show{Key: "lucy", Position: Center}},
		{`    scene bg room`, Scene{}},
		{`        offscreenright`, StageDirection{Position: Off}},
		{`        leftcenter`, StageDirection{Position: LeftCenter}},
		{`        xalign 0.1`, StageDirection{Position: Left}},
		{`        xalign 0.5`, StageDirection{Position: Center}},
		{`        xalign 0.9`, StageDirection{Position: Right}},
		{`    e "Line one\nline two"`, Dialogue{CharacterKey: "e", Text: "Line one\nline two"}},
		{`    e "I turned left"`, Dialogue{CharacterKey: "e", Text: "I turned left"}},
		{`    e happy "With an attribute"`, Dialogue{CharacterKey: "e", Text: "With an attribute"}},
		{`    e unquoted words`, Dialogue{CharacterKey: "e", Text: "unquoted words"}},
	}
	for _, tc := range cases {
		got, err := c.Classify(tc.line)
		if err != nil {
			t.Fatalf("Classify(%q) error: %v", tc.line, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Classify(%q) = %#v, want %#v", tc.line, got, tc.want)
		}
	}
}

func TestClassifyDefinitionRegistersKey(t *testing.T) {
	c := NewClassifier()
	if _, err := c.Classify(`m "Hi"`); !errors.Is(err, ErrUnrecognized) {
		t.Fatalf("expected unknown key to be unrecognized, got %v", err)
	}
	st, err := c.Classify(`define m = Character("Mary")`)
	if err != nil {
		t.Fatalf("define: %v", err)
	}
	def, ok := st.(Definition)
	if !ok || def.Key != "m" || def.Character.Name != "Mary" || def.Character.Color != "" {
		t.Fatalf("unexpected definition: %#v", st)
	}
	if !c.Known("m") {
		t.Fatalf("key m not registered")
	}
	st, err = c.Classify(`m "Hi"`)
	if err != nil {
		t.Fatalf("classify after define: %v", err)
	}
	if d, ok := st.(Dialogue); !ok || d.CharacterKey != "m" || d.Text != "Hi" {
		t.Fatalf("unexpected dialogue: %#v", st)
	}
}

func TestClassifyPriorityOrder(t *testing.T) {
	c := NewClassifier()
	// A key that collides with a marker never wins over the marker.
	if _, err := c.Classify(`define label = Character("Label Person")`); err != nil {
		t.Fatalf("define: %v", err)
	}
	st, err := c.Classify(`label "Hello"`)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if _, ok := st.(Label); !ok {
		t.Fatalf("expected label marker to win, got %#v", st)
	}

	// Stage keywords outside quotes come before known-key dialogue.
	if _, err := c.Classify(`define e = Character("Eileen")`); err != nil {
		t.Fatalf("define: %v", err)
	}
	st, err = c.Classify(`e left`)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if _, ok := st.(StageDirection); !ok {
		t.Fatalf("expected stage direction, got %#v", st)
	}

	// Marker words must be whole words.
	if _, err := c.Classify(`labelled thing`); !errors.Is(err, ErrUnrecognized) {
		t.Fatalf("expected unrecognized for labelled, got %v", err)
	}
}

func TestClassifyMalformed(t *testing.T) {
	lines := []string{
		`define e = Character(color="#fff")`,
		`define = Character("Nobody")`,
		`$ renpy.say(e "missing comma")`,
		`$ renpy.say(e, "no closing quote)`,
		`$ renpy.say(e, unquoted)`,
		`"unterminated`,
		`xalign high`,
		`jump`,
		`label:`,
	}
	for _, line := range lines {
		c := NewClassifier()
		_, err := c.Classify(line)
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("Classify(%q) error = %v, want ErrMalformed", line, err)
		}
	}
}

func TestClassifyUnrecognized(t *testing.T) {
	c := NewClassifier()
	for _, line := range []string{`image bg room = "room.png"`, `with dissolve`, `pause 1.0`, `init python:`} {
		if _, err := c.Classify(line); !errors.Is(err, ErrUnrecognized) {
			t.Fatalf("Classify(%q) error = %v, want ErrUnrecognized", line, err)
		}
	}
}

func TestPositionString(t *testing.T) {
	if Off.String() != "off" || RightCenter.String() != "rightcenter" {
		t.Fatalf("unexpected position names: %s %s", Off, RightCenter)
	}
	if Off.OnStage() || !Left.OnStage() || !Right.OnStage() {
		t.Fatalf("OnStage mismatch")
	}
	if int(Right)-int(Left)+1 != Slots {
		t.Fatalf("on-stage positions do not cover %d slots", Slots)
	}
}
