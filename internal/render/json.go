/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"encoding/json"
	"fmt"
	"io"

	"rpyslides/internal/deck"
	"rpyslides/internal/script"
)

type jsonDeck struct {
	Title      string          `json:"title"`
	Author     string          `json:"author,omitempty"`
	Characters []jsonCharacter `json:"characters"`
	Slides     []jsonSlide     `json:"slides"`
}

type jsonCharacter struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type jsonSlide struct {
	Index    int          `json:"index"`
	Kind     string       `json:"kind"` // dialogue | menu
	Labels   []string     `json:"labels,omitempty"`
	Speaker  string       `json:"speaker"`
	Color    string       `json:"color,omitempty"`
	Text     string       `json:"text"`
	Stage    []string     `json:"stage"`
	Choices  []jsonChoice `json:"choices,omitempty"`
	Jump     string       `json:"jump,omitempty"`
	Terminal bool         `json:"terminal,omitempty"`
	// Next is the index the slide advances to by default, -1 for none.
	Next int `json:"next"`
	Line int `json:"line"`
}

type jsonChoice struct {
	Text   string `json:"text"`
	Target string `json:"target"`
	Slide  int    `json:"slide"` // -1 when the target label is missing
	Ends   bool   `json:"ends,omitempty"`
}

// JSON writes doc as an indented JSON document.
func JSON(w io.Writer, doc Document) error {
	out := jsonDeck{
		Title:      doc.Title,
		Author:     doc.Author,
		Characters: jsonCharacters(doc.Characters),
		Slides:     make([]jsonSlide, 0, len(doc.Slides)),
	}
	labels := labelIndex(doc.Slides)
	target := func(label string) int {
		if i, ok := labels[label]; ok {
			return i
		}
		return -1
	}

	for _, s := range doc.Slides {
		js := jsonSlide{
			Index:    s.Index,
			Labels:   s.Labels(),
			Stage:    s.Stage[:],
			Jump:     s.Jump,
			Terminal: s.Terminal,
			Next:     -1,
			Line:     s.LineNo,
		}
		switch b := s.Body.(type) {
		case deck.DialogueBody:
			js.Kind, js.Speaker, js.Color, js.Text = "dialogue", b.Speaker, b.Color, b.Text
		case deck.MenuBody:
			js.Kind, js.Speaker, js.Color, js.Text = "menu", b.Speaker, b.Color, b.Prompt
			for _, c := range b.Choices {
				js.Choices = append(js.Choices, jsonChoice{Text: c.Text, Target: c.Target, Slide: target(c.Target), Ends: c.Ends})
			}
		}
		switch {
		case s.Jump != "":
			js.Next = target(s.Jump)
		case s.FallsThrough() && s.Index+1 < len(doc.Slides):
			js.Next = s.Index + 1
		}
		out.Slides = append(out.Slides, js)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

func jsonCharacters(reg *script.Registry) []jsonCharacter {
	out := []jsonCharacter{}
	if reg == nil {
		return out
	}
	for _, key := range reg.Keys() {
		ch, err := reg.Lookup(key)
		if err != nil {
			continue
		}
		out = append(out, jsonCharacter{Key: key, Name: ch.Name, Color: ch.Color})
	}
	return out
}
