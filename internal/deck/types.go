/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package deck walks assembled script lines from an entry label and resolves them
// into the ordered, render-ready slide list.
package deck

import (
	"errors"

	"rpyslides/internal/script"
)

var (
	// ErrEntryNotFound means no label matches the requested entry point.
	ErrEntryNotFound = errors.New("entry label not found")
	// ErrMenuUnbound means a menu choice and its jump could not be paired.
	ErrMenuUnbound = errors.New("menu choice without jump")
)

// EndText is the body of the slide emitted for a return statement.
const EndText = "End"

// Stage holds the show key occupying each of the five slots, left to right.
// It is an array so that assigning it copies it.
type Stage [script.Slots]string

// Empty reports whether no slot is occupied.
func (s Stage) Empty() bool { return s == Stage{} }

// Body is DialogueBody or MenuBody.
type Body interface {
	body()
}

type DialogueBody struct {
	Speaker string
	Color   string
	Text    string
}

type MenuBody struct {
	Speaker string
	Color   string
	Prompt  string
	Choices []Choice
}

// Choice is one menu option and the label it leads to. A choice whose branch
// is a return has Ends set and no Target.
type Choice struct {
	Text   string
	Target string
	Ends   bool
}

func (DialogueBody) body() {}
func (MenuBody) body()     {}

// Slide is one unit of the output deck.
type Slide struct {
	Index int
	// Label is the label a jump can target to reach this slide; Aliases holds
	// labels that were declared back to back before it.
	Label    string
	Aliases  []string
	Body     Body
	Stage    Stage // zero for menus
	Jump     string
	Terminal bool
	// LineNo is the source line of the statement that produced the slide.
	LineNo int
}

// IsMenu reports whether the slide is a menu.
func (s Slide) IsMenu() bool {
	_, ok := s.Body.(MenuBody)
	return ok
}

// Labels returns every label that targets this slide.
func (s Slide) Labels() []string {
	if s.Label == "" {
		return nil
	}
	return append(append([]string(nil), s.Aliases...), s.Label)
}

// FallsThrough reports whether the slide advances to the next index by default:
// dialogue slides without an explicit jump that are not terminal.
func (s Slide) FallsThrough() bool {
	return !s.IsMenu() && !s.Terminal && s.Jump == ""
}

// Options controls where traversal starts.
type Options struct {
	// Entry is the label to start from; "start" when empty.
	Entry string
	// AllowEntryFallback starts at the first line instead of failing when the
	// entry label does not exist.
	AllowEntryFallback bool
}

// DefaultEntry is the conventional entry label.
const DefaultEntry = "start"
