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
	"fmt"
)

// Statement is one fact extracted from one or more script lines.
// The set of implementations is closed; use a type switch to dispatch.
type Statement interface {
	statement()
}

// Character is a speaking role declared by a define line.
type Character struct {
	Name  string
	Color string
}

// Position is a stage placement. The five on-stage values index the stage slots
// from left to right; Off means "not on stage".
type Position int

const (
	Off Position = iota - 1
	Left
	LeftCenter
	Center
	RightCenter
	Right
)

// Slots is the number of on-stage positions.
const Slots = 5

func (p Position) String() string {
	switch p {
	case Off:
		return "off"
	case Left:
		return "left"
	case LeftCenter:
		return "leftcenter"
	case Center:
		return "center"
	case RightCenter:
		return "rightcenter"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("Position(%d)", int(p))
	}
}

// OnStage reports whether p names one of the five stage slots.
func (p Position) OnStage() bool { return p >= Left && p <= Right }

type Definition struct {
	Key       string
	Character Character
}

type Label struct {
	Key string
}

// Dialogue is spoken or narrated text. An empty CharacterKey means narration.
type Dialogue struct {
	CharacterKey string
	Text         string
}

// Menu opens a branch point; Choice/Jump pairs and an optional prompt Dialogue follow.
type Menu struct{}

type Choice struct {
	Text string
}

type Jump struct {
	Key string
}

// End terminates the current flow.
type End struct{}

type Show struct {
	Key      string
	Position Position
}

// StageDirection refines the position of the Show right before it.
type StageDirection struct {
	Position Position
}

// Scene clears the stage.
type Scene struct{}

func (Definition) statement()     {}
func (Label) statement()          {}
func (Dialogue) statement()       {}
func (Menu) statement()           {}
func (Choice) statement()         {}
func (Jump) statement()           {}
func (End) statement()            {}
func (Show) statement()           {}
func (StageDirection) statement() {}
func (Scene) statement()          {}

// LogicalLine is a classified statement with its source context.
// Indent and LineNo are kept for diagnostics only.
type LogicalLine struct {
	Indent    int
	LineNo    int // 1-based line of the first physical line
	Statement Statement
}

var (
	// ErrUnrecognized means no marker matched. Callers log and drop the line.
	ErrUnrecognized = errors.New("unrecognized line")
	// ErrMalformed means a marker matched but its payload could not be extracted.
	ErrMalformed = errors.New("malformed statement")
	// ErrUnknownCharacter is returned by Registry.Lookup for undefined keys.
	ErrUnknownCharacter = errors.New("unknown character key")
)

// LineError attaches a source line number to a parse failure.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e *LineError) Unwrap() error { return e.Err }
