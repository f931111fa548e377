/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"bufio"
	"errors"
	"log/slog"
	"strings"

	applog "rpyslides/internal/log"
)

// Assembler collects classified statements into logical lines. A StageDirection
// that directly follows a Show is folded into it and never appears on its own.
type Assembler struct {
	lines []LogicalLine
}

// Append adds ll and applies the one-step look-back fold.
func (a *Assembler) Append(ll LogicalLine) {
	a.lines = append(a.lines, ll)
	n := len(a.lines)
	if n < 2 {
		return
	}
	dir, ok := a.lines[n-1].Statement.(StageDirection)
	if !ok {
		return
	}
	show, ok := a.lines[n-2].Statement.(Show)
	if !ok {
		return
	}
	show.Position = dir.Position
	a.lines[n-2].Statement = show
	a.lines = a.lines[:n-1]
}

// Lines returns the assembled logical lines.
func (a *Assembler) Lines() []LogicalLine { return a.lines }

// Parse classifies every line of input and assembles the logical-line sequence.
//
// Blank lines and '#' comments are skipped. Lines no marker recognizes are logged
// and dropped. A malformed statement stops parsing and is returned as a *LineError.
func Parse(input string) ([]LogicalLine, error) {
	l := applog.WithOperation(applog.WithComponent("script"), "parse")
	c := NewClassifier()
	var asm Assembler

	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	dropped := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimRight(scanner.Text(), "\r")
		trim := strings.TrimSpace(raw)
		if trim == "" || strings.HasPrefix(trim, "#") {
			continue
		}
		st, err := c.Classify(raw)
		if errors.Is(err, ErrUnrecognized) {
			dropped++
			l.Debug("line dropped", slog.Int("line", lineNo), slog.String("text", trim))
			continue
		}
		if err != nil {
			return nil, &LineError{Line: lineNo, Err: err}
		}
		asm.Append(LogicalLine{
			Indent:    len(raw) - len(strings.TrimLeft(raw, " \t")),
			LineNo:    lineNo,
			Statement: st,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, &LineError{Line: lineNo, Err: err}
	}
	if dropped > 0 {
		l.Info("unrecognized lines skipped", slog.Int("count", dropped))
	}
	return asm.Lines(), nil
}
