/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package deck

import (
	"fmt"
	"log/slog"
	"strings"

	applog "rpyslides/internal/log"
	"rpyslides/internal/script"
)

// builder is the traversal state: position, labels waiting for the next slide,
// the stage and the slides emitted so far.
type builder struct {
	lines   []script.LogicalLine
	reg     *script.Registry
	pos     int
	pending []string
	stage   Stage
	slides  []Slide
	log     *slog.Logger
}

// Build walks lines from the entry label to the last line and returns the slides.
// reg must hold every definition of the script.
func Build(lines []script.LogicalLine, reg *script.Registry, opts Options) ([]Slide, error) {
	l := applog.WithOperation(applog.WithComponent("deck"), "build")
	entry := opts.Entry
	if entry == "" {
		entry = DefaultEntry
	}

	b := &builder{lines: lines, reg: reg, log: l}
	start, ok := findLabel(lines, entry)
	switch {
	case ok:
		b.pos = start + 1
		b.pending = []string{entry}
	case opts.AllowEntryFallback:
		l.Warn("entry label missing, starting at first line", slog.String("entry", entry))
	default:
		return nil, fmt.Errorf("%w: %q", ErrEntryNotFound, entry)
	}

	for b.pos < len(b.lines) {
		if err := b.step(); err != nil {
			return nil, err
		}
	}

	if len(b.pending) > 0 {
		l.Warn("labels at end of script have no slide", slog.String("labels", strings.Join(b.pending, ",")))
	}
	if n := len(b.slides); n > 0 && b.slides[n-1].FallsThrough() {
		l.Warn("last slide has no forward control", slog.Int("index", n-1), slog.Int("line", b.slides[n-1].LineNo))
	}
	l.Debug("deck built", slog.Int("slides", len(b.slides)), slog.Int("lines", len(lines)))
	return b.slides, nil
}

func findLabel(lines []script.LogicalLine, key string) (int, bool) {
	for i, ll := range lines {
		if lb, ok := ll.Statement.(script.Label); ok && lb.Key == key {
			return i, true
		}
	}
	return 0, false
}

// step dispatches the statement at b.pos and advances past everything it consumed.
func (b *builder) step() error {
	ll := b.lines[b.pos]
	switch st := ll.Statement.(type) {
	case script.Dialogue:
		ch, err := b.reg.Lookup(st.CharacterKey)
		if err != nil {
			return &script.LineError{Line: ll.LineNo, Err: err}
		}
		b.emit(ll, Slide{Body: DialogueBody{Speaker: ch.Name, Color: ch.Color, Text: st.Text}, Stage: b.stage})
		b.pos++
	case script.Menu:
		return b.menu(ll)
	case script.Label:
		b.pending = append(b.pending, st.Key)
		b.pos++
	case script.Jump:
		if n := len(b.slides); n > 0 {
			b.slides[n-1].Jump = st.Key
		} else {
			b.log.Debug("jump before first slide ignored", slog.String("target", st.Key), slog.Int("line", ll.LineNo))
		}
		b.pos++
	case script.End:
		b.emit(ll, Slide{Body: DialogueBody{Text: EndText}, Stage: b.stage, Terminal: true})
		b.pos++
	case script.Show:
		b.show(st)
		b.pos++
	case script.Scene:
		b.stage = Stage{}
		b.pos++
	default:
		b.pos++
	}
	return nil
}

// menu consumes the Choice/Jump/Dialogue run after a Menu and emits one menu slide.
func (b *builder) menu(head script.LogicalLine) error {
	var m menuCollector
	b.pos++
	for ; b.pos < len(b.lines); b.pos++ {
		ll := b.lines[b.pos]
		ok, err := m.feed(ll.Statement)
		if err != nil {
			return &script.LineError{Line: ll.LineNo, Err: err}
		}
		if !ok {
			break
		}
	}
	if err := m.close(); err != nil {
		return &script.LineError{Line: head.LineNo, Err: err}
	}

	body := MenuBody{Choices: m.choices}
	if m.hasPrompt {
		ch, err := b.reg.Lookup(m.promptKey)
		if err != nil {
			return &script.LineError{Line: head.LineNo, Err: err}
		}
		body.Speaker, body.Color, body.Prompt = ch.Name, ch.Color, m.prompt
	}
	for _, c := range body.Choices {
		if c.Ends {
			b.log.Warn("menu choice returns, it gets no link", slog.String("choice", c.Text), slog.Int("line", head.LineNo))
		}
	}
	if len(body.Choices) == 0 {
		b.log.Warn("menu without choices", slog.Int("line", head.LineNo))
	}
	b.emit(head, Slide{Body: body})
	return nil
}

// show moves a character: any slot held by the same character (first word of
// the show key) is cleared before the new slot is filled.
func (b *builder) show(st script.Show) {
	name := primaryName(st.Key)
	for i, occupant := range b.stage {
		if occupant != "" && primaryName(occupant) == name {
			b.stage[i] = ""
		}
	}
	if st.Position.OnStage() {
		b.stage[st.Position] = st.Key
	}
}

func primaryName(key string) string {
	if f := strings.Fields(key); len(f) > 0 {
		return f[0]
	}
	return key
}

func (b *builder) emit(ll script.LogicalLine, s Slide) {
	s.Index = len(b.slides)
	s.LineNo = ll.LineNo
	if n := len(b.pending); n > 0 {
		s.Label = b.pending[n-1]
		if n > 1 {
			s.Aliases = append([]string(nil), b.pending[:n-1]...)
		}
		b.pending = nil
	}
	b.slides = append(b.slides, s)
}
