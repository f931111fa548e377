/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reColor  = regexp.MustCompile(`color\s*=\s*"([^"]*)"`)
	unescape = strings.NewReplacer(`\"`, `"`, `\n`, "\n")
)

// stageKeywords are matched against whole tokens outside quoted strings,
// in this order. xalign is handled separately because it carries a value.
var stageKeywords = []struct {
	word string
	pos  Position
}{
	{"offscreenleft", Off},
	{"offscreenright", Off},
	{"leftcenter", LeftCenter},
	{"rightcenter", RightCenter},
	{"left", Left},
	{"right", Right},
}

// Classifier turns physical lines into statements. It remembers every character
// key defined so far, so a line can only address characters defined above it.
type Classifier struct {
	known map[string]struct{}
}

func NewClassifier() *Classifier {
	return &Classifier{known: map[string]struct{}{}}
}

// Known reports whether key was defined by an earlier line.
func (c *Classifier) Known(key string) bool {
	_, ok := c.known[key]
	return ok
}

// Classify maps one physical line to a statement. The checks run in a fixed
// priority order; several markers are substrings of others, so it matters.
func (c *Classifier) Classify(line string) (Statement, error) {
	t := strings.TrimSpace(line)

	switch {
	case hasKeyword(t, "define") && strings.Contains(t, "Character("):
		def, err := parseDefinition(t)
		if err != nil {
			return nil, err
		}
		c.known[def.Key] = struct{}{}
		return def, nil

	case hasKeyword(t, "label"):
		key := strings.TrimSpace(strings.ReplaceAll(strings.TrimPrefix(t, "label"), ":", ""))
		if key == "" {
			return nil, fmt.Errorf("%w: label without a name", ErrMalformed)
		}
		return Label{Key: key}, nil

	case strings.HasPrefix(t, `"`):
		text, err := lastQuoted(t)
		if err != nil {
			return nil, err
		}
		if strings.HasSuffix(strings.TrimRight(line, " \t\r"), ":") {
			return Choice{Text: text}, nil
		}
		return Dialogue{Text: text}, nil

	case hasKeyword(t, "menu"):
		return Menu{}, nil

	case hasKeyword(t, "jump"):
		key := strings.TrimSpace(strings.ReplaceAll(strings.TrimPrefix(t, "jump"), ":", ""))
		if key == "" {
			return nil, fmt.Errorf("%w: jump without a target", ErrMalformed)
		}
		return Jump{Key: key}, nil

	case hasKeyword(t, "return"):
		return End{}, nil

	case strings.Contains(t, "renpy.say("):
		return parseSay(t)

	case strings.HasPrefix(t, "show "):
		return parseShow(t)

	case hasKeyword(t, "scene"):
		return Scene{}, nil
	}

	if pos, ok, err := stagePosition(t); err != nil {
		return nil, err
	} else if ok {
		return StageDirection{Position: pos}, nil
	}

	if key, rest, ok := strings.Cut(t, " "); ok && c.Known(key) {
		rest = strings.TrimSpace(rest)
		qs, err := quotedStrings(rest)
		if err != nil {
			return nil, err
		}
		if len(qs) > 0 {
			return Dialogue{CharacterKey: key, Text: normalize(qs[len(qs)-1])}, nil
		}
		return Dialogue{CharacterKey: key, Text: normalize(rest)}, nil
	}

	return nil, ErrUnrecognized
}

// hasKeyword reports whether t starts with kw as a whole word.
func hasKeyword(t, kw string) bool {
	if !strings.HasPrefix(t, kw) {
		return false
	}
	if len(t) == len(kw) {
		return true
	}
	switch t[len(kw)] {
	case ' ', '\t', ':':
		return true
	}
	return false
}

func parseDefinition(t string) (Definition, error) {
	lhs, rhs, ok := strings.Cut(strings.TrimPrefix(t, "define"), "=")
	key := strings.TrimSpace(lhs)
	if !ok || key == "" {
		return Definition{}, fmt.Errorf("%w: definition without a key", ErrMalformed)
	}
	_, call, _ := strings.Cut(rhs, "Character(")
	qs, err := quotedStrings(call)
	if err != nil {
		return Definition{}, err
	}
	// the name is the first positional argument, not a keyword argument's value
	quote, eq := strings.Index(call, `"`), strings.Index(call, "=")
	if len(qs) == 0 || (eq >= 0 && eq < quote) {
		return Definition{}, fmt.Errorf("%w: character %q has no quoted name", ErrMalformed, key)
	}
	ch := Character{Name: normalize(qs[0])}
	if m := reColor.FindStringSubmatch(call); m != nil {
		ch.Color = m[1]
	}
	return Definition{Key: key, Character: ch}, nil
}

func parseSay(t string) (Statement, error) {
	_, args, _ := strings.Cut(t, "renpy.say(")
	key, rest, ok := strings.Cut(args, ",")
	if !ok {
		return nil, fmt.Errorf("%w: renpy.say needs a character and a text", ErrMalformed)
	}
	key = strings.TrimSpace(key)
	if key == "None" {
		key = ""
	}
	qs, err := quotedStrings(rest)
	if err != nil {
		return nil, err
	}
	if len(qs) == 0 {
		return nil, fmt.Errorf("%w: renpy.say text is not quoted", ErrMalformed)
	}
	return Dialogue{CharacterKey: key, Text: normalize(qs[0])}, nil
}

func parseShow(t string) (Statement, error) {
	rest := strings.TrimPrefix(t, "show ")
	rest, _, _ = strings.Cut(rest, " with ")
	img, at, hasAt := strings.Cut(rest, " at ")
	key := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(img), ":"))
	if key == "" {
		return nil, fmt.Errorf("%w: show without an image", ErrMalformed)
	}
	pos := Center
	if hasAt {
		if f := strings.Fields(at); len(f) > 0 {
			switch strings.TrimSuffix(f[0], ":") {
			case "left":
				pos = Left
			case "right":
				pos = Right
			}
		}
	}
	return Show{Key: key, Position: pos}, nil
}

// stagePosition looks for stage keywords among the unquoted tokens of t.
func stagePosition(t string) (Position, bool, error) {
	tokens := strings.Fields(stripQuoted(t))
	for i := range tokens {
		tokens[i] = strings.TrimSuffix(tokens[i], ":")
	}
	for _, kw := range stageKeywords {
		for _, tok := range tokens {
			if tok == kw.word {
				return kw.pos, true, nil
			}
		}
	}
	for i, tok := range tokens {
		if tok != "xalign" {
			continue
		}
		if i+1 >= len(tokens) {
			return Off, false, fmt.Errorf("%w: xalign without a value", ErrMalformed)
		}
		v, err := strconv.ParseFloat(tokens[i+1], 64)
		if err != nil {
			return Off, false, fmt.Errorf("%w: xalign value %q", ErrMalformed, tokens[i+1])
		}
		switch {
		case v < 0.33:
			return Left, true, nil
		case v < 0.66:
			return Center, true, nil
		default:
			return Right, true, nil
		}
	}
	return Off, false, nil
}

// quotedStrings returns the raw contents of every double-quoted string in s.
// Backslash escapes are honored when looking for the closing quote.
func quotedStrings(s string) ([]string, error) {
	var out []string
	for i := 0; i < len(s); i++ {
		if s[i] != '"' {
			continue
		}
		j := i + 1
		for ; j < len(s); j++ {
			if s[j] == '\\' {
				j++
				continue
			}
			if s[j] == '"' {
				break
			}
		}
		if j >= len(s) {
			return out, fmt.Errorf("%w: missing closing quote", ErrMalformed)
		}
		out = append(out, s[i+1:j])
		i = j
	}
	return out, nil
}

func lastQuoted(s string) (string, error) {
	qs, err := quotedStrings(s)
	if err != nil {
		return "", err
	}
	if len(qs) == 0 {
		return "", fmt.Errorf("%w: no quoted text", ErrMalformed)
	}
	return normalize(qs[len(qs)-1]), nil
}

// stripQuoted blanks out quoted strings so their words are not read as keywords.
// An unterminated quote blanks the rest of the line.
func stripQuoted(s string) string {
	b := []byte(s)
	in := false
	for i := 0; i < len(b); i++ {
		switch {
		case in && b[i] == '\\' && i+1 < len(b):
			b[i], b[i+1] = ' ', ' '
			i++
		case b[i] == '"':
			in = !in
			b[i] = ' '
		case in:
			b[i] = ' '
		}
	}
	return string(b)
}

func normalize(s string) string { return unescape.Replace(s) }
