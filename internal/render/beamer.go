/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"rpyslides/internal/deck"
	applog "rpyslides/internal/log"
)

var latexEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`{`, `\{`,
	`}`, `\}`,
	`%`, `\%`,
	`#`, `\#`,
	`_`, `\_`,
	`&`, `\&`,
	`$`, `\$`,
	`~`, `\textasciitilde{}`,
	`^`, `\textasciicircum{}`,
	"\n", "\\\\\n",
)

// Escape makes s safe as LaTeX text. Empty text becomes a non-breaking space so
// frames never end up with an empty body.
func Escape(s string) string {
	if s == "" {
		return "~"
	}
	return latexEscaper.Replace(s)
}

// Anchor returns the hypertarget name for a label. Anything outside [A-Za-z0-9]
// is hex-encoded after a dash, so distinct labels keep distinct anchors.
func Anchor(label string) string {
	var b strings.Builder
	b.WriteString("label-")
	for i := 0; i < len(label); i++ {
		c := label[i]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "-%02x", c)
	}
	return b.String()
}

// bodyText escapes frame text. A leading line break needs a paragraph to end,
// so \leavevmode opens one first.
func bodyText(s string) string {
	if strings.HasPrefix(s, "\n") {
		return "\\leavevmode" + Escape(s)
	}
	return Escape(s)
}

func slideAnchor(i int) string { return fmt.Sprintf("slide%d", i) }

func colorName(r, g, b int) string { return fmt.Sprintf("rps%02X%02X%02X", r, g, b) }

// stageColumnWidth is the share of \textwidth given to each of the five slots.
const stageColumnWidth = "0.19"

// Beamer writes doc as a LaTeX beamer document: preamble, title frame, one
// frame per slide and the document end.
func Beamer(w io.Writer, doc Document) error {
	l := applog.WithOperation(applog.WithComponent("render"), "beamer")
	bw := bufio.NewWriter(w)
	labels := labelIndex(doc.Slides)

	writePreamble(bw, doc)
	for _, s := range doc.Slides {
		writeFrame(bw, doc, s, labels, l)
	}
	bw.WriteString("\\end{document}\n")
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write beamer: %w", err)
	}
	l.Debug("beamer written", slog.Int("frames", len(doc.Slides)+1))
	return nil
}

func writePreamble(w *bufio.Writer, doc Document) {
	w.WriteString("\\documentclass[aspectratio=169]{beamer}\n")
	w.WriteString("\\usepackage[utf8]{inputenc}\n")
	w.WriteString("\\usepackage[T1]{fontenc}\n")
	w.WriteString("\\usepackage{graphicx}\n")
	w.WriteString("\\setbeamertemplate{navigation symbols}{}\n")

	seen := map[string]bool{}
	if doc.Characters != nil {
		for _, key := range doc.Characters.Keys() {
			ch, _ := doc.Characters.Lookup(key)
			r, g, b, ok := hexColor(ch.Color)
			if !ok {
				continue
			}
			name := colorName(r, g, b)
			if seen[name] {
				continue
			}
			seen[name] = true
			fmt.Fprintf(w, "\\definecolor{%s}{RGB}{%d,%d,%d}\n", name, r, g, b)
		}
	}

	fmt.Fprintf(w, "\\title{%s}\n", Escape(doc.Title))
	fmt.Fprintf(w, "\\author{%s}\n", Escape(doc.Author))
	w.WriteString("\\date{}\n\n")
	w.WriteString("\\begin{document}\n\n")
	w.WriteString("\\begin{frame}\n\\titlepage\n\\end{frame}\n\n")
}

func speakerTitle(name, color string) string {
	if r, g, b, ok := hexColor(color); ok && name != "" {
		return fmt.Sprintf("\\textcolor{%s}{%s}", colorName(r, g, b), Escape(name))
	}
	return Escape(name)
}

func writeFrame(w *bufio.Writer, doc Document, s deck.Slide, labels map[string]int, l *slog.Logger) {
	var speaker, color string
	switch b := s.Body.(type) {
	case deck.DialogueBody:
		speaker, color = b.Speaker, b.Color
	case deck.MenuBody:
		speaker, color = b.Speaker, b.Color
	}
	fmt.Fprintf(w, "\\begin{frame}{%s}\n", speakerTitle(speaker, color))
	fmt.Fprintf(w, "\\hypertarget{%s}{}", slideAnchor(s.Index))
	for _, lb := range s.Labels() {
		fmt.Fprintf(w, "\\hypertarget{%s}{}", Anchor(lb))
	}
	w.WriteString("\n")

	if !s.Stage.Empty() {
		writeStage(w, doc, s.Stage)
	}

	switch b := s.Body.(type) {
	case deck.DialogueBody:
		w.WriteString(bodyText(b.Text))
		w.WriteString("\n")
	case deck.MenuBody:
		w.WriteString(bodyText(b.Prompt))
		w.WriteString("\n")
		if len(b.Choices) > 0 {
			w.WriteString("\\begin{itemize}\n")
			for _, c := range b.Choices {
				if c.Ends {
					fmt.Fprintf(w, "\\item %s\n", Escape(c.Text))
					continue
				}
				if _, ok := labels[c.Target]; !ok {
					l.Warn("choice target has no slide", slog.String("target", c.Target), slog.Int("slide", s.Index))
				}
				fmt.Fprintf(w, "\\item \\hyperlink{%s}{%s}\n", Anchor(c.Target), Escape(c.Text))
			}
			w.WriteString("\\end{itemize}\n")
		}
	}

	switch {
	case s.Jump != "":
		if _, ok := labels[s.Jump]; !ok {
			l.Warn("jump target has no slide", slog.String("target", s.Jump), slog.Int("slide", s.Index))
		}
		fmt.Fprintf(w, "\\vfill\\hfill\\hyperlink{%s}{\\beamergotobutton{Next}}\n", Anchor(s.Jump))
	case s.FallsThrough() && s.Index+1 < len(doc.Slides):
		fmt.Fprintf(w, "\\vfill\\hfill\\hyperlink{%s}{\\beamergotobutton{Next}}\n", slideAnchor(s.Index+1))
	}
	w.WriteString("\\end{frame}\n\n")
}

// writeStage draws one column per occupied slot, keeping the slot order.
func writeStage(w *bufio.Writer, doc Document, stage deck.Stage) {
	w.WriteString("\\begin{columns}[T]\n")
	for _, key := range stage {
		if key == "" {
			continue
		}
		fmt.Fprintf(w, "\\begin{column}{%s\\textwidth}\\centering", stageColumnWidth)
		if img, ok := doc.Sprites.Find(key); ok {
			fmt.Fprintf(w, "\\includegraphics[height=0.45\\textheight,keepaspectratio]{%s}", filepath.ToSlash(img.Path))
		} else {
			w.WriteString("\\mbox{}")
		}
		w.WriteString("\\end{column}\n")
	}
	w.WriteString("\\end{columns}\n")
}
