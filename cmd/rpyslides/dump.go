/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"rpyslides/internal/deck"
	"rpyslides/internal/pipeline"
	"rpyslides/internal/render"
	"rpyslides/internal/script"
)

func (a *app) dumpCmd() *cobra.Command {
	var slides bool
	var format string
	cmd := &cobra.Command{
		Use:   "dump [script.rpy]",
		Short: "Print the classified lines, the slides or a rendered deck to stdout",
		Long: `Without flags, prints every logical line the classifier kept, with its
source line and indentation. --slides prints the slide list instead, and
--format renders the whole deck (beamer or json) to stdout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.scriptArg(args)
			res, err := pipeline.CompileFile(a.cfg)
			if err != nil {
				return failed(err)
			}
			switch {
			case format != "":
				f, err := render.ParseFormat(format)
				if err != nil {
					return err
				}
				if f == render.FormatPDF {
					return fmt.Errorf("pdf cannot be dumped to a terminal, use build")
				}
				return failed(render.Render(a.stdout, f, pipeline.Document(a.cfg, res)))
			case slides:
				return failed(writeSlides(a.stdout, res.Slides))
			default:
				return failed(writeLines(a.stdout, res.Lines))
			}
		},
	}
	cmd.Flags().BoolVar(&slides, "slides", false, "print slides instead of lines")
	cmd.Flags().StringVarP(&format, "format", "f", "", "render the deck: beamer|json")
	return cmd
}

func writeLines(w io.Writer, lines []script.LogicalLine) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tINDENT\tKIND\tDETAIL")
	for _, ll := range lines {
		kind, detail := describe(ll.Statement)
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", ll.LineNo, ll.Indent, kind, detail)
	}
	return tw.Flush()
}

func describe(st script.Statement) (string, string) {
	switch s := st.(type) {
	case script.Definition:
		d := fmt.Sprintf("%s = %q", s.Key, s.Character.Name)
		if s.Character.Color != "" {
			d += " " + s.Character.Color
		}
		return "define", d
	case script.Label:
		return "label", s.Key
	case script.Dialogue:
		return "say", fmt.Sprintf("%s %q", s.CharacterKey, s.Text)
	case script.Menu:
		return "menu", ""
	case script.Choice:
		return "choice", fmt.Sprintf("%q", s.Text)
	case script.Jump:
		return "jump", s.Key
	case script.End:
		return "return", ""
	case script.Show:
		return "show", fmt.Sprintf("%s @ %s", s.Key, s.Position)
	case script.StageDirection:
		return "stage", s.Position.String()
	case script.Scene:
		return "scene", ""
	}
	return "?", fmt.Sprintf("%T", st)
}

func writeSlides(w io.Writer, slides []deck.Slide) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tLABELS\tSPEAKER\tTEXT\tNEXT")
	for _, s := range slides {
		var speaker, text string
		switch b := s.Body.(type) {
		case deck.DialogueBody:
			speaker, text = b.Speaker, b.Text
		case deck.MenuBody:
			parts := make([]string, 0, len(b.Choices))
			for _, c := range b.Choices {
				target := c.Target
				if c.Ends {
					target = "end"
				}
				parts = append(parts, fmt.Sprintf("%q->%s", c.Text, target))
			}
			speaker, text = b.Speaker, "menu "+strings.Join(parts, " ")
		}
		next := ""
		switch {
		case s.Terminal:
			next = "end"
		case s.Jump != "":
			next = "jump " + s.Jump
		case s.FallsThrough() && s.Index+1 < len(slides):
			next = fmt.Sprint(s.Index + 1)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", s.Index, strings.Join(s.Labels(), ","), speaker, oneLine(text), next)
	}
	return tw.Flush()
}

func oneLine(s string) string { return strings.ReplaceAll(s, "\n", `\n`) }
