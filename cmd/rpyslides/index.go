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
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"rpyslides/internal/pipeline"
	"rpyslides/internal/storage"
)

func (a *app) indexCmd() *cobra.Command {
	var db string
	var runs bool
	cmd := &cobra.Command{
		Use:   "index [script.rpy]",
		Short: "Store the compiled deck in the SQLite slide index",
		Long: `Compiles the script and stores its characters, slides and menu choices in
the slide index (default rpyslides.sqlite). Re-indexing a script replaces its
previous slides; every run is kept in the run history (--runs lists it).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("db") {
				a.cfg.Index = db
			}
			if runs {
				list, err := storage.Runs(cmd.Context(), a.cfg.Index)
				if err != nil {
					return failed(err)
				}
				tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "RUN\tCREATED\tSLIDES\tSOURCE")
				for _, r := range list {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Slides, r.Source)
				}
				return failed(tw.Flush())
			}
			a.scriptArg(args)
			run, err := pipeline.Index(cmd.Context(), a.cfg)
			if err != nil {
				return failed(err)
			}
			fmt.Fprintf(a.stdout, "indexed %s: %d slides (run %s)\n", run.Source, run.Slides, run.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "index database file")
	cmd.Flags().BoolVar(&runs, "runs", false, "list the run history instead of indexing")
	return cmd
}

func (a *app) searchCmd() *cobra.Command {
	var (
		db   string
		q    storage.SearchQuery
		fts  bool
		to   string
		cols = "#\tSOURCE\tLABELS\tSPEAKER\tTEXT"
	)
	cmd := &cobra.Command{
		Use:   "search [text]",
		Short: "Search the slide index",
		Long: `Searches slide text, speakers and menu choices in the slide index. The text is
matched as a literal phrase unless --fts is given, in which case it is passed
through as an SQLite FTS5 query (AND/OR/NOT, prefix*). --to lists the menu
choices that lead to a label instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("db") {
				a.cfg.Index = db
			}
			var res []storage.SearchResult
			var err error
			if to != "" {
				res, err = storage.ChoicesTo(cmd.Context(), a.cfg.Index, to)
			} else {
				if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
					q.Text = args[0]
					if !fts {
						q.Text = storage.Phrase(args[0])
					}
				}
				res, err = storage.Search(cmd.Context(), a.cfg.Index, q)
			}
			if err != nil {
				return failed(err)
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, cols)
			for _, r := range res {
				text := r.Text
				if r.Snippet != "" {
					text = r.Snippet
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.Index, r.Source, strings.Join(r.Labels, ","), r.Speaker, oneLine(text))
			}
			if err := tw.Flush(); err != nil {
				return failed(err)
			}
			a.log.Debug("search done", "results", len(res))
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&db, "db", "", "index database file")
	fl.StringVar(&q.Speaker, "speaker", "", "only slides spoken by this character name")
	fl.StringVar(&q.Kind, "kind", "", "dialogue|menu")
	fl.StringVar(&q.Source, "source", "", "only slides of this script")
	fl.IntVar(&q.Limit, "limit", 100, "maximum number of results")
	fl.IntVar(&q.Offset, "offset", 0, "skip this many results")
	fl.BoolVar(&fts, "fts", false, "treat the text as an FTS5 query")
	fl.StringVar(&to, "to", "", "list the menu choices that jump to this label")
	return cmd
}
