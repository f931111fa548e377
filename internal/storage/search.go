/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SearchQuery describes a slide search.
// Text uses SQLite FTS5 syntax (simple terms, phrases in quotes, AND/OR/NOT); use
// Phrase to search for literal text. Speaker matches the display name case-insensitively.
// Kind is "dialogue" or "menu". Limit/Offset implement pagination; reasonable
// defaults applied if zero.
type SearchQuery struct {
	Text    string
	Speaker string
	Kind    string
	Source  string
	Limit   int
	Offset  int
}

// SearchResult is one matching slide.
// Snippet is a highlighted excerpt using [ ] markers when FTS text is used.
type SearchResult struct {
	RunID   string
	Source  string
	Index   int
	Kind    string
	Labels  []string
	Speaker string
	Text    string
	Snippet string
	Line    int
}

// Phrase quotes s as a single FTS5 phrase so punctuation is matched literally.
func Phrase(s string) string {
	return `"` + strings.ReplaceAll(strings.TrimSpace(s), `"`, `""`) + `"`
}

// Search finds slides in the index at path. When q.Text is empty it falls back to
// a non-FTS scan with the filters applied.
func Search(ctx context.Context, path string, q SearchQuery) ([]SearchResult, error) {
	db, err := OpenIndex(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return searchDB(ctx, db, q)
}

func searchDB(ctx context.Context, db *sql.DB, q SearchQuery) ([]SearchResult, error) {
	var args []any
	var sb strings.Builder
	if strings.TrimSpace(q.Text) != "" {
		sb.WriteString("SELECT s.run_id, r.source, s.idx, s.kind, s.labels, s.speaker, s.text, snippet(fts_slides, -1, '[', ']', '…', 10), s.line\n")
		sb.WriteString("FROM fts_slides JOIN slides s ON fts_slides.rowid = s.id JOIN runs r ON r.id = s.run_id\n")
		sb.WriteString("WHERE fts_slides MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT s.run_id, r.source, s.idx, s.kind, s.labels, s.speaker, s.text, '', s.line\n")
		sb.WriteString("FROM slides s JOIN runs r ON r.id = s.run_id\nWHERE 1=1\n")
	}
	if s := strings.TrimSpace(q.Speaker); s != "" {
		sb.WriteString(" AND lower(s.speaker) = ?\n")
		args = append(args, strings.ToLower(s))
	}
	if k := strings.TrimSpace(q.Kind); k != "" {
		sb.WriteString(" AND s.kind = ?\n")
		args = append(args, k)
	}
	if src := strings.TrimSpace(q.Source); src != "" {
		sb.WriteString(" AND r.source = ?\n")
		args = append(args, src)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	sb.WriteString("ORDER BY r.source, s.idx\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, q.Offset)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var labels string
		var sn sql.NullString
		if err := rows.Scan(&r.RunID, &r.Source, &r.Index, &r.Kind, &labels, &r.Speaker, &r.Text, &sn, &r.Line); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if labels != "" {
			r.Labels = strings.Split(labels, ",")
		}
		if sn.Valid {
			r.Snippet = sn.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ChoicesTo returns the menu choices across the index that lead to label.
func ChoicesTo(ctx context.Context, path, label string) ([]SearchResult, error) {
	db, err := OpenIndex(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	q := `SELECT s.run_id, r.source, s.idx, s.kind, s.labels, s.speaker, c.text, s.line
		FROM choices c
		JOIN slides s ON s.run_id = c.run_id AND s.idx = c.slide_idx
		JOIN runs r ON r.id = c.run_id
		WHERE c.target = ?
		ORDER BY r.source, s.idx, c.ord`
	rows, err := db.QueryContext(ctx, q, label)
	if err != nil {
		return nil, fmt.Errorf("choices query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var labels string
		if err := rows.Scan(&r.RunID, &r.Source, &r.Index, &r.Kind, &labels, &r.Speaker, &r.Text, &r.Line); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if labels != "" {
			r.Labels = strings.Split(labels, ",")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
