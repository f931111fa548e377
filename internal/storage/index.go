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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"rpyslides/internal/deck"
	applog "rpyslides/internal/log"
	"rpyslides/internal/script"
	"rpyslides/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// DefaultIndexFile is used when no index path is configured.
	DefaultIndexFile = "rpyslides.sqlite"

	// schemaVersion tracks the SQLite schema of the slide index.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 2
)

// runTimeLayout keeps every fraction digit so stored stamps sort as text.
const runTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one indexing of a script.
type Run struct {
	ID        string
	Source    string
	CreatedAt time.Time
	Slides    int
}

// OpenIndex opens the slide index at path, creating it if needed. WAL mode is enabled,
// the meta/version tables and the slide schema are ensured and migrations are run.
// A file that is not a healthy SQLite database is backed up next to itself and
// replaced by a fresh index.
func OpenIndex(path string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_open").With(
		slog.String("path", path),
	)
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("index path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	db, err := openIndex(path)
	if err == nil {
		if err = quickCheck(db); err == nil {
			l.Debug("index ready")
			return db, nil
		}
		_ = db.Close()
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return nil, err
	}

	l.Warn("index unusable, recreating", slog.Any("err", err))
	bak := backupIndexFile(path)
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		_ = os.Remove(p)
	}
	db, rerr := openIndex(path)
	if rerr != nil {
		return nil, fmt.Errorf("recreate index: %w (open err: %v)", rerr, err)
	}
	l.Info("index recreated", slog.String("backup", bak))
	return db, nil
}

func openIndex(path string) (*sql.DB, error) {
	// Use a URI with shared cache and set busy timeout. Convert to forward slashes for SQLite URI.
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign_keys: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func quickCheck(db *sql.DB) error {
	var chk string
	if err := db.QueryRow(`PRAGMA quick_check;`).Scan(&chk); err != nil {
		return fmt.Errorf("quick_check: %w", err)
	}
	if !strings.EqualFold(strings.TrimSpace(chk), "ok") {
		return fmt.Errorf("quick_check: %s", chk)
	}
	return nil
}

// backupIndexFile copies the index file to <path>.<stamp>.bak and returns the backup path.
func backupIndexFile(path string) string {
	stamp := time.Now().Format("20060102-150405")
	bak := fmt.Sprintf("%s.%s.bak", path, stamp)
	if data, err := os.ReadFile(path); err == nil {
		if err := os.WriteFile(bak, data, 0o644); err == nil {
			return bak
		}
	}
	return ""
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// Update app and timestamp only; keep existing schema for migrations
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			// lookups by run and by choice target
			stmts = []string{
				`CREATE INDEX IF NOT EXISTS idx_slides_run ON slides(run_id, idx);`,
				`CREATE INDEX IF NOT EXISTS idx_choices_target ON choices(target);`,
			}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// ensureIndexSchema creates the slide tables and the FTS structures if they do not exist.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id         TEXT PRIMARY KEY,
			source     TEXT    NOT NULL,
			created_at TEXT    NOT NULL,
			slides     INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source);`,

		`CREATE TABLE IF NOT EXISTS characters (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			key    TEXT NOT NULL,
			name   TEXT NOT NULL,
			color  TEXT,
			PRIMARY KEY(run_id, key)
		);`,

		`CREATE TABLE IF NOT EXISTS slides (
			id       INTEGER PRIMARY KEY,
			run_id   TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			idx      INTEGER NOT NULL,
			kind     TEXT    NOT NULL,
			labels   TEXT    NOT NULL,
			speaker  TEXT    NOT NULL,
			text     TEXT    NOT NULL,
			choices  TEXT    NOT NULL,
			jump     TEXT,
			terminal INTEGER NOT NULL,
			line     INTEGER NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS choices (
			run_id    TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			slide_idx INTEGER NOT NULL,
			ord       INTEGER NOT NULL,
			text      TEXT    NOT NULL,
			target    TEXT    NOT NULL,
			PRIMARY KEY(run_id, slide_idx, ord)
		);`,

		// External-content FTS over slides fed by triggers.
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_slides USING fts5(
			speaker,
			text,
			choices,
			content='slides',
			content_rowid='id',
			tokenize = 'unicode61'
		);`,

		`CREATE INDEX IF NOT EXISTS idx_slides_run ON slides(run_id, idx);`,
		`CREATE INDEX IF NOT EXISTS idx_choices_target ON choices(target);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS slides_ai AFTER INSERT ON slides BEGIN
			INSERT INTO fts_slides(rowid, speaker, text, choices) VALUES (new.id, new.speaker, new.text, new.choices);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS slides_ad AFTER DELETE ON slides BEGIN
			INSERT INTO fts_slides(fts_slides, rowid, speaker, text, choices) VALUES ('delete', old.id, old.speaker, old.text, old.choices);
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
		}
	}
	return nil
}

// WriteIndex stores a compiled deck under a new run for source. Slides, characters and
// choices of earlier runs of the same source are replaced; the run history is kept.
func WriteIndex(ctx context.Context, path, source string, reg *script.Registry, slides []deck.Slide) (Run, error) {
	db, err := OpenIndex(path)
	if err != nil {
		return Run{}, err
	}
	defer db.Close()
	return writeRun(ctx, db, source, reg, slides)
}

func writeRun(ctx context.Context, db *sql.DB, source string, reg *script.Registry, slides []deck.Slide) (Run, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_write")
	run := Run{ID: uuid.NewString(), Source: source, CreatedAt: time.Now().UTC(), Slides: len(slides)}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("begin tx: %w", err)
	}
	stale := []string{
		`DELETE FROM choices WHERE run_id IN (SELECT id FROM runs WHERE source=?);`,
		`DELETE FROM slides WHERE run_id IN (SELECT id FROM runs WHERE source=?);`,
		`DELETE FROM characters WHERE run_id IN (SELECT id FROM runs WHERE source=?);`,
	}
	for _, q := range stale {
		if _, err := tx.ExecContext(ctx, q, source); err != nil {
			_ = tx.Rollback()
			return Run{}, fmt.Errorf("clear previous run: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO runs(id, source, created_at, slides) VALUES(?,?,?,?);`,
		run.ID, run.Source, run.CreatedAt.Format(runTimeLayout), run.Slides); err != nil {
		_ = tx.Rollback()
		return Run{}, fmt.Errorf("insert run: %w", err)
	}

	if reg != nil {
		for _, key := range reg.Keys() {
			ch, err := reg.Lookup(key)
			if err != nil {
				continue
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO characters(run_id, key, name, color) VALUES(?,?,?,?);`, run.ID, key, ch.Name, ch.Color); err != nil {
				_ = tx.Rollback()
				return Run{}, fmt.Errorf("insert character: %w", err)
			}
		}
	}

	insSlide, err := tx.PrepareContext(ctx, `INSERT INTO slides(run_id, idx, kind, labels, speaker, text, choices, jump, terminal, line) VALUES(?,?,?,?,?,?,?,?,?,?);`)
	if err != nil {
		_ = tx.Rollback()
		return Run{}, fmt.Errorf("prepare insert: %w", err)
	}
	defer insSlide.Close()
	insChoice, err := tx.PrepareContext(ctx, `INSERT INTO choices(run_id, slide_idx, ord, text, target) VALUES(?,?,?,?,?);`)
	if err != nil {
		_ = tx.Rollback()
		return Run{}, fmt.Errorf("prepare insert: %w", err)
	}
	defer insChoice.Close()

	for _, s := range slides {
		r := slideRow(s)
		if _, err := insSlide.ExecContext(ctx, run.ID, s.Index, r.kind, strings.Join(s.Labels(), ","), r.speaker, r.text,
			strings.Join(r.choiceTexts(), "\n"), nullString(s.Jump), s.Terminal, s.LineNo); err != nil {
			_ = tx.Rollback()
			return Run{}, fmt.Errorf("insert slide %d: %w", s.Index, err)
		}
		for i, c := range r.choices {
			if _, err := insChoice.ExecContext(ctx, run.ID, s.Index, i, c.Text, c.Target); err != nil {
				_ = tx.Rollback()
				return Run{}, fmt.Errorf("insert choice: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("commit: %w", err)
	}
	l.Info("deck indexed", slog.String("run", run.ID), slog.String("source", source), slog.Int("slides", run.Slides))
	return run, nil
}

type row struct {
	kind    string
	speaker string
	text    string
	choices []deck.Choice
}

func slideRow(s deck.Slide) row {
	switch b := s.Body.(type) {
	case deck.MenuBody:
		return row{kind: "menu", speaker: b.Speaker, text: b.Prompt, choices: b.Choices}
	case deck.DialogueBody:
		return row{kind: "dialogue", speaker: b.Speaker, text: b.Text}
	}
	return row{kind: "dialogue"}
}

func (r row) choiceTexts() []string {
	out := make([]string, 0, len(r.choices))
	for _, c := range r.choices {
		out = append(out, c.Text)
	}
	return out
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Runs lists every indexing run, oldest first.
func Runs(ctx context.Context, path string) ([]Run, error) {
	db, err := OpenIndex(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	rows, err := db.QueryContext(ctx, `SELECT id, source, created_at, slides FROM runs ORDER BY created_at, rowid;`)
	if err != nil {
		return nil, fmt.Errorf("runs query: %w", err)
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var r Run
		var ts string
		if err := rows.Scan(&r.ID, &r.Source, &ts, &r.Slides); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if r.CreatedAt, err = time.Parse(runTimeLayout, ts); err != nil {
			// runs written before the fixed-width layout
			r.CreatedAt, _ = time.Parse(time.RFC3339Nano, ts)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
