/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package cache keeps finished conversions in an embedded SQLite database,
// keyed by a hash of the screenplay text and the options that shaped it.
// Entries are derived data: the database can be deleted at any time.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	FileName = "conversions.sqlite"

	// schemaVersion tracks the cache schema. Fresh databases start at
	// baseSchema and are migrated forward like existing ones.
	schemaVersion = 2
	baseSchema    = 1

	// tsLayout is fixed width so timestamps sort lexically.
	tsLayout = "2006-01-02T15:04:05.000000000Z"
)

// Entry is one cached conversion.
type Entry struct {
	Key            string
	HTML           string
	EstimatedPages int
	LineCount      int
	LinesPerPage   int
	Valid          bool
	Report         json.RawMessage
	UpdatedAt      time.Time
}

// Store wraps the cache database. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
	log  *slog.Logger
}

// Key derives the cache key for raw screenplay text converted with the
// given option fingerprint.
func Key(raw, fingerprint string) string {
	h := sha256.New()
	h.Write([]byte(raw))
	h.Write([]byte{0})
	h.Write([]byte(fingerprint))
	return hex.EncodeToString(h.Sum(nil))
}

// DefaultDir returns the per-user cache directory.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve cache dir: %w", err)
	}
	return filepath.Join(base, "goscreenwriter"), nil
}

// Open creates or opens the cache database in dir, enables WAL and brings
// the schema up to date.
func Open(ctx context.Context, dir string) (*Store, error) {
	l := applog.WithOperation(applog.WithComponent("cache"), "open").With(slog.String("dir", dir))
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("cache dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	path := filepath.Join(dir, FileName)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}

	l.Debug("cache ready", slog.String("path", path))
	return &Store{db: db, path: path, log: applog.WithComponent("cache")}, nil
}

// Path is the database file location.
func (s *Store) Path() string { return s.path }

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

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
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, baseSchema, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// ensureSchema creates the base (version 1) tables.
func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS conversions (
			key             TEXT    PRIMARY KEY,
			html            TEXT    NOT NULL,
			estimated_pages INTEGER NOT NULL,
			line_count      INTEGER NOT NULL,
			lines_per_page  INTEGER NOT NULL,
			valid           INTEGER NOT NULL,
			report          BLOB,
			size            INTEGER NOT NULL,
			updated_at      TEXT    NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure cache schema: %w", err)
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
			// LRU bookkeeping for EvictToFit.
			stmts = []string{
				`ALTER TABLE conversions ADD COLUMN last_access TEXT;`,
				`CREATE INDEX IF NOT EXISTS idx_conversions_access ON conversions(last_access);`,
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

// Get returns the entry for key and refreshes its access time.
func (s *Store) Get(ctx context.Context, key string) (Entry, bool, error) {
	var (
		e       Entry
		valid   int
		report  []byte
		updated string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT key, html, estimated_pages, line_count, lines_per_page, valid, report, updated_at FROM conversions WHERE key=?`, key,
	).Scan(&e.Key, &e.HTML, &e.EstimatedPages, &e.LineCount, &e.LinesPerPage, &valid, &report, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("get conversion: %w", err)
	}
	e.Valid = valid != 0
	if len(report) > 0 {
		e.Report = json.RawMessage(report)
	}
	e.UpdatedAt, _ = time.Parse(tsLayout, updated)

	now := time.Now().UTC().Format(tsLayout)
	if _, err := s.db.ExecContext(ctx, `UPDATE conversions SET last_access=? WHERE key=?`, now, key); err != nil {
		s.log.Warn("touch cache entry failed", slog.Any("err", err))
	}
	return e, true, nil
}

// Put inserts or replaces the entry under e.Key.
func (s *Store) Put(ctx context.Context, e Entry) error {
	if e.Key == "" {
		return errors.New("cache entry key is required")
	}
	now := time.Now().UTC().Format(tsLayout)
	valid := 0
	if e.Valid {
		valid = 1
	}
	var report []byte
	if len(e.Report) > 0 {
		report = e.Report
	}
	size := int64(len(e.HTML) + len(report))
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversions(key, html, estimated_pages, line_count, lines_per_page, valid, report, size, updated_at, last_access)
		VALUES(?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(key) DO UPDATE SET html=excluded.html, estimated_pages=excluded.estimated_pages, line_count=excluded.line_count,
			lines_per_page=excluded.lines_per_page, valid=excluded.valid, report=excluded.report, size=excluded.size,
			updated_at=excluded.updated_at, last_access=excluded.last_access`,
		e.Key, e.HTML, e.EstimatedPages, e.LineCount, e.LinesPerPage, valid, report, size, now, now)
	if err != nil {
		return fmt.Errorf("put conversion: %w", err)
	}
	return nil
}

// TotalBytes sums the stored HTML and report sizes.
func (s *Store) TotalBytes(ctx context.Context) (int64, error) {
	var n sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT SUM(size) FROM conversions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sum cache size: %w", err)
	}
	return n.Int64, nil
}

// EvictToFit deletes least recently used entries until the total size is at
// most capBytes. It returns the number of evicted entries.
func (s *Store) EvictToFit(ctx context.Context, capBytes int64) (int, error) {
	if capBytes < 0 {
		capBytes = 0
	}
	total, err := s.TotalBytes(ctx)
	if err != nil || total <= capBytes {
		return 0, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT key, size FROM conversions ORDER BY
		CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC`)
	if err != nil {
		return 0, fmt.Errorf("select eviction candidates: %w", err)
	}
	var victims []string
	for rows.Next() && total > capBytes {
		var (
			key  string
			size int64
		)
		if err := rows.Scan(&key, &size); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("scan eviction candidate: %w", err)
		}
		victims = append(victims, key)
		total -= size
	}
	if err := rows.Close(); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin eviction: %w", err)
	}
	for _, k := range victims {
		if _, err := tx.ExecContext(ctx, `DELETE FROM conversions WHERE key=?`, k); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("evict %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit eviction: %w", err)
	}
	s.log.Debug("cache evicted", slog.Int("entries", len(victims)), slog.Int64("cap_bytes", capBytes))
	return len(victims), nil
}
