// Package state tracks offline-pipeline run bookkeeping in sqlite: which
// dump a run was processing, how far into it the dump reader (C2) got,
// and whether the correlation build (C5) for that run finished. This
// backs the dump resume-offset feature (spec.md §6): a run interrupted
// mid-dump can restart from the last recorded bzip2 stream boundary
// instead of reprocessing from scratch.
package state

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/unsignedbyte/wikidle/internal/korelerr"
)

// Run is one offline-pipeline execution.
type Run struct {
	ID         string
	DumpPath   string
	Offset     int64
	ArticleSeq int64
	Completed  bool
	StartedAt  time.Time
	UpdatedAt  time.Time
}

// Store is a sqlite-backed run tracker.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the state database at path in WAL
// mode and ensures its schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", korelerr.ErrIO, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", korelerr.ErrIO, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", korelerr.ErrIO, err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	dump_path TEXT NOT NULL,
	offset INTEGER NOT NULL DEFAULT 0,
	article_seq INTEGER NOT NULL DEFAULT 0,
	completed INTEGER NOT NULL DEFAULT 0,
	started_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("%w: %v", korelerr.ErrIO, err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun records a new run for dumpPath and returns its ulid-based id.
// Monotonic entropy keeps ids sortable by creation order even when
// several runs start within the same millisecond.
var entropy = ulid.Monotonic(rand.Reader, 0)

func (s *Store) StartRun(ctx context.Context, dumpPath string) (Run, error) {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, dump_path, offset, article_seq, completed, started_at, updated_at)
		 VALUES (?, ?, 0, 0, 0, ?, ?)`,
		id, dumpPath, now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return Run{}, fmt.Errorf("%w: %v", korelerr.ErrIO, err)
	}

	return Run{ID: id, DumpPath: dumpPath, StartedAt: now, UpdatedAt: now}, nil
}

// UpdateProgress records how far a run has gotten: offset is a
// bzip2-stream-boundary-aligned byte offset into the dump, articleSeq is
// the number of namespace-0 articles streamed so far.
func (s *Store) UpdateProgress(ctx context.Context, runID string, offset, articleSeq int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET offset = ?, article_seq = ?, updated_at = ? WHERE id = ?`,
		offset, articleSeq, time.Now().UTC().Format(time.RFC3339Nano), runID)
	if err != nil {
		return fmt.Errorf("%w: %v", korelerr.ErrIO, err)
	}
	return nil
}

// CompleteRun marks a run finished.
func (s *Store) CompleteRun(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET completed = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), runID)
	if err != nil {
		return fmt.Errorf("%w: %v", korelerr.ErrIO, err)
	}
	return nil
}

// LatestIncomplete returns the most recently started run for dumpPath
// that has not been marked complete, so the CLI can resume it. The
// second return value is false if there is no such run.
func (s *Store) LatestIncomplete(ctx context.Context, dumpPath string) (Run, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, dump_path, offset, article_seq, started_at, updated_at
		 FROM runs WHERE dump_path = ? AND completed = 0
		 ORDER BY started_at DESC LIMIT 1`, dumpPath)

	var r Run
	var started, updated string
	err := row.Scan(&r.ID, &r.DumpPath, &r.Offset, &r.ArticleSeq, &started, &updated)
	if err == sql.ErrNoRows {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("%w: %v", korelerr.ErrIO, err)
	}
	r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	r.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return r, true, nil
}
