// Package pgstore mirrors transcript entries into PostgreSQL.
//
// A [Store] implements [transcript.Sink]; attach it to a writer with
// [transcript.WithSinks]. The files on disk remain the source of truth: the
// mirror only adds a queryable copy keyed by session directory and entry id.
package pgstore

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/ocrlite/internal/transcript"
)

var _ transcript.Sink = (*Store)(nil)

// Store is a PostgreSQL-backed transcript mirror. It is safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database at dsn, verifies the connection and runs
// [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgstore: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgstore: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgstore: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool}, nil
}

// Close releases all pool connections.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping reports whether the database is reachable. It doubles as a readiness
// check.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Append implements [transcript.Sink]. Sessions are keyed by the base name of
// sessionDir so the mirror does not depend on where the log root lives.
// Re-appending an entry that already exists is a no-op.
func (s *Store) Append(ctx context.Context, sessionDir string, e transcript.Entry) error {
	const q = `
		INSERT INTO transcript_entries
		    (session_dir, entry_id, dialogue_window_id, logged_at, source_lang, target_lang,
		     source_text, translated_text, engine, window_handle, window_title,
		     roi_x, roi_y, roi_width, roi_height)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (session_dir, entry_id) DO NOTHING`

	_, err := s.pool.Exec(ctx, q,
		filepath.Base(sessionDir),
		e.EntryID,
		e.DialogueWindowID,
		e.Time,
		e.SourceLang,
		e.TargetLang,
		e.SourceText,
		e.TranslatedText,
		e.Engine,
		e.AttachedWindow.Handle,
		e.AttachedWindow.Title,
		e.ROI.X,
		e.ROI.Y,
		e.ROI.Width,
		e.ROI.Height,
	)
	if err != nil {
		return fmt.Errorf("pgstore: append entry %d: %w", e.EntryID, err)
	}
	return nil
}

// Entries returns every mirrored entry of one session, ordered by entry id.
func (s *Store) Entries(ctx context.Context, session string) ([]transcript.Entry, error) {
	const q = `
		SELECT entry_id, dialogue_window_id, logged_at, source_lang, target_lang,
		       source_text, translated_text, engine, window_handle, window_title,
		       roi_x, roi_y, roi_width, roi_height
		FROM   transcript_entries
		WHERE  session_dir = $1
		ORDER  BY entry_id`

	rows, err := s.pool.Query(ctx, q, filepath.Base(session))
	if err != nil {
		return nil, fmt.Errorf("pgstore: entries: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (transcript.Entry, error) {
		var e transcript.Entry
		err := row.Scan(
			&e.EntryID, &e.DialogueWindowID, &e.Time, &e.SourceLang, &e.TargetLang,
			&e.SourceText, &e.TranslatedText, &e.Engine,
			&e.AttachedWindow.Handle, &e.AttachedWindow.Title,
			&e.ROI.X, &e.ROI.Y, &e.ROI.Width, &e.ROI.Height,
		)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("pgstore: entries: scan: %w", err)
	}
	return entries, nil
}
