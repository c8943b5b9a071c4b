package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlTranscriptEntries = `
CREATE TABLE IF NOT EXISTS transcript_entries (
    id                 BIGSERIAL    PRIMARY KEY,
    session_dir        TEXT         NOT NULL,
    entry_id           INTEGER      NOT NULL,
    dialogue_window_id INTEGER      NOT NULL,
    logged_at          TIMESTAMPTZ  NOT NULL,
    source_lang        TEXT         NOT NULL DEFAULT '',
    target_lang        TEXT         NOT NULL DEFAULT '',
    source_text        TEXT         NOT NULL,
    translated_text    TEXT         NOT NULL DEFAULT '',
    engine             TEXT         NOT NULL DEFAULT '',
    window_handle      TEXT         NOT NULL DEFAULT '',
    window_title       TEXT         NOT NULL DEFAULT '',
    roi_x              INTEGER      NOT NULL DEFAULT 0,
    roi_y              INTEGER      NOT NULL DEFAULT 0,
    roi_width          INTEGER      NOT NULL DEFAULT 0,
    roi_height         INTEGER      NOT NULL DEFAULT 0,
    UNIQUE (session_dir, entry_id)
);

CREATE INDEX IF NOT EXISTS idx_transcript_entries_window
    ON transcript_entries (session_dir, dialogue_window_id);
`

// Migrate creates the transcript_entries table and its indexes. It is
// idempotent and safe to call on every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlTranscriptEntries); err != nil {
		return fmt.Errorf("pgstore: migrate: %w", err)
	}
	return nil
}
