package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"voice-bridge/pkg/utils"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS call_turns (
	id                TEXT PRIMARY KEY,
	call_sid          TEXT NOT NULL,
	engine_session_id TEXT NOT NULL DEFAULT '',
	input_text        TEXT NOT NULL DEFAULT '',
	confidence        TEXT NOT NULL DEFAULT '',
	keypress          TEXT NOT NULL DEFAULT '',
	recording_url     TEXT NOT NULL DEFAULT '',
	action            TEXT NOT NULL,
	reply_text        TEXT NOT NULL DEFAULT '',
	error             TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL
)`

const indexSQL = `CREATE INDEX IF NOT EXISTS call_turns_call_sid_idx ON call_turns (call_sid, created_at)`

const insertSQL = `
INSERT INTO call_turns (
	id, call_sid, engine_session_id, input_text, confidence, keypress,
	recording_url, action, reply_text, error, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// PostgresRepo stores entries in the call_turns table. The pool is expected
// to come from utils.OpenPostgres with the pgx stdlib driver.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

// EnsureSchema creates the table and index if they do not exist.
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return errors.New("journal: db is nil")
	}
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("journal: create table: %w", err)
		}
		if _, err := tx.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("journal: create index: %w", err)
		}
		return nil
	})
}

func (r *PostgresRepo) Append(ctx context.Context, e Entry) error {
	if r.db == nil {
		return errors.New("journal: db is nil")
	}
	_, err := r.db.ExecContext(ctx, insertSQL,
		e.ID,
		e.CallSid,
		e.EngineSessionID,
		e.InputText,
		e.Confidence,
		e.Keypress,
		e.RecordingURL,
		e.Action,
		e.ReplyText,
		e.Error,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("journal: insert turn: %w", err)
	}
	return nil
}
