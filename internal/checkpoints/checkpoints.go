// Package checkpoints persists workflow run state in a SQL table so an
// interrupted batch resumes from its last completed phase. The service
// stores checkpoints in Postgres; the local runner uses a SQLite file.
package checkpoints

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/JaimeStill/appart/internal/workflow"
	"github.com/JaimeStill/appart/pkg/repository"
)

// ErrNotFound is returned by Delete when no checkpoint exists for a batch.
var ErrNotFound = errors.New("checkpoint not found")

// System stores run state for the workflow and lets callers discard it.
type System interface {
	workflow.CheckpointStore
	Delete(ctx context.Context, batchID uuid.UUID) error
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS run_checkpoints (
	batch_id   TEXT PRIMARY KEY,
	phase      TEXT NOT NULL,
	state      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a checkpoint store over an open database that already holds
// the run_checkpoints table.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "checkpoints"),
	}
}

// OpenFile opens the SQLite checkpoint database at path, creating the file
// and its table when missing.
func OpenFile(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint file: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create checkpoint table: %w", err)
	}
	return db, nil
}

func (r *repo) Load(ctx context.Context, batchID uuid.UUID) (*workflow.RunState, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx,
		"SELECT state FROM run_checkpoints WHERE batch_id = $1",
		batchID.String(),
	).Scan(&data)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", batchID, err)
	}

	return workflow.DecodeRunState(data)
}

func (r *repo) Save(ctx context.Context, state *workflow.RunState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode run state: %w", err)
	}

	q := `
		INSERT INTO run_checkpoints(batch_id, phase, state, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (batch_id) DO UPDATE SET
			phase = excluded.phase,
			state = excluded.state,
			updated_at = excluded.updated_at`

	_, err = r.db.ExecContext(ctx, q,
		state.BatchID.String(),
		string(state.Phase),
		string(data),
		state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", state.BatchID, err)
	}

	r.logger.Debug("checkpoint saved", "batch_id", state.BatchID, "phase", state.Phase)
	return nil
}

func (r *repo) Delete(ctx context.Context, batchID uuid.UUID) error {
	err := repository.ExecExpectOne(ctx, r.db,
		"DELETE FROM run_checkpoints WHERE batch_id = $1",
		batchID.String(),
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrNotFound)
	}
	return nil
}
