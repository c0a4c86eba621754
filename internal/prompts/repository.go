package prompts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JaimeStill/appart/pkg/query"
	"github.com/JaimeStill/appart/pkg/repository"
)

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a prompt repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "prompts"),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *repo) List(ctx context.Context) ([]Entry, error) {
	q, args := query.NewBuilder(projection, defaultSort).Build()

	overrides, err := repository.QueryMany(ctx, r.db, q, args, scanOverride)
	if err != nil {
		return nil, fmt.Errorf("query prompts: %w", err)
	}

	byStage := make(map[Stage]*Override, len(overrides))
	for i := range overrides {
		byStage[overrides[i].Stage] = &overrides[i]
	}

	entries := make([]Entry, 0, len(stages))
	for _, s := range stages {
		entries = append(entries, entry(s, byStage[s]))
	}
	return entries, nil
}

func (r *repo) Find(ctx context.Context, stage Stage) (*Entry, error) {
	if _, err := ParseStage(string(stage)); err != nil {
		return nil, err
	}

	o, err := r.override(ctx, stage)
	if err != nil {
		return nil, err
	}

	e := entry(stage, o)
	return &e, nil
}

// Instructions returns the stored override for stage, or the default
// instructions when none is stored.
func (r *repo) Instructions(ctx context.Context, stage Stage) (string, error) {
	if _, err := ParseStage(string(stage)); err != nil {
		return "", err
	}

	o, err := r.override(ctx, stage)
	if err != nil {
		return "", err
	}
	if o == nil {
		return Instructions(stage)
	}
	return o.Instructions, nil
}

func (r *repo) Spec(_ context.Context, stage Stage) (string, error) {
	return Spec(stage)
}

func (r *repo) Set(ctx context.Context, stage Stage, cmd SetCommand) (*Entry, error) {
	if _, err := ParseStage(string(stage)); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(cmd.Instructions)
	if text == "" {
		return nil, ErrEmptyInstructions
	}

	q := `
		INSERT INTO prompts(stage, instructions)
		VALUES ($1, $2)
		ON CONFLICT (stage) DO UPDATE
		SET instructions = EXCLUDED.instructions, updated_at = now()
		RETURNING stage, instructions, updated_at`

	o, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Override, error) {
		return repository.QueryOne(ctx, tx, q, []any{string(stage), text}, scanOverride)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrInvalidStage)
	}

	r.logger.Info("prompt override set", "stage", stage)
	e := entry(stage, &o)
	return &e, nil
}

func (r *repo) Reset(ctx context.Context, stage Stage) error {
	if _, err := ParseStage(string(stage)); err != nil {
		return err
	}

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM prompts WHERE stage = $1",
			string(stage),
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrInvalidStage)
	}

	r.logger.Info("prompt override reset", "stage", stage)
	return nil
}

func (r *repo) override(ctx context.Context, stage Stage) (*Override, error) {
	q, args := query.NewBuilder(projection).BuildSingle("Stage", string(stage))

	o, err := repository.QueryOne(ctx, r.db, q, args, scanOverride)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query prompt %s: %w", stage, err)
	}
	return &o, nil
}
