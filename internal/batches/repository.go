package batches

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/appart/internal/documents"
	"github.com/JaimeStill/appart/internal/workflow"
	"github.com/JaimeStill/appart/pkg/pagination"
	"github.com/JaimeStill/appart/pkg/query"
	"github.com/JaimeStill/appart/pkg/repository"
	"github.com/JaimeStill/appart/pkg/storage"
)

type repo struct {
	db         *sql.DB
	docs       documents.System
	pages      PageSource
	orch       *workflow.Orchestrator
	timeout    time.Duration
	logger     *slog.Logger
	pagination pagination.Config
}

// PageSource produces the pages of the document stored at key.
type PageSource func(key string) workflow.PagesProvider

// StoragePages renders documents downloaded from store.
func StoragePages(store storage.System, r *workflow.Rasterizer) PageSource {
	return func(key string) workflow.PagesProvider {
		return workflow.StoragePages(store, key, r)
	}
}

// Deps carries the collaborators of the batch system.
type Deps struct {
	DB         *sql.DB
	Documents  documents.System
	Pages      PageSource
	Logger     *slog.Logger
	Pagination pagination.Config
}

// New creates a batch repository implementing the System interface. It
// builds the workflow orchestrator from rt and cfg, supplying the
// persistence that writes results to the document and batch tables.
func New(deps Deps, rt workflow.Runtime, cfg workflow.Config) (System, error) {
	if deps.Pages == nil {
		return nil, fmt.Errorf("%w: page source required", workflow.ErrInvalidConfig)
	}

	r := &repo{
		db:         deps.DB,
		docs:       deps.Documents,
		pages:      deps.Pages,
		logger:     deps.Logger.With("system", "batches"),
		pagination: deps.Pagination,
	}

	rt.Persistence = &persistence{docs: deps.Documents, batches: r}
	if rt.Logger == nil {
		rt.Logger = deps.Logger
	}

	orch, err := workflow.New(rt, cfg)
	if err != nil {
		return nil, fmt.Errorf("build orchestrator: %w", err)
	}

	r.orch = orch
	r.timeout = orch.PersistTimeout()
	return r, nil
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Batch], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Label")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count batches: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanBatch)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Batch, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	b, err := repository.QueryOne(ctx, r.db, q, args, scanBatch)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &b, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Batch, error) {
	label := strings.TrimSpace(cmd.Label)
	if label == "" {
		return nil, fmt.Errorf("%w: label required", ErrInvalidBatch)
	}
	if len(cmd.DocumentIDs) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBatch, workflow.ErrEmptyBatch)
	}

	id := uuid.New()

	insertQ := `
		INSERT INTO batches(id, label)
		VALUES ($1, $2)
		RETURNING id, label, status, summary, failure_reason, created_at, updated_at, completed_at`

	b, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Batch, error) {
		b, err := repository.QueryOne(ctx, tx, insertQ, []any{id, label}, scanBatch)
		if err != nil {
			return Batch{}, err
		}

		for _, docID := range cmd.DocumentIDs {
			if err := repository.ExecExpectOne(
				ctx, tx,
				"UPDATE documents SET batch_id = $1, updated_at = NOW() WHERE id = $2 AND batch_id IS NULL",
				id, docID,
			); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return Batch{}, fmt.Errorf("%w: %s", ErrDocumentUnavailable, docID)
				}
				return Batch{}, err
			}
		}

		return b, nil
	})

	if err != nil {
		if errors.Is(err, ErrDocumentUnavailable) {
			return nil, err
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("batch created", "id", b.ID, "label", b.Label, "documents", len(cmd.DocumentIDs))
	return &b, nil
}

func (r *repo) Run(ctx context.Context, id uuid.UUID) (*Batch, error) {
	if _, err := r.Find(ctx, id); err != nil {
		return nil, err
	}

	docs, err := r.docs.ListByBatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, workflow.ErrEmptyBatch
	}

	if err := repository.ExecExpectOne(
		ctx, r.db,
		"UPDATE batches SET status = 'running', failure_reason = NULL, updated_at = NOW() WHERE id = $1 AND status <> 'running'",
		id,
	); err != nil {
		return nil, repository.MapError(err, ErrRunning, ErrDuplicate)
	}

	units := make([]workflow.Document, len(docs))
	for i, d := range docs {
		units[i] = r.unit(d)
	}

	r.logger.Info("batch run started", "id", id, "documents", len(units))

	_, runErr := r.orch.RunBatch(ctx, id, units)
	if runErr != nil {
		r.finish(ctx, id, StatusFailed, runErr.Error())
		if !errors.Is(runErr, workflow.ErrRunFailed) {
			return nil, runErr
		}
	} else {
		r.finish(ctx, id, StatusCompleted, "")
	}

	return r.Find(context.WithoutCancel(ctx), id)
}

func (r *repo) Analyze(ctx context.Context, documentID uuid.UUID, hint string) (*workflow.ResultRecord, error) {
	var category workflow.Category
	if hint != "" {
		c, ok := workflow.ParseCategory(hint)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, hint)
		}
		category = c
	}

	d, err := r.docs.Find(ctx, documentID)
	if err != nil {
		return nil, err
	}

	return r.orch.RunSingle(ctx, r.unit(*d), category)
}

func (r *repo) Results(ctx context.Context, id uuid.UUID) ([]documents.Result, error) {
	if _, err := r.Find(ctx, id); err != nil {
		return nil, err
	}
	return r.docs.ResultsByBatch(ctx, id)
}

func (r *repo) Export(ctx context.Context, id uuid.UUID) ([]byte, error) {
	b, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	results, err := r.docs.ResultsByBatch(ctx, id)
	if err != nil {
		return nil, err
	}

	records := make([]workflow.ResultRecord, len(results))
	for i, res := range results {
		records[i] = res.ResultRecord
	}

	return Report(b.Label, b.Summary, records)
}

func (r *repo) unit(d documents.Document) workflow.Document {
	return workflow.Document{
		ID:       d.ID,
		Filename: d.Filename,
		Pages:    r.pages(d.StorageKey),
	}
}

// finish records the outcome of a run. It runs detached from the request
// so a cancelled run still leaves a terminal status.
func (r *repo) finish(ctx context.Context, id uuid.UUID, status, reason string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	err := repository.ExecExpectOne(
		ctx, r.db,
		`UPDATE batches
		SET status = $2, failure_reason = NULLIF($3, ''), completed_at = NOW(), updated_at = NOW()
		WHERE id = $1`,
		id, status, reason,
	)
	if err != nil {
		r.logger.Error("batch status update failed", "id", id, "status", status, "error", err)
		return
	}

	r.logger.Info("batch run finished", "id", id, "status", status)
}
