package documents

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/JaimeStill/appart/internal/workflow"
	"github.com/JaimeStill/appart/pkg/pagination"
	"github.com/JaimeStill/appart/pkg/query"
	"github.com/JaimeStill/appart/pkg/repository"
	"github.com/JaimeStill/appart/pkg/storage"
)

type repo struct {
	db         *sql.DB
	storage    storage.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a document repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		storage:    store,
		logger:     logger.With("system", "documents"),
		pagination: pagination,
	}
}

func (r *repo) Handler(maxUploadSize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxUploadSize)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Document], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Filename", "Category")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	docs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	result := pagination.NewPageResult(docs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Document, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	d, err := repository.QueryOne(ctx, r.db, q, args, scanDocument)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &d, nil
}

func (r *repo) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]Document, error) {
	q, args := query.
		NewBuilder(projection, batchSort).
		WhereEquals("BatchID", batchID).
		Build()

	docs, err := repository.QueryMany(ctx, r.db, q, args, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("query batch documents: %w", err)
	}
	return docs, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Document, error) {
	id := uuid.New()
	key := buildStorageKey(id, sanitizeFilename(cmd.Filename))

	if err := r.storage.Upload(ctx, key, bytes.NewReader(cmd.Data), cmd.ContentType); err != nil {
		return nil, fmt.Errorf("upload document blob: %w", err)
	}

	q := `
		INSERT INTO documents(id, batch_id, filename, content_type, size_bytes, page_count, storage_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	insertArgs := []any{
		id,
		cmd.BatchID,
		cmd.Filename,
		cmd.ContentType,
		int64(len(cmd.Data)),
		cmd.PageCount,
		key,
	}

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(ctx, tx, q, insertArgs...)
	})

	if err != nil {
		if delErr := r.storage.Delete(ctx, key); delErr != nil {
			r.logger.Warn("compensating blob delete failed", "key", key, "error", delErr)
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	d, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	r.logger.Info("document created", "id", d.ID, "filename", d.Filename)
	return d, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := r.Find(ctx, id)
	if err != nil {
		return err
	}

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM documents WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if delErr := r.storage.Delete(ctx, doc.StorageKey); delErr != nil {
		r.logger.Warn(
			"blob delete failed after DB delete",
			"key", doc.StorageKey,
			"error", delErr,
		)
	}

	r.logger.Info("document deleted", "id", id)
	return nil
}

func (r *repo) SetStatus(ctx context.Context, id uuid.UUID, status workflow.Status, errMsg string) error {
	err := repository.ExecExpectOne(
		ctx, r.db,
		`UPDATE documents SET status = $2, error = NULLIF($3, ''), updated_at = NOW() WHERE id = $1`,
		id, string(status), errMsg,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}

func (r *repo) SaveResult(ctx context.Context, id uuid.UUID, record workflow.ResultRecord) error {
	findings := record.Findings
	if findings == nil {
		findings = []string{}
	}

	findingsJSON, err := json.Marshal(findings)
	if err != nil {
		return fmt.Errorf("encode findings: %w", err)
	}

	detailsJSON, err := json.Marshal(record.Details)
	if err != nil {
		return fmt.Errorf("encode details: %w", err)
	}

	upsert := `
		INSERT INTO document_results(document_id, category, confidence, summary, findings, recurring_cost, one_time_cost, details, skipped, error, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11)
		ON CONFLICT (document_id) DO UPDATE SET
			category = EXCLUDED.category,
			confidence = EXCLUDED.confidence,
			summary = EXCLUDED.summary,
			findings = EXCLUDED.findings,
			recurring_cost = EXCLUDED.recurring_cost,
			one_time_cost = EXCLUDED.one_time_cost,
			details = EXCLUDED.details,
			skipped = EXCLUDED.skipped,
			error = EXCLUDED.error,
			completed_at = EXCLUDED.completed_at`

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if _, err := tx.ExecContext(ctx, upsert,
			id,
			string(record.Category),
			record.Confidence,
			record.Summary,
			string(findingsJSON),
			record.RecurringCost,
			record.OneTimeCost,
			string(detailsJSON),
			record.Skipped,
			record.Error,
			record.CompletedAt,
		); err != nil {
			return struct{}{}, err
		}

		return struct{}{}, repository.ExecExpectOne(
			ctx, tx,
			`UPDATE documents SET category = $2, confidence = $3, updated_at = NOW() WHERE id = $1`,
			id, string(record.Category), record.Confidence,
		)
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Debug("document result saved", "id", id, "category", record.Category)
	return nil
}

func (r *repo) FindResult(ctx context.Context, id uuid.UUID) (*Result, error) {
	q, args := query.NewBuilder(resultProjection).BuildSingle("DocumentID", id)

	res, err := repository.QueryOne(ctx, r.db, q, args, scanResult)
	if err != nil {
		return nil, repository.MapError(err, ErrResultNotFound, ErrDuplicate)
	}
	return &res, nil
}

func (r *repo) ResultsByBatch(ctx context.Context, batchID uuid.UUID) ([]Result, error) {
	q, args := query.
		NewBuilder(resultProjection, batchSort).
		WhereEquals("BatchID", batchID).
		Build()

	results, err := repository.QueryMany(ctx, r.db, q, args, scanResult)
	if err != nil {
		return nil, fmt.Errorf("query batch results: %w", err)
	}
	return results, nil
}

func buildStorageKey(id uuid.UUID, filename string) string {
	return fmt.Sprintf("documents/%s/%s", id, filename)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == "" {
		name = "document"
	}
	return url.PathEscape(name)
}
