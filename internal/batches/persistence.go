package batches

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/JaimeStill/appart/internal/documents"
	"github.com/JaimeStill/appart/internal/workflow"
	"github.com/JaimeStill/appart/pkg/repository"
)

// persistence routes workflow side effects: per-document results and
// statuses go to the document tables, summaries to the batch row.
type persistence struct {
	docs    documents.System
	batches *repo
}

func (p *persistence) SaveResult(ctx context.Context, documentID uuid.UUID, record workflow.ResultRecord) error {
	return p.docs.SaveResult(ctx, documentID, record)
}

func (p *persistence) SetStatus(ctx context.Context, documentID uuid.UUID, status workflow.Status, errMsg string) error {
	return p.docs.SetStatus(ctx, documentID, status, errMsg)
}

func (p *persistence) SaveSummary(ctx context.Context, batchID uuid.UUID, summary workflow.BatchSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode batch summary: %w", err)
	}

	err = repository.ExecExpectOne(
		ctx, p.batches.db,
		"UPDATE batches SET summary = $2, updated_at = NOW() WHERE id = $1",
		batchID, string(data),
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}
