// Package batches implements the batch domain for appart. A batch groups
// uploaded documents that are analyzed together by one workflow run; the
// package stores batch records and their summaries, triggers runs, and
// exports results as XLSX workbooks.
package batches

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/appart/internal/workflow"
)

// Batch statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Batch is a set of documents analyzed together and, once run, its summary.
type Batch struct {
	ID            uuid.UUID              `json:"id"`
	Label         string                 `json:"label"`
	Status        string                 `json:"status"`
	Summary       *workflow.BatchSummary `json:"summary"`
	FailureReason *string                `json:"failure_reason"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
	CompletedAt   *time.Time             `json:"completed_at"`
}

// CreateCommand registers a batch over already uploaded documents.
type CreateCommand struct {
	Label       string      `json:"label"`
	DocumentIDs []uuid.UUID `json:"document_ids"`
}
