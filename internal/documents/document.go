// Package documents implements the document domain for appart.
// It provides types, data access, and business logic for document
// upload, batch assignment, processing status, and the per-document
// result records written by the workflow.
package documents

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/appart/internal/workflow"
)

// Document statuses. Pending documents have not been picked up by a run.
const (
	StatusPending    = "pending"
	StatusProcessing = string(workflow.StatusProcessing)
	StatusCompleted  = string(workflow.StatusCompleted)
	StatusFailed     = string(workflow.StatusFailed)
)

// Document represents a registered document with its processing state,
// blob storage reference, and the headline figures of its result record.
type Document struct {
	ID            uuid.UUID  `json:"id"`
	BatchID       *uuid.UUID `json:"batch_id"`
	Filename      string     `json:"filename"`
	ContentType   string     `json:"content_type"`
	SizeBytes     int64      `json:"size_bytes"`
	PageCount     *int       `json:"page_count"`
	StorageKey    string     `json:"storage_key"`
	Status        string     `json:"status"`
	Category      *string    `json:"category"`
	Confidence    *float64   `json:"confidence"`
	Error         *string    `json:"error"`
	UploadedAt    time.Time  `json:"uploaded_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	Summary       *string    `json:"summary"`
	RecurringCost *float64   `json:"recurring_cost"`
	OneTimeCost   *float64   `json:"one_time_cost"`
}

// Result is a stored result record together with the batch its document
// belongs to.
type Result struct {
	BatchID *uuid.UUID `json:"batch_id"`
	workflow.ResultRecord
}

// CreateCommand carries the data needed to upload and register a new document.
// Data holds the raw file bytes. PageCount is optional and may be extracted
// by the caller via pdfcpu; nil values are stored as NULL.
type CreateCommand struct {
	Data        []byte
	Filename    string
	ContentType string
	BatchID     *uuid.UUID
	PageCount   *int
}
