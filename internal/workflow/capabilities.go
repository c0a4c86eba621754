package workflow

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// Classifier labels a document from its leading page images.
type Classifier interface {
	Classify(ctx context.Context, pages []Page) (Classification, error)
}

// Extractor returns category-specific structured data for a document.
// Returning an error wrapping ErrMalformedOutput stops retries.
type Extractor interface {
	Extract(ctx context.Context, pages []Page, category Category) (json.RawMessage, error)
}

// Summarizer produces the holistic batch assessment from all result records.
type Summarizer interface {
	Summarize(ctx context.Context, records []ResultRecord) (Synthesis, error)
}

// Persistence receives the side effects of a run. Failures are logged
// and recorded in run state; they never change the outcome of a run.
type Persistence interface {
	SaveResult(ctx context.Context, documentID uuid.UUID, record ResultRecord) error
	SaveSummary(ctx context.Context, batchID uuid.UUID, summary BatchSummary) error
	SetStatus(ctx context.Context, documentID uuid.UUID, status Status, errMsg string) error
}

// CheckpointStore persists run state between phases.
// Load returns nil, nil when no checkpoint exists for the batch.
type CheckpointStore interface {
	Load(ctx context.Context, batchID uuid.UUID) (*RunState, error)
	Save(ctx context.Context, state *RunState) error
}
