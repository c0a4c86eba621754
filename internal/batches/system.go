package batches

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/appart/internal/documents"
	"github.com/JaimeStill/appart/internal/workflow"
	"github.com/JaimeStill/appart/pkg/pagination"
)

// System defines the public contract for batch domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Batch], error)

	Find(ctx context.Context, id uuid.UUID) (*Batch, error)
	Create(ctx context.Context, cmd CreateCommand) (*Batch, error)

	// Run executes the batch workflow over the batch's documents. A run
	// that fails is recorded on the returned batch; only errors that
	// prevent the run from starting are returned.
	Run(ctx context.Context, id uuid.UUID) (*Batch, error)

	// Analyze runs the single-document workflow. A non-empty hint names
	// the document's category and skips classification.
	Analyze(ctx context.Context, documentID uuid.UUID, hint string) (*workflow.ResultRecord, error)

	Results(ctx context.Context, id uuid.UUID) ([]documents.Result, error)
	Export(ctx context.Context, id uuid.UUID) ([]byte, error)
}
