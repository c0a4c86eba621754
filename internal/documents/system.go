package documents

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/appart/internal/workflow"
	"github.com/JaimeStill/appart/pkg/pagination"
)

// System defines the public contract for document domain operations.
// SetStatus and SaveResult are the per-document side effects of a
// workflow run.
type System interface {
	Handler(maxUploadSize int64) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Document], error)

	Find(ctx context.Context, id uuid.UUID) (*Document, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]Document, error)
	Create(ctx context.Context, cmd CreateCommand) (*Document, error)
	Delete(ctx context.Context, id uuid.UUID) error

	SetStatus(ctx context.Context, id uuid.UUID, status workflow.Status, errMsg string) error
	SaveResult(ctx context.Context, id uuid.UUID, record workflow.ResultRecord) error
	FindResult(ctx context.Context, id uuid.UUID) (*Result, error)
	ResultsByBatch(ctx context.Context, batchID uuid.UUID) ([]Result, error)
}
