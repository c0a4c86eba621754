package batches

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/appart/internal/documents"
	"github.com/JaimeStill/appart/internal/workflow"
)

// Domain errors for batch operations.
var (
	ErrNotFound            = errors.New("batch not found")
	ErrDuplicate           = errors.New("batch already exists")
	ErrInvalidBatch        = errors.New("invalid batch")
	ErrRunning             = errors.New("batch is already running")
	ErrDocumentUnavailable = errors.New("document missing or already assigned to a batch")
	ErrInvalidCategory     = errors.New("invalid category")
)

// MapHTTPStatus maps batch, document, and workflow errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrRunning):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidBatch), errors.Is(err, ErrInvalidCategory):
		return http.StatusBadRequest
	case errors.Is(err, ErrDocumentUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, documents.ErrNotFound):
		return documents.MapHTTPStatus(err)
	default:
		return workflow.MapHTTPStatus(err)
	}
}
