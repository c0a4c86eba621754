package workflow

import (
	"errors"
	"net/http"
)

// Workflow errors. Input errors surface before a run starts; ErrRunFailed
// wraps the cause of a batch or document reaching the failed state.
var (
	ErrEmptyBatch       = errors.New("batch contains no documents")
	ErrInvalidDocument  = errors.New("invalid document")
	ErrUnknownDocument  = errors.New("document not part of run state")
	ErrAcquireFailed    = errors.New("page acquisition failed")
	ErrNoPages          = errors.New("document has no pages")
	ErrMalformedOutput  = errors.New("malformed capability output")
	ErrClassifyFailed   = errors.New("classification failed")
	ErrExtractFailed    = errors.New("extraction failed")
	ErrSynthesizeFailed = errors.New("synthesis failed")
	ErrRunFailed        = errors.New("workflow run failed")
	ErrInvalidConfig    = errors.New("invalid workflow configuration")
)

// MapHTTPStatus maps workflow errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrEmptyBatch),
		errors.Is(err, ErrInvalidDocument),
		errors.Is(err, ErrUnknownDocument):
		return http.StatusBadRequest
	case errors.Is(err, ErrRunFailed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
