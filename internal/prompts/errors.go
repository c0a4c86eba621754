package prompts

import (
	"errors"
	"net/http"
)

// Domain errors for prompt operations.
var (
	ErrNotFound          = errors.New("prompt override not found")
	ErrInvalidStage      = errors.New("unknown prompt stage")
	ErrEmptyInstructions = errors.New("instructions must not be empty")
)

// MapHTTPStatus maps prompt domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidStage) || errors.Is(err, ErrEmptyInstructions) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
