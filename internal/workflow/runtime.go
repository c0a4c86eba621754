package workflow

import (
	"fmt"
	"log/slog"

	"github.com/JaimeStill/appart/pkg/activity"
)

// Runtime bundles the capability handles the orchestrator is built from.
// It is assembled by composition code: the API module wires the agent and
// database-backed stores, the CLI wires the agent and a file checkpoint store.
type Runtime struct {
	Classifier  Classifier
	Extractor   Extractor
	Summarizer  Summarizer
	Persistence Persistence
	Checkpoints CheckpointStore
	Executor    activity.Executor
	Logger      *slog.Logger
}

func (rt *Runtime) validate() error {
	if rt.Classifier == nil {
		return fmt.Errorf("%w: classifier required", ErrInvalidConfig)
	}
	if rt.Extractor == nil {
		return fmt.Errorf("%w: extractor required", ErrInvalidConfig)
	}
	if rt.Summarizer == nil {
		return fmt.Errorf("%w: summarizer required", ErrInvalidConfig)
	}
	if rt.Logger == nil {
		return fmt.Errorf("%w: logger required", ErrInvalidConfig)
	}
	return nil
}
