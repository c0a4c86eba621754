package workflow

import (
	"context"
	"log/slog"
	"math"

	"github.com/JaimeStill/appart/pkg/activity"
)

// StepClassify is the activity step name for classification calls.
const StepClassify = "classify"

// Resolver wraps the classification capability. It never fails: errors
// and unknown labels collapse to CategoryUnclassified with zero confidence.
type Resolver struct {
	classifier Classifier
	exec       activity.Executor
	maxPages   int
	logger     *slog.Logger
}

// MaxClassifyPages bounds the leading pages shown to the classifier.
const MaxClassifyPages = 3

// NewResolver creates a Resolver that shows the classifier at most maxPages
// pages, clamped to [1, MaxClassifyPages].
func NewResolver(classifier Classifier, exec activity.Executor, maxPages int, logger *slog.Logger) *Resolver {
	return &Resolver{
		classifier: classifier,
		exec:       exec,
		maxPages:   min(max(maxPages, 1), MaxClassifyPages),
		logger:     logger,
	}
}

// Resolve classifies a document from its leading pages.
func (r *Resolver) Resolve(ctx context.Context, pages []Page) Classification {
	if len(pages) == 0 {
		return unclassified()
	}

	lead := pages[:min(len(pages), r.maxPages)]

	c, err := activity.Run(ctx, r.exec, StepClassify, func(ctx context.Context) (Classification, error) {
		return r.classifier.Classify(ctx, lead)
	})
	if err != nil {
		r.logger.WarnContext(ctx, "classification degraded", "error", err)
		return unclassified()
	}

	if !c.Category.Recognized() {
		r.logger.WarnContext(ctx, "classification label not recognized", "label", c.Category)
		return unclassified()
	}

	if math.IsNaN(c.Confidence) {
		c.Confidence = 0
	}
	c.Confidence = min(max(c.Confidence, 0), 1)
	return c
}

func unclassified() Classification {
	return Classification{Category: CategoryUnclassified, Confidence: 0}
}
