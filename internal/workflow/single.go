package workflow

import (
	"context"
	"fmt"

	"github.com/JaimeStill/appart/pkg/activity"

	gaoconfig "github.com/JaimeStill/go-agents-orchestration/pkg/config"
	"github.com/JaimeStill/go-agents-orchestration/pkg/state"
)

// State keys used by the single-document graph.
const (
	KeyDocument       = "document"
	KeyPages          = "pages"
	KeyClassification = "classification"
	KeyRecord         = "record"
)

// RunSingle processes one document outside of any batch. The document's
// own category selects its processor; a recognized hint skips
// classification. Acquisition failure fails the run with an error
// wrapping ErrRunFailed. An unclassified document yields an error record.
func (o *Orchestrator) RunSingle(ctx context.Context, doc Document, hint Category) (*ResultRecord, error) {
	if err := validateDocument(doc); err != nil {
		return nil, err
	}

	logger := o.logger.With("workflow", "single", "document_id", doc.ID)

	graph, err := o.buildSingleGraph()
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	o.singleStatus(ctx, doc, StatusProcessing, "")

	initial := state.New(nil)
	initial = initial.Set(KeyDocument, doc)
	if hint.Recognized() {
		initial = initial.Set(KeyClassification, Classification{
			Category:   hint,
			Confidence: 1,
			Rationale:  "category supplied by caller",
		})
	}

	final, err := graph.Execute(ctx, initial)
	if err != nil {
		reason := err.Error()
		o.singleStatus(ctx, doc, StatusFailed, reason)
		logger.ErrorContext(ctx, "document failed", "reason", reason)
		return nil, fmt.Errorf("%w: %w", ErrRunFailed, err)
	}

	record, err := extractRecord(final)
	if err != nil {
		o.singleStatus(ctx, doc, StatusFailed, err.Error())
		return nil, fmt.Errorf("%w: %w", ErrRunFailed, err)
	}

	err = o.persist(ctx, func(ctx context.Context) error {
		return o.persistence.SaveResult(ctx, doc.ID, record)
	})
	if err != nil {
		logger.WarnContext(ctx, "save result failed", "error", err)
	}
	o.singleStatus(ctx, doc, record.Status(), record.Error)

	logger.InfoContext(ctx, "document complete",
		"category", record.Category,
		"degraded", record.Errored(),
	)
	return &record, nil
}

func (o *Orchestrator) singleStatus(ctx context.Context, doc Document, status Status, errMsg string) {
	err := o.persist(ctx, func(ctx context.Context) error {
		return o.persistence.SetStatus(ctx, doc.ID, status, errMsg)
	})
	if err != nil {
		o.logger.WarnContext(ctx, "set status failed",
			"document_id", doc.ID,
			"status", status,
			"error", err,
		)
	}
}

func (o *Orchestrator) buildSingleGraph() (state.StateGraph, error) {
	cfg := gaoconfig.DefaultGraphConfig("appart-single")
	cfg.Observer = "noop"

	graph, err := state.NewGraph(cfg)
	if err != nil {
		return nil, err
	}

	if err := graph.AddNode("acquire", o.acquireNode()); err != nil {
		return nil, err
	}

	if err := graph.AddNode("classify", o.classifyNode()); err != nil {
		return nil, err
	}

	if err := graph.AddNode("process", o.processNode()); err != nil {
		return nil, err
	}

	// acquire → classify (no usable hint)
	if err := graph.AddEdge("acquire", "classify", state.Not(hasHint)); err != nil {
		return nil, err
	}

	// acquire → process (hint supplied)
	if err := graph.AddEdge("acquire", "process", hasHint); err != nil {
		return nil, err
	}

	// classify → process (unconditional)
	if err := graph.AddEdge("classify", "process", nil); err != nil {
		return nil, err
	}

	if err := graph.SetEntryPoint("acquire"); err != nil {
		return nil, err
	}

	if err := graph.SetExitPoint("process"); err != nil {
		return nil, err
	}

	return graph, nil
}

func (o *Orchestrator) acquireNode() state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		doc, err := stateValue[Document](s, KeyDocument)
		if err != nil {
			return s, err
		}

		pages, err := activity.Run(ctx, o.exec, StepAcquire, func(ctx context.Context) ([]Page, error) {
			pages, err := doc.Pages(ctx)
			if err != nil {
				return nil, err
			}
			if len(pages) == 0 {
				return nil, activity.Permanent(ErrNoPages)
			}
			return pages, nil
		})
		if err != nil {
			return s, fmt.Errorf("%w: %s: %w", ErrAcquireFailed, doc.Filename, err)
		}

		return s.Set(KeyPages, pages), nil
	})
}

func (o *Orchestrator) classifyNode() state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		pages, err := stateValue[[]Page](s, KeyPages)
		if err != nil {
			return s, err
		}

		return s.Set(KeyClassification, o.resolver.Resolve(ctx, pages)), nil
	})
}

func (o *Orchestrator) processNode() state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		doc, err := stateValue[Document](s, KeyDocument)
		if err != nil {
			return s, err
		}

		pages, err := stateValue[[]Page](s, KeyPages)
		if err != nil {
			return s, err
		}

		c, err := stateValue[Classification](s, KeyClassification)
		if err != nil {
			return s, err
		}

		proc, ok := o.processors[c.Category]
		if !ok {
			record := failedRecord(doc.Ref(), CategoryUnclassified,
				fmt.Errorf("%w: document could not be classified", ErrClassifyFailed))
			return s.Set(KeyRecord, record), nil
		}

		record := proc.Process(ctx, doc.Ref(), pages)
		record.Confidence = c.Confidence
		return s.Set(KeyRecord, record), nil
	})
}

func hasHint(s state.State) bool {
	_, ok := s.Get(KeyClassification)
	return ok
}

func extractRecord(s state.State) (ResultRecord, error) {
	return stateValue[ResultRecord](s, KeyRecord)
}

func stateValue[T any](s state.State, key string) (T, error) {
	var zero T

	val, ok := s.Get(key)
	if !ok {
		return zero, fmt.Errorf("missing %s in state", key)
	}

	v, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("%s is not %T", key, zero)
	}

	return v, nil
}
