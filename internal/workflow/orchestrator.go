package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/appart/pkg/activity"
)

// Orchestrator drives the batch state machine and the single-document path.
// It holds no per-run state: every RunBatch call owns its own RunState, so
// independent batches may run concurrently on one Orchestrator.
type Orchestrator struct {
	persistence    Persistence
	checkpoints    CheckpointStore
	exec           activity.Executor
	resolver       *Resolver
	processors     map[Category]*Processor
	synthesizer    *Synthesizer
	routing        Routing
	workers        int
	persistTimeout time.Duration
	logger         *slog.Logger
}

// New builds an Orchestrator from capability handles and configuration.
// A nil Persistence or CheckpointStore falls back to in-memory stores and
// a nil Executor to the supervisor built from cfg.
func New(rt Runtime, cfg Config) (*Orchestrator, error) {
	if err := rt.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Finalize(nil); err != nil {
		return nil, err
	}

	logger := rt.Logger.With("system", "workflow")

	if rt.Persistence == nil {
		rt.Persistence = NewMemoryStore()
	}
	if rt.Checkpoints == nil {
		rt.Checkpoints = NewMemoryCheckpoints()
	}
	if rt.Executor == nil {
		rt.Executor = cfg.Executor(logger)
	}

	processors, err := NewProcessors(rt.Extractor, rt.Executor, cfg.ExtractPages, logger)
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		persistence:    rt.Persistence,
		checkpoints:    rt.Checkpoints,
		exec:           rt.Executor,
		resolver:       NewResolver(rt.Classifier, rt.Executor, cfg.ClassifyPages, logger),
		processors:     processors,
		synthesizer:    NewSynthesizer(rt.Summarizer, rt.Executor, logger),
		routing:        cfg.RoutingPolicy(),
		workers:        cfg.MaxConcurrency,
		persistTimeout: cfg.PersistTimeout(),
		logger:         logger,
	}, nil
}

// PersistTimeout returns the finalized deadline for each persistence side
// effect, for callers that write outside a run.
func (o *Orchestrator) PersistTimeout() time.Duration {
	return o.persistTimeout
}

// RunBatch executes the batch pipeline and returns its summary. A batch
// either reaches Done, possibly with a degraded summary, or fails with an
// error wrapping ErrRunFailed. Invalid input is rejected before any work
// starts. An existing checkpoint for batchID is resumed.
func (o *Orchestrator) RunBatch(ctx context.Context, batchID uuid.UUID, docs []Document) (*BatchSummary, error) {
	if err := validateBatch(batchID, docs); err != nil {
		return nil, err
	}

	logger := o.logger.With("workflow", "batch", "batch_id", batchID)

	rs, err := o.restore(ctx, batchID, docs)
	if err != nil {
		return nil, err
	}

	if rs.Phase == PhaseDone && rs.Summary != nil {
		logger.InfoContext(ctx, "batch already complete")
		return rs.Summary, nil
	}

	run := &batchRun{
		o:      o,
		state:  rs,
		docs:   docs,
		pages:  make([][]Page, len(docs)),
		logger: logger,
	}

	return run.execute(ctx)
}

func validateBatch(batchID uuid.UUID, docs []Document) error {
	if batchID == uuid.Nil {
		return fmt.Errorf("%w: batch id required", ErrInvalidDocument)
	}
	if len(docs) == 0 {
		return ErrEmptyBatch
	}

	seen := make(map[uuid.UUID]bool, len(docs))
	for _, d := range docs {
		if err := validateDocument(d); err != nil {
			return err
		}
		if seen[d.ID] {
			return fmt.Errorf("%w: duplicate document %s", ErrInvalidDocument, d.ID)
		}
		seen[d.ID] = true
	}
	return nil
}

func validateDocument(d Document) error {
	if d.ID == uuid.Nil {
		return fmt.Errorf("%w: document id required", ErrInvalidDocument)
	}
	if d.Pages == nil {
		return fmt.Errorf("%w: document %s has no pages provider", ErrInvalidDocument, d.ID)
	}
	return nil
}

func (o *Orchestrator) restore(ctx context.Context, batchID uuid.UUID, docs []Document) (*RunState, error) {
	rs, err := o.checkpoints.Load(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	if rs == nil {
		return NewRunState(batchID, docs, o.routing), nil
	}

	if err := rs.align(docs); err != nil {
		return nil, err
	}

	if rs.Phase == PhaseFailed {
		rs.Phase = PhaseStart
		rs.FailureReason = ""
	}
	if rs.Routing == "" {
		rs.Routing = o.routing
	}

	o.logger.InfoContext(ctx, "resuming batch from checkpoint",
		"batch_id", batchID,
		"phase", rs.Phase,
		"stage_index", rs.StageIndex,
	)
	return rs, nil
}

func (o *Orchestrator) workerCount(n int) int {
	return max(min(o.workers, n), 1)
}

// persist runs a persistence side effect. Side effects outlive the
// cancellation of the run that triggered them.
func (o *Orchestrator) persist(ctx context.Context, fn func(ctx context.Context) error) error {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.persistTimeout)
	defer cancel()
	return fn(pctx)
}

// batchRun is the working memory of one RunBatch call. Only the goroutine
// running execute mutates state; fan-out tasks write their own slot of a
// local slice that is committed after the barrier.
type batchRun struct {
	o      *Orchestrator
	state  *RunState
	docs   []Document
	pages  [][]Page
	logger *slog.Logger
}

func (r *batchRun) execute(ctx context.Context) (*BatchSummary, error) {
	r.markProcessing(ctx)

	if err := r.acquire(ctx); err != nil {
		return nil, r.fail(ctx, err)
	}

	if err := r.classify(ctx); err != nil {
		return nil, r.fail(ctx, err)
	}

	r.route(ctx)

	if err := r.process(ctx); err != nil {
		return nil, r.fail(ctx, err)
	}

	return r.synthesize(ctx)
}

func (r *batchRun) transition(ctx context.Context, phase Phase) {
	r.state.Phase = phase
	r.checkpoint(ctx)
}

func (r *batchRun) checkpoint(ctx context.Context) {
	r.state.UpdatedAt = time.Now().UTC()
	err := r.o.persist(ctx, func(ctx context.Context) error {
		return r.o.checkpoints.Save(ctx, r.state)
	})
	if err != nil {
		r.recordError(ctx, "checkpoint save failed", err)
	}
}

func (r *batchRun) recordError(ctx context.Context, msg string, err error) {
	r.logger.WarnContext(ctx, msg, "error", err)
	r.state.Errors = append(r.state.Errors, fmt.Sprintf("%s: %v", msg, err))
}

func (r *batchRun) setStatus(ctx context.Context, i int, status Status, errMsg string) {
	id := r.docs[i].ID
	err := r.o.persist(ctx, func(ctx context.Context) error {
		return r.o.persistence.SetStatus(ctx, id, status, errMsg)
	})
	if err != nil {
		r.recordError(ctx, fmt.Sprintf("set status %s for %s", status, id), err)
	}
}

// commit stores a record in its slot with the classification confidence,
// persists it, and releases the document's pages.
func (r *batchRun) commit(ctx context.Context, i int, record ResultRecord) {
	if c := r.state.Classified[i]; c != nil {
		record.Confidence = c.Confidence
	}
	r.state.Results[i] = &record
	r.pages[i] = nil

	id := r.docs[i].ID
	err := r.o.persist(ctx, func(ctx context.Context) error {
		return r.o.persistence.SaveResult(ctx, id, record)
	})
	if err != nil {
		r.recordError(ctx, fmt.Sprintf("save result for %s", id), err)
	}

	r.setStatus(ctx, i, record.Status(), record.Error)
}

func (r *batchRun) markProcessing(ctx context.Context) {
	for i := range r.docs {
		if r.state.Results[i] == nil {
			r.setStatus(ctx, i, StatusProcessing, "")
		}
	}
}

// needsPages reports whether document i still has work that reads its pages.
func (r *batchRun) needsPages(i int) bool {
	if r.state.Results[i] != nil {
		return false
	}

	c := r.state.Classified[i]
	if c == nil || r.state.Stages == nil {
		return c == nil || c.Category.Recognized()
	}

	return slices.Contains(r.state.Stages[min(r.state.StageIndex, len(r.state.Stages)):], StageFor(c.Category))
}

func (r *batchRun) acquire(ctx context.Context) error {
	r.transition(ctx, PhaseAcquiring)

	pending := make([]int, 0, len(r.docs))
	for i := range r.docs {
		if r.needsPages(i) {
			pending = append(pending, i)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.o.workerCount(len(pending)))

	for _, i := range pending {
		doc := r.docs[i]
		g.Go(func() error {
			pages, err := activity.Run(gctx, r.o.exec, StepAcquire, func(ctx context.Context) ([]Page, error) {
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
				return fmt.Errorf("%w: %s (%s): %w", ErrAcquireFailed, doc.Filename, doc.ID, err)
			}

			r.pages[i] = pages
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "phase complete", "phase", PhaseAcquiring, "documents", len(pending))
	return nil
}

func (r *batchRun) classify(ctx context.Context) error {
	r.transition(ctx, PhaseClassifying)

	pending := make([]int, 0, len(r.docs))
	for i := range r.docs {
		if r.state.Classified[i] == nil && r.state.Results[i] == nil {
			pending = append(pending, i)
		}
	}

	local := make([]*Classification, len(r.docs))

	var g errgroup.Group
	g.SetLimit(r.o.workerCount(len(pending)))

	for _, i := range pending {
		g.Go(func() error {
			c := r.o.resolver.Resolve(ctx, r.pages[i])
			local[i] = &c
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("classification interrupted: %w", err)
	}

	for _, i := range pending {
		r.state.Classified[i] = local[i]
		r.logger.DebugContext(ctx, "document classified",
			"document_id", r.docs[i].ID,
			"category", local[i].Category,
			"confidence", local[i].Confidence,
		)
	}

	r.logger.InfoContext(ctx, "phase complete", "phase", PhaseClassifying, "documents", len(pending))
	return nil
}

func (r *batchRun) route(ctx context.Context) {
	r.transition(ctx, PhaseRouting)

	if r.state.Stages == nil {
		r.state.Stages = Plan(r.state.Present(), r.state.Routing)
	}

	unclassified := 0
	for i, c := range r.state.Classified {
		if r.state.Results[i] != nil || c.Category.Recognized() {
			continue
		}
		unclassified++
		r.commit(ctx, i, failedRecord(
			r.docs[i].Ref(),
			CategoryUnclassified,
			fmt.Errorf("%w: document could not be classified", ErrClassifyFailed),
		))
	}

	r.logger.InfoContext(ctx, "phase complete",
		"phase", PhaseRouting,
		"stages", r.state.Stages,
		"unclassified", unclassified,
	)
}

func (r *batchRun) process(ctx context.Context) error {
	r.transition(ctx, PhaseProcessing)

	for r.state.StageIndex < len(r.state.Stages) {
		stage := r.state.Stages[r.state.StageIndex]
		if err := r.runStage(ctx, stage); err != nil {
			return err
		}
		r.state.StageIndex++
		r.checkpoint(ctx)
	}

	skipped := 0
	for i, c := range r.state.Classified {
		if r.state.Results[i] != nil || !c.Category.Recognized() {
			continue
		}
		skipped++
		r.commit(ctx, i, skippedRecord(r.docs[i].Ref(), c.Category))
	}

	r.logger.InfoContext(ctx, "phase complete",
		"phase", PhaseProcessing,
		"stages", len(r.state.Stages),
		"skipped", skipped,
	)
	return nil
}

func (r *batchRun) runStage(ctx context.Context, stage Stage) error {
	category := stage.Category()
	proc, ok := r.o.processors[category]
	if !ok {
		return fmt.Errorf("%w: no processor for stage %q", ErrInvalidConfig, stage)
	}

	pending := make([]int, 0, len(r.docs))
	for i, c := range r.state.Classified {
		if r.state.Results[i] == nil && c.Category == category {
			pending = append(pending, i)
		}
	}

	local := make([]*ResultRecord, len(r.docs))

	var g errgroup.Group
	g.SetLimit(r.o.workerCount(len(pending)))

	for _, i := range pending {
		ref := r.docs[i].Ref()
		g.Go(func() error {
			rec := proc.Process(ctx, ref, r.pages[i])
			local[i] = &rec
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("stage %s interrupted: %w", stage, err)
	}

	degraded := 0
	for _, i := range pending {
		if local[i].Errored() {
			degraded++
		}
		r.commit(ctx, i, *local[i])
	}

	r.logger.InfoContext(ctx, "stage complete",
		"stage", stage,
		"documents", len(pending),
		"degraded", degraded,
	)
	return nil
}

func (r *batchRun) synthesize(ctx context.Context) (*BatchSummary, error) {
	r.transition(ctx, PhaseSynthesizing)

	summary := r.o.synthesizer.Synthesize(ctx, r.state.BatchID, r.state.Records())
	if err := ctx.Err(); err != nil {
		return nil, r.fail(ctx, fmt.Errorf("synthesis interrupted: %w", err))
	}

	err := r.o.persist(ctx, func(ctx context.Context) error {
		return r.o.persistence.SaveSummary(ctx, r.state.BatchID, summary)
	})
	if err != nil {
		r.recordError(ctx, "save summary failed", err)
	}

	r.state.Summary = &summary
	r.state.Done = true
	r.transition(ctx, PhaseDone)

	r.logger.InfoContext(ctx, "batch complete",
		"risk_level", summary.RiskLevel,
		"recurring_cost", summary.RecurringCost,
		"one_time_cost", summary.OneTimeCost,
		"degraded", summary.Degraded,
		"errors", len(r.state.Errors),
	)
	return &summary, nil
}

// fail moves the batch to Failed. Documents with a committed record keep
// their status; every other document is marked failed with the reason.
func (r *batchRun) fail(ctx context.Context, cause error) error {
	reason := cause.Error()
	r.state.Phase = PhaseFailed
	r.state.FailureReason = reason
	r.checkpoint(ctx)

	for i := range r.docs {
		r.pages[i] = nil
		if r.state.Results[i] == nil {
			r.setStatus(ctx, i, StatusFailed, reason)
		}
	}

	level := slog.LevelError
	if errors.Is(cause, context.Canceled) {
		level = slog.LevelWarn
	}
	r.logger.Log(ctx, level, "batch failed", "reason", reason)

	return fmt.Errorf("%w: %w", ErrRunFailed, cause)
}
