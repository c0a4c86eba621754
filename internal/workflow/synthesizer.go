package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/appart/pkg/activity"
)

// StepSynthesize is the activity step name for the batch synthesis call.
const StepSynthesize = "synthesize"

// DegradedFinding is the single key finding of a degraded Batch Summary.
const DegradedFinding = "Processing completed without detailed synthesis."

// Synthesizer aggregates result records into a Batch Summary. Costs and
// rollup counts are computed locally; the narrative and risk level come
// from the synthesis capability.
type Synthesizer struct {
	summarizer Summarizer
	exec       activity.Executor
	logger     *slog.Logger
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(summarizer Summarizer, exec activity.Executor, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{
		summarizer: summarizer,
		exec:       exec,
		logger:     logger,
	}
}

// Synthesize produces the Batch Summary. A failed or unusable synthesis
// call yields a degraded summary instead of an error.
func (s *Synthesizer) Synthesize(ctx context.Context, batchID uuid.UUID, records []ResultRecord) BatchSummary {
	summary := BatchSummary{
		BatchID:         batchID,
		Categories:      rollup(records),
		Errored:         errored(records),
		DocumentCount:   len(records),
		KeyFindings:     []string{},
		Recommendations: []string{},
	}

	syn, err := activity.Run(ctx, s.exec, StepSynthesize, func(ctx context.Context) (Synthesis, error) {
		return s.summarizer.Summarize(ctx, records)
	})
	if err == nil {
		err = validateSynthesis(syn)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "synthesis degraded", "batch_id", batchID, "error", err)
		return degradedSummary(summary)
	}

	risk, _ := ParseRiskLevel(syn.RiskLevel)

	summary.Summary = strings.TrimSpace(syn.Summary)
	summary.RiskLevel = risk
	summary.RecurringCost, summary.OneTimeCost = totals(records)
	if syn.KeyFindings != nil {
		summary.KeyFindings = syn.KeyFindings
	}
	if syn.Recommendations != nil {
		summary.Recommendations = syn.Recommendations
	}
	for c, r := range summary.Categories {
		if text, ok := syn.CategorySummaries[c]; ok {
			r.Summary = text
			summary.Categories[c] = r
		}
	}
	summary.CompletedAt = time.Now().UTC()

	return summary
}

func validateSynthesis(syn Synthesis) error {
	if _, ok := ParseRiskLevel(syn.RiskLevel); !ok {
		return fmt.Errorf("%w: %w: risk level %q", ErrSynthesizeFailed, ErrMalformedOutput, syn.RiskLevel)
	}
	if strings.TrimSpace(syn.Summary) == "" {
		return fmt.Errorf("%w: %w: empty summary", ErrSynthesizeFailed, ErrMalformedOutput)
	}
	return nil
}

func degradedSummary(base BatchSummary) BatchSummary {
	base.Summary = DegradedFinding
	base.RiskLevel = RiskUnknown
	base.RecurringCost = 0
	base.OneTimeCost = 0
	base.KeyFindings = []string{DegradedFinding}
	base.Recommendations = []string{}
	base.Degraded = true
	base.CompletedAt = time.Now().UTC()
	return base
}

// totals sums costs of non-errored records. Values are summed in sorted
// order so the result does not depend on record order.
func totals(records []ResultRecord) (recurring, oneTime float64) {
	rc := make([]float64, 0, len(records))
	oc := make([]float64, 0, len(records))
	for _, r := range records {
		if r.Errored() {
			continue
		}
		rc = append(rc, clampCost(r.RecurringCost))
		oc = append(oc, clampCost(r.OneTimeCost))
	}
	slices.Sort(rc)
	slices.Sort(oc)

	for _, v := range rc {
		recurring += v
	}
	for _, v := range oc {
		oneTime += v
	}
	return recurring, oneTime
}

func rollup(records []ResultRecord) map[Category]CategoryRollup {
	rollups := make(map[Category]CategoryRollup)
	for _, r := range records {
		entry := rollups[r.Category]
		entry.Count++
		rollups[r.Category] = entry
	}

	for c, entry := range rollups {
		entry.Summary = fmt.Sprintf("%d document(s) classified as %s.", entry.Count, c)
		rollups[c] = entry
	}
	return rollups
}

func errored(records []ResultRecord) []uuid.UUID {
	ids := make([]uuid.UUID, 0)
	for _, r := range records {
		if r.Errored() {
			ids = append(ids, r.DocumentID)
		}
	}
	return ids
}
