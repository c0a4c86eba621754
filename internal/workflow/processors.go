package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/JaimeStill/appart/pkg/activity"
)

// StepExtract is the activity step name for extraction calls.
const StepExtract = "extract"

// consumed lists the extraction fields folded into the normalized record.
// Everything else is carried in ResultRecord.Details.
var consumed = map[string]bool{
	"summary":               true,
	"key_insights":          true,
	"estimated_annual_cost": true,
	"one_time_costs":        true,
}

// Processor runs category-specific extraction for one category and
// normalizes the output into a ResultRecord.
type Processor struct {
	category  Category
	extractor Extractor
	exec      activity.Executor
	schema    *jsonschema.Schema
	maxPages  int
	logger    *slog.Logger
}

// NewProcessor compiles the extraction schema for category.
func NewProcessor(
	category Category,
	extractor Extractor,
	exec activity.Executor,
	maxPages int,
	logger *slog.Logger,
) (*Processor, error) {
	schema, err := compileSchema(category)
	if err != nil {
		return nil, err
	}

	return &Processor{
		category:  category,
		extractor: extractor,
		exec:      exec,
		schema:    schema,
		maxPages:  max(maxPages, 1),
		logger:    logger.With("processor", string(category)),
	}, nil
}

// NewProcessors creates one Processor per recognized category.
func NewProcessors(
	extractor Extractor,
	exec activity.Executor,
	maxPages int,
	logger *slog.Logger,
) (map[Category]*Processor, error) {
	procs := make(map[Category]*Processor, len(priority))
	for _, c := range priority {
		p, err := NewProcessor(c, extractor, exec, maxPages, logger)
		if err != nil {
			return nil, err
		}
		procs[c] = p
	}
	return procs, nil
}

// Category returns the category p handles.
func (p *Processor) Category() Category {
	return p.category
}

// Process extracts and normalizes one document. It never fails: a
// capability error or schema mismatch yields a degraded record with
// zero costs and Error set.
func (p *Processor) Process(ctx context.Context, ref DocumentRef, pages []Page) ResultRecord {
	if len(pages) == 0 {
		return p.degraded(ref, ErrNoPages)
	}

	lead := pages[:min(len(pages), p.maxPages)]

	fields, err := activity.Run(ctx, p.exec, StepExtract, func(ctx context.Context) (map[string]any, error) {
		raw, err := p.extractor.Extract(ctx, lead, p.category)
		if err != nil {
			if errors.Is(err, ErrMalformedOutput) {
				return nil, activity.Permanent(err)
			}
			return nil, err
		}
		fields, err := p.decode(raw)
		if err != nil {
			return nil, activity.Permanent(err)
		}
		return fields, nil
	})
	if err != nil {
		p.logger.WarnContext(ctx, "extraction degraded",
			"document_id", ref.ID,
			"error", err,
		)
		return p.degraded(ref, fmt.Errorf("%w: %w", ErrExtractFailed, err))
	}

	return p.normalize(ref, fields)
}

func (p *Processor) decode(raw json.RawMessage) (map[string]any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}

	if err := p.schema.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}

	fields, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: extraction is not an object", ErrMalformedOutput)
	}
	return fields, nil
}

func (p *Processor) normalize(ref DocumentRef, fields map[string]any) ResultRecord {
	findings := stringList(fields["key_insights"])
	recurring := number(fields["estimated_annual_cost"])
	oneTime := sumAmounts(fields["one_time_costs"], "amount")

	switch p.category {
	case CategoryMeetingMinutes:
		findings = append(findings, stringList(fields["decisions"])...)
		oneTime += sumAmounts(fields["upcoming_works"], "cost")
	case CategoryDiagnostic:
		findings = append(findings, stringList(fields["issues_found"])...)
	case CategoryTaxNotice:
		if recurring == 0 {
			recurring = number(fields["total_amount"])
		}
	case CategoryChargesStatement:
		if recurring == 0 {
			recurring = number(fields["total_charges"])
		}
		oneTime += sumAmounts(fields["special_assessments"], "amount")
	}

	details := make(map[string]any)
	for k, v := range fields {
		if !consumed[k] {
			details[k] = v
		}
	}

	summary, _ := fields["summary"].(string)

	return ResultRecord{
		DocumentID:    ref.ID,
		Filename:      ref.Filename,
		Category:      p.category,
		Summary:       strings.TrimSpace(summary),
		Findings:      findings,
		RecurringCost: clampCost(recurring),
		OneTimeCost:   clampCost(oneTime),
		Details:       details,
		CompletedAt:   time.Now().UTC(),
	}
}

func (p *Processor) degraded(ref DocumentRef, err error) ResultRecord {
	return ResultRecord{
		DocumentID:  ref.ID,
		Filename:    ref.Filename,
		Category:    p.category,
		Summary:     fmt.Sprintf("Document could not be analyzed as %s.", p.category),
		Findings:    []string{},
		Error:       err.Error(),
		CompletedAt: time.Now().UTC(),
	}
}

// failedRecord is the placeholder for a document that never reached a processor.
func failedRecord(ref DocumentRef, category Category, err error) ResultRecord {
	return ResultRecord{
		DocumentID:  ref.ID,
		Filename:    ref.Filename,
		Category:    category,
		Summary:     "Document could not be analyzed.",
		Findings:    []string{},
		Error:       err.Error(),
		CompletedAt: time.Now().UTC(),
	}
}

// skippedRecord marks a recognized document whose category was not routed.
func skippedRecord(ref DocumentRef, category Category) ResultRecord {
	return ResultRecord{
		DocumentID:  ref.ID,
		Filename:    ref.Filename,
		Category:    category,
		Summary:     fmt.Sprintf("Classified as %s; not selected for detailed analysis.", category),
		Findings:    []string{},
		Skipped:     true,
		CompletedAt: time.Now().UTC(),
	}
}

func stringList(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case json.Number:
		f, _ := n.Float64()
		return f
	default:
		return 0
	}
}

func sumAmounts(v any, field string) float64 {
	items, _ := v.([]any)
	var total float64
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		total += clampCost(number(obj[field]))
	}
	return total
}

func clampCost(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
