package workflow

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category is the classified document type that selects a Type Processor.
type Category string

// Document categories. Unclassified is terminal for the document it is
// assigned to: no extraction runs for it.
const (
	CategoryMeetingMinutes   Category = "meeting_minutes"
	CategoryDiagnostic       Category = "diagnostic"
	CategoryTaxNotice        Category = "tax_notice"
	CategoryChargesStatement Category = "charges_statement"
	CategoryUnclassified     Category = "unclassified"
)

// priority is the fixed routing order, most decision-relevant first.
var priority = []Category{
	CategoryMeetingMinutes,
	CategoryDiagnostic,
	CategoryTaxNotice,
	CategoryChargesStatement,
}

var categoryAliases = map[string]Category{
	"pv_ag":         CategoryMeetingMinutes,
	"minutes":       CategoryMeetingMinutes,
	"diags":         CategoryDiagnostic,
	"diagnostics":   CategoryDiagnostic,
	"taxe_fonciere": CategoryTaxNotice,
	"tax":           CategoryTaxNotice,
	"charges":       CategoryChargesStatement,
	"other":         CategoryUnclassified,
}

// Categories returns the recognized categories in routing priority order.
func Categories() []Category {
	return slices.Clone(priority)
}

// ParseCategory normalizes a label into a Category. The second result is
// false when the label is not one of the recognized categories.
func ParseCategory(s string) (Category, bool) {
	label := strings.ToLower(strings.TrimSpace(s))
	label = strings.ReplaceAll(label, "-", "_")
	label = strings.ReplaceAll(label, " ", "_")

	c := Category(label)
	if alias, ok := categoryAliases[label]; ok {
		c = alias
	}
	return c, c.Recognized()
}

// Recognized reports whether c has a Type Processor.
func (c Category) Recognized() bool {
	return slices.Contains(priority, c)
}

// Stage names what the orchestrator does after routing: run the processor
// stage for one category, or go straight to synthesis.
type Stage string

// StageSynthesize skips extraction entirely.
const StageSynthesize Stage = "synthesize"

// StageFor returns the processing stage of a recognized category.
func StageFor(c Category) Stage {
	return Stage(c)
}

// Category returns the category a processing stage handles.
// StageSynthesize maps to the empty category.
func (s Stage) Category() Category {
	if s == StageSynthesize {
		return ""
	}
	return Category(s)
}

// RiskLevel is the qualitative batch risk assigned during synthesis.
type RiskLevel string

// Risk levels. Unknown marks a degraded synthesis.
const (
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
	RiskUnknown RiskLevel = "unknown"
)

// ParseRiskLevel normalizes a risk label. Returns false for anything other
// than low, medium, or high.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch r := RiskLevel(strings.ToLower(strings.TrimSpace(s))); r {
	case RiskLow, RiskMedium, RiskHigh:
		return r, true
	default:
		return RiskUnknown, false
	}
}

// Status is the per-document processing status reported to persistence.
type Status string

// Document statuses.
const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Phase is a state of the batch state machine.
type Phase string

// Batch phases. Done and Failed are terminal.
const (
	PhaseStart        Phase = "start"
	PhaseAcquiring    Phase = "acquiring"
	PhaseClassifying  Phase = "classifying"
	PhaseRouting      Phase = "routing"
	PhaseProcessing   Phase = "processing"
	PhaseSynthesizing Phase = "synthesizing"
	PhaseDone         Phase = "done"
	PhaseFailed       Phase = "failed"
)

// Page is one rasterized page image.
type Page struct {
	Number int    `json:"number"`
	Image  []byte `json:"-"`
}

// PagesProvider lazily produces a document's ordered page images.
// It wraps the download and rasterization steps.
type PagesProvider func(ctx context.Context) ([]Page, error)

// Document is one uploaded file submitted as part of a batch.
type Document struct {
	ID       uuid.UUID
	Filename string
	Pages    PagesProvider
}

// Ref returns the serializable identity of d.
func (d Document) Ref() DocumentRef {
	return DocumentRef{ID: d.ID, Filename: d.Filename}
}

// DocumentRef identifies a document inside checkpointed run state.
type DocumentRef struct {
	ID       uuid.UUID `json:"id"`
	Filename string    `json:"filename"`
}

// Classification is the Category Resolver's verdict for one document.
type Classification struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	Rationale  string   `json:"rationale,omitempty"`
}

// ResultRecord is the normalized output of processing one document.
// Costs are always present and never negative.
type ResultRecord struct {
	DocumentID    uuid.UUID      `json:"document_id"`
	Filename      string         `json:"filename"`
	Category      Category       `json:"category"`
	Confidence    float64        `json:"confidence"`
	Summary       string         `json:"summary"`
	Findings      []string       `json:"findings"`
	RecurringCost float64        `json:"recurring_cost"`
	OneTimeCost   float64        `json:"one_time_cost"`
	Details       map[string]any `json:"details,omitempty"`
	Skipped       bool           `json:"skipped,omitempty"`
	Error         string         `json:"error,omitempty"`
	CompletedAt   time.Time      `json:"completed_at"`
}

// Errored reports whether the record is a degraded placeholder.
func (r ResultRecord) Errored() bool {
	return r.Error != ""
}

// Status returns the document status implied by the record.
func (r ResultRecord) Status() Status {
	if r.Errored() {
		return StatusFailed
	}
	return StatusCompleted
}

// CategoryRollup summarizes the records of one category in a batch.
type CategoryRollup struct {
	Count   int    `json:"count"`
	Summary string `json:"summary"`
}

// BatchSummary is the synthesized report for an entire batch.
type BatchSummary struct {
	BatchID         uuid.UUID                   `json:"batch_id"`
	Summary         string                      `json:"summary"`
	RecurringCost   float64                     `json:"recurring_cost"`
	OneTimeCost     float64                     `json:"one_time_cost"`
	RiskLevel       RiskLevel                   `json:"risk_level"`
	KeyFindings     []string                    `json:"key_findings"`
	Recommendations []string                    `json:"recommendations"`
	Categories      map[Category]CategoryRollup `json:"categories"`
	Errored         []uuid.UUID                 `json:"errored"`
	DocumentCount   int                         `json:"document_count"`
	Degraded        bool                        `json:"degraded"`
	CompletedAt     time.Time                   `json:"completed_at"`
}

// Synthesis is the holistic assessment returned by the synthesis capability.
// Costs are not taken from it; they are summed from the records.
type Synthesis struct {
	Summary           string              `json:"summary"`
	RiskLevel         string              `json:"risk_level"`
	KeyFindings       []string            `json:"key_findings"`
	Recommendations   []string            `json:"recommendations"`
	CategorySummaries map[Category]string `json:"category_summaries"`
}
