package workflow_test

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/JaimeStill/appart/internal/workflow"
)

var batchID = uuid.MustParse("3f2b1c44-7a10-4e0a-9a55-2d8f5a1f0c01")

func record(label string, c workflow.Category, recurring, oneTime float64, errMsg string) workflow.ResultRecord {
	return workflow.ResultRecord{
		DocumentID:    uuid.NewSHA1(uuid.NameSpaceOID, []byte(label)),
		Filename:      label + ".pdf",
		Category:      c,
		Summary:       label,
		Findings:      []string{},
		RecurringCost: recurring,
		OneTimeCost:   oneTime,
		Error:         errMsg,
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func sampleRecords() []workflow.ResultRecord {
	return []workflow.ResultRecord{
		record("ag-2024", workflow.CategoryMeetingMinutes, 1800.10, 12000, ""),
		record("ag-2025", workflow.CategoryMeetingMinutes, 0, 350.35, ""),
		record("dpe", workflow.CategoryDiagnostic, 940.7, 6000.2, ""),
		record("tax", workflow.CategoryTaxNotice, 500, 0, ""),
		record("charges", workflow.CategoryChargesStatement, 200, 900, "extraction failed"),
		record("flyer", workflow.CategoryUnclassified, 0, 0, "document could not be classified"),
	}
}

func TestSynthesizeAggregates(t *testing.T) {
	sum := newFakeSummarizer()
	s := workflow.NewSynthesizer(sum, fastExecutor(), discardLogger())

	records := sampleRecords()
	got := s.Synthesize(context.Background(), batchID, records)

	if got.Degraded {
		t.Fatal("summary should not be degraded")
	}
	if got.RiskLevel != workflow.RiskMedium {
		t.Errorf("risk = %q, want medium", got.RiskLevel)
	}
	if !approx(got.RecurringCost, 1800.10+940.7+500) {
		t.Errorf("recurring = %v", got.RecurringCost)
	}
	if !approx(got.OneTimeCost, 12000+350.35+6000.2) {
		t.Errorf("one-time = %v", got.OneTimeCost)
	}
	if got.DocumentCount != len(records) {
		t.Errorf("document count = %d", got.DocumentCount)
	}

	wantErrored := []uuid.UUID{records[4].DocumentID, records[5].DocumentID}
	if diff := cmp.Diff(wantErrored, got.Errored); diff != "" {
		t.Errorf("errored mismatch (-want +got):\n%s", diff)
	}

	minutes := got.Categories[workflow.CategoryMeetingMinutes]
	if minutes.Count != 2 || minutes.Summary != "Two assemblies reviewed." {
		t.Errorf("meeting minutes rollup = %+v", minutes)
	}
	if got.Categories[workflow.CategoryUnclassified].Count != 1 {
		t.Errorf("unclassified rollup = %+v", got.Categories[workflow.CategoryUnclassified])
	}

	if sum.Calls() != 1 || len(sum.Records()) != len(records) {
		t.Errorf("summarizer calls = %d with %d records", sum.Calls(), len(sum.Records()))
	}
}

func TestSynthesizeOrderIndependent(t *testing.T) {
	s := workflow.NewSynthesizer(newFakeSummarizer(), fastExecutor(), discardLogger())
	records := sampleRecords()
	base := s.Synthesize(context.Background(), batchID, records)

	rng := rand.New(rand.NewPCG(1, 2))
	for range 20 {
		shuffled := slices.Clone(records)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		got := s.Synthesize(context.Background(), batchID, shuffled)
		if got.RecurringCost != base.RecurringCost || got.OneTimeCost != base.OneTimeCost {
			t.Fatalf("costs %v/%v differ from %v/%v",
				got.RecurringCost, got.OneTimeCost, base.RecurringCost, base.OneTimeCost)
		}
		if diff := cmp.Diff(base.Categories, got.Categories); diff != "" {
			t.Fatalf("rollups differ (-base +got):\n%s", diff)
		}
	}
}

func TestSynthesizeDegrades(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		risk      string
		summary   string
		wantCalls int
	}{
		{"capability error", errors.New("timeout"), "low", "x", 3},
		{"invalid risk level", nil, "catastrophic", "x", 1},
		{"empty summary", nil, "high", "  ", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum := newFakeSummarizer()
			sum.err = tt.err
			sum.result.RiskLevel = tt.risk
			sum.result.Summary = tt.summary

			s := workflow.NewSynthesizer(sum, fastExecutor(), discardLogger())
			got := s.Synthesize(context.Background(), batchID, sampleRecords())

			if !got.Degraded {
				t.Fatal("expected degraded summary")
			}
			if got.RiskLevel != workflow.RiskUnknown {
				t.Errorf("risk = %q, want unknown", got.RiskLevel)
			}
			if got.RecurringCost != 0 || got.OneTimeCost != 0 {
				t.Errorf("costs = %v/%v, want zero", got.RecurringCost, got.OneTimeCost)
			}
			if diff := cmp.Diff([]string{workflow.DegradedFinding}, got.KeyFindings); diff != "" {
				t.Errorf("findings mismatch (-want +got):\n%s", diff)
			}
			if got.Categories[workflow.CategoryMeetingMinutes].Count != 2 {
				t.Errorf("rollup counts should survive degradation: %+v", got.Categories)
			}
			if sum.Calls() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", sum.Calls(), tt.wantCalls)
			}
		})
	}
}

func TestSynthesizeEmptyRecords(t *testing.T) {
	s := workflow.NewSynthesizer(newFakeSummarizer(), fastExecutor(), discardLogger())
	got := s.Synthesize(context.Background(), batchID, nil)

	if got.RecurringCost != 0 || got.OneTimeCost != 0 {
		t.Errorf("costs = %v/%v, want zero", got.RecurringCost, got.OneTimeCost)
	}
	if len(got.Errored) != 0 || got.Errored == nil {
		t.Errorf("errored = %v, want empty", got.Errored)
	}
	if got.RiskLevel == "" {
		t.Error("risk level must always be set")
	}
}
