package workflow_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JaimeStill/appart/internal/workflow"
)

func TestRoute(t *testing.T) {
	tests := []struct {
		name    string
		present []workflow.Category
		want    workflow.Stage
	}{
		{
			name:    "diagnostic outranks charges",
			present: []workflow.Category{workflow.CategoryDiagnostic, workflow.CategoryChargesStatement},
			want:    workflow.StageFor(workflow.CategoryDiagnostic),
		},
		{
			name:    "order of input ignored",
			present: []workflow.Category{workflow.CategoryChargesStatement, workflow.CategoryDiagnostic},
			want:    workflow.StageFor(workflow.CategoryDiagnostic),
		},
		{
			name: "meeting minutes outrank everything",
			present: []workflow.Category{
				workflow.CategoryTaxNotice,
				workflow.CategoryChargesStatement,
				workflow.CategoryMeetingMinutes,
				workflow.CategoryDiagnostic,
			},
			want: workflow.StageFor(workflow.CategoryMeetingMinutes),
		},
		{
			name:    "duplicates tolerated",
			present: []workflow.Category{workflow.CategoryTaxNotice, workflow.CategoryTaxNotice},
			want:    workflow.StageFor(workflow.CategoryTaxNotice),
		},
		{
			name:    "only unclassified",
			present: []workflow.Category{workflow.CategoryUnclassified},
			want:    workflow.StageSynthesize,
		},
		{
			name:    "nothing present",
			present: nil,
			want:    workflow.StageSynthesize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := workflow.Route(tt.present); got != tt.want {
				t.Errorf("Route = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPlan(t *testing.T) {
	present := []workflow.Category{
		workflow.CategoryChargesStatement,
		workflow.CategoryUnclassified,
		workflow.CategoryDiagnostic,
	}

	t.Run("priority runs one stage", func(t *testing.T) {
		got := workflow.Plan(present, workflow.RoutingPriority)
		want := []workflow.Stage{workflow.StageFor(workflow.CategoryDiagnostic)}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("plan mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("all runs every present stage in priority order", func(t *testing.T) {
		got := workflow.Plan(present, workflow.RoutingAll)
		want := []workflow.Stage{
			workflow.StageFor(workflow.CategoryDiagnostic),
			workflow.StageFor(workflow.CategoryChargesStatement),
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("plan mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("nothing recognized", func(t *testing.T) {
		if got := workflow.Plan([]workflow.Category{workflow.CategoryUnclassified}, workflow.RoutingAll); len(got) != 0 {
			t.Errorf("plan = %v, want empty", got)
		}
		if got := workflow.Plan(nil, workflow.RoutingPriority); len(got) != 0 {
			t.Errorf("plan = %v, want empty", got)
		}
	})
}

func TestParseRouting(t *testing.T) {
	tests := []struct {
		in      string
		want    workflow.Routing
		wantErr bool
	}{
		{"", workflow.RoutingPriority, false},
		{"priority", workflow.RoutingPriority, false},
		{"all", workflow.RoutingAll, false},
		{"some", "", true},
	}

	for _, tt := range tests {
		got, err := workflow.ParseRouting(tt.in)
		if tt.wantErr {
			if !errors.Is(err, workflow.ErrInvalidConfig) {
				t.Errorf("ParseRouting(%q) err = %v, want ErrInvalidConfig", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseRouting(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want workflow.Category
		ok   bool
	}{
		{"meeting_minutes", workflow.CategoryMeetingMinutes, true},
		{"  Tax-Notice ", workflow.CategoryTaxNotice, true},
		{"charges statement", workflow.CategoryChargesStatement, true},
		{"pv_ag", workflow.CategoryMeetingMinutes, true},
		{"taxe_fonciere", workflow.CategoryTaxNotice, true},
		{"DIAGS", workflow.CategoryDiagnostic, true},
		{"charges", workflow.CategoryChargesStatement, true},
		{"other", workflow.CategoryUnclassified, false},
		{"unclassified", workflow.CategoryUnclassified, false},
		{"lease", workflow.Category("lease"), false},
	}

	for _, tt := range tests {
		got, ok := workflow.ParseCategory(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseCategory(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseRiskLevel(t *testing.T) {
	tests := []struct {
		in   string
		want workflow.RiskLevel
		ok   bool
	}{
		{"low", workflow.RiskLow, true},
		{" HIGH ", workflow.RiskHigh, true},
		{"Medium", workflow.RiskMedium, true},
		{"", workflow.RiskUnknown, false},
		{"severe", workflow.RiskUnknown, false},
	}

	for _, tt := range tests {
		got, ok := workflow.ParseRiskLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseRiskLevel(%q) = %q, %v", tt.in, got, ok)
		}
	}
}

func TestStageCategory(t *testing.T) {
	for _, c := range workflow.Categories() {
		if got := workflow.StageFor(c).Category(); got != c {
			t.Errorf("StageFor(%q).Category() = %q", c, got)
		}
	}
	if got := workflow.StageSynthesize.Category(); got != "" {
		t.Errorf("synthesize category = %q, want empty", got)
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{workflow.ErrEmptyBatch, 400},
		{workflow.ErrInvalidDocument, 400},
		{workflow.ErrUnknownDocument, 400},
		{workflow.ErrRunFailed, 422},
		{errors.New("boom"), 500},
	}

	for _, tt := range tests {
		if got := workflow.MapHTTPStatus(tt.err); got != tt.want {
			t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
