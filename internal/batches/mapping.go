package batches

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/JaimeStill/appart/internal/workflow"
	"github.com/JaimeStill/appart/pkg/query"
	"github.com/JaimeStill/appart/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "batches", "b").
	Project("id", "ID").
	Project("label", "Label").
	Project("status", "Status").
	Project("summary", "Summary").
	Project("failure_reason", "FailureReason").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt").
	Project("completed_at", "CompletedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for batch queries.
type Filters struct {
	Status *string `json:"status,omitempty"`
	Label  *string `json:"label,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereContains("Label", f.Label)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if l := values.Get("label"); l != "" {
		f.Label = &l
	}

	return f
}

func scanBatch(s repository.Scanner) (Batch, error) {
	var (
		b       Batch
		summary []byte
	)

	err := s.Scan(
		&b.ID,
		&b.Label,
		&b.Status,
		&summary,
		&b.FailureReason,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.CompletedAt,
	)
	if err != nil {
		return b, err
	}

	if len(summary) > 0 {
		var bs workflow.BatchSummary
		if err := json.Unmarshal(summary, &bs); err != nil {
			return b, fmt.Errorf("decode batch summary: %w", err)
		}
		b.Summary = &bs
	}

	return b, nil
}
