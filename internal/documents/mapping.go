package documents

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/JaimeStill/appart/internal/workflow"
	"github.com/JaimeStill/appart/pkg/query"
	"github.com/JaimeStill/appart/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "documents", "d").
	Project("id", "ID").
	Project("batch_id", "BatchID").
	Project("filename", "Filename").
	Project("content_type", "ContentType").
	Project("size_bytes", "SizeBytes").
	Project("page_count", "PageCount").
	Project("storage_key", "StorageKey").
	Project("status", "Status").
	Project("category", "Category").
	Project("confidence", "Confidence").
	Project("error", "Error").
	Project("uploaded_at", "UploadedAt").
	Project("updated_at", "UpdatedAt").
	Join("public", "document_results", "r", "LEFT JOIN", "d.id = r.document_id").
	Project("summary", "Summary").
	Project("recurring_cost", "RecurringCost").
	Project("one_time_cost", "OneTimeCost")

var defaultSort = query.SortField{
	Field:      "UploadedAt",
	Descending: true,
}

var batchSort = query.SortField{Field: "Filename"}

var resultProjection = query.
	NewProjectionMap("public", "document_results", "r").
	Project("document_id", "DocumentID").
	Project("category", "Category").
	Project("confidence", "Confidence").
	Project("summary", "Summary").
	Project("findings", "Findings").
	Project("recurring_cost", "RecurringCost").
	Project("one_time_cost", "OneTimeCost").
	Project("details", "Details").
	Project("skipped", "Skipped").
	Project("error", "Error").
	Project("completed_at", "CompletedAt").
	Join("public", "documents", "d", "JOIN", "d.id = r.document_id").
	Project("batch_id", "BatchID").
	Project("filename", "Filename")

// Filters contains optional filtering criteria for document queries.
// Nil fields are ignored. Status, BatchID, Category, and ContentType use
// exact matching. Filename uses case-insensitive contains matching.
type Filters struct {
	Status      *string    `json:"status,omitempty"`
	Filename    *string    `json:"filename,omitempty"`
	BatchID     *uuid.UUID `json:"batch_id,omitempty"`
	Category    *string    `json:"category,omitempty"`
	ContentType *string    `json:"content_type,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereContains("Filename", f.Filename).
		WhereEquals("BatchID", f.BatchID).
		WhereEquals("Category", f.Category).
		WhereEquals("ContentType", f.ContentType)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if fn := values.Get("filename"); fn != "" {
		f.Filename = &fn
	}

	if bid := values.Get("batch_id"); bid != "" {
		if id, err := uuid.Parse(bid); err == nil {
			f.BatchID = &id
		}
	}

	if c := values.Get("category"); c != "" {
		f.Category = &c
	}

	if ct := values.Get("content_type"); ct != "" {
		f.ContentType = &ct
	}

	return f
}

func scanDocument(s repository.Scanner) (Document, error) {
	var d Document
	err := s.Scan(
		&d.ID,
		&d.BatchID,
		&d.Filename,
		&d.ContentType,
		&d.SizeBytes,
		&d.PageCount,
		&d.StorageKey,
		&d.Status,
		&d.Category,
		&d.Confidence,
		&d.Error,
		&d.UploadedAt,
		&d.UpdatedAt,
		&d.Summary,
		&d.RecurringCost,
		&d.OneTimeCost,
	)
	return d, err
}

func scanResult(s repository.Scanner) (Result, error) {
	var (
		r        Result
		category string
		errMsg   *string
		findings []byte
		details  []byte
	)

	err := s.Scan(
		&r.DocumentID,
		&category,
		&r.Confidence,
		&r.Summary,
		&findings,
		&r.RecurringCost,
		&r.OneTimeCost,
		&details,
		&r.Skipped,
		&errMsg,
		&r.CompletedAt,
		&r.BatchID,
		&r.Filename,
	)
	if err != nil {
		return r, err
	}

	r.Category = workflow.Category(category)
	if errMsg != nil {
		r.Error = *errMsg
	}

	if err := json.Unmarshal(findings, &r.Findings); err != nil {
		return r, fmt.Errorf("decode findings: %w", err)
	}

	if len(details) > 0 {
		if err := json.Unmarshal(details, &r.Details); err != nil {
			return r, fmt.Errorf("decode details: %w", err)
		}
	}

	return r, nil
}
