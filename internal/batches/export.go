package batches

import (
	"fmt"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/JaimeStill/appart/internal/workflow"
)

const (
	summarySheet   = "Summary"
	documentsSheet = "Documents"
)

var documentHeaders = []string{
	"Filename",
	"Category",
	"Confidence",
	"Recurring Cost",
	"One-Time Cost",
	"Summary",
	"Findings",
	"Skipped",
	"Error",
}

// Report renders a batch summary and its result records as an XLSX
// workbook. A nil summary produces a Summary sheet with the label only.
func Report(label string, summary *workflow.BatchSummary, records []workflow.ResultRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(documentsSheet); err != nil {
		return nil, err
	}

	if err := writeSummary(f, label, summary); err != nil {
		return nil, fmt.Errorf("write summary sheet: %w", err)
	}
	if err := writeDocuments(f, records); err != nil {
		return nil, fmt.Errorf("write documents sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, label string, s *workflow.BatchSummary) error {
	rows := [][]any{{"Batch", label}}

	if s != nil {
		rows = append(rows,
			[]any{"Risk Level", string(s.RiskLevel)},
			[]any{"Recurring Cost", s.RecurringCost},
			[]any{"One-Time Cost", s.OneTimeCost},
			[]any{"Documents", s.DocumentCount},
			[]any{"Errored", len(s.Errored)},
			[]any{"Degraded", s.Degraded},
			[]any{"Summary", s.Summary},
			[]any{"Key Findings", strings.Join(s.KeyFindings, "\n")},
			[]any{"Recommendations", strings.Join(s.Recommendations, "\n")},
		)

		categories := make([]workflow.Category, 0, len(s.Categories))
		for c := range s.Categories {
			categories = append(categories, c)
		}
		slices.Sort(categories)

		for _, c := range categories {
			rollup := s.Categories[c]
			rows = append(rows, []any{string(c), fmt.Sprintf("%d: %s", rollup.Count, rollup.Summary)})
		}
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}

	_ = f.SetColWidth(summarySheet, "A", "A", 20)
	_ = f.SetColWidth(summarySheet, "B", "B", 90)
	return nil
}

func writeDocuments(f *excelize.File, records []workflow.ResultRecord) error {
	if err := f.SetSheetRow(documentsSheet, "A1", &documentHeaders); err != nil {
		return err
	}

	for i, r := range records {
		row := []any{
			r.Filename,
			string(r.Category),
			r.Confidence,
			r.RecurringCost,
			r.OneTimeCost,
			r.Summary,
			strings.Join(r.Findings, "\n"),
			r.Skipped,
			r.Error,
		}

		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(documentsSheet, cell, &row); err != nil {
			return err
		}
	}

	_ = f.SetColWidth(documentsSheet, "A", "A", 28)
	_ = f.SetColWidth(documentsSheet, "B", "B", 20)
	_ = f.SetColWidth(documentsSheet, "C", "E", 14)
	_ = f.SetColWidth(documentsSheet, "F", "G", 60)
	_ = f.SetColWidth(documentsSheet, "I", "I", 40)
	return nil
}
