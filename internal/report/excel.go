package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/spigell/resume-matcher/internal/matching"
)

const (
	summarySheet  = "Summary"
	rankedSheet   = "Ranked Candidates"
	selectedSheet = "Selected"
)

// now is swapped in tests.
var now = time.Now

// WriteXLSX saves a workbook with a summary, every result and the selection.
func WriteXLSX(outputPath string, r *matching.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if !strings.HasSuffix(strings.ToLower(outputPath), ".xlsx") {
		outputPath += ".xlsx"
	}
	outputPath = filepath.Clean(outputPath)

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(rankedSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(selectedSheet); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return err
	}

	if err := writeSummary(f, r, headerStyle); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	header, rows := Table(r)
	if err := writeTable(f, rankedSheet, header, rows, headerStyle); err != nil {
		return fmt.Errorf("failed to create ranked candidates sheet: %w", err)
	}

	selected := *r
	selected.All = r.Selected
	_, selectedRows := Table(&selected)
	if err := writeTable(f, selectedSheet, header, selectedRows, headerStyle); err != nil {
		return fmt.Errorf("failed to create selected sheet: %w", err)
	}

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, r *matching.Report, headerStyle int) error {
	if err := f.SetColWidth(summarySheet, "A", "A", 28); err != nil {
		return err
	}
	if err := f.SetColWidth(summarySheet, "B", "B", 60); err != nil {
		return err
	}

	completed := r.Progress.Completed - r.Progress.Failed
	entries := [][2]any{
		{"Matching Report", ""},
		{"Job Description:", r.Requirement.Name},
		{"Run ID:", r.RunID},
		{"Generated:", now().Format("2006-01-02 15:04:05")},
		{"Ranked By:", string(r.RankBy)},
		{"Required Skills:", r.Requirement.Skills.String()},
		{"Candidates:", r.Progress.Total},
		{"Scored:", completed},
		{"Failed:", r.Progress.Failed},
		{"Selected:", len(r.Selected)},
	}

	for i, entry := range entries {
		row := i + 1
		if err := f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), entry[0]); err != nil {
			return err
		}
		if err := f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), entry[1]); err != nil {
			return err
		}
	}

	if err := f.MergeCell(summarySheet, "A1", "B1"); err != nil {
		return err
	}
	return f.SetCellStyle(summarySheet, "A1", "B1", headerStyle)
}

func writeTable(f *excelize.File, sheet string, header []string, rows [][]string, headerStyle int) error {
	for col, title := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return err
		}
	}

	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
