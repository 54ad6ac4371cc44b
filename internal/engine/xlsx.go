package engine

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"asaankisaan/internal/models"
)

// ParseXLSX reads the first sheet of a workbook laid out like the CSV
// dataset. Row 1 is the header. Unlike Parse it fails when the workbook
// itself cannot be read.
func ParseXLSX(raw []byte) (models.ParseReport, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return models.ParseReport{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return models.ParseReport{}, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	var report models.ParseReport
	for i, row := range rows {
		if i == 0 || blankRow(row) {
			continue
		}
		report.TotalRows++
		rec, err := parseFields(row)
		if err != nil {
			report.Skipped = append(report.Skipped, models.SkippedRow{Line: i + 1, Reason: err.Error()})
			continue
		}
		report.Records = append(report.Records, rec)
	}
	return report, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
