package reporting

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/futures-executor/pkg/types"
)

const (
	executionsSheet = "Executions"
	summarySheet    = "Summary"
)

var thinBorder = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
}

// WriteExecutionsXLSX writes the session workbook: one row per result plus a per-symbol summary
func WriteExecutionsXLSX(results []types.ExecutionResult, path string) error {
	if err := EnsureDirectoryExists(path); err != nil {
		return err
	}

	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName(fx.GetSheetName(0), executionsSheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(summarySheet); err != nil {
		return err
	}

	styles, err := createExcelStyles(fx)
	if err != nil {
		return err
	}

	if err := writeExecutionsSheet(fx, results, styles); err != nil {
		return err
	}
	if err := writeSummarySheet(fx, Summarize(results), styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	// Header style - dark slate background with white text
	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder,
	})
	if err != nil {
		return styles, err
	}

	styles.BaseStyle, err = fx.NewStyle(&excelize.Style{Border: thinBorder})
	if err != nil {
		return styles, err
	}

	styles.DecimalStyle, err = fx.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    thinBorder,
	})
	if err != nil {
		return styles, err
	}

	statusStyle := func(fill, font string) (int, error) {
		return fx.NewStyle(&excelize.Style{
			Font:      &excelize.Font{Bold: true, Color: font},
			Fill:      excelize.Fill{Type: "pattern", Color: []string{fill}, Pattern: 1},
			Alignment: &excelize.Alignment{Horizontal: "center"},
			Border:    thinBorder,
		})
	}
	if styles.SubmittedStyle, err = statusStyle("E8F5E8", "006100"); err != nil {
		return styles, err
	}
	if styles.RejectedStyle, err = statusStyle("FFF2CC", "9C5700"); err != nil {
		return styles, err
	}
	if styles.ErrorStyle, err = statusStyle("FFE6E6", "9C0006"); err != nil {
		return styles, err
	}
	if styles.ConflictStyle, err = statusStyle("EDEDED", "404040"); err != nil {
		return styles, err
	}

	styles.SummaryStyle, err = fx.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11, Color: "1F4E79"},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
		Border: thinBorder,
	})
	return styles, err
}

func statusStyleFor(status types.ExecutionStatus, styles ExcelStyles) int {
	switch status {
	case types.StatusSubmitted:
		return styles.SubmittedStyle
	case types.StatusRejected:
		return styles.RejectedStyle
	case types.StatusError:
		return styles.ErrorStyle
	default:
		return styles.ConflictStyle
	}
}

func writeHeaderRow(fx *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}

func writeExecutionsSheet(fx *excelize.File, results []types.ExecutionResult, styles ExcelStyles) error {
	sheet := executionsSheet
	widths := []float64{20, 38, 12, 8, 8, 12, 38, 10, 12, 12, 12, 36, 9, 12, 60}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := fx.SetColWidth(sheet, col, col, w); err != nil {
			return err
		}
	}

	if err := writeHeaderRow(fx, sheet, executionHeaders, styles.HeaderStyle); err != nil {
		return err
	}

	for i, r := range results {
		row := i + 2
		values := executionRow(r)
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			style := styles.BaseStyle
			switch {
			case col == 5:
				style = statusStyleFor(r.Status, styles)
			case col >= 7 && col <= 10:
				style = styles.DecimalStyle
			}

			// Numeric columns are written as numbers so they sort and sum in Excel
			var value interface{} = v
			switch col {
			case 4, 12, 13:
				value = atoiOrZero(v)
			}
			if err := fx.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
			if err := fx.SetCellStyle(sheet, cell, cell, style); err != nil {
				return err
			}
		}
	}

	if len(results) > 0 {
		lastCol, _ := excelize.ColumnNumberToName(len(executionHeaders))
		if err := fx.AutoFilter(sheet, fmt.Sprintf("A1:%s%d", lastCol, len(results)+1), []excelize.AutoFilterOptions{}); err != nil {
			return err
		}
	}
	return nil
}

func writeSummarySheet(fx *excelize.File, summary []SymbolSummary, styles ExcelStyles) error {
	sheet := summarySheet
	headers := []string{"Symbol", "Total", "Submitted", "Rejected", "Errors", "Conflicts", "With Warnings", "Submit Attempts"}
	if err := fx.SetColWidth(sheet, "A", "A", 14); err != nil {
		return err
	}
	if err := fx.SetColWidth(sheet, "B", "H", 14); err != nil {
		return err
	}
	if err := writeHeaderRow(fx, sheet, headers, styles.HeaderStyle); err != nil {
		return err
	}

	var total SymbolSummary
	total.Symbol = "TOTAL"
	row := 2
	writeRow := func(s SymbolSummary, style int) error {
		values := []interface{}{s.Symbol, s.Total(), s.Submitted, s.Rejected, s.Errors, s.Conflicts, s.Warnings, s.Attempts}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := fx.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
			if err := fx.SetCellStyle(sheet, cell, cell, style); err != nil {
				return err
			}
		}
		row++
		return nil
	}

	for _, s := range summary {
		if err := writeRow(s, styles.BaseStyle); err != nil {
			return err
		}
		total.Submitted += s.Submitted
		total.Rejected += s.Rejected
		total.Errors += s.Errors
		total.Conflicts += s.Conflicts
		total.Warnings += s.Warnings
		total.Attempts += s.Attempts
	}
	return writeRow(total, styles.SummaryStyle)
}

func atoiOrZero(s string) int {
	var n int
	_, _ = fmt.Sscanf(s, "%d", &n)
	return n
}
