package leaderboard

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Leaderboard"

// Export writes entries to a single-sheet XLSX workbook with a Rank, Name,
// Total header row.
func Export(entries []Entry) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &[]any{"Rank", "Name", "Total"}); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &[]any{e.Rank, e.Name, e.TotalPerformance}); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	return f.WriteToBuffer()
}

// FileName is the download name for p's export.
func FileName(p Params) string {
	return fmt.Sprintf("leaderboard-%s-%s-%s.xlsx", p.Kind, p.Metric, p.Period)
}
