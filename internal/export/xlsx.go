package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Results"

// WriteXLSX writes t to a single-sheet workbook at path.
func WriteXLSX(path string, t *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return err
	}
	activeIndex, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(activeIndex)

	for i, h := range t.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}
	for r, row := range t.Rows {
		for i, col := range t.Columns {
			cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
			_ = f.SetCellValue(sheetName, cell, row.Values[col])
		}
	}

	for i, col := range t.Columns {
		name, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheetName, name, name, columnWidth(col))
	}
	if len(t.Columns) > 0 {
		_ = f.SetPanes(sheetName, &excelize.Panes{
			Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
		})
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("xlsx mkdir: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func columnWidth(col string) float64 {
	switch col {
	case "filename":
		return 32
	case "doc_type", "status":
		return 20
	case "confidence":
		return 12
	case "processed_at":
		return 20
	case "data_items":
		return 60
	default:
		return 24
	}
}
