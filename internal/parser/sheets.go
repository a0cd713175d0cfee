package parser

import (
	"fmt"

	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

// extractXLSX emits one table chunk per non-empty sheet.
func extractXLSX(filePath string) (extraction, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return extraction{}, err
	}

	var ex extraction
	for sheetNum, sheet := range f.Sheets {
		var grid [][]string
		for _, row := range sheet.Rows {
			var cells []string
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			if len(cells) > 0 {
				grid = append(grid, cells)
			}
		}
		if len(grid) > 0 {
			ex.tables = append(ex.tables, tableRef{
				Rows:    grid,
				Caption: fmt.Sprintf("Table %d in sheet %s", sheetNum+1, sheet.Name),
				Index:   sheetNum,
			})
		}
	}
	return ex, nil
}

// extractODS emits one table chunk per non-empty sheet.
func extractODS(filePath string) (extraction, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return extraction{}, err
	}
	defer f.Close()

	var ex extraction
	for sheetNum, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		var grid [][]string
		for _, row := range rows {
			if len(row) > 0 {
				grid = append(grid, row)
			}
		}
		if len(grid) > 0 {
			ex.tables = append(ex.tables, tableRef{
				Rows:    grid,
				Caption: fmt.Sprintf("Table %d in sheet %s", sheetNum+1, sheetName),
				Index:   sheetNum,
			})
		}
	}
	return ex, nil
}
