package xlsx

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/estate-intake/internal/core/domain"
)

const (
	defaultSheet = "Sheet1"
	maxColWidth  = 60.0
	// Excel limits sheet names to 31 characters.
	maxSheetName = 31
)

type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Render(sheets []domain.Sheet) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if len(sheets) == 0 {
		sheets = []domain.Sheet{{Name: "empty"}}
	}

	for i, sheet := range sheets {
		name := sheetName(sheet.Name)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return nil, fmt.Errorf("rename sheet %s: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
		if err := writeSheet(f, name, sheet); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, name string, sheet domain.Sheet) error {
	header := make([]any, len(sheet.Columns))
	widths := make([]float64, len(sheet.Columns))
	for i, col := range sheet.Columns {
		header[i] = col
		widths[i] = float64(len(col)) + 2
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", name, err)
	}

	for r, row := range sheet.Rows {
		values := make([]any, len(row))
		for i, v := range row {
			values[i] = v
			if i < len(widths) && float64(len(v))+2 > widths[i] {
				widths[i] = float64(len(v)) + 2
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(name, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", name, r+1, err)
		}
	}

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(name, col, col, min(w, maxColWidth))
	}
	if len(sheet.Columns) > 0 {
		_ = f.SetPanes(name, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}
	return nil
}

func sheetName(name string) string {
	if name == "" {
		name = "sheet"
	}
	runes := []rune(name)
	if len(runes) > maxSheetName {
		runes = runes[:maxSheetName]
	}
	return string(runes)
}
