package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/estate-intake/internal/core/domain"
	"github.com/kirillkom/estate-intake/internal/core/ports"
)

type ExportUseCase struct {
	store    ports.TableStore
	renderer ports.WorkbookRenderer
}

func NewExportUseCase(store ports.TableStore, renderer ports.WorkbookRenderer) *ExportUseCase {
	return &ExportUseCase{store: store, renderer: renderer}
}

// ExportWorkbook renders the most recent rows of every table, one sheet per
// table with columns in storage order.
func (uc *ExportUseCase) ExportWorkbook(ctx context.Context, limit int) ([]byte, error) {
	limit, err := normalizeRecentLimit(limit)
	if err != nil {
		return nil, err
	}

	sheets := make([]domain.Sheet, 0, len(domain.Tables()))
	for _, table := range domain.Tables() {
		schema, _ := domain.SchemaFor(table)
		rows, err := uc.store.ListRecent(ctx, table, limit)
		if err != nil {
			return nil, domain.WrapError(domain.ErrPersistence, "export "+string(table), err)
		}
		sheets = append(sheets, sheetFor(schema, rows))
	}

	raw, err := uc.renderer.Render(sheets)
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}
	return raw, nil
}

func sheetFor(schema domain.TableSchema, rows []domain.Row) domain.Sheet {
	columns := schema.Columns()
	sheet := domain.Sheet{Name: string(schema.Table), Columns: columns, Rows: make([][]string, 0, len(rows))}
	for _, row := range rows {
		values := make([]string, len(columns))
		for i, col := range columns {
			values[i] = domain.Stringify(row[col])
		}
		sheet.Rows = append(sheet.Rows, values)
	}
	return sheet
}
