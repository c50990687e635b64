package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirillkom/estate-intake/internal/core/domain"
	"github.com/kirillkom/estate-intake/internal/core/ports"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 500

	tableStatusActive = "ACTIVE"
	tableStatusError  = "ERROR"
)

type TablesUseCase struct {
	store ports.TableStore
}

func NewTablesUseCase(store ports.TableStore) *TablesUseCase {
	return &TablesUseCase{store: store}
}

// Status describes every table. A failing table is reported inline and does
// not hide the others.
func (uc *TablesUseCase) Status(ctx context.Context) []domain.TableStatus {
	out := make([]domain.TableStatus, 0, len(domain.Tables()))
	for _, table := range domain.Tables() {
		status, err := uc.store.Describe(ctx, table)
		if err != nil {
			out = append(out, domain.TableStatus{Table: table, Name: string(table), Status: tableStatusError, Error: err.Error()})
			continue
		}
		if status.Status == "" {
			status.Status = tableStatusActive
		}
		status.Table = table
		out = append(out, status)
	}
	return out
}

func (uc *TablesUseCase) Recent(ctx context.Context, table domain.Table, limit int) ([]domain.Row, error) {
	if _, ok := domain.SchemaFor(table); !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "list recent rows", fmt.Errorf("unknown table %q", table))
	}
	limit, err := normalizeRecentLimit(limit)
	if err != nil {
		return nil, err
	}
	rows, err := uc.store.ListRecent(ctx, table, limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, "list recent rows", err)
	}
	return rows, nil
}

func normalizeRecentLimit(limit int) (int, error) {
	switch {
	case limit < 0:
		return 0, domain.WrapError(domain.ErrInvalidInput, "list recent rows", errors.New("limit must be positive"))
	case limit == 0:
		return defaultRecentLimit, nil
	case limit > maxRecentLimit:
		return maxRecentLimit, nil
	default:
		return limit, nil
	}
}
