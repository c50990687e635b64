package httpadapter

import (
	"context"
	"net/http"
	"sync"

	"github.com/kirillkom/estate-intake/internal/config"
	"github.com/kirillkom/estate-intake/internal/core/domain"
)

type batchFake struct {
	mu      sync.Mutex
	uploads []domain.Upload
}

func (f *batchFake) Run(_ context.Context, uploads []domain.Upload) domain.BatchResult {
	f.mu.Lock()
	f.uploads = append(f.uploads, uploads...)
	f.mu.Unlock()

	metrics := domain.NewRunMetrics()
	outcomes := make([]domain.Outcome, 0, len(uploads))
	for _, u := range uploads {
		o := domain.Outcome{Filename: u.Filename, State: domain.StatePersisted, Category: u.CategoryHint}
		metrics.Add(o)
		outcomes = append(outcomes, o)
	}
	return domain.BatchResult{Outcomes: outcomes, Metrics: metrics}
}

type queryFake struct {
	err      error
	question string
	limit    int
	filter   domain.SearchFilter
}

func (f *queryFake) Answer(_ context.Context, question string, limit int, filter domain.SearchFilter) (*domain.Answer, error) {
	f.question, f.limit, f.filter = question, limit, filter
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Answer{
		Text:      "Cash to close is $12,400.",
		Citations: []domain.Citation{{Content: "Cash to Close $12,400", Location: "file:///s/cd.pdf#chunk=0", Score: 0.9}},
	}, nil
}

type tablesFake struct {
	err   error
	limit int
}

func (f *tablesFake) Status(context.Context) []domain.TableStatus {
	out := make([]domain.TableStatus, 0, len(domain.Tables()))
	for _, t := range domain.Tables() {
		out = append(out, domain.TableStatus{Table: t, Name: "intake_" + string(t), Status: "ACTIVE"})
	}
	return out
}

func (f *tablesFake) Recent(_ context.Context, table domain.Table, limit int) ([]domain.Row, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []domain.Row{{"settlement_id": "s-1", "property_id": "482913"}}, nil
}

type exporterFake struct {
	err error
}

func (f exporterFake) ExportWorkbook(context.Context, int) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("PK\x03\x04"), nil
}

type resyncFake struct {
	err error
	key string
}

func (f *resyncFake) Resync(_ context.Context, key, category, filename string) (domain.LandedEvent, error) {
	f.key = key
	if f.err != nil {
		return domain.LandedEvent{}, f.err
	}
	return domain.LandedEvent{StorageKey: key, Category: domain.CategorySettlement, Filename: filename}, nil
}

type routerFixture struct {
	batch  *batchFake
	query  *queryFake
	tables *tablesFake
	resync *resyncFake
}

func newTestHandler(cfg config.Config) http.Handler {
	handler, _ := newRouterFixture(cfg)
	return handler
}

func newRouterFixture(cfg config.Config) (http.Handler, *routerFixture) {
	fx := &routerFixture{
		batch:  &batchFake{},
		query:  &queryFake{},
		tables: &tablesFake{},
		resync: &resyncFake{},
	}
	handler := NewRouter(cfg, Deps{
		Batch:    fx.batch,
		Query:    fx.query,
		Tables:   fx.tables,
		Exporter: exporterFake{},
		Resync:   fx.resync,
	}).Handler()
	return handler, fx
}
