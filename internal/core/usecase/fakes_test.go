package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/kirillkom/estate-intake/internal/core/domain"
)

type extractorFake struct {
	text string
}

func (f *extractorFake) Extract(context.Context, []byte, string) string { return f.text }

// oracleFake answers classification prompts with classifyAnswer and
// extraction prompts with extractAnswer.
type oracleFake struct {
	mu             sync.Mutex
	classifyAnswer string
	extractAnswer  string
	classifyErr    error
	extractErr     error
	chunked        bool
	prompts        []string
}

func (f *oracleFake) Invoke(_ context.Context, prompt string) (domain.OracleResponse, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	answer, err := f.extractAnswer, f.extractErr
	if strings.HasPrefix(prompt, "You are a document classifier") {
		answer, err = f.classifyAnswer, f.classifyErr
	}
	if err != nil {
		return domain.OracleResponse{}, err
	}
	if f.chunked {
		mid := len(answer) / 2
		return domain.ChunkedResponse([]string{answer[:mid], answer[mid:]}), nil
	}
	return domain.SingleResponse(answer), nil
}

func (f *oracleFake) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type storageFake struct {
	mu    sync.Mutex
	saved map[string]string
	order []string
	err   error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saved == nil {
		f.saved = map[string]string{}
	}
	f.saved[key] = string(raw)
	f.order = append(f.order, key)
	return "mem://bucket/" + key, nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.saved[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewBufferString(raw)), nil
}

func (f *storageFake) Locate(key string) (string, error) {
	if key == "" {
		return "", errors.New("empty key")
	}
	return "mem://bucket/" + key, nil
}

type putCall struct {
	table domain.Table
	row   domain.Row
}

type tableStoreFake struct {
	mu      sync.Mutex
	puts    []putCall
	failFor map[domain.Table]error
	rows    map[domain.Table][]domain.Row
	descErr map[domain.Table]error
	listErr error
	limit   int
}

func (f *tableStoreFake) Put(_ context.Context, table domain.Table, row domain.Row) error {
	if err := f.failFor[table]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, putCall{table: table, row: row})
	return nil
}

func (f *tableStoreFake) Describe(_ context.Context, table domain.Table) (domain.TableStatus, error) {
	if err := f.descErr[table]; err != nil {
		return domain.TableStatus{}, err
	}
	return domain.TableStatus{Name: "intake_" + string(table), ItemCount: int64(len(f.rows[table]))}, nil
}

func (f *tableStoreFake) ListRecent(_ context.Context, table domain.Table, limit int) ([]domain.Row, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.limit = limit
	return f.rows[table], nil
}

func (f *tableStoreFake) putsFor(table domain.Table) []domain.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Row
	for _, p := range f.puts {
		if p.table == table {
			out = append(out, p.row)
		}
	}
	return out
}

type idsFake struct {
	mu      sync.Mutex
	strings int
	numbers int64
}

func (f *idsFake) NewString() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.strings++
	return "id-" + string(rune('a'+f.strings-1))
}

func (f *idsFake) NewNumber() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.numbers++
	return 100000 + f.numbers
}

type syncFake struct {
	mu     sync.Mutex
	events []domain.LandedEvent
	err    error
}

func (f *syncFake) NotifyDocumentLanded(_ context.Context, event domain.LandedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

type categoryObserverFake struct {
	categories []domain.Category
}

func (f *categoryObserverFake) ObserveCategory(category domain.Category, _ domain.Strictness) {
	f.categories = append(f.categories, category)
}

type outcomeObserverFake struct {
	mu     sync.Mutex
	states []domain.State
}

func (f *outcomeObserverFake) ObserveOutcome(o domain.Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, o.State)
}

type chunkerFake struct {
	chunks []string
}

func (f *chunkerFake) Split(string) []string { return f.chunks }

type embedderFake struct {
	vectors [][]float32
	query   string
	err     error
}

func (f *embedderFake) Embed(context.Context, []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors, nil
}

func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.query = text
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

type vectorFake struct {
	indexed  domain.LandedEvent
	chunks   []string
	results  []domain.RetrievedChunk
	limit    int
	indexErr error
	err      error
}

func (f *vectorFake) IndexChunks(_ context.Context, event domain.LandedEvent, chunks []string, _ [][]float32) error {
	if f.indexErr != nil {
		return f.indexErr
	}
	f.indexed = event
	f.chunks = chunks
	return nil
}

func (f *vectorFake) Search(_ context.Context, _ []float32, limit int, _ domain.SearchFilter) ([]domain.RetrievedChunk, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type generatorFake struct {
	chunks []domain.RetrievedChunk
	err    error
}

func (f *generatorFake) GenerateAnswer(_ context.Context, _ string, chunks []domain.RetrievedChunk) (string, error) {
	f.chunks = chunks
	if f.err != nil {
		return "", f.err
	}
	return "answer", nil
}
