package domain

import (
	"sync"
	"time"
)

// CostModel estimates the monetary cost of one run from its wall time.
type CostModel struct {
	BaseFee   float64
	PerSecond float64
}

func DefaultCostModel() CostModel {
	return CostModel{BaseFee: 0.0008, PerSecond: 0.00012}
}

func (m CostModel) Estimate(elapsed time.Duration) float64 {
	return m.BaseFee + m.PerSecond*elapsed.Seconds()
}

// RunMetrics aggregates outcomes across documents. Safe for concurrent use.
type RunMetrics struct {
	mu sync.Mutex

	DocumentsProcessed int              `json:"documents_processed"`
	SuccessfulUploads  int              `json:"successful_uploads"`
	RecordsWritten     int              `json:"records_written"`
	Rejected           int              `json:"rejected"`
	Failed             int              `json:"failed"`
	ProcessingTimes    []float64        `json:"processing_times_seconds"`
	TotalCost          float64          `json:"total_cost"`
	CategoryCounts     map[Category]int `json:"category_counts"`
}

func NewRunMetrics() *RunMetrics {
	return &RunMetrics{CategoryCounts: make(map[Category]int)}
}

func (m *RunMetrics) Add(o Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DocumentsProcessed++
	m.ProcessingTimes = append(m.ProcessingTimes, o.Duration.Seconds())
	m.TotalCost += o.Cost
	if o.Category != "" {
		m.CategoryCounts[o.Category]++
	}
	if o.StoragePath != "" {
		m.SuccessfulUploads++
	}
	if o.Persisted != nil {
		m.RecordsWritten += len(o.Persisted.IDs())
	}
	switch o.State {
	case StateRejected:
		m.Rejected++
	case StateFailed:
		m.Failed++
	}
}

// Merge folds another aggregate into m.
func (m *RunMetrics) Merge(other *RunMetrics) {
	snap := other.Snapshot()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.DocumentsProcessed += snap.DocumentsProcessed
	m.SuccessfulUploads += snap.SuccessfulUploads
	m.RecordsWritten += snap.RecordsWritten
	m.Rejected += snap.Rejected
	m.Failed += snap.Failed
	m.ProcessingTimes = append(m.ProcessingTimes, snap.ProcessingTimes...)
	m.TotalCost += snap.TotalCost
	for c, n := range snap.CategoryCounts {
		m.CategoryCounts[c] += n
	}
}

// Snapshot returns a copy that is safe to read without the lock.
func (m *RunMetrics) Snapshot() *RunMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := &RunMetrics{
		DocumentsProcessed: m.DocumentsProcessed,
		SuccessfulUploads:  m.SuccessfulUploads,
		RecordsWritten:     m.RecordsWritten,
		Rejected:           m.Rejected,
		Failed:             m.Failed,
		ProcessingTimes:    append([]float64(nil), m.ProcessingTimes...),
		TotalCost:          m.TotalCost,
		CategoryCounts:     make(map[Category]int, len(m.CategoryCounts)),
	}
	for c, n := range m.CategoryCounts {
		out.CategoryCounts[c] = n
	}
	return out
}

func (m *RunMetrics) AverageProcessingTime() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.ProcessingTimes) == 0 {
		return 0
	}
	var total float64
	for _, t := range m.ProcessingTimes {
		total += t
	}
	return total / float64(len(m.ProcessingTimes))
}

type BatchResult struct {
	Outcomes []Outcome   `json:"outcomes"`
	Metrics  *RunMetrics `json:"metrics"`
}
