package domain

import "time"

type State string

const (
	StateReceived      State = "received"
	StateTextExtracted State = "text_extracted"
	StateClassified    State = "classified"
	StateExtracted     State = "extracted"
	StateGateChecked   State = "gate_checked"
	StateRejected      State = "rejected"
	StateUploaded      State = "uploaded"
	StatePersisted     State = "persisted"
	StateFailed        State = "failed"
)

func (s State) Terminal() bool {
	return s == StateRejected || s == StatePersisted || s == StateFailed
}

// Upload is one submitted file. CategoryHint, when set, skips the
// classification oracle.
type Upload struct {
	Filename     string
	Data         []byte
	CategoryHint Category
}

type GateConfig struct {
	Enabled   bool
	Threshold float64
	Penalty   float64
}

func DefaultGateConfig() GateConfig {
	return GateConfig{
		Enabled:   true,
		Threshold: 0.6,
		Penalty:   0.2,
	}
}

type GateResult struct {
	Score   float64  `json:"score"`
	Missing []string `json:"missing_fields"`
	Passed  bool     `json:"passed"`
	Skipped bool     `json:"skipped,omitempty"`
}

// Outcome is the terminal report for one document run.
type Outcome struct {
	Filename    string        `json:"filename"`
	State       State         `json:"state"`
	Trace       []State       `json:"trace"`
	Category    Category      `json:"category,omitempty"`
	Record      Record        `json:"record,omitempty"`
	Gate        *GateResult   `json:"gate,omitempty"`
	StorageKey  string        `json:"storage_key,omitempty"`
	StoragePath string        `json:"storage_path,omitempty"`
	Persisted   *Persisted    `json:"persisted,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration_ns"`
	Cost        float64       `json:"estimated_cost"`
}

func (o *Outcome) Enter(s State) {
	o.State = s
	o.Trace = append(o.Trace, s)
}
