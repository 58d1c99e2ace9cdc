package model

import "time"

// ValidationRules defines validation requirements for a dataset
type ValidationRules struct {
	RequiredFields []string           `json:"requiredFields"` // columns that must be present
	NumericFields  []string           `json:"numericFields"`  // columns that must be integer or float
	MinValues      map[string]float64 `json:"minValues"`      // min allowed numeric values
	MaxValues      map[string]float64 `json:"maxValues"`      // optional max limits
	UniqueFields   []string           `json:"uniqueFields"`   // columns whose values must not repeat
}

// Report is one executed report query and its result table
type Report struct {
	Index  int    `json:"index"` // 1-based position in the battery
	Name   string `json:"name"`
	Title  string `json:"title"`
	Result *Table `json:"result"`
}

// RunStatus is the lifecycle state of a pipeline run
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunSummary is the persisted view of a pipeline run
type RunSummary struct {
	ID        string    `json:"id"`
	Status    RunStatus `json:"status"`
	Container string    `json:"container"`
	ObjectKey string    `json:"object_key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RunDetail is a run with its stage timings and errors
type RunDetail struct {
	RunSummary
	Stages []StageMetrics `json:"stages"`
	Errors []ErrorDetail  `json:"errors"`
}
