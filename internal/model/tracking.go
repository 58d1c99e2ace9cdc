package model

import "time"

// StageMetrics represents timing for a single pipeline stage
type StageMetrics struct {
	Stage     string        `json:"stage"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Status    string        `json:"status"` // "completed", "failed"
	Bytes     int64         `json:"bytes,omitempty"`
	Rows      int64         `json:"rows,omitempty"`
}

// ErrorDetail represents a stage failure with context
type ErrorDetail struct {
	Stage     string    `json:"stage"`
	ErrorType string    `json:"error_type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
