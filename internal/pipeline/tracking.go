package pipeline

import (
	"sync"
	"time"

	"github.com/go-logr/logr"

	"go-lake-pipeline/internal/metrics"
	"go-lake-pipeline/internal/model"
)

// Tracker records per-stage timings and errors for one run and mirrors them
// into Prometheus when metrics are configured.
type Tracker struct {
	RunID string

	mu      sync.Mutex
	started map[string]time.Time
	stages  []model.StageMetrics
	errors  []model.ErrorDetail
	metrics *metrics.PipelineMetrics
	log     logr.Logger
	now     func() time.Time
}

// NewTracker creates a tracker for runID. m may be nil.
func NewTracker(runID string, m *metrics.PipelineMetrics, log logr.Logger) *Tracker {
	return &Tracker{
		RunID:   runID,
		started: make(map[string]time.Time),
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

// StartStage marks the start of a pipeline stage
func (t *Tracker) StartStage(stage string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started[stage] = t.now()
	t.log.V(1).Info("stage started", "run", t.RunID, "stage", stage)
}

// EndStage marks the successful end of a stage with the rows and bytes it handled.
func (t *Tracker) EndStage(stage string, rows, bytes int64) {
	t.finish(stage, "completed", rows, bytes)
}

// FailStage marks a stage as failed and records the error detail.
func (t *Tracker) FailStage(stage string, err error) {
	sm := t.finish(stage, "failed", 0, 0)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.errors = append(t.errors, model.ErrorDetail{
		Stage:     stage,
		ErrorType: errorType(err),
		Message:   err.Error(),
		Timestamp: sm.EndTime,
	})
	t.log.Error(err, "stage failed", "run", t.RunID, "stage", stage, "duration", sm.Duration)
}

func (t *Tracker) finish(stage, status string, rows, bytes int64) model.StageMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	end := t.now()
	start, ok := t.started[stage]
	if !ok {
		start = end
	}
	delete(t.started, stage)

	sm := model.StageMetrics{
		Stage:     stage,
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
		Status:    status,
		Rows:      rows,
		Bytes:     bytes,
	}
	t.stages = append(t.stages, sm)

	if t.metrics != nil {
		t.metrics.RecordStage(stage, sm.Duration)
	}
	if status == "completed" {
		t.log.V(1).Info("stage completed", "run", t.RunID, "stage", stage,
			"duration", sm.Duration, "rows", rows, "bytes", bytes)
	}
	return sm
}

// RecordQuery counts an executed report query.
func (t *Tracker) RecordQuery() {
	if t.metrics != nil {
		t.metrics.RecordQuery()
	}
}

// RecordBytes counts payload bytes moved in direction.
func (t *Tracker) RecordBytes(direction string, n int) {
	if t.metrics != nil {
		t.metrics.RecordBytes(direction, n)
	}
}

// Finish records the final run status.
func (t *Tracker) Finish(status model.RunStatus) {
	if t.metrics != nil {
		t.metrics.RecordRun(string(status))
	}
}

// Stages returns a copy of the recorded stage metrics in completion order.
func (t *Tracker) Stages() []model.StageMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.StageMetrics, len(t.stages))
	copy(out, t.stages)
	return out
}

// Errors returns a copy of the recorded stage errors.
func (t *Tracker) Errors() []model.ErrorDetail {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.ErrorDetail, len(t.errors))
	copy(out, t.errors)
	return out
}
