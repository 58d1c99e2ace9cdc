// Package pipeline runs the object store round trip: generate the dataset,
// upload it, read it back, load it into the query engine and render the
// report battery.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"go-lake-pipeline/internal/engine"
	"go-lake-pipeline/internal/metrics"
	"go-lake-pipeline/internal/model"
	"go-lake-pipeline/internal/objstore"
	"go-lake-pipeline/internal/report"
	"go-lake-pipeline/internal/staging"
)

// Config holds the per-run settings of a Pipeline.
type Config struct {
	Container   string
	ObjectKey   string
	TableName   string
	ContentType string
	// StagingDir is where downloaded payloads are staged; empty selects the OS temp dir.
	StagingDir string
	// Rules validate the dataset before upload and after download.
	// Nil selects DefaultRules.
	Rules *model.ValidationRules
}

// Validate checks the config for missing or unusable values.
func (c Config) Validate() error {
	if c.Container == "" {
		return errors.New("container is required")
	}
	if c.ObjectKey == "" {
		return errors.New("object key is required")
	}
	if !engine.ValidIdentifier(c.TableName) {
		return fmt.Errorf("invalid table name %q", c.TableName)
	}
	return nil
}

// Result is the outcome of one run. Reports holds every report rendered
// before the run finished or failed.
type Result struct {
	RunID            string               `json:"run_id"`
	Status           model.RunStatus      `json:"status"`
	Container        string               `json:"container"`
	ObjectKey        string               `json:"object_key"`
	ContainerCreated bool                 `json:"container_created"`
	Reports          []model.Report       `json:"reports"`
	Stages           []model.StageMetrics `json:"stages"`
	Errors           []model.ErrorDetail  `json:"errors,omitempty"`
	StartedAt        time.Time            `json:"started_at"`
	Duration         time.Duration        `json:"duration"`
}

// Pipeline executes runs against one object store gateway.
type Pipeline struct {
	cfg      Config
	gateway  objstore.Gateway
	area     *staging.Area
	renderer *report.Renderer
	metrics  *metrics.PipelineMetrics
	log      logr.Logger
	dataset  func() *model.Table
	queries  []engine.Query
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(log logr.Logger) Option {
	return func(p *Pipeline) {
		p.log = log
	}
}

// WithRenderer sets where reports and status lines are written.
func WithRenderer(r *report.Renderer) Option {
	return func(p *Pipeline) {
		p.renderer = r
	}
}

// WithMetrics records stage and run metrics.
func WithMetrics(m *metrics.PipelineMetrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithStagingArea overrides the local staging area.
func WithStagingArea(a *staging.Area) Option {
	return func(p *Pipeline) {
		p.area = a
	}
}

// WithDataset replaces the generated seed dataset.
func WithDataset(fn func() *model.Table) Option {
	return func(p *Pipeline) {
		p.dataset = fn
	}
}

// WithQueries replaces the report battery.
func WithQueries(queries []engine.Query) Option {
	return func(p *Pipeline) {
		p.queries = queries
	}
}

// New creates a Pipeline. The gateway is owned by the caller.
func New(cfg Config, gateway objstore.Gateway, opts ...Option) (*Pipeline, error) {
	if gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if cfg.ContentType == "" {
		cfg.ContentType = staging.ContentType
	}
	if cfg.Rules == nil {
		cfg.Rules = DefaultRules()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}

	p := &Pipeline{
		cfg:     cfg,
		gateway: gateway,
		log:     logr.Discard(),
		dataset: GenerateDataset,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.area == nil {
		p.area = staging.NewArea(afero.NewOsFs(), cfg.StagingDir)
	}
	if p.renderer == nil {
		p.renderer = report.NewRenderer(io.Discard, report.WithoutColor())
	}
	if p.queries == nil {
		p.queries = engine.ReportQueries(cfg.TableName)
	}
	return p, nil
}

// Run executes one run with a fresh run id.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	return p.RunWithID(ctx, uuid.NewString())
}

// RunWithID executes one run. The first failing stage aborts the run; the
// returned Result is never nil and the error, if any, is a *StageError.
func (p *Pipeline) RunWithID(ctx context.Context, runID string) (res *Result, err error) {
	tracker := NewTracker(runID, p.metrics, p.log)
	res = &Result{
		RunID:     runID,
		Status:    model.RunRunning,
		Container: p.cfg.Container,
		ObjectKey: p.cfg.ObjectKey,
		Reports:   []model.Report{},
		StartedAt: time.Now(),
	}
	log := p.log.WithValues("run", runID)
	log.Info("starting pipeline run", "container", p.cfg.Container, "key", p.cfg.ObjectKey)

	defer func() {
		if relErr := p.area.Release(runID); relErr != nil {
			log.Error(relErr, "failed to release staging area")
		}

		res.Status = model.RunCompleted
		if err != nil {
			res.Status = model.RunFailed
		}
		res.Stages = tracker.Stages()
		res.Errors = tracker.Errors()
		res.Duration = time.Since(res.StartedAt)
		tracker.Finish(res.Status)
		log.Info("pipeline run finished", "status", res.Status, "duration", res.Duration)
	}()

	// step runs one stage and turns its failure into a *StageError.
	step := func(stage string, fn func() (rows, n int64, err error)) error {
		tracker.StartStage(stage)
		rows, n, err := fn()
		if err != nil {
			tracker.FailStage(stage, err)
			return &StageError{Stage: stage, Err: err}
		}
		tracker.EndStage(stage, rows, n)
		return nil
	}

	var dataset *model.Table
	if err := step(StageGenerate, func() (int64, int64, error) {
		dataset = p.dataset()
		return int64(len(dataset.Rows)), 0, nil
	}); err != nil {
		return res, err
	}

	if err := step(StageValidate, func() (int64, int64, error) {
		return int64(len(dataset.Rows)), 0, ValidateTable(dataset, p.cfg.Rules)
	}); err != nil {
		return res, err
	}

	if err := step(StageContainer, func() (int64, int64, error) {
		created, err := p.gateway.EnsureContainer(ctx, p.cfg.Container)
		if err != nil {
			return 0, 0, err
		}
		res.ContainerCreated = created
		if created {
			p.renderer.Status("Bucket '%s' created", p.cfg.Container)
		} else {
			p.renderer.Status("Bucket '%s' already exists", p.cfg.Container)
		}
		return 0, 0, nil
	}); err != nil {
		return res, err
	}

	var payload []byte
	if err := step(StageSerialize, func() (int64, int64, error) {
		var err error
		payload, err = staging.Encode(dataset)
		if err != nil {
			return 0, 0, err
		}
		p.renderer.Status("CSV payload created: %d rows, %d bytes", len(dataset.Rows), len(payload))
		return int64(len(dataset.Rows)), int64(len(payload)), nil
	}); err != nil {
		return res, err
	}

	if err := step(StageUpload, func() (int64, int64, error) {
		if err := p.gateway.Put(ctx, p.cfg.Container, p.cfg.ObjectKey, payload, p.cfg.ContentType); err != nil {
			return 0, 0, err
		}
		tracker.RecordBytes(metrics.DirectionUpload, len(payload))
		p.renderer.Status("File '%s' uploaded successfully!\n", p.cfg.ObjectKey)
		return 0, int64(len(payload)), nil
	}); err != nil {
		return res, err
	}

	var downloaded []byte
	if err := step(StageDownload, func() (int64, int64, error) {
		p.renderer.Progress("Downloading data from object store...")
		var err error
		downloaded, err = p.gateway.Get(ctx, p.cfg.Container, p.cfg.ObjectKey)
		if err != nil {
			return 0, 0, err
		}
		tracker.RecordBytes(metrics.DirectionDownload, len(downloaded))
		p.renderer.Status("Download complete!\n")
		return 0, int64(len(downloaded)), nil
	}); err != nil {
		return res, err
	}

	if err := step(StageDeserialize, func() (int64, int64, error) {
		t, err := staging.Decode(downloaded)
		if err != nil {
			return 0, 0, err
		}
		return int64(len(t.Rows)), int64(len(downloaded)), ValidateTable(t, p.cfg.Rules)
	}); err != nil {
		return res, err
	}

	var stagedPath string
	if err := step(StageStage, func() (int64, int64, error) {
		var err error
		stagedPath, err = p.area.Write(runID, p.cfg.ObjectKey, downloaded)
		return 0, int64(len(downloaded)), err
	}); err != nil {
		return res, err
	}

	var eng *engine.Engine
	if err := step(StageLoad, func() (int64, int64, error) {
		var err error
		eng, err = engine.Open(ctx, engine.WithLogger(log))
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %w", engine.ErrLoad, err)
		}
		f, err := p.area.Open(stagedPath)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %w", engine.ErrLoad, err)
		}
		defer func() { _ = f.Close() }()
		return 0, 0, eng.Load(ctx, p.cfg.TableName, f)
	}); err != nil {
		if eng != nil {
			_ = eng.Close()
		}
		return res, err
	}
	defer func() {
		if closeErr := eng.Close(); closeErr != nil {
			log.Error(closeErr, "failed to close query engine")
		}
	}()

	for i, q := range p.queries {
		if err := step(StageQuery, func() (int64, int64, error) {
			t, err := eng.Query(ctx, q.SQL)
			if err != nil {
				return 0, 0, fmt.Errorf("%s: %w", q.Name, err)
			}
			tracker.RecordQuery()
			if err := p.renderer.Render(q.Title, t); err != nil {
				return 0, 0, fmt.Errorf("render %s: %w", q.Name, err)
			}
			res.Reports = append(res.Reports, model.Report{
				Index:  i + 1,
				Name:   q.Name,
				Title:  q.Title,
				Result: t,
			})
			return int64(len(t.Rows)), 0, nil
		}); err != nil {
			return res, err
		}
	}

	if err := p.renderer.Done(); err != nil {
		log.Error(err, "failed to write closing banner")
	}
	return res, nil
}
