package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"go-lake-pipeline/internal/engine"
	"go-lake-pipeline/internal/metrics"
	"go-lake-pipeline/internal/model"
	"go-lake-pipeline/internal/objstore"
	"go-lake-pipeline/internal/report"
	"go-lake-pipeline/internal/staging"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeGateway wraps a MemoryGateway and lets tests replace single operations.
type fakeGateway struct {
	*objstore.MemoryGateway
	ensureFunc func(ctx context.Context, name string) (bool, error)
	putFunc    func(ctx context.Context, container, key string, data []byte, contentType string) error
	getFunc    func(ctx context.Context, container, key string) ([]byte, error)
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{MemoryGateway: objstore.NewMemoryGateway()}
}

func (f *fakeGateway) EnsureContainer(ctx context.Context, name string) (bool, error) {
	if f.ensureFunc != nil {
		return f.ensureFunc(ctx, name)
	}
	return f.MemoryGateway.EnsureContainer(ctx, name)
}

func (f *fakeGateway) Put(ctx context.Context, container, key string, data []byte, contentType string) error {
	if f.putFunc != nil {
		return f.putFunc(ctx, container, key, data, contentType)
	}
	return f.MemoryGateway.Put(ctx, container, key, data, contentType)
}

func (f *fakeGateway) Get(ctx context.Context, container, key string) ([]byte, error) {
	if f.getFunc != nil {
		return f.getFunc(ctx, container, key)
	}
	return f.MemoryGateway.Get(ctx, container, key)
}

type harness struct {
	fs       afero.Fs
	area     *staging.Area
	out      *bytes.Buffer
	registry *prometheus.Registry
	pipeline *Pipeline
}

func testConfig() Config {
	return Config{Container: "datalake", ObjectKey: "sample_data.csv", TableName: "data"}
}

func newHarness(t *testing.T, gw objstore.Gateway, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		fs:       afero.NewMemMapFs(),
		out:      &bytes.Buffer{},
		registry: prometheus.NewRegistry(),
	}
	h.area = staging.NewArea(h.fs, "/tmp/lake")

	base := []Option{
		WithStagingArea(h.area),
		WithRenderer(report.NewRenderer(h.out, report.WithoutColor())),
		WithMetrics(metrics.NewPipelineMetricsWithRegistry(h.registry)),
	}
	p, err := New(testConfig(), gw, append(base, opts...)...)
	require.NoError(t, err)
	h.pipeline = p
	return h
}

func (h *harness) run(t *testing.T) (*Result, error) {
	t.Helper()
	res, err := h.pipeline.Run(context.Background())
	require.NotNil(t, res)
	exists, statErr := afero.DirExists(h.fs, h.area.RunDir(res.RunID))
	require.NoError(t, statErr)
	assert.False(t, exists, "staging directory must be released")
	return res, err
}

func (h *harness) counter(t *testing.T, name, label, value string) float64 {
	t.Helper()
	families, err := h.registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label == "" {
				return m.GetCounter().GetValue()
			}
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestGenerateDataset(t *testing.T) {
	ds := GenerateDataset()

	assert.Equal(t, []string{"id", "name", "age", "city", "salary"}, ds.ColumnNames())
	require.Len(t, ds.Rows, 5)
	assert.Equal(t, model.Row{int64(3), "Charlie", int64(35), "Danang", int64(70000)}, ds.Rows[2])
	assert.Equal(t, GenerateDataset(), ds)
	assert.NoError(t, ValidateTable(ds, DefaultRules()))
}

func TestRun_Success(t *testing.T) {
	gw := newFakeGateway()
	h := newHarness(t, gw)

	res, err := h.run(t)
	require.NoError(t, err)

	assert.Equal(t, model.RunCompleted, res.Status)
	assert.True(t, res.ContainerCreated)
	assert.Empty(t, res.Errors)

	names := make([]string, len(res.Reports))
	for i, r := range res.Reports {
		names[i] = r.Name
		assert.Equal(t, i+1, r.Index)
	}
	assert.Equal(t, []string{
		"all_data", "filtered", "by_city", "top_salaries", "summary", "salary_levels",
	}, names)

	summary := res.Reports[4].Result
	require.Len(t, summary.Rows, 1)
	assert.Equal(t, model.Row{
		int64(5), int64(3), int64(25), int64(35), 30.0, int64(50000), int64(70000), 58600.0,
	}, summary.Rows[0])

	stored, err := gw.Get(context.Background(), "datalake", "sample_data.csv")
	require.NoError(t, err)
	want, err := staging.Encode(GenerateDataset())
	require.NoError(t, err)
	assert.Equal(t, want, stored)
	assert.Equal(t, "text/csv", gw.ContentType("datalake", "sample_data.csv"))

	for _, s := range res.Stages {
		assert.Equal(t, "completed", s.Status, s.Stage)
	}

	out := h.out.String()
	assert.Contains(t, out, "✓ Bucket 'datalake' created")
	assert.Contains(t, out, "📥 Downloading data from object store...")
	assert.Equal(t, 14, strings.Count(out, strings.Repeat("=", 70)+"\n"))
	assert.Less(t, strings.Index(out, "ALL DATA"), strings.Index(out, "SALARY LEVEL CLASSIFICATION"))
	assert.True(t, strings.HasSuffix(out, strings.Repeat("=", 70)+"\n✓ All queries completed!\n"+strings.Repeat("=", 70)+"\n"))

	assert.Equal(t, 1.0, h.counter(t, "lake_pipeline_runs_total", "status", "completed"))
	assert.Equal(t, 6.0, h.counter(t, "lake_pipeline_queries_total", "", ""))
	assert.Equal(t, float64(len(want)), h.counter(t, "lake_pipeline_bytes_total", "direction", "upload"))
}

func TestRun_RepeatedRunsOverwrite(t *testing.T) {
	gw := newFakeGateway()
	h := newHarness(t, gw)

	first, err := h.run(t)
	require.NoError(t, err)
	second, err := h.run(t)
	require.NoError(t, err)

	assert.True(t, first.ContainerCreated)
	assert.False(t, second.ContainerCreated)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, []string{"datalake"}, gw.Containers())
	assert.Contains(t, h.out.String(), "✓ Bucket 'datalake' already exists")
	assert.Equal(t, first.Reports, second.Reports)
}

func TestRun_StoreUnavailable(t *testing.T) {
	gw := newFakeGateway()
	gw.ensureFunc = func(context.Context, string) (bool, error) {
		return false, fmt.Errorf("%w: dial tcp: connection refused", objstore.ErrStoreUnavailable)
	}
	h := newHarness(t, gw)

	res, err := h.run(t)
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageContainer, stageErr.Stage)
	assert.True(t, IsStoreError(err))

	assert.Equal(t, model.RunFailed, res.Status)
	assert.Empty(t, res.Reports)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "store_unavailable", res.Errors[0].ErrorType)
	assert.NotContains(t, h.out.String(), "=====")
	assert.Equal(t, 1.0, h.counter(t, "lake_pipeline_runs_total", "status", "failed"))
	assert.Equal(t, 0.0, h.counter(t, "lake_pipeline_queries_total", "", ""))
}

func TestRun_UploadFailure(t *testing.T) {
	gw := newFakeGateway()
	gw.putFunc = func(context.Context, string, string, []byte, string) error {
		return fmt.Errorf("%w: access denied", objstore.ErrStore)
	}
	h := newHarness(t, gw)

	_, err := h.run(t)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageUpload, stageErr.Stage)
	assert.ErrorIs(t, err, objstore.ErrStore)
}

func TestRun_ObjectMissingAfterUpload(t *testing.T) {
	gw := newFakeGateway()
	gw.putFunc = func(context.Context, string, string, []byte, string) error {
		return nil
	}
	h := newHarness(t, gw)

	_, err := h.run(t)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageDownload, stageErr.Stage)
	assert.ErrorIs(t, err, objstore.ErrObjectNotFound)
	assert.True(t, IsStoreError(err))
}

func TestRun_MalformedDownload(t *testing.T) {
	gw := newFakeGateway()
	gw.getFunc = func(context.Context, string, string) ([]byte, error) {
		return []byte("id,name\n1,\"Alice\n"), nil
	}
	h := newHarness(t, gw)

	_, err := h.run(t)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageDeserialize, stageErr.Stage)
	assert.ErrorIs(t, err, staging.ErrMalformedStagingData)
	assert.False(t, IsStoreError(err))
}

func TestRun_InvalidDataset(t *testing.T) {
	gw := newFakeGateway()
	h := newHarness(t, gw, WithDataset(func() *model.Table {
		return model.RecordsTable([]model.Record{
			{ID: 1, Name: "A", Age: 30, City: "Hue", Salary: 1},
			{ID: 1, Name: "B", Age: 30, City: "Hue", Salary: 1},
		})
	}))

	res, err := h.run(t)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageValidate, stageErr.Stage)
	assert.ErrorIs(t, err, ErrInvalidDataset)
	assert.Empty(t, gw.Containers())
	assert.Equal(t, "invalid_dataset", res.Errors[0].ErrorType)
}

func TestRun_UnrepresentableDataset(t *testing.T) {
	gw := newFakeGateway()
	h := newHarness(t, gw, WithDataset(func() *model.Table {
		return model.RecordsTable([]model.Record{
			{ID: 1, Name: "007", Age: 30, City: "Hue", Salary: 1},
			{ID: 2, Name: "42", Age: 31, City: "Hue", Salary: 2},
		})
	}))

	res, err := h.run(t)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageSerialize, stageErr.Stage)
	assert.ErrorIs(t, err, staging.ErrUnrepresentable)
	assert.Equal(t, "unrepresentable_data", res.Errors[0].ErrorType)

	_, getErr := gw.Get(context.Background(), "datalake", "sample_data.csv")
	assert.ErrorIs(t, getErr, objstore.ErrObjectNotFound)
}

func TestRun_QueryFailureKeepsCompletedReports(t *testing.T) {
	queries := engine.ReportQueries("data")
	broken := []engine.Query{
		queries[0],
		queries[1],
		{Name: "broken", Title: "BROKEN", SQL: "SELECT missing_column FROM data"},
		queries[3],
	}
	gw := newFakeGateway()
	h := newHarness(t, gw, WithQueries(broken))

	res, err := h.run(t)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageQuery, stageErr.Stage)
	assert.ErrorIs(t, err, engine.ErrQuery)

	require.Len(t, res.Reports, 2)
	assert.Equal(t, "filtered", res.Reports[1].Name)
	out := h.out.String()
	assert.Contains(t, out, "EMPLOYEES WITH AGE > 28 AND SALARY > 55000")
	assert.NotContains(t, out, "BROKEN")
	assert.NotContains(t, out, "TOP 5 HIGHEST SALARIES")
	assert.NotContains(t, out, "All queries completed")
	assert.Equal(t, 2.0, h.counter(t, "lake_pipeline_queries_total", "", ""))
}

func TestNew_Validation(t *testing.T) {
	gw := objstore.NewMemoryGateway()

	_, err := New(testConfig(), nil)
	assert.Error(t, err)

	cfg := testConfig()
	cfg.Container = ""
	_, err = New(cfg, gw)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.ObjectKey = ""
	_, err = New(cfg, gw)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.TableName = "data; DROP TABLE data"
	_, err = New(cfg, gw)
	assert.Error(t, err)

	p, err := New(testConfig(), gw)
	require.NoError(t, err)
	assert.Equal(t, staging.ContentType, p.cfg.ContentType)
	assert.NotNil(t, p.cfg.Rules)
}

func TestStageError(t *testing.T) {
	inner := fmt.Errorf("%w: boom", objstore.ErrStore)
	err := error(&StageError{Stage: StageUpload, Err: inner})

	assert.Equal(t, "upload: object store error: boom", err.Error())
	assert.True(t, errors.Is(err, objstore.ErrStore))
	assert.True(t, IsStoreError(err))
	assert.False(t, IsStoreError(errors.New("other")))
}
