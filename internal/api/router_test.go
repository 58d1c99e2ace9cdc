package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-lake-pipeline/internal/api/handler"
	"go-lake-pipeline/internal/metrics"
	"go-lake-pipeline/internal/objstore"
	"go-lake-pipeline/internal/pipeline"
	"go-lake-pipeline/internal/staging"
	"go-lake-pipeline/internal/store"
	"go-lake-pipeline/pkg/router"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	reg := prometheus.NewRegistry()
	p, err := pipeline.New(
		pipeline.Config{Container: "datalake", ObjectKey: "sample_data.csv", TableName: "data"},
		objstore.NewMemoryGateway(),
		pipeline.WithStagingArea(staging.NewArea(afero.NewMemMapFs(), "/staging")),
		pipeline.WithMetrics(metrics.NewPipelineMetricsWithRegistry(reg)),
	)
	require.NoError(t, err)

	st, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	r := router.New(router.WithAccessLog(nil))
	RegisterRoutes(r, handler.NewRunHandler(p, st, logr.Discard()), reg)

	srv := httptest.NewServer(r.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestAPI_RunRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/runs", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created handler.RunResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotNil(t, created.Result)
	assert.Len(t, created.Reports, 6)

	results, err := http.Get(srv.URL + "/api/v1/runs/" + created.RunID + "/results")
	require.NoError(t, err)
	defer results.Body.Close()
	require.Equal(t, http.StatusOK, results.StatusCode)

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.NewDecoder(results.Body).Decode(&body))
	assert.Equal(t, 6, body.Count)

	detail, err := http.Get(srv.URL + "/api/v1/runs/" + created.RunID)
	require.NoError(t, err)
	defer detail.Body.Close()
	assert.Equal(t, http.StatusOK, detail.StatusCode)

	metricsResp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	require.Equal(t, http.StatusOK, metricsResp.StatusCode)

	exposition, err := io.ReadAll(metricsResp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(exposition), `lake_pipeline_runs_total{status="completed"} 1`)
	assert.Contains(t, string(exposition), "lake_pipeline_queries_total 6")
}

func TestAPI_SwaggerDoc(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/swagger/doc.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	paths, ok := doc["paths"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, paths, "/runs/{id}/results")
}
