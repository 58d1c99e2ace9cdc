package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"go-lake-pipeline/internal/model"
	"go-lake-pipeline/internal/pipeline"
	"go-lake-pipeline/internal/store"
)

const runsPrefix = "/api/v1/runs/"

// Runner executes one pipeline run under a caller-chosen id.
type Runner interface {
	RunWithID(ctx context.Context, runID string) (*pipeline.Result, error)
}

// RunResponse is returned by CreateRun
type RunResponse struct {
	*pipeline.Result
	Error string `json:"error,omitempty"`
}

// RunHandler serves the run API. Runs are executed one at a time.
type RunHandler struct {
	runner Runner
	store  *store.Store
	log    logr.Logger
	mu     sync.Mutex
}

// NewRunHandler creates a RunHandler.
func NewRunHandler(runner Runner, st *store.Store, log logr.Logger) *RunHandler {
	return &RunHandler{runner: runner, store: st, log: log}
}

// CreateRun executes a pipeline run
// @Summary Execute a pipeline run
// @Description Run the round trip synchronously: upload the dataset, read it back, load it and execute the report queries
// @Tags runs
// @Produce json
// @Success 200 {object} RunResponse "Run completed"
// @Failure 500 {object} RunResponse "Run failed"
// @Failure 502 {object} RunResponse "Object store failure"
// @Router /runs [post]
func (h *RunHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	runID := uuid.New().String()

	// 1. Save run to DB
	if err := h.store.CreateRun(ctx, model.RunSummary{
		ID:        runID,
		Status:    model.RunRunning,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		h.log.Error(err, "failed to save run", "run", runID)
		http.Error(w, "Failed to save run", http.StatusInternalServerError)
		return
	}

	// 2. Execute
	res, runErr := h.runner.RunWithID(ctx, runID)

	// 3. Persist outcome
	if err := h.persist(ctx, res); err != nil {
		h.log.Error(err, "failed to persist run", "run", runID)
		http.Error(w, "Failed to persist run", http.StatusInternalServerError)
		return
	}

	// 4. Return response
	code := http.StatusOK
	resp := RunResponse{Result: res}
	if runErr != nil {
		resp.Error = runErr.Error()
		code = http.StatusInternalServerError
		if pipeline.IsStoreError(runErr) {
			code = http.StatusBadGateway
		}
	}
	writeJSON(w, code, resp)
}

func (h *RunHandler) persist(ctx context.Context, res *pipeline.Result) error {
	if err := h.store.SetRunTarget(ctx, res.RunID, res.Container, res.ObjectKey); err != nil {
		return err
	}
	if err := h.store.SaveStages(ctx, res.RunID, res.Stages); err != nil {
		return err
	}
	if err := h.store.SaveRunErrors(ctx, res.RunID, res.Errors); err != nil {
		return err
	}
	if err := h.store.SaveReports(ctx, res.RunID, res.Reports); err != nil {
		return err
	}
	return h.store.UpdateRunStatus(ctx, res.RunID, res.Status)
}

// ListRuns retrieves all runs
// @Summary List all runs
// @Description Get all pipeline runs with their current status, newest first
// @Tags runs
// @Produce json
// @Success 200 {array} model.RunSummary "List of runs"
// @Failure 500 {string} string "Internal server error"
// @Router /runs [get]
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.store.ListRuns(r.Context())
	if err != nil {
		http.Error(w, "Failed to fetch runs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun retrieves a specific run
// @Summary Get run
// @Description Retrieve a run with its stage timings and errors
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} model.RunDetail "Run details"
// @Failure 400 {string} string "Invalid run ID"
// @Failure 404 {string} string "Run not found"
// @Router /runs/{id} [get]
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(r.URL.Path, "")
	if !ok {
		http.Error(w, "Run ID is required", http.StatusBadRequest)
		return
	}

	run, err := h.store.GetRun(r.Context(), runID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// GetRunResults retrieves the report results of a run
// @Summary Get run results
// @Description Retrieve the query results recorded for a run, in execution order
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run results"
// @Failure 400 {string} string "Invalid run ID"
// @Failure 404 {string} string "Run not found"
// @Router /runs/{id}/results [get]
func (h *RunHandler) GetRunResults(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(r.URL.Path, "/results")
	if !ok {
		http.Error(w, "Run ID is required", http.StatusBadRequest)
		return
	}

	reports, err := h.store.GetReports(r.Context(), runID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":  runID,
		"reports": reports,
		"count":   len(reports),
	})
}

// runIDFromPath extracts the id between the runs prefix and suffix.
func runIDFromPath(path, suffix string) (string, bool) {
	if !strings.HasPrefix(path, runsPrefix) || !strings.HasSuffix(path, suffix) {
		return "", false
	}
	runID := path[len(runsPrefix) : len(path)-len(suffix)]
	if runID == "" || strings.Contains(runID, "/") {
		return "", false
	}
	return runID, true
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrRunNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	http.Error(w, "Failed to retrieve run", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
