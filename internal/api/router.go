// Package api wires the run handlers, metrics and API docs onto the router.
//
// @title Lake Pipeline API
// @version 1.0
// @description Runs the object store to query engine round trip and serves run history.
// @BasePath /api/v1
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "go-lake-pipeline/docs"
	"go-lake-pipeline/internal/api/handler"
	"go-lake-pipeline/pkg/router"
)

func RegisterRoutes(r *router.Router, h *handler.RunHandler, gatherer prometheus.Gatherer) {
	r.POST("/api/v1/runs", h.CreateRun)
	r.GET("/api/v1/runs", h.ListRuns)
	// More specific routes first
	r.GET("/api/v1/runs/*/results", h.GetRunResults)
	r.GET("/api/v1/runs/*", h.GetRun)

	r.Handle(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Handle(http.MethodGet, "/swagger/*", httpSwagger.WrapHandler)
}
