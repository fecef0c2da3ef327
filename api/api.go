// Package api exposes the challenge session engine over REST.
package api

import (
	_ "embed"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/certivo/certivo/engine"
	"github.com/certivo/certivo/report"
)

// API holds the dependencies needed by the REST handlers.
type API struct {
	engine  *engine.Engine
	reports report.Store
	limiter *submitRateLimiter
	audit   *auditLogger
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.audit = newAuditLogger(logger)
	}
}

// WithReportStore enables the analytics endpoint over the given report log.
func WithReportStore(reports report.Store) Option {
	return func(a *API) {
		a.reports = reports
	}
}

// WithAlertFunc installs an anomaly alert callback fed by audit events.
func WithAlertFunc(fn AlertFunc) Option {
	return func(a *API) {
		if a.audit == nil {
			a.audit = newAuditLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
		}
		a.audit.metrics = newMetricsCollector(fn)
	}
}

// New creates a new API instance over the engine.
func New(eng *engine.Engine, opts ...Option) *API {
	a := &API{
		engine:  eng,
		limiter: newSubmitRateLimiter(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.audit == nil {
		a.audit = newAuditLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}
	return a
}

// Router returns a chi.Router with all API routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/redoc",
	}, nil))

	r.Post("/sessions", a.StartSession)
	r.Get("/sessions/{sessionID}/challenge", a.CurrentChallenge)
	r.Post("/sessions/{sessionID}/submissions", a.Submit)
	r.Post("/sessions/{sessionID}/finalize", a.Finalize)
	r.Get("/reports", a.ListReports)

	return r
}
