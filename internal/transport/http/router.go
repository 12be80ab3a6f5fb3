// Package httptransport is the JSON API the bot front end and operators
// call. Handlers decode, delegate to a service and map errors to statuses.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"iinfinder/internal/platform/metrics"
	"iinfinder/internal/platform/middleware"
	"iinfinder/pkg/platform/httputil"
	"iinfinder/pkg/platform/middleware/admin"
	"iinfinder/pkg/platform/middleware/metadata"
	"iinfinder/pkg/platform/middleware/requesttime"
)

// healthTimeout bounds each dependency ping on /healthz.
const healthTimeout = 2 * time.Second

type Dependencies struct {
	Searcher   Searcher
	Confirmer  Confirmer
	AutoSearch AutoSearchService
	Access     AccessStore
	Health     map[string]HealthChecker
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
	Logger     *slog.Logger
}

// NewRouter wires every route. Access-list routes require adminToken and
// are left unmounted when it is empty.
func NewRouter(deps Dependencies, adminToken string) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(middleware.Logger(logger, deps.Metrics))

	r.Get("/healthz", healthHandler(deps.Health))
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Group(func(api chi.Router) {
		api.Use(middleware.ContentTypeJSON)
		NewSearchHandler(deps.Searcher, deps.Confirmer, logger).Register(api)
		NewAutoSearchHandler(deps.AutoSearch, logger).Register(api)
		if adminToken != "" && deps.Access != nil {
			api.Group(func(ops chi.Router) {
				ops.Use(admin.RequireAdminToken(adminToken, logger))
				NewAccessHandler(deps.Access, logger).Register(ops)
			})
		}
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, c := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			err := c.Health(ctx)
			cancel()
			if err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
