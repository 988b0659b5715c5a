package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"databridge/internal/infrastructure"
)

// MetricsHandler exposes the Prometheus scrape endpoint.
type MetricsHandler struct {
	providers *infrastructure.OTelProviders
}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler(providers *infrastructure.OTelProviders) *MetricsHandler {
	return &MetricsHandler{providers: providers}
}

// Routes returns the metrics routes.
func (h *MetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Scrape)
	return r
}

// Scrape handles GET /metrics. Returns 404 when the metrics exporter is
// disabled.
func (h *MetricsHandler) Scrape(w http.ResponseWriter, r *http.Request) {
	if h.providers == nil || h.providers.PrometheusHTTP == nil {
		http.NotFound(w, r)
		return
	}
	h.providers.PrometheusHTTP.ServeHTTP(w, r)
}
