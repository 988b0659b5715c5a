package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"databridge/internal/dates"
	apierrors "databridge/internal/errors"
)

// PositionHandler serves the position-history report.
type PositionHandler struct {
	source       PositionReader
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	now          func() time.Time
}

// NewPositionHandler creates a new position handler.
func NewPositionHandler(source PositionReader, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *PositionHandler {
	return &PositionHandler{
		source:       source,
		logger:       logger.With(slog.String("handler", "positions")),
		errorHandler: errorHandler,
		now:          time.Now,
	}
}

// Routes returns the position routes.
func (h *PositionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/", h.GetReport)
	r.Post("/", h.GetReport)
	return r
}

type positionRequest struct {
	Date string `json:"date"`
}

// GetReport handles /positions: the full position report plus fund NAV for
// one as-of date, defaulting to today.
func (h *PositionHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if r.Body != nil && r.ContentLength != 0 {
		render.DecodeJSON(r.Body, &req)
	}
	if v := r.URL.Query().Get("date"); v != "" {
		req.Date = v
	}

	asOf := req.Date
	if asOf == "" {
		asOf = h.now().Format(dates.ISO)
	}

	report, err := h.source.Report(r.Context(), asOf)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "position report failed",
			slog.String("as_of", asOf),
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusServiceUnavailable,
			"POSITIONS_SOURCE_UNAVAILABLE",
			"Position-history source is not reachable",
			err.Error(),
		))
		return
	}

	h.logger.InfoContext(r.Context(), "position report served",
		slog.String("as_of", asOf),
		slog.Int("positions", len(report.Positions)))
	render.JSON(w, r, report)
}
