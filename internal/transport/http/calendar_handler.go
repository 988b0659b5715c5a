package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "databridge/internal/errors"
)

// CalendarHandler serves the classified economic calendar.
type CalendarHandler struct {
	service      CalendarRunner
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewCalendarHandler creates a new calendar handler.
func NewCalendarHandler(service CalendarRunner, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *CalendarHandler {
	return &CalendarHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "calendar")),
		errorHandler: errorHandler,
	}
}

// Routes returns the calendar routes.
func (h *CalendarHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Post("/", h.GetCalendar)
	return r
}

type calendarRequest struct {
	Tickers []string `json:"tickers"`
}

// GetCalendar handles POST /economic-calendar. An empty ticker list falls
// back to the configured ticker table; having no tickers at all is a 400.
func (h *CalendarHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	var req calendarRequest
	if r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
			return
		}
	}

	result, err := h.service.Run(r.Context(), req.Tickers)
	if err != nil {
		h.logger.WarnContext(r.Context(), "calendar run rejected",
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, apierrors.New(
			http.StatusBadRequest,
			"NO_TICKERS_CONFIGURED",
			err.Error(),
		))
		return
	}

	h.logger.InfoContext(r.Context(), "calendar served",
		slog.Int("events", result.Count),
		slog.Int("errors", len(result.Errors)))
	render.JSON(w, r, map[string]any{
		"success":       true,
		"calendar_data": result.Events,
		"count":         result.Count,
		"errors":        result.Errors,
		"from":          result.From,
		"to":            result.To,
	})
}
