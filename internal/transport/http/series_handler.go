package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "databridge/internal/errors"
)

// SeriesHandler serves raw historical and reference field data.
type SeriesHandler struct {
	service      QuoteReader
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewSeriesHandler creates a new series handler.
func NewSeriesHandler(service QuoteReader, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SeriesHandler {
	return &SeriesHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "series")),
		errorHandler: errorHandler,
	}
}

// Routes returns the series routes.
func (h *SeriesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Post("/historical", h.GetHistorical)
	r.Post("/reference", h.GetReference)
	return r
}

type seriesRequest struct {
	Symbols   []string `json:"symbols"`
	Fields    []string `json:"fields"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
}

func (h *SeriesHandler) decode(w http.ResponseWriter, r *http.Request) (seriesRequest, bool) {
	var req seriesRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return req, false
	}
	if len(req.Symbols) == 0 || len(req.Fields) == 0 {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("symbols", "symbols and fields are required"))
		return req, false
	}
	return req, true
}

// GetHistorical handles POST /historical: dated series per symbol, with
// alternate symbology fallback.
func (h *SeriesHandler) GetHistorical(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	data, errs := h.service.Historical(r.Context(), req.Symbols, req.Fields, req.StartDate, req.EndDate)

	h.logger.InfoContext(r.Context(), "historical served",
		slog.Int("symbols", len(req.Symbols)),
		slog.Int("errors", len(errs)))
	render.JSON(w, r, map[string]any{
		"historical_data": data,
		"errors":          errs,
	})
}

// GetReference handles POST /reference: current field values shaped as
// one-element dated series.
func (h *SeriesHandler) GetReference(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	data, errs, err := h.service.Reference(r.Context(), req.Symbols, req.Fields)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]any{
		"reference_data": data,
		"errors":         errs,
	})
}
