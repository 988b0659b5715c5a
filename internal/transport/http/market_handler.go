package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "databridge/internal/errors"
)

// MarketHandler triggers the market-data update pipeline.
type MarketHandler struct {
	service      MarketUpdater
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewMarketHandler creates a new market handler.
func NewMarketHandler(service MarketUpdater, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *MarketHandler {
	return &MarketHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "market")),
		errorHandler: errorHandler,
	}
}

// Routes returns the market routes.
func (h *MarketHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Post("/update", h.Update)
	return r
}

type updateRequest struct {
	FromDate string `json:"fromDate"`
	ToDate   string `json:"toDate"`
}

// Update handles POST /market/update. An empty body runs the full tracked
// history through today. A datastore write failure is the only 500; ticker
// fetch failures travel inside the result.
func (h *MarketHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
			return
		}
	}

	h.logger.InfoContext(r.Context(), "market update requested",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("from", req.FromDate),
		slog.String("to", req.ToDate))

	result, err := h.service.Update(r.Context(), req.FromDate, req.ToDate)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if !result.Success {
		render.Status(r, http.StatusInternalServerError)
	}
	render.JSON(w, r, result)
}
