package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "databridge/internal/errors"
)

// QuoteHandler serves resolved prices and the sparse quote surface.
type QuoteHandler struct {
	service      QuoteReader
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewQuoteHandler creates a new quote handler.
func NewQuoteHandler(service QuoteReader, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *QuoteHandler {
	return &QuoteHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "quotes")),
		errorHandler: errorHandler,
	}
}

// Routes returns the quote routes.
func (h *QuoteHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Post("/", h.GetQuotes)
	return r
}

// PriceRoutes returns the session-resolved price routes.
func (h *QuoteHandler) PriceRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Post("/quotes", h.GetPrices)
	return r
}

type quoteRequest struct {
	Symbols []string `json:"symbols"`
	Tickers []string `json:"tickers"`
}

func (q quoteRequest) symbols() []string {
	if len(q.Symbols) > 0 {
		return q.Symbols
	}
	return q.Tickers
}

// GetPrices handles POST /terminal/quotes: one session-resolved price per
// ticker. Unresolvable tickers are omitted from the map.
func (h *QuoteHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	prices, err := h.service.Prices(r.Context(), req.symbols())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "prices served",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Int("requested", len(req.symbols())),
		slog.Int("resolved", len(prices)))
	render.JSON(w, r, prices)
}

// GetQuotes handles POST /quotes: the full sparse quote surface keyed by
// symbol.
func (h *QuoteHandler) GetQuotes(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	symbols := req.symbols()
	if len(symbols) == 0 {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("symbols", "symbols or tickers required"))
		return
	}

	quotes, err := h.service.Quotes(r.Context(), symbols)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	bySymbol := make(map[string]any, len(quotes))
	for _, q := range quotes {
		bySymbol[q.Symbol] = q
	}
	render.JSON(w, r, map[string]any{
		"quotes": bySymbol,
		"errors": []string{},
	})
}
