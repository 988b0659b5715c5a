package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"databridge/internal/dates"
	apierrors "databridge/internal/errors"
	"databridge/internal/fundadmin"
)

// FundHandler passes requests through to the fund-administrator API.
type FundHandler struct {
	client        FundAdminClient
	defaultFundID string
	logger        *slog.Logger
	errorHandler  *apierrors.ErrorHandler
	now           func() time.Time
}

// NewFundHandler creates a new fund handler. defaultFundID is used when a
// request names no fund.
func NewFundHandler(client FundAdminClient, defaultFundID string, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *FundHandler {
	return &FundHandler{
		client:        client,
		defaultFundID: defaultFundID,
		logger:        logger.With(slog.String("handler", "funds")),
		errorHandler:  errorHandler,
		now:           time.Now,
	}
}

// Routes returns the fund routes.
func (h *FundHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Post("/portfolio", h.GetPortfolio)
	r.Get("/portfolio", h.GetPortfolio)
	r.Post("/trades", h.GetTrades)
	r.Get("/trades", h.GetTrades)
	r.Post("/nav-sheet", h.GetNAVSheet)
	r.Get("/details", h.GetDetails)
	return r
}

type fundRequest struct {
	FundID        string `json:"fund_id"`
	Date          string `json:"date"`
	ValuationDate string `json:"valuation_date"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	DateType      string `json:"date_type"`
}

// decodeFundRequest merges body and query parameters, query winning, and
// fills the configured default fund.
func (h *FundHandler) decodeFundRequest(r *http.Request) fundRequest {
	var req fundRequest
	if r.Body != nil && r.ContentLength != 0 {
		render.DecodeJSON(r.Body, &req)
	}
	q := r.URL.Query()
	if v := q.Get("fund_id"); v != "" {
		req.FundID = v
	}
	if v := q.Get("date"); v != "" {
		req.Date = v
	}
	if v := q.Get("valuation_date"); v != "" {
		req.ValuationDate = v
	}
	if v := q.Get("start_date"); v != "" {
		req.StartDate = v
	}
	if v := q.Get("end_date"); v != "" {
		req.EndDate = v
	}
	if req.FundID == "" {
		req.FundID = h.defaultFundID
	}
	return req
}

func (h *FundHandler) valuationDate(req fundRequest) string {
	raw := req.ValuationDate
	if raw == "" {
		raw = req.Date
	}
	if raw == "" {
		return h.now().Format(dates.ISO)
	}
	if normalized, ok := dates.Normalize(raw); ok {
		return normalized
	}
	return raw
}

// GetPortfolio handles /funds/portfolio: the finalized portfolio for one
// valuation date, defaulting to today.
func (h *FundHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	req := h.decodeFundRequest(r)
	if req.FundID == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("fund_id", "fund_id is required"))
		return
	}

	raw, err := h.client.GetPortfolio(r.Context(), req.FundID, h.valuationDate(req), fundadmin.PortfolioOptions{})
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.FundAdminError(err))
		return
	}
	writeRaw(w, raw)
}

// GetTrades handles /funds/trades. The admin caps the range at one month.
func (h *FundHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	req := h.decodeFundRequest(r)
	if req.FundID == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("fund_id", "fund_id is required"))
		return
	}

	raw, err := h.client.GetPortfolioTrades(r.Context(), req.FundID, req.StartDate, req.EndDate, req.DateType)
	if err != nil {
		if fundadmin.IsValidationError(err) {
			h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusBadRequest,
				"TRADE_RANGE_EXCEEDED",
				"Invalid trade query range",
				err.Error(),
			))
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.FundAdminError(err))
		return
	}
	writeRaw(w, raw)
}

// GetNAVSheet handles POST /funds/nav-sheet.
func (h *FundHandler) GetNAVSheet(w http.ResponseWriter, r *http.Request) {
	req := h.decodeFundRequest(r)
	if req.FundID == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("fund_id", "fund_id is required"))
		return
	}

	raw, err := h.client.GetNAVSheet(r.Context(), req.FundID, h.valuationDate(req))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.FundAdminError(err))
		return
	}
	writeRaw(w, raw)
}

// GetDetails handles GET /funds/details.
func (h *FundHandler) GetDetails(w http.ResponseWriter, r *http.Request) {
	req := h.decodeFundRequest(r)
	if req.FundID == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("fund_id", "fund_id is required"))
		return
	}

	raw, err := h.client.GetFundDetails(r.Context(), req.FundID)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.FundAdminError(err))
		return
	}
	writeRaw(w, raw)
}

// writeRaw forwards the admin's JSON body untouched.
func writeRaw(w http.ResponseWriter, raw []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}
