package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "databridge/internal/errors"
)

// ExportHandler serves export file listing and processing.
type ExportHandler struct {
	service      ExportProcessor
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewExportHandler creates a new export handler.
func NewExportHandler(service ExportProcessor, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ExportHandler {
	return &ExportHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "exports")),
		errorHandler: errorHandler,
	}
}

// Routes returns the export routes.
func (h *ExportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/list", h.List)
	r.Post("/process", h.ProcessAll)
	r.Post("/process/{name}", h.ProcessOne)
	return r
}

// List handles GET /exports/list.
func (h *ExportHandler) List(w http.ResponseWriter, r *http.Request) {
	files, err := h.service.List(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusNotFound,
			"EXPORT_DIR_UNAVAILABLE",
			"Export directory is not readable",
			err.Error(),
		))
		return
	}
	render.JSON(w, r, map[string]any{"files": files})
}

// ProcessAll handles POST /exports/process: ingest every recognized file.
func (h *ExportHandler) ProcessAll(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.ProcessAll(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusNotFound,
			"EXPORT_DIR_UNAVAILABLE",
			"Export directory is not readable",
			err.Error(),
		))
		return
	}

	inserted := 0
	allErrors := []string{}
	for _, res := range results {
		inserted += res.Inserted
		allErrors = append(allErrors, res.Errors...)
	}

	h.logger.InfoContext(r.Context(), "exports processed",
		slog.Int("files", len(results)),
		slog.Int("inserted", inserted),
		slog.Int("errors", len(allErrors)))
	render.JSON(w, r, map[string]any{
		"inserted":        inserted,
		"errors":          allErrors,
		"files_processed": results,
	})
}

// ProcessOne handles POST /exports/process/{name}.
func (h *ExportHandler) ProcessOne(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("name", "Export file name is required"))
		return
	}

	result, err := h.service.Process(r.Context(), name)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			h.errorHandler.HandleError(w, r, apierrors.NotFoundError("export "+name))
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}
