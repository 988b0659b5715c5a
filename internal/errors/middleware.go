package errors

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"databridge/internal/infrastructure"
)

// maxCapturedBody bounds how much of a request body is retained for
// error logging.
const maxCapturedBody = 1 << 20

// ErrorMiddleware logs every request at a level scaled to its outcome and
// converts panics into RFC 7807 responses through the shared ErrorHandler.
// Failed requests get their (sanitized) body attached to the log record.
type ErrorMiddleware struct {
	handler *ErrorHandler
	logger  *slog.Logger
}

// NewErrorMiddleware creates the middleware around the given handler.
func NewErrorMiddleware(handler *ErrorHandler, logger *slog.Logger) *ErrorMiddleware {
	return &ErrorMiddleware{
		handler: handler,
		logger:  logger.With(slog.String("component", "error_middleware")),
	}
}

// Handler returns the middleware handler function.
func (m *ErrorMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		var body []byte
		if r.Body != nil && r.ContentLength > 0 && r.ContentLength < maxCapturedBody {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		start := time.Now()

		defer func() {
			if rvr := recover(); rvr != nil {
				m.handler.HandlePanic(ww, r, rvr)
			}
			m.log(r, ww.Status(), ww.BytesWritten(), time.Since(start), body)
		}()

		next.ServeHTTP(ww, r)
	})
}

func (m *ErrorMiddleware) log(r *http.Request, status, bytesWritten int, duration time.Duration, body []byte) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}

	traceID := infrastructure.GetTraceID(r.Context())

	attrs := []slog.Attr{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.Duration("duration", duration),
		slog.Int("bytes", bytesWritten),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("user_agent", r.UserAgent()),
		slog.String("trace_id", traceID),
	}
	if r.URL.RawQuery != "" {
		attrs = append(attrs, slog.String("query", r.URL.RawQuery))
	}
	if status >= 400 && len(body) > 0 {
		captured := sanitizeRequestBody(string(body))
		if len(captured) > 500 {
			captured = captured[:500] + "..."
		}
		attrs = append(attrs, slog.String("request_body", captured))
	}

	m.logger.LogAttrs(r.Context(), level, "http request", attrs...)
}

// sanitizeRequestBody redacts credential-bearing fields before a request
// body lands in a log record. Non-JSON bodies pass through unchanged.
func sanitizeRequestBody(body string) string {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		return body
	}

	for _, field := range []string{
		"password", "token", "secret", "api_key", "apiKey",
		"apikey", "key", "auth_key", "authKey",
	} {
		if _, exists := data[field]; exists {
			data[field] = "[REDACTED]"
		}
	}

	sanitized, _ := json.Marshal(data)
	return string(sanitized)
}
