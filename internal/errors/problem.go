package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"databridge/internal/terminal"
)

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// Additional fields for extensibility
	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON custom marshaler to include extensions
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{})

	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status

	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}

	for k, v := range pd.Extensions {
		data[k] = v
	}

	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// MapTerminalError maps a terminal gateway failure to HTTP problem details.
// Each FetchError kind carries a different status so callers can distinguish
// a dead terminal from a rejected ticker.
func MapTerminalError(err error, traceID string) render.Renderer {
	instance := fmt.Sprintf("/api/terminal#trace-%s", traceID)

	var fe *terminal.FetchError
	if !errors.As(err, &fe) {
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeInternal,
			"Internal Server Error",
			err.Error(),
			instance,
		).WithExtension("trace_id", traceID)
	}

	problem := func(status int, problemType, title, detail string) *ProblemDetails {
		pd := NewProblemDetails(status, problemType, title, detail, instance).
			WithExtension("trace_id", traceID).
			WithExtension("error_kind", string(fe.Kind))
		if fe.Security != "" {
			pd.WithExtension("security", fe.Security)
		}
		return pd
	}

	switch fe.Kind {
	case terminal.KindUnavailable:
		return problem(
			http.StatusServiceUnavailable,
			TypeTerminalDown,
			"Terminal Unavailable",
			"The terminal gateway could not be reached. Ensure the terminal is running and logged in.",
		)
	case terminal.KindTimeout:
		return problem(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Terminal Timeout",
			"The terminal gateway did not answer in time.",
		)
	case terminal.KindSecurity:
		return problem(
			http.StatusUnprocessableEntity,
			TypeSecurityRejected,
			"Security Rejected",
			fe.Error(),
		)
	default:
		return problem(
			http.StatusBadGateway,
			TypeDecodeFailed,
			"Terminal Response Invalid",
			fe.Error(),
		)
	}
}
