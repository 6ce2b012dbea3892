package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/tms/internal/service/errs"
)

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// JSON writes v with status.
func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "Error sending response", "error", err)
	}
}

// Error maps a service error to its HTTP status: 400 for validation, 404 for not found, 500 otherwise.
// Internal causes are logged, never sent.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := errs.As(err)
	if !ok {
		e = errs.Internal("INTERNAL", err)
	}

	status := http.StatusInternalServerError
	switch e.Kind {
	case errs.KindValidation:
		status = http.StatusBadRequest
	case errs.KindNotFound:
		status = http.StatusNotFound
	default:
		slog.ErrorContext(r.Context(), "Request failed", "code", e.Code, "error", err)
	}

	JSON(w, r, status, map[string]errorBody{
		"error": {Code: e.Code, Message: e.Message, Fields: e.Fields},
	})
}
