package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/poyrazK/siteverify/internal/core/domain"
)

// envelope is the response shape shared by every JSON endpoint.
type envelope struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message, Error: &errorBody{Code: code}})
}

// statusFor maps a core error kind onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrExhausted),
		errors.Is(err, domain.ErrExpired),
		errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// writeError renders err. Internal failures are logged and hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	code := domain.CodeOf(err)

	var de *domain.Error
	if status == http.StatusInternalServerError || !errors.As(err, &de) {
		if status == http.StatusInternalServerError {
			LoggerFrom(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
			writeFailure(w, status, "INTERNAL", "internal server error")
			return
		}
		writeFailure(w, status, http.StatusText(status), err.Error())
		return
	}
	if code == "" {
		code = http.StatusText(status)
	}
	resp := envelope{Success: false, Message: de.Message, Error: &errorBody{Code: code, Details: de.Kind.Error()}}
	writeJSON(w, status, resp)
}
