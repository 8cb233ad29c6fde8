// Package httputil maps domain errors onto HTTP responses.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "hookwarden/pkg/domain-errors"
)

type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a coded domain error as a JSON error response. Internal
// errors hide their message so infrastructure details never leak to callers;
// every other code surfaces the precondition that was violated.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status, wire := statusFor(code)

	body := errorBody{Error: wire}
	if code != dErrors.CodeInternal {
		body.Description = messageOf(err)
	}
	WriteJSON(w, status, body)
}

func statusFor(code dErrors.Code) (int, string) {
	switch code {
	case dErrors.CodeValidation, dErrors.CodeInvalidInput:
		return http.StatusUnprocessableEntity, string(code)
	case dErrors.CodeBadRequest:
		return http.StatusBadRequest, "bad_request"
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized, "unauthorized"
	case dErrors.CodeForbidden:
		return http.StatusForbidden, "forbidden"
	case dErrors.CodeNotFound:
		return http.StatusNotFound, "not_found"
	case dErrors.CodeConflict:
		return http.StatusConflict, "conflict"
	case dErrors.CodeInvariantViolation:
		return http.StatusUnprocessableEntity, string(code)
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func messageOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
