package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"hvxhost/internal/kernel"
	"hvxhost/internal/manager"
	"hvxhost/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// statusFor maps manager and kernel errors to HTTP status codes.
func statusFor(err error) int {
	var he HTTPError
	switch {
	case errors.As(err, &he):
		return he.StatusCode()
	case manager.IsInvalidRequest(err):
		return http.StatusBadRequest
	case manager.IsModuleNotFound(err), manager.IsImageNotFound(err), manager.IsSymbolNotFound(err):
		return http.StatusNotFound
	case manager.IsAlreadyLoaded(err):
		return http.StatusConflict
	case manager.IsTooBusy(err):
		return http.StatusTooManyRequests
	case manager.IsDraining(err), errors.Is(err, manager.ErrClosed), kernel.IsPowerError(err):
		return http.StatusServiceUnavailable
	case kernel.IsLoadError(err), kernel.IsInitError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
