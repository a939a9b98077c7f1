package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"chaingate/internal/failure"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// writeFailure renders every failure as a response carrying its message. No
// partial payload is ever written: orchestration is all-or-nothing.
func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *failure.ValidationError
		connErr       *failure.ConnectivityError
		remoteErr     *failure.RemoteCallError
		methodErr     *failure.MethodNotAvailableError
		stepErr       *failure.StepError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.Is(err, failure.ErrNotFound), errors.Is(err, failure.ErrNoObjects):
		status = http.StatusNotFound
	case errors.As(err, &connErr):
		status = http.StatusServiceUnavailable
	case errors.As(err, &methodErr), errors.As(err, &remoteErr):
		status = http.StatusBadGateway
	case errors.As(err, &stepErr):
		status = http.StatusBadGateway
	}

	h.logger.Warn().
		Err(err).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("request failed")
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
