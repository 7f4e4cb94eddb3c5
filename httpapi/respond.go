package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/snapzy-app/snapzy"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeEngineError maps the engine's sentinel errors onto HTTP statuses.
// Unrecognized errors become an opaque 500 so internals never leak.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, snapzy.ErrInvalidEmail),
		errors.Is(err, snapzy.ErrInvalidOTP),
		errors.Is(err, snapzy.ErrAlreadyVerified),
		errors.Is(err, snapzy.ErrAlreadyRegistered),
		errors.Is(err, snapzy.ErrRegistrationInvalid),
		errors.Is(err, snapzy.ErrWeakPassword),
		errors.Is(err, snapzy.ErrDuplicateEmail),
		errors.Is(err, snapzy.ErrDuplicateUsername),
		errors.Is(err, snapzy.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, snapzy.ErrNotVerified):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, snapzy.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, snapzy.ErrOTPRequestInFlight):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, snapzy.ErrNotificationFailed):
		writeError(w, http.StatusInternalServerError, snapzy.ErrNotificationFailed.Error())
	default:
		h.log.Error("internal error", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
