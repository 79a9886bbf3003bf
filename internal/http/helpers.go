package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"pesso/internal/core"
)

// errorResponse is the body of every declined operation. Reason is
// always human readable.
type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`

	// Populated for insufficient funds declines.
	Available *core.Money `json:"available,omitempty"`
	Attempted *core.Money `json:"attempted,omitempty"`

	// Populated when a withdrawal needs confirmation.
	Warning *goalWarningBody `json:"warning,omitempty"`
}

type goalWarningBody struct {
	EnvelopeID string     `json:"envelopeId"`
	Goal       core.Money `json:"goal"`
	Balance    core.Money `json:"balance"`
	Attempted  core.Money `json:"attempted"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto HTTP statuses and a uniform body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var insufficient *core.InsufficientFundsError
	var warning *core.GoalWarning
	var storage *core.StorageError

	switch {
	case errors.As(err, &warning):
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:  "confirmation_required",
			Reason: warning.Error(),
			Warning: &goalWarningBody{
				EnvelopeID: warning.EnvelopeID,
				Goal:       warning.Goal,
				Balance:    warning.Balance,
				Attempted:  warning.Attempted,
			},
		})
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:     "insufficient_funds",
			Reason:    insufficient.Error(),
			Available: &insufficient.Available,
			Attempted: &insufficient.Attempted,
		})
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error:  "not_found",
			Reason: err.Error(),
		})
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidGoal),
		errors.Is(err, core.ErrSameEnvelope),
		errors.Is(err, core.ErrNotActive),
		errors.Is(err, core.ErrNotRoulette),
		errors.Is(err, core.ErrNoSpinsLeft):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  "invalid_operation",
			Reason: err.Error(),
		})
	case errors.As(err, &storage):
		slog.ErrorContext(r.Context(), "Persistence failed after mutation",
			"op", storage.Op, "error", storage.Err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:  "storage_error",
			Reason: "the change was applied but could not be saved",
		})
	default:
		slog.ErrorContext(r.Context(), "Unhandled error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:  "internal_error",
			Reason: "something went wrong",
		})
	}
}

// decodeJSON reads a JSON request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeBadRequest(w http.ResponseWriter, reason string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:  "bad_request",
		Reason: reason,
	})
}

// parseAmountField parses a user-supplied amount string into Money.
func parseAmountField(s string) (core.Money, error) {
	return core.ParseAmount(strings.TrimSpace(s))
}
