package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-steps-nosql/internal/domain"
	"github.com/go-steps-nosql/internal/pkg/reqlog"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// SnapshotEnvelope wraps a published total and where it was written.
type SnapshotEnvelope struct {
	Total    *domain.Total `json:"total"`
	Location string        `json:"location"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg, RequestID: reqlog.RequestID(r.Context())})
}

// writeServiceError maps a service error onto a status code. Storage and
// unexpected failures are logged in full and reported generically.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := reqlog.From(r.Context())
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		log.Info("invalid request", "err", err)
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrAlreadySubmittedToday):
		log.Info("submission rejected", "err", err)
		writeError(w, r, http.StatusConflict, domain.ErrAlreadySubmittedToday.Error())
	case errors.Is(err, domain.ErrNotSupported):
		log.Info("operation not enabled", "err", err)
		writeError(w, r, http.StatusNotImplemented, err.Error())
	default:
		log.Error("request failed", "err", err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
