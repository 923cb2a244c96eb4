package handler

import (
	"errors"
	"net/http"

	"github.com/go-steps-nosql/internal/application/aggregate"
	"github.com/go-steps-nosql/internal/domain"
)

// TotalsHandler serves the aggregate step total.
type TotalsHandler struct {
	svc aggregate.Service
}

func NewTotalsHandler(svc aggregate.Service) *TotalsHandler { return &TotalsHandler{svc: svc} }

// Get computes the total with a full scan of every entry.
func (h *TotalsHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.Aggregate(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Running returns the counter maintained by guarded writes.
func (h *TotalsHandler) Running(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.Running(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Snapshot aggregates and exports the result to object storage.
func (h *TotalsHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	t, location, err := h.svc.Publish(r.Context())
	if errors.Is(err, domain.ErrNotSupported) {
		writeError(w, r, http.StatusServiceUnavailable, "snapshot export is not configured")
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SnapshotEnvelope{Total: t, Location: location})
}
