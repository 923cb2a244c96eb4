package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-steps-nosql/internal/application/submission"
	"github.com/go-steps-nosql/internal/domain"
	"github.com/go-steps-nosql/internal/pkg/reqlog"
	"github.com/go-steps-nosql/internal/transport/http/middleware"
)

// maxBodyBytes bounds the submission payload.
const maxBodyBytes = 1 << 10

// StepsHandler handles daily step submissions.
type StepsHandler struct {
	svc submission.Service
}

func NewStepsHandler(svc submission.Service) *StepsHandler { return &StepsHandler{svc: svc} }

func (h *StepsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		reqlog.From(r.Context()).Info("submission without user identity")
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.SubmitStepsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		reqlog.From(r.Context()).Info("could not parse body", "user_id", userID, "err", err)
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	e, err := h.svc.Submit(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}
