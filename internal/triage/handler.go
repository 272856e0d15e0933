package triage

import (
	"encoding/json"
	"errors"
	"net/http"

	"aps-assistant/internal/dashboard"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc   *Service
	store *dashboard.Store
}

func NewHandler(svc *Service, store *dashboard.Store) *Handler {
	return &Handler{svc: svc, store: store}
}

func (h *Handler) ListConsults(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SortForDisplay(h.store.Consults()))
}

// RunTriage re-triages the pending consults. A failed pass answers 502 with
// the queue unchanged so the caller can simply try again.
func (h *Handler) RunTriage(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.svc.Run(r.Context())
	if errors.Is(err, ErrTriageInFlight) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	status := http.StatusOK
	resp := map[string]any{
		"outcome":  outcome,
		"consults": SortForDisplay(h.store.Consults()),
	}
	if err != nil {
		status = http.StatusBadGateway
		resp["error"] = "Triage failed. Please try again."
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/consults", h.ListConsults)
	r.Post("/consults/triage", h.RunTriage)
}
