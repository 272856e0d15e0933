package report

import (
	"errors"
	"net/http"
	"time"

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

func (h *Handler) snapshot() Snapshot {
	return Snapshot{
		Consults:    h.store.Consults(),
		Patients:    h.store.Patients(),
		GeneratedAt: time.Now(),
	}
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.Render(h.snapshot())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="aps_handoff.pdf"`)
	w.Write(data)
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Send(r.Context(), h.snapshot())
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, ErrNotConfigured):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, ErrNoFont):
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		http.Error(w, "Failed to send report", http.StatusBadGateway)
	}
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/report", h.Download)
	r.Post("/report/send", h.Send)
}
