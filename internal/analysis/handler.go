package analysis

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

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

func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.store.Patients())
}

func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid patient ID", http.StatusBadRequest)
		return
	}
	p, ok := h.store.Patient(id)
	if !ok {
		http.Error(w, "Patient not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"patient":   p,
		"analyzing": h.svc.Analyzing(id),
	})
}

func (h *Handler) AnalyzePatient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid patient ID", http.StatusBadRequest)
		return
	}

	p, err := h.svc.Analyze(r.Context(), id)
	switch {
	case errors.Is(err, ErrPatientNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, ErrAnalysisInFlight):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	status := http.StatusOK
	resp := map[string]any{"patient": p}
	if err != nil {
		status = http.StatusBadGateway
		resp["error"] = "Analysis failed. Please try again."
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) AnalyzeAll(w http.ResponseWriter, r *http.Request) {
	patients, failures := h.svc.AnalyzeAll(r.Context())
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"patients": patients,
		"failures": failures,
	})
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/patients", h.ListPatients)
	r.Post("/patients/analyze", h.AnalyzeAll)
	r.Get("/patients/{id}", h.GetPatient)
	r.Post("/patients/{id}/analyze", h.AnalyzePatient)
}
