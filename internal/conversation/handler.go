package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	sessions *Manager
}

func NewHandler(sessions *Manager) *Handler {
	return &Handler{sessions: sessions}
}

type sessionView struct {
	SessionID string        `json:"session_id"`
	State     State         `json:"state"`
	Thinking  bool          `json:"thinking"`
	Errored   bool          `json:"errored"`
	Messages  []ChatMessage `json:"messages"`
}

type SendMessageRequest struct {
	Text     string `json:"text"`
	Thinking *bool  `json:"thinking,omitempty"`
}

type ThinkingRequest struct {
	Thinking bool `json:"thinking"`
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"session_id": s.ID.String(),
	})
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessionView{
		SessionID: s.ID.String(),
		State:     s.State(),
		Thinking:  s.Thinking(),
		Errored:   s.Errored(),
		Messages:  s.Messages(),
	})
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}
	if err := h.sessions.Delete(id); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetThinking(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req ThinkingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	s.SetThinking(req.Thinking)
	w.WriteHeader(http.StatusNoContent)
}

// SendMessage submits a turn and streams the reply as server-sent events.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// The toggle only matters if it is set before the turn is accepted, and
	// a turn that would be rejected for being empty must not change it.
	if req.Thinking != nil && strings.TrimSpace(req.Text) != "" && s.State() == StateIdle {
		s.SetThinking(*req.Thinking)
	}

	sub, err := s.Submit(r.Context(), req.Text)
	switch {
	case errors.Is(err, ErrEmptyInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, ErrSubmissionInFlight):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, "Submission failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	initData, _ := json.Marshal(map[string]any{
		"type":        EventUserMessage,
		"message":     sub.UserMessage,
		"placeholder": sub.Placeholder,
	})
	fmt.Fprintf(w, "data: %s\n\n", initData)
	flusher.Flush()

	// Keep draining after a client disconnect so the consumer never blocks.
	for event := range sub.Events {
		data, _ := json.Marshal(event)
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return nil, false
	}
	s, err := h.sessions.Get(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return nil, false
	}
	return s, true
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/chat/sessions", h.CreateSession)
	r.Get("/chat/sessions/{id}", h.GetSession)
	r.Delete("/chat/sessions/{id}", h.DeleteSession)
	r.Put("/chat/sessions/{id}/thinking", h.SetThinking)
	r.Post("/chat/sessions/{id}/messages", h.SendMessage)
}
