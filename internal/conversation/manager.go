package conversation

import (
	"errors"
	"sync"

	"aps-assistant/internal/agent"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrSessionNotFound = errors.New("chat session not found")

// Manager keeps the live sessions in memory. Nothing outlives the process.
type Manager struct {
	gateway agent.Gateway
	log     zerolog.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewManager(gateway agent.Gateway, log zerolog.Logger) *Manager {
	return &Manager{
		gateway:  gateway,
		log:      log,
		sessions: make(map[uuid.UUID]*Session),
	}
}

func (m *Manager) Create() *Session {
	s := NewSession(uuid.New(), m.gateway, m.log)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete forgets a session. An in-flight reply still runs to completion.
func (m *Manager) Delete(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
