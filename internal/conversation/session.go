package conversation

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"aps-assistant/internal/agent"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

var (
	ErrEmptyInput         = errors.New("message is empty")
	ErrSubmissionInFlight = errors.New("a reply is still being generated")
)

// Session owns one conversation. At most one submission is in flight at a
// time; its consumer goroutine is the only writer of the placeholder.
type Session struct {
	ID uuid.UUID

	gateway agent.Gateway
	log     zerolog.Logger

	mu       sync.Mutex
	messages []ChatMessage
	state    State
	errored  bool
	thinking bool
	input    string
	nextID   int
	settled  chan struct{}
}

func NewSession(id uuid.UUID, gateway agent.Gateway, log zerolog.Logger) *Session {
	settled := make(chan struct{})
	close(settled)
	return &Session{
		ID:      id,
		gateway: gateway,
		log:     log.With().Str("session_id", id.String()).Logger(),
		state:   StateIdle,
		settled: settled,
	}
}

// Submission is what an accepted Submit hands back to the caller.
type Submission struct {
	UserMessage ChatMessage
	Placeholder ChatMessage
	// Events is closed once the placeholder is sealed. Callers must drain it.
	Events <-chan Event
}

// Submit starts a new turn with the given text. The reply is consumed on a
// context detached from ctx's cancellation, so it always runs to a sealed
// message.
func (s *Session) Submit(ctx context.Context, text string) (Submission, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Submission{}, ErrEmptyInput
	}

	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return Submission{}, ErrSubmissionInFlight
	}

	// A reply that finished without text must not become an empty turn.
	prior := lo.Filter(s.messages, func(m ChatMessage, _ int) bool {
		return m.Text != ""
	})
	history := lo.Map(prior, func(m ChatMessage, _ int) agent.Turn {
		role := agent.RoleUser
		if m.Role == RoleModel {
			role = agent.RoleModel
		}
		return agent.Turn{Role: role, Text: m.Text}
	})

	thinking := s.thinking
	user := ChatMessage{ID: s.newID(), Role: RoleUser, Text: text, Thinking: thinking, Sealed: true}
	placeholder := ChatMessage{ID: s.newID(), Role: RoleModel, Thinking: thinking}
	s.messages = append(s.messages, user, placeholder)
	s.input = ""
	s.state = StateAwaitingResponse
	s.errored = false
	settled := make(chan struct{})
	s.settled = settled
	s.mu.Unlock()

	events := make(chan Event)
	go s.consume(context.WithoutCancel(ctx), history, text, thinking, placeholder.ID, events, settled)

	return Submission{UserMessage: user, Placeholder: placeholder, Events: events}, nil
}

func (s *Session) consume(ctx context.Context, history []agent.Turn, text string, thinking bool, id string, out chan<- Event, settled chan struct{}) {
	defer close(settled)
	defer close(out)

	stream, err := s.gateway.StreamChat(ctx, history, text, thinking)
	if err != nil {
		s.fail(id, err, out)
		return
	}
	s.setState(StateStreaming)

	for f := range stream {
		if f.Err != nil {
			go func() {
				for range stream {
				}
			}()
			s.fail(id, f.Err, out)
			return
		}
		if f.Text == "" {
			continue
		}
		s.appendText(id, f.Text)
		out <- Event{Type: EventDelta, MessageID: id, Text: f.Text}
	}

	final := s.seal(id)
	s.log.Debug().Str("message_id", id).Int("chars", len(final)).Msg("reply complete")
	out <- Event{Type: EventDone, MessageID: id, Text: final}
}

func (s *Session) appendText(id, delta string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 && !s.messages[i].Sealed {
		s.messages[i].Text += delta
	}
}

func (s *Session) seal(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var text string
	if i := s.indexOf(id); i >= 0 {
		s.messages[i].Sealed = true
		text = s.messages[i].Text
	}
	s.state = StateIdle
	return text
}

// fail discards any partial reply in favour of ErrorNotice.
func (s *Session) fail(id string, err error, out chan<- Event) {
	s.log.Error().Err(err).Str("message_id", id).Msg("chat stream failed")

	s.mu.Lock()
	if i := s.indexOf(id); i >= 0 {
		s.messages[i].Text = ErrorNotice
		s.messages[i].Sealed = true
	}
	s.errored = true
	s.state = StateIdle
	s.mu.Unlock()

	out <- Event{Type: EventError, MessageID: id, Text: ErrorNotice}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) indexOf(id string) int {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) newID() string {
	s.nextID++
	return strconv.Itoa(s.nextID)
}

// Wait blocks until the current submission, if any, has settled.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	settled := s.settled
	s.mu.Unlock()
	select {
	case <-settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetThinking applies to the next submission only.
func (s *Session) SetThinking(on bool) {
	s.mu.Lock()
	s.thinking = on
	s.mu.Unlock()
}

func (s *Session) Thinking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thinking
}

// SetInput stores the unsent draft. An accepted submission clears it.
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	s.input = text
	s.mu.Unlock()
}

func (s *Session) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Errored reports whether the most recent submission ended in failure.
func (s *Session) Errored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errored
}

func (s *Session) Messages() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}
