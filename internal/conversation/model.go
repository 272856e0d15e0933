package conversation

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ErrorNotice replaces a model reply whose stream failed.
const ErrorNotice = "Sorry, I encountered an error. Please try again."

// ChatMessage is one bubble of the conversation. A model message starts
// empty, grows only while its stream is active and is sealed afterwards.
type ChatMessage struct {
	ID       string `json:"id"`
	Role     Role   `json:"role"`
	Text     string `json:"text"`
	Thinking bool   `json:"thinking"`
	Sealed   bool   `json:"sealed"`
}

// State of a session's submission cycle.
type State string

const (
	StateIdle             State = "idle"
	StateAwaitingResponse State = "awaiting_response"
	StateStreaming        State = "streaming"
)

type EventType string

const (
	EventUserMessage EventType = "user_message"
	EventDelta       EventType = "delta"
	EventDone        EventType = "done"
	EventError       EventType = "error"
)

// Event mirrors progress of a submission to whoever is rendering it.
type Event struct {
	Type      EventType `json:"type"`
	MessageID string    `json:"message_id"`
	Text      string    `json:"text"`
}
