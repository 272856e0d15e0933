package agent

import (
	"context"
	"fmt"

	"aps-assistant/internal/clinical"

	"google.golang.org/genai"
)

// Role of a chat turn as understood by the provider.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one prior message of a conversation.
type Turn struct {
	Role Role
	Text string
}

// Fragment is one element of a streamed reply. A fragment carrying Err is
// always the last one sent before the channel is closed.
type Fragment struct {
	Text string
	Err  error
}

type TriageRequest struct {
	ID     int    `json:"id"`
	Reason string `json:"reason"`
}

type TriageResult struct {
	ID        int
	Urgency   clinical.Urgency
	Rationale string
}

type PatientAnalysis struct {
	Recommendation  string
	ReboundPainRisk clinical.Risk
}

// Gateway is the only way the rest of the service talks to the LLM.
// Every call is a single attempt; retry policy is left to callers.
type Gateway interface {
	// StreamChat sends message after history (which must not contain it) and
	// returns the reply as a channel of non-empty text deltas.
	StreamChat(ctx context.Context, history []Turn, message string, thinking bool) (<-chan Fragment, error)
	// ClassifyTriage returns urgency judgements for some or all of the requests.
	ClassifyTriage(ctx context.Context, consults []TriageRequest) ([]TriageResult, error)
	ClassifyPatient(ctx context.Context, patient clinical.Patient) (PatientAnalysis, error)
}

const (
	DefaultChatModel      = "gemini-2.5-flash"
	DefaultThinkingModel  = "gemini-2.5-pro"
	DefaultTriageModel    = "gemini-2.5-flash"
	DefaultAnalysisModel  = "gemini-2.5-pro"
	DefaultThinkingBudget = 32768
)

type Config struct {
	APIKey         string
	ChatModel      string
	ThinkingModel  string
	ThinkingBudget int32
	TriageModel    string
	AnalysisModel  string
	// BaseURL overrides the Gemini API endpoint. Empty uses the SDK default.
	BaseURL string
}

type geminiClient struct {
	client *genai.Client
	cfg    Config
}

// NewGeminiGateway builds a Gateway backed by the Gemini API.
func NewGeminiGateway(ctx context.Context, cfg Config) (Gateway, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidConfiguration)
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.ThinkingModel == "" {
		cfg.ThinkingModel = DefaultThinkingModel
	}
	if cfg.ThinkingBudget == 0 {
		cfg.ThinkingBudget = DefaultThinkingBudget
	}
	if cfg.TriageModel == "" {
		cfg.TriageModel = DefaultTriageModel
	}
	if cfg.AnalysisModel == "" {
		cfg.AnalysisModel = DefaultAnalysisModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	return &geminiClient{client: client, cfg: cfg}, nil
}

func (c *geminiClient) StreamChat(ctx context.Context, history []Turn, message string, thinking bool) (<-chan Fragment, error) {
	model := c.cfg.ChatModel
	var config *genai.GenerateContentConfig
	if thinking {
		model = c.cfg.ThinkingModel
		config = &genai.GenerateContentConfig{
			ThinkingConfig: &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(c.cfg.ThinkingBudget)},
		}
	}

	chat, err := c.client.Chats.Create(ctx, model, config, toContents(history))
	if err != nil {
		return nil, fmt.Errorf("%w: create chat: %v", ErrAPICallFailed, err)
	}

	out := make(chan Fragment)
	go func() {
		defer close(out)
		send := func(f Fragment) bool {
			select {
			case out <- f:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for resp, err := range chat.SendMessageStream(ctx, genai.Part{Text: message}) {
			if err != nil {
				send(Fragment{Err: fmt.Errorf("%w: %v", ErrAPICallFailed, err)})
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			if !send(Fragment{Text: text}) {
				return
			}
		}
	}()
	return out, nil
}

func (c *geminiClient) ClassifyTriage(ctx context.Context, consults []TriageRequest) ([]TriageResult, error) {
	prompt, err := triagePrompt(consults)
	if err != nil {
		return nil, err
	}
	payload, err := c.generateJSON(ctx, c.cfg.TriageModel, prompt, triageSchema)
	if err != nil {
		return nil, err
	}
	return decodeTriage(payload, consults)
}

func (c *geminiClient) ClassifyPatient(ctx context.Context, patient clinical.Patient) (PatientAnalysis, error) {
	prompt, err := analysisPrompt(patient)
	if err != nil {
		return PatientAnalysis{}, err
	}
	payload, err := c.generateJSON(ctx, c.cfg.AnalysisModel, prompt, analysisSchema)
	if err != nil {
		return PatientAnalysis{}, err
	}
	return decodeAnalysis(payload)
}

func (c *geminiClient) generateJSON(ctx context.Context, model, prompt string, schema *genai.Schema) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}
	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func toContents(history []Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, t := range history {
		role := genai.RoleUser
		if t.Role == RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, genai.Role(role)))
	}
	return contents
}
