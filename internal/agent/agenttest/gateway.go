// Package agenttest provides a scriptable agent.Gateway for tests.
package agenttest

import (
	"context"
	"sync"

	"aps-assistant/internal/agent"
	"aps-assistant/internal/clinical"
)

// Gateway records calls and delegates to the configured funcs. A nil func
// makes the corresponding call return zero values.
type Gateway struct {
	StreamFunc   func(ctx context.Context, history []agent.Turn, message string, thinking bool) (<-chan agent.Fragment, error)
	TriageFunc   func(ctx context.Context, consults []agent.TriageRequest) ([]agent.TriageResult, error)
	AnalysisFunc func(ctx context.Context, patient clinical.Patient) (agent.PatientAnalysis, error)

	mu            sync.Mutex
	StreamCalls   []StreamCall
	TriageCalls   [][]agent.TriageRequest
	AnalysisCalls []int
}

type StreamCall struct {
	History  []agent.Turn
	Message  string
	Thinking bool
}

func (g *Gateway) StreamChat(ctx context.Context, history []agent.Turn, message string, thinking bool) (<-chan agent.Fragment, error) {
	g.mu.Lock()
	g.StreamCalls = append(g.StreamCalls, StreamCall{History: history, Message: message, Thinking: thinking})
	g.mu.Unlock()
	if g.StreamFunc == nil {
		ch := make(chan agent.Fragment)
		close(ch)
		return ch, nil
	}
	return g.StreamFunc(ctx, history, message, thinking)
}

func (g *Gateway) ClassifyTriage(ctx context.Context, consults []agent.TriageRequest) ([]agent.TriageResult, error) {
	g.mu.Lock()
	g.TriageCalls = append(g.TriageCalls, consults)
	g.mu.Unlock()
	if g.TriageFunc == nil {
		return nil, nil
	}
	return g.TriageFunc(ctx, consults)
}

func (g *Gateway) ClassifyPatient(ctx context.Context, patient clinical.Patient) (agent.PatientAnalysis, error) {
	g.mu.Lock()
	g.AnalysisCalls = append(g.AnalysisCalls, patient.ID)
	g.mu.Unlock()
	if g.AnalysisFunc == nil {
		return agent.PatientAnalysis{}, nil
	}
	return g.AnalysisFunc(ctx, patient)
}

func (g *Gateway) StreamCallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.StreamCalls)
}

func (g *Gateway) TriageCallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.TriageCalls)
}

func (g *Gateway) AnalysisCallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.AnalysisCalls)
}

// Fragments returns a closed channel holding the given deltas, optionally
// followed by a terminal error.
func Fragments(err error, texts ...string) <-chan agent.Fragment {
	ch := make(chan agent.Fragment, len(texts)+1)
	for _, t := range texts {
		ch <- agent.Fragment{Text: t}
	}
	if err != nil {
		ch <- agent.Fragment{Err: err}
	}
	close(ch)
	return ch
}
