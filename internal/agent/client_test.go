package agent

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"aps-assistant/internal/clinical"
)

type recordedRequest struct {
	Path string
	Body string
}

// newFakeGemini serves canned Gemini API responses and records requests.
func newFakeGemini(t *testing.T, reply string) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recordedRequest{Path: r.URL.Path, Body: string(body)})
		mu.Unlock()

		text, _ := json.Marshal(reply)
		resp := fmt.Sprintf(`{"candidates":[{"content":{"role":"model","parts":[{"text":%s}]}}]}`, text)
		if strings.HasSuffix(r.URL.Path, ":streamGenerateContent") {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprintf(w, "data: %s\n\n", resp)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(resp))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), reqs...)
	}
}

func newTestGateway(t *testing.T, baseURL string) Gateway {
	t.Helper()
	gw, err := NewGeminiGateway(t.Context(), Config{
		APIKey:         "test-key",
		ChatModel:      "chat-model",
		ThinkingModel:  "thinking-model",
		ThinkingBudget: 1024,
		TriageModel:    "triage-model",
		AnalysisModel:  "analysis-model",
		BaseURL:        baseURL,
	})
	if err != nil {
		t.Fatal(err)
	}
	return gw
}

func collect(t *testing.T, ch <-chan Fragment) string {
	t.Helper()
	var b strings.Builder
	for f := range ch {
		if f.Err != nil {
			t.Fatalf("stream error: %v", f.Err)
		}
		b.WriteString(f.Text)
	}
	return b.String()
}

func TestStreamChat_SelectsModel(t *testing.T) {
	tests := []struct {
		name         string
		thinking     bool
		wantModel    string
		wantThinking bool
	}{
		{"standard", false, "chat-model", false},
		{"thinking", true, "thinking-model", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, requests := newFakeGemini(t, "Consider a ketamine infusion.")
			gw := newTestGateway(t, srv.URL)

			history := []Turn{{Role: RoleUser, Text: "Patient 102?"}, {Role: RoleModel, Text: "Pain rising."}}
			ch, err := gw.StreamChat(t.Context(), history, "What next?", tt.thinking)
			if err != nil {
				t.Fatal(err)
			}
			if got := collect(t, ch); got != "Consider a ketamine infusion." {
				t.Fatalf("unexpected reply %q", got)
			}

			reqs := requests()
			if len(reqs) != 1 {
				t.Fatalf("expected one request, got %d", len(reqs))
			}
			if want := "/models/" + tt.wantModel + ":streamGenerateContent"; !strings.HasSuffix(reqs[0].Path, want) {
				t.Errorf("path %q, want suffix %q", reqs[0].Path, want)
			}
			hasBudget := strings.Contains(reqs[0].Body, `"thinkingBudget":1024`)
			if hasBudget != tt.wantThinking {
				t.Errorf("thinking budget in body = %v, want %v: %s", hasBudget, tt.wantThinking, reqs[0].Body)
			}
			for _, text := range []string{"Patient 102?", "Pain rising.", "What next?"} {
				if strings.Count(reqs[0].Body, text) != 1 {
					t.Errorf("expected %q exactly once in body: %s", text, reqs[0].Body)
				}
			}
		})
	}
}

func TestClassifyTriage_UsesJSONMode(t *testing.T) {
	srv, requests := newFakeGemini(t, `[{"id": 1, "urgency": "High", "rationale": "Oversedation risk."}]`)
	gw := newTestGateway(t, srv.URL)

	got, err := gw.ClassifyTriage(t.Context(), requested)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != 1 || got[0].Urgency != clinical.UrgencyHigh {
		t.Fatalf("unexpected results: %+v", got)
	}

	req := requests()[0]
	if !strings.HasSuffix(req.Path, "/models/triage-model:generateContent") {
		t.Errorf("unexpected path %q", req.Path)
	}
	if !strings.Contains(req.Body, `"responseMimeType":"application/json"`) {
		t.Errorf("JSON response mode not requested: %s", req.Body)
	}
}

func TestClassifyPatient_UsesAnalysisModel(t *testing.T) {
	srv, requests := newFakeGemini(t, `{"recommendation": "Add a TAP block.", "reboundPainRisk": "Medium"}`)
	gw := newTestGateway(t, srv.URL)

	got, err := gw.ClassifyPatient(t.Context(), clinical.Patient{ID: 102, Name: "Jane Smith"})
	if err != nil {
		t.Fatal(err)
	}
	if got.ReboundPainRisk != clinical.RiskMedium {
		t.Fatalf("unexpected analysis: %+v", got)
	}
	if path := requests()[0].Path; !strings.HasSuffix(path, "/models/analysis-model:generateContent") {
		t.Errorf("unexpected path %q", path)
	}
}
