package report

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"aps-assistant/internal/clinical"
	"aps-assistant/internal/dashboard"
	"aps-assistant/internal/seed"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type fakeSender struct {
	messages  []string
	documents map[string][]byte
	chatIDs   []int64
	err       error
}

func (f *fakeSender) SendMessage(_ context.Context, chatID int64, text string) error {
	f.chatIDs = append(f.chatIDs, chatID)
	f.messages = append(f.messages, text)
	return f.err
}

func (f *fakeSender) SendDocument(_ context.Context, chatID int64, data []byte, name string) error {
	f.chatIDs = append(f.chatIDs, chatID)
	if f.documents == nil {
		f.documents = make(map[string][]byte)
	}
	f.documents[name] = data
	return f.err
}

func sampleSnapshot() Snapshot {
	ds := seed.Mock()
	ds.Consults[2].Urgency = clinical.UrgencyHigh
	ds.Consults[2].AIRationale = "Hypotension on epidural."
	ds.Consults[0].Urgency = clinical.UrgencyMedium
	ds.Patients[1].AIRecommendation = "Consider TAP block."
	ds.Patients[1].ReboundPainRisk = clinical.RiskHigh
	return Snapshot{
		Consults:    ds.Consults,
		Patients:    ds.Patients,
		GeneratedAt: time.Date(2025, 3, 4, 7, 30, 0, 0, time.UTC),
	}
}

// requireFont skips when the machine has no DejaVu font installed.
func requireFont(t *testing.T) {
	t.Helper()
	for _, p := range DefaultFontPaths {
		if _, err := os.Stat(p); err == nil {
			return
		}
	}
	t.Skip("DejaVuSans.ttf not installed")
}

func TestLines_ConsultsInDisplayOrder(t *testing.T) {
	lines := Lines(sampleSnapshot())

	var consultLines []string
	for _, l := range lines {
		if strings.HasPrefix(l.Text, "[") {
			consultLines = append(consultLines, l.Text)
		}
	}
	want := []string{"[High] Peter Jones", "[Medium] Jane Smith", "[Unknown] John Doe"}
	if len(consultLines) != len(want) {
		t.Fatalf("expected %d consult lines, got %v", len(want), consultLines)
	}
	for i, prefix := range want {
		if !strings.HasPrefix(consultLines[i], prefix) {
			t.Errorf("line %d: expected prefix %q, got %q", i, prefix, consultLines[i])
		}
	}
}

func TestLines_PatientDetails(t *testing.T) {
	text := joinLines(Lines(sampleSnapshot()))

	for _, want := range []string{
		"Generated: 04 Mar 2025 07:30",
		"Rationale: Hypotension on epidural.",
		"Latest (Now): pain 8, sedation 2, RR 14",
		"IV Acetaminophen + PO Oxycodone (nerve block candidate)",
		"Recommendation: Consider TAP block.",
		"Rebound pain risk: High",
		"Not yet analysed.",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestLines_NoConsults(t *testing.T) {
	text := joinLines(Lines(Snapshot{}))
	if !strings.Contains(text, "No open consults.") {
		t.Fatal("empty consult list should be stated")
	}
}

func joinLines(lines []Line) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

func TestRender_NoFont(t *testing.T) {
	svc := NewService(nil, 0, []string{"/nonexistent/font.ttf"}, zerolog.Nop())
	if _, err := svc.Render(sampleSnapshot()); !errors.Is(err, ErrNoFont) {
		t.Fatalf("expected ErrNoFont, got %v", err)
	}
}

func TestRender_PDF(t *testing.T) {
	requireFont(t)
	svc := NewService(nil, 0, nil, zerolog.Nop())

	data, err := svc.Render(sampleSnapshot())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatal("output is not a PDF")
	}
}

func TestSend(t *testing.T) {
	requireFont(t)
	sender := &fakeSender{}
	svc := NewService(sender, 77, nil, zerolog.Nop())

	if err := svc.Send(context.Background(), sampleSnapshot()); err != nil {
		t.Fatal(err)
	}
	data, ok := sender.documents["aps_handoff_20250304_0730.pdf"]
	if !ok || !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("expected a PDF upload, got %v", sender.documents)
	}
	if sender.chatIDs[0] != 77 {
		t.Fatalf("sent to chat %d", sender.chatIDs[0])
	}
}

func TestSend_NotConfigured(t *testing.T) {
	svc := NewService(nil, 77, nil, zerolog.Nop())
	if err := svc.Send(context.Background(), sampleSnapshot()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestAlertHighUrgency(t *testing.T) {
	sender := &fakeSender{}
	svc := NewService(sender, 5, nil, zerolog.Nop())

	consults := []clinical.Consult{{
		ID: 1, PatientID: 102, PatientName: "Jane Smith", Time: "15m ago",
		Reason: "Uncontrolled post-op pain, high sedation.", Urgency: clinical.UrgencyHigh,
		AIRationale: "Oversedation risk with escalating pain.",
	}}
	if err := svc.AlertHighUrgency(context.Background(), consults); err != nil {
		t.Fatal(err)
	}
	if len(sender.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(sender.messages))
	}
	msg := sender.messages[0]
	if !strings.Contains(msg, "Jane Smith (#102)") || !strings.Contains(msg, "Oversedation risk") {
		t.Fatalf("unexpected alert text: %q", msg)
	}

	if err := svc.AlertHighUrgency(context.Background(), nil); err != nil || len(sender.messages) != 1 {
		t.Fatal("empty alert should send nothing")
	}
}

func TestHandler_SendNotConfigured(t *testing.T) {
	ds := seed.Mock()
	store := dashboard.NewStore(ds.Consults, ds.Patients, ds.Team)
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(NewService(nil, 0, nil, zerolog.Nop()), store))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/report/send", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestHandler_Download(t *testing.T) {
	requireFont(t)
	ds := seed.Mock()
	store := dashboard.NewStore(ds.Consults, ds.Patients, ds.Team)
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(NewService(nil, 0, nil, zerolog.Nop()), store))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %q", ct)
	}
}
