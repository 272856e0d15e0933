package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"aps-assistant/internal/clinical"
	"aps-assistant/internal/triage"

	"github.com/rs/zerolog"
	"github.com/signintech/gopdf"
)

// DefaultFontPaths are the usual DejaVuSans locations on Debian and Alpine.
var DefaultFontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

var (
	ErrNotConfigured = errors.New("team chat is not configured")
	ErrNoFont        = errors.New("no usable font for PDF")
)

// Sender delivers messages to the pain team chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, data []byte, fileName string) error
}

// Snapshot is the ward state a report is drawn from.
type Snapshot struct {
	Consults    []clinical.Consult
	Patients    []clinical.Patient
	GeneratedAt time.Time
}

type Service struct {
	sender    Sender
	chatID    int64
	fontPaths []string
	log       zerolog.Logger
}

// NewService builds the report service. sender may be nil, in which case
// rendering still works but nothing can be delivered.
func NewService(sender Sender, chatID int64, fontPaths []string, log zerolog.Logger) *Service {
	if len(fontPaths) == 0 {
		fontPaths = DefaultFontPaths
	}
	return &Service{
		sender:    sender,
		chatID:    chatID,
		fontPaths: fontPaths,
		log:       log,
	}
}

func (s *Service) Enabled() bool {
	return s.sender != nil && s.chatID != 0
}

const (
	pageBottom = 800
	textWidth  = 500
)

// Render draws the handoff report as an A4 PDF.
func (s *Service) Render(snap Snapshot) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.SetMargins(45, 45, 45, 45)
	pdf.AddPage()

	var fontErr error
	fontLoaded := false
	for _, path := range s.fontPaths {
		if err := pdf.AddTTFFont("DejaVu", path); err == nil {
			fontLoaded = true
			break
		} else {
			fontErr = err
		}
	}
	if !fontLoaded {
		return nil, fmt.Errorf("%w: last error: %v", ErrNoFont, fontErr)
	}

	for _, l := range Lines(snap) {
		if err := pdf.SetFont("DejaVu", "", l.Size); err != nil {
			return nil, err
		}
		if l.Gap > 0 {
			pdf.Br(l.Gap)
		}
		wrapped, err := pdf.SplitText(l.Text, textWidth)
		if err != nil {
			wrapped = []string{l.Text}
		}
		for _, w := range wrapped {
			if pdf.GetY() > pageBottom {
				pdf.AddPage()
			}
			if err := pdf.Cell(nil, w); err != nil {
				return nil, err
			}
			pdf.Br(l.Size * 1.3)
		}
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// Send renders the report and posts it to the team chat.
func (s *Service) Send(ctx context.Context, snap Snapshot) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}
	data, err := s.Render(snap)
	if err != nil {
		return err
	}

	fileName := fmt.Sprintf("aps_handoff_%s.pdf", snap.GeneratedAt.Format("20060102_1504"))
	if err := s.sender.SendDocument(ctx, s.chatID, data, fileName); err != nil {
		s.log.Error().Err(err).Msg("handoff report delivery failed")
		return err
	}
	s.log.Info().Str("file", fileName).Int("bytes", len(data)).Msg("handoff report sent")
	return nil
}

// AlertHighUrgency tells the team chat about consults that were just
// triaged High.
func (s *Service) AlertHighUrgency(ctx context.Context, consults []clinical.Consult) error {
	if len(consults) == 0 {
		return nil
	}
	if !s.Enabled() {
		return ErrNotConfigured
	}
	return s.sender.SendMessage(ctx, s.chatID, AlertText(consults))
}

func AlertText(consults []clinical.Consult) string {
	var b strings.Builder
	b.WriteString("High urgency APS consults:")
	for _, c := range consults {
		fmt.Fprintf(&b, "\n- %s (#%d), %s: %s", c.PatientName, c.PatientID, c.Time, c.Reason)
		if c.AIRationale != "" {
			fmt.Fprintf(&b, "\n  %s", c.AIRationale)
		}
	}
	return b.String()
}

// Line is one logical line of the report before wrapping.
type Line struct {
	Text string
	Size float64
	Gap  float64
}

// Lines lays out the report: consults in display order, then patients with
// their latest vitals and any analysis.
func Lines(snap Snapshot) []Line {
	lines := []Line{
		{Text: "APS Handoff Report", Size: 20},
		{Text: "Generated: " + snap.GeneratedAt.Format("02 Jan 2006 15:04"), Size: 10, Gap: 4},
		{Text: "Consults", Size: 14, Gap: 14},
	}

	consults := triage.SortForDisplay(snap.Consults)
	if len(consults) == 0 {
		lines = append(lines, Line{Text: "No open consults.", Size: 11})
	}
	for _, c := range consults {
		lines = append(lines, Line{
			Text: fmt.Sprintf("[%s] %s (#%d), %s: %s", c.Urgency, c.PatientName, c.PatientID, c.Time, c.Reason),
			Size: 11,
			Gap:  4,
		})
		if c.AIRationale != "" {
			lines = append(lines, Line{Text: "Rationale: " + c.AIRationale, Size: 10})
		}
	}

	lines = append(lines, Line{Text: "Patients", Size: 14, Gap: 14})
	for _, p := range snap.Patients {
		lines = append(lines, Line{
			Text: fmt.Sprintf("%s, %d, %s (#%d)", p.Name, p.Age, p.Procedure, p.ID),
			Size: 12,
			Gap:  6,
		})
		if v, ok := p.LatestVital(); ok {
			lines = append(lines, Line{
				Text: fmt.Sprintf("Pain trend %s. Latest (%s): pain %d, sedation %d, RR %d", p.PainTrend, v.Time, v.PainScore, v.SedationScore, v.RespiratoryRate),
				Size: 10,
			})
		}
		plan := "Plan: " + p.AnalgesiaPlan
		if p.IsBlockCandidate {
			plan += " (nerve block candidate)"
		}
		lines = append(lines, Line{Text: plan, Size: 10})
		if p.AIRecommendation == "" {
			lines = append(lines, Line{Text: "Not yet analysed.", Size: 10})
			continue
		}
		lines = append(lines,
			Line{Text: "Recommendation: " + p.AIRecommendation, Size: 10},
			Line{Text: fmt.Sprintf("Rebound pain risk: %s", p.ReboundPainRisk), Size: 10},
		)
	}
	return lines
}
