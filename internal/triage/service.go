package triage

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"aps-assistant/internal/agent"
	"aps-assistant/internal/clinical"
	"aps-assistant/internal/dashboard"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

var ErrTriageInFlight = errors.New("triage is already running")

// Alerter is told about consults that triage just classified as High.
type Alerter interface {
	AlertHighUrgency(ctx context.Context, consults []clinical.Consult) error
}

type Service struct {
	gateway agent.Gateway
	store   *dashboard.Store
	alerter Alerter
	timeout time.Duration
	log     zerolog.Logger

	running atomic.Bool
}

// NewService wires the triage workflow. alerter may be nil; a zero timeout
// leaves the gateway call unbounded.
func NewService(gateway agent.Gateway, store *dashboard.Store, alerter Alerter, timeout time.Duration, log zerolog.Logger) *Service {
	return &Service{
		gateway: gateway,
		store:   store,
		alerter: alerter,
		timeout: timeout,
		log:     log,
	}
}

type Outcome struct {
	Skipped   bool               `json:"skipped"`
	Requested int                `json:"requested"`
	Matched   int                `json:"matched"`
	Escalated []clinical.Consult `json:"escalated,omitempty"`
}

// Run triages every consult that is still Unknown. With nothing pending no
// gateway call is made. On failure the consults are left untouched.
func (s *Service) Run(ctx context.Context) (Outcome, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Outcome{}, ErrTriageInFlight
	}
	defer s.running.Store(false)

	pending := Pending(s.store.Consults())
	if len(pending) == 0 {
		s.log.Debug().Msg("no consults pending triage")
		return Outcome{Skipped: true}, nil
	}

	requests := lo.Map(pending, func(c clinical.Consult, _ int) agent.TriageRequest {
		return agent.TriageRequest{ID: c.ID, Reason: c.Reason}
	})

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	results, err := s.gateway.ClassifyTriage(callCtx, requests)
	if err != nil {
		s.log.Error().Err(err).Int("requested", len(requests)).Msg("triage failed")
		return Outcome{Requested: len(requests)}, fmt.Errorf("classify consults: %w", err)
	}

	var merged []clinical.Consult
	s.store.UpdateConsults(func(current []clinical.Consult) []clinical.Consult {
		merged = Merge(current, results)
		return merged
	})

	pendingIDs := lo.SliceToMap(pending, func(c clinical.Consult) (int, struct{}) { return c.ID, struct{}{} })
	resultIDs := lo.SliceToMap(results, func(r agent.TriageResult) (int, struct{}) { return r.ID, struct{}{} })
	escalated := lo.Filter(merged, func(c clinical.Consult, _ int) bool {
		_, wasPending := pendingIDs[c.ID]
		_, matched := resultIDs[c.ID]
		return wasPending && matched && c.Urgency == clinical.UrgencyHigh
	})

	out := Outcome{
		Requested: len(requests),
		Matched:   len(resultIDs),
		Escalated: escalated,
	}
	s.log.Info().
		Int("requested", out.Requested).
		Int("matched", out.Matched).
		Int("escalated", len(escalated)).
		Msg("triage merged")

	if len(escalated) > 0 && s.alerter != nil {
		if err := s.alerter.AlertHighUrgency(ctx, escalated); err != nil {
			s.log.Warn().Err(err).Msg("high urgency alert failed")
		}
	}
	return out, nil
}

// Running reports whether a triage pass is in progress.
func (s *Service) Running() bool {
	return s.running.Load()
}
