package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"aps-assistant/internal/agent"
	"aps-assistant/internal/clinical"
	"aps-assistant/internal/dashboard"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	ErrPatientNotFound  = errors.New("patient not found")
	ErrAnalysisInFlight = errors.New("analysis already running for this patient")
)

// Service runs per-patient analyses. Different patients may be analysed at
// the same time; a second request for a patient already being analysed is
// rejected rather than queued.
type Service struct {
	gateway     agent.Gateway
	store       *dashboard.Store
	timeout     time.Duration
	concurrency int
	log         zerolog.Logger

	mu       sync.Mutex
	inFlight map[int]struct{}
}

func NewService(gateway agent.Gateway, store *dashboard.Store, timeout time.Duration, concurrency int, log zerolog.Logger) *Service {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Service{
		gateway:     gateway,
		store:       store,
		timeout:     timeout,
		concurrency: concurrency,
		log:         log,
		inFlight:    make(map[int]struct{}),
	}
}

func (s *Service) acquire(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *Service) release(id int) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
}

// Analyzing reports whether an analysis for the patient is in progress.
func (s *Service) Analyzing(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.inFlight[id]
	return busy
}

// Analyze asks the gateway about one patient and merges the answer into the
// store. On failure the patient's AI fields keep their previous values.
func (s *Service) Analyze(ctx context.Context, patientID int) (clinical.Patient, error) {
	patient, ok := s.store.Patient(patientID)
	if !ok {
		return clinical.Patient{}, fmt.Errorf("%w: %d", ErrPatientNotFound, patientID)
	}
	if !s.acquire(patientID) {
		return clinical.Patient{}, ErrAnalysisInFlight
	}
	defer s.release(patientID)

	log := s.log.With().Int("patient_id", patientID).Logger()

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.gateway.ClassifyPatient(callCtx, patient)
	if err != nil {
		log.Error().Err(err).Msg("patient analysis failed")
		return patient, fmt.Errorf("analyze patient %d: %w", patientID, err)
	}

	s.store.UpdatePatients(func(current []clinical.Patient) []clinical.Patient {
		return Merge(current, patientID, result)
	})
	log.Info().Str("rebound_risk", string(result.ReboundPainRisk)).Msg("patient analysis merged")

	updated, _ := s.store.Patient(patientID)
	return updated, nil
}

// Failure records one patient whose analysis did not complete.
type Failure struct {
	PatientID int    `json:"patientId"`
	Error     string `json:"error"`
}

// AnalyzeAll analyses every patient, at most s.concurrency at a time. One
// patient's failure does not stop the others.
func (s *Service) AnalyzeAll(ctx context.Context) ([]clinical.Patient, []Failure) {
	patients := s.store.Patients()

	var (
		mu       sync.Mutex
		failures []Failure
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, p := range patients {
		id := p.ID
		g.Go(func() error {
			if _, err := s.Analyze(gctx, id); err != nil {
				mu.Lock()
				failures = append(failures, Failure{PatientID: id, Error: err.Error()})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return s.store.Patients(), failures
}
