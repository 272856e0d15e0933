// Package dashboard holds the in-memory state the APS dashboard renders from.
package dashboard

import (
	"sync"

	"aps-assistant/internal/clinical"

	"github.com/samber/lo"
)

// uncontrolledPainThreshold is the latest pain score above which a patient
// counts as uncontrolled.
const uncontrolledPainThreshold = 7

// Store owns the consult and patient collections. Updates replace a
// collection with a new value under the lock, so readers only ever see a
// complete collection.
type Store struct {
	mu       sync.RWMutex
	consults []clinical.Consult
	patients []clinical.Patient
	team     []clinical.TeamMember
}

func NewStore(consults []clinical.Consult, patients []clinical.Patient, team []clinical.TeamMember) *Store {
	t := make([]clinical.TeamMember, len(team))
	copy(t, team)
	return &Store{
		consults: clinical.CloneConsults(consults),
		patients: clinical.ClonePatients(patients),
		team:     t,
	}
}

func (s *Store) Consults() []clinical.Consult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clinical.CloneConsults(s.consults)
}

func (s *Store) Patients() []clinical.Patient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clinical.ClonePatients(s.patients)
}

func (s *Store) Patient(id int) (clinical.Patient, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := lo.Find(s.patients, func(p clinical.Patient) bool { return p.ID == id })
	if !ok {
		return clinical.Patient{}, false
	}
	return p.Clone(), true
}

func (s *Store) Team() []clinical.TeamMember {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]clinical.TeamMember, len(s.team))
	copy(out, s.team)
	return out
}

// UpdateConsults replaces the consult collection with fn's result. fn gets
// a private copy of the current collection and runs under the write lock.
func (s *Store) UpdateConsults(fn func([]clinical.Consult) []clinical.Consult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consults = fn(clinical.CloneConsults(s.consults))
}

func (s *Store) UpdatePatients(fn func([]clinical.Patient) []clinical.Patient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients = fn(clinical.ClonePatients(s.patients))
}

// Summary is the header strip of the dashboard.
type Summary struct {
	TotalPatients       int `json:"totalPatients"`
	TotalConsults       int `json:"totalConsults"`
	PendingTriage       int `json:"pendingTriage"`
	HighUrgencyConsults int `json:"highUrgencyConsults"`
	UncontrolledPain    int `json:"uncontrolledPainPatients"`
	AnalyzedPatients    int `json:"analyzedPatients"`
	BlockCandidates     int `json:"blockCandidates"`
}

func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Summary{
		TotalPatients: len(s.patients),
		TotalConsults: len(s.consults),
		PendingTriage: lo.CountBy(s.consults, func(c clinical.Consult) bool {
			return c.Urgency == clinical.UrgencyUnknown
		}),
		HighUrgencyConsults: lo.CountBy(s.consults, func(c clinical.Consult) bool {
			return c.Urgency == clinical.UrgencyHigh
		}),
		UncontrolledPain: lo.CountBy(s.patients, func(p clinical.Patient) bool {
			v, ok := p.LatestVital()
			return ok && v.PainScore > uncontrolledPainThreshold
		}),
		AnalyzedPatients: lo.CountBy(s.patients, func(p clinical.Patient) bool {
			return p.AIRecommendation != ""
		}),
		BlockCandidates: lo.CountBy(s.patients, func(p clinical.Patient) bool {
			return p.IsBlockCandidate
		}),
	}
}
