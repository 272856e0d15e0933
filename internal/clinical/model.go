package clinical

import (
	"errors"
	"fmt"
	"strings"
)

// Urgency is the triage tier of a consult request.
type Urgency string

const (
	UrgencyHigh    Urgency = "High"
	UrgencyMedium  Urgency = "Medium"
	UrgencyLow     Urgency = "Low"
	UrgencyUnknown Urgency = "Unknown"
)

// Rank orders urgencies for display, most urgent first.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyHigh:
		return 1
	case UrgencyMedium:
		return 2
	case UrgencyLow:
		return 3
	default:
		return 4
	}
}

// Known reports whether the urgency is a triaged tier.
func (u Urgency) Known() bool {
	return u == UrgencyHigh || u == UrgencyMedium || u == UrgencyLow
}

// ParseUrgency accepts High, Medium or Low in any case. Unknown is not a
// valid triage outcome and is rejected.
func ParseUrgency(s string) (Urgency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return UrgencyHigh, nil
	case "medium":
		return UrgencyMedium, nil
	case "low":
		return UrgencyLow, nil
	}
	return "", fmt.Errorf("invalid urgency %q", s)
}

// Risk is the predicted rebound pain risk once primary analgesia wears off.
type Risk string

const (
	RiskHigh   Risk = "High"
	RiskMedium Risk = "Medium"
	RiskLow    Risk = "Low"
)

func ParseRisk(s string) (Risk, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return RiskHigh, nil
	case "medium":
		return RiskMedium, nil
	case "low":
		return RiskLow, nil
	}
	return "", fmt.Errorf("invalid rebound pain risk %q", s)
}

type PainTrend string

const (
	TrendUp     PainTrend = "up"
	TrendDown   PainTrend = "down"
	TrendStable PainTrend = "stable"
)

// painTrendTolerance is the pain score change still reported as stable.
const painTrendTolerance = 1

// DerivePainTrend compares the latest pain score with the earliest one.
func DerivePainTrend(vitals []Vital) PainTrend {
	if len(vitals) < 2 {
		return TrendStable
	}
	delta := vitals[len(vitals)-1].PainScore - vitals[0].PainScore
	switch {
	case delta > painTrendTolerance:
		return TrendUp
	case delta < -painTrendTolerance:
		return TrendDown
	default:
		return TrendStable
	}
}

// Vital is a single observation. Vitals are never edited once recorded.
type Vital struct {
	Time            string `json:"time"`
	PainScore       int    `json:"painScore"`
	SedationScore   int    `json:"sedationScore"`
	RespiratoryRate int    `json:"respiratoryRate"`
}

var ErrInvalidVital = errors.New("invalid vital")

func (v Vital) Validate() error {
	if v.PainScore < 0 || v.PainScore > 10 {
		return fmt.Errorf("%w: pain score %d outside 0-10", ErrInvalidVital, v.PainScore)
	}
	if v.SedationScore < 0 {
		return fmt.Errorf("%w: negative sedation score %d", ErrInvalidVital, v.SedationScore)
	}
	if v.RespiratoryRate <= 0 {
		return fmt.Errorf("%w: respiratory rate %d", ErrInvalidVital, v.RespiratoryRate)
	}
	return nil
}

// Patient is an APS patient record. The AI fields stay empty until an
// analysis has completed for the patient.
type Patient struct {
	ID               int       `json:"id"`
	Name             string    `json:"name"`
	Age              int       `json:"age"`
	Procedure        string    `json:"procedure"`
	PainTrend        PainTrend `json:"painTrend"`
	Vitals           []Vital   `json:"vitals"`
	AnalgesiaPlan    string    `json:"analgesiaPlan"`
	IsBlockCandidate bool      `json:"isBlockCandidate"`
	AIRecommendation string    `json:"aiRecommendation,omitempty"`
	ReboundPainRisk  Risk      `json:"reboundPainRisk,omitempty"`
}

// Clone returns a copy that shares no slices with p.
func (p Patient) Clone() Patient {
	c := p
	if p.Vitals != nil {
		c.Vitals = make([]Vital, len(p.Vitals))
		copy(c.Vitals, p.Vitals)
	}
	return c
}

// LatestVital returns the most recent reading, if any.
func (p Patient) LatestVital() (Vital, bool) {
	if len(p.Vitals) == 0 {
		return Vital{}, false
	}
	return p.Vitals[len(p.Vitals)-1], true
}

// Consult is a request for review by the pain service.
type Consult struct {
	ID          int     `json:"id"`
	PatientID   int     `json:"patientId"`
	PatientName string  `json:"patientName"`
	Reason      string  `json:"reason"`
	Time        string  `json:"time"`
	Urgency     Urgency `json:"urgency"`
	AIRationale string  `json:"aiRationale,omitempty"`
}

type TeamMember struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

// ClonePatients deep-copies a patient collection.
func ClonePatients(patients []Patient) []Patient {
	if patients == nil {
		return nil
	}
	out := make([]Patient, len(patients))
	for i, p := range patients {
		out[i] = p.Clone()
	}
	return out
}

func CloneConsults(consults []Consult) []Consult {
	if consults == nil {
		return nil
	}
	out := make([]Consult, len(consults))
	copy(out, consults)
	return out
}
