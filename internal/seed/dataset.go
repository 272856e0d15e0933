// Package seed loads the reference data the dashboard starts from.
package seed

import (
	"context"
	"errors"
	"fmt"

	"aps-assistant/internal/clinical"
)

// Dataset is a full snapshot of the reference data.
type Dataset struct {
	Patients []clinical.Patient
	Consults []clinical.Consult
	Team     []clinical.TeamMember
}

// Source provides the initial dataset. Sources are read-only; nothing is
// ever written back.
type Source interface {
	Load(ctx context.Context) (Dataset, error)
}

var ErrInvalidDataset = errors.New("invalid dataset")

// Normalize validates vitals, derives missing pain trends and marks consults
// without an urgency as Unknown. It returns a copy.
func Normalize(ds Dataset) (Dataset, error) {
	out := Dataset{
		Patients: clinical.ClonePatients(ds.Patients),
		Consults: clinical.CloneConsults(ds.Consults),
		Team:     append([]clinical.TeamMember(nil), ds.Team...),
	}

	seen := make(map[int]struct{}, len(out.Patients))
	for i := range out.Patients {
		p := &out.Patients[i]
		if _, dup := seen[p.ID]; dup {
			return Dataset{}, fmt.Errorf("%w: duplicate patient id %d", ErrInvalidDataset, p.ID)
		}
		seen[p.ID] = struct{}{}
		for _, v := range p.Vitals {
			if err := v.Validate(); err != nil {
				return Dataset{}, fmt.Errorf("patient %d: %w", p.ID, err)
			}
		}
		if p.PainTrend == "" {
			p.PainTrend = clinical.DerivePainTrend(p.Vitals)
		}
	}

	ids := make(map[int]struct{}, len(out.Consults))
	for i := range out.Consults {
		c := &out.Consults[i]
		if _, dup := ids[c.ID]; dup {
			return Dataset{}, fmt.Errorf("%w: duplicate consult id %d", ErrInvalidDataset, c.ID)
		}
		ids[c.ID] = struct{}{}
		if !c.Urgency.Known() {
			c.Urgency = clinical.UrgencyUnknown
			c.AIRationale = ""
		}
	}
	return out, nil
}

// MockSource serves the built-in sample set.
type MockSource struct{}

func (MockSource) Load(_ context.Context) (Dataset, error) {
	return Normalize(Mock())
}
