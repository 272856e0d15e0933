package clinical

import "testing"

func TestParseUrgency(t *testing.T) {
	tests := []struct {
		in      string
		want    Urgency
		wantErr bool
	}{
		{"High", UrgencyHigh, false},
		{"medium", UrgencyMedium, false},
		{" LOW ", UrgencyLow, false},
		{"Unknown", "", true},
		{"urgent", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseUrgency(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseUrgency(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseUrgency(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseRisk(t *testing.T) {
	if r, err := ParseRisk("high"); err != nil || r != RiskHigh {
		t.Fatalf("ParseRisk(high) = %q, %v", r, err)
	}
	if _, err := ParseRisk("severe"); err == nil {
		t.Fatal("expected error for unsupported risk")
	}
}

func TestUrgencyRank(t *testing.T) {
	if !(UrgencyHigh.Rank() < UrgencyMedium.Rank() &&
		UrgencyMedium.Rank() < UrgencyLow.Rank() &&
		UrgencyLow.Rank() < UrgencyUnknown.Rank()) {
		t.Fatal("expected High < Medium < Low < Unknown")
	}
	if Urgency("bogus").Rank() != UrgencyUnknown.Rank() {
		t.Error("unrecognised urgency should rank with Unknown")
	}
}

func TestDerivePainTrend(t *testing.T) {
	v := func(scores ...int) []Vital {
		out := make([]Vital, len(scores))
		for i, s := range scores {
			out[i] = Vital{PainScore: s, RespiratoryRate: 16}
		}
		return out
	}

	tests := []struct {
		name   string
		vitals []Vital
		want   PainTrend
	}{
		{"falling", v(7, 5, 4), TrendDown},
		{"rising", v(4, 6, 8), TrendUp},
		{"within tolerance", v(6, 6, 5), TrendStable},
		{"single reading", v(9), TrendStable},
		{"no readings", nil, TrendStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DerivePainTrend(tt.vitals); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVitalValidate(t *testing.T) {
	if err := (Vital{PainScore: 10, SedationScore: 0, RespiratoryRate: 12}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := []Vital{
		{PainScore: 11, RespiratoryRate: 12},
		{PainScore: -1, RespiratoryRate: 12},
		{PainScore: 3, SedationScore: -1, RespiratoryRate: 12},
		{PainScore: 3, RespiratoryRate: 0},
	}
	for _, b := range bad {
		if err := b.Validate(); err == nil {
			t.Errorf("expected %+v to be rejected", b)
		}
	}
}

func TestPatientClone(t *testing.T) {
	p := Patient{ID: 1, Vitals: []Vital{{PainScore: 3, RespiratoryRate: 14}}}
	c := p.Clone()
	c.Vitals[0].PainScore = 9
	if p.Vitals[0].PainScore != 3 {
		t.Fatal("clone shares the vitals slice with the original")
	}
}

func TestLatestVital(t *testing.T) {
	p := Patient{Vitals: []Vital{{PainScore: 3}, {PainScore: 8}}}
	v, ok := p.LatestVital()
	if !ok || v.PainScore != 8 {
		t.Fatalf("LatestVital() = %+v, %v", v, ok)
	}
	if _, ok := (Patient{}).LatestVital(); ok {
		t.Fatal("expected no vital for empty patient")
	}
}
