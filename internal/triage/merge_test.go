package triage

import (
	"reflect"
	"testing"

	"aps-assistant/internal/agent"
	"aps-assistant/internal/clinical"
	"aps-assistant/internal/seed"
)

func sampleConsults(t *testing.T) []clinical.Consult {
	t.Helper()
	return seed.Mock().Consults
}

func TestMerge_UpdatesOnlyMatchedIDs(t *testing.T) {
	consults := sampleConsults(t)
	results := []agent.TriageResult{
		{ID: 1, Urgency: clinical.UrgencyHigh, Rationale: "Oversedation with uncontrolled pain."},
		{ID: 3, Urgency: clinical.UrgencyMedium, Rationale: "Hypotension on epidural."},
	}

	got := Merge(consults, results)

	if len(got) != len(consults) {
		t.Fatalf("merge changed collection size: %d -> %d", len(consults), len(got))
	}
	for i := range consults {
		if got[i].ID != consults[i].ID || got[i].PatientID != consults[i].PatientID ||
			got[i].PatientName != consults[i].PatientName || got[i].Reason != consults[i].Reason ||
			got[i].Time != consults[i].Time {
			t.Errorf("consult %d identity fields changed: %+v -> %+v", consults[i].ID, consults[i], got[i])
		}
	}
	if got[0].Urgency != clinical.UrgencyHigh || got[0].AIRationale != "Oversedation with uncontrolled pain." {
		t.Errorf("consult 1 not merged: %+v", got[0])
	}
	if got[1] != consults[1] {
		t.Errorf("unmatched consult 2 changed: %+v", got[1])
	}
	if got[2].Urgency != clinical.UrgencyMedium {
		t.Errorf("consult 3 not merged: %+v", got[2])
	}
	if consults[0].Urgency != clinical.UrgencyUnknown {
		t.Error("merge mutated its input")
	}
}

func TestMerge_ReplacesEvenWhenUnchanged(t *testing.T) {
	consults := []clinical.Consult{{ID: 7, Urgency: clinical.UrgencyLow, AIRationale: "old"}}
	got := Merge(consults, []agent.TriageResult{{ID: 7, Urgency: clinical.UrgencyLow, Rationale: "new"}})
	if got[0].AIRationale != "new" {
		t.Fatalf("expected rationale replaced, got %q", got[0].AIRationale)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	consults := sampleConsults(t)
	results := []agent.TriageResult{
		{ID: 2, Urgency: clinical.UrgencyLow, Rationale: "Routine PCA adjustment."},
	}
	once := Merge(consults, results)
	twice := Merge(once, results)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("merge is not idempotent:\n%+v\n%+v", once, twice)
	}
}

func TestMerge_IgnoresUnknownIDsAndUrgency(t *testing.T) {
	consults := []clinical.Consult{{ID: 1, Urgency: clinical.UrgencyHigh, AIRationale: "sedated"}}
	got := Merge(consults, []agent.TriageResult{
		{ID: 99, Urgency: clinical.UrgencyLow, Rationale: "ghost"},
		{ID: 1, Urgency: clinical.UrgencyUnknown, Rationale: "regress"},
	})
	if len(got) != 1 {
		t.Fatalf("merge invented consults: %+v", got)
	}
	if got[0].Urgency != clinical.UrgencyHigh || got[0].AIRationale != "sedated" {
		t.Fatalf("consult regressed: %+v", got[0])
	}
}

func TestMerge_EmptyResults(t *testing.T) {
	consults := sampleConsults(t)
	if got := Merge(consults, nil); !reflect.DeepEqual(got, consults) {
		t.Fatalf("merge with no results changed consults: %+v", got)
	}
}

func TestPending(t *testing.T) {
	consults := []clinical.Consult{
		{ID: 1, Urgency: clinical.UrgencyHigh},
		{ID: 2, Urgency: clinical.UrgencyUnknown},
		{ID: 3, Urgency: clinical.UrgencyUnknown},
	}
	got := Pending(consults)
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 3 {
		t.Fatalf("Pending() = %+v", got)
	}
}

func TestSortForDisplay(t *testing.T) {
	consults := []clinical.Consult{
		{ID: 1, Urgency: clinical.UrgencyLow},
		{ID: 2, Urgency: clinical.UrgencyHigh},
		{ID: 3, Urgency: clinical.UrgencyUnknown},
		{ID: 4, Urgency: clinical.UrgencyMedium},
	}
	got := SortForDisplay(consults)

	want := []clinical.Urgency{clinical.UrgencyHigh, clinical.UrgencyMedium, clinical.UrgencyLow, clinical.UrgencyUnknown}
	for i, u := range want {
		if got[i].Urgency != u {
			t.Fatalf("position %d = %s, want %s", i, got[i].Urgency, u)
		}
	}
	if consults[0].ID != 1 {
		t.Fatal("SortForDisplay reordered its input")
	}
}

func TestSortForDisplay_StableForEqualUrgency(t *testing.T) {
	consults := []clinical.Consult{
		{ID: 10, Urgency: clinical.UrgencyMedium},
		{ID: 11, Urgency: clinical.UrgencyHigh},
		{ID: 12, Urgency: clinical.UrgencyMedium},
		{ID: 13, Urgency: clinical.UrgencyHigh},
	}
	got := SortForDisplay(consults)
	ids := []int{got[0].ID, got[1].ID, got[2].ID, got[3].ID}
	if !reflect.DeepEqual(ids, []int{11, 13, 10, 12}) {
		t.Fatalf("unexpected order %v", ids)
	}
}
