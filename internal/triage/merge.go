package triage

import (
	"cmp"
	"slices"

	"aps-assistant/internal/agent"
	"aps-assistant/internal/clinical"

	"github.com/samber/lo"
)

// Merge folds triage results into consults by id and returns a new slice.
// Matched consults take the result's urgency and rationale; everything else
// is copied as-is. Results that would set a consult back to Unknown are
// ignored.
func Merge(consults []clinical.Consult, results []agent.TriageResult) []clinical.Consult {
	known := lo.Filter(results, func(r agent.TriageResult, _ int) bool {
		return r.Urgency.Known()
	})
	byID := lo.KeyBy(known, func(r agent.TriageResult) int { return r.ID })

	return lo.Map(consults, func(c clinical.Consult, _ int) clinical.Consult {
		if r, ok := byID[c.ID]; ok {
			c.Urgency = r.Urgency
			c.AIRationale = r.Rationale
		}
		return c
	})
}

// Pending returns the consults still waiting for triage, in order.
func Pending(consults []clinical.Consult) []clinical.Consult {
	return lo.Filter(consults, func(c clinical.Consult, _ int) bool {
		return c.Urgency == clinical.UrgencyUnknown
	})
}

// SortForDisplay orders consults High, Medium, Low, Unknown. Consults of
// equal urgency keep their relative order.
func SortForDisplay(consults []clinical.Consult) []clinical.Consult {
	out := clinical.CloneConsults(consults)
	slices.SortStableFunc(out, func(a, b clinical.Consult) int {
		return cmp.Compare(a.Urgency.Rank(), b.Urgency.Rank())
	})
	return out
}
