package analysis

import (
	"aps-assistant/internal/agent"
	"aps-assistant/internal/clinical"

	"github.com/samber/lo"
)

// Merge returns a copy of patients in which only the patient with patientID
// carries the analysis result. An unknown id leaves every record as it was.
func Merge(patients []clinical.Patient, patientID int, result agent.PatientAnalysis) []clinical.Patient {
	return lo.Map(patients, func(p clinical.Patient, _ int) clinical.Patient {
		p = p.Clone()
		if p.ID == patientID {
			p.AIRecommendation = result.Recommendation
			p.ReboundPainRisk = result.ReboundPainRisk
		}
		return p
	})
}
