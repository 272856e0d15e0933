package seed

import "aps-assistant/internal/clinical"

// Mock returns the sample ward: three patients, one pending consult each and
// a three-person pain team. Every call returns fresh slices.
func Mock() Dataset {
	return Dataset{
		Patients: []clinical.Patient{
			{
				ID:        101,
				Name:      "John Doe",
				Age:       45,
				Procedure: "Total Knee Arthroplasty",
				PainTrend: clinical.TrendDown,
				Vitals: []clinical.Vital{
					{Time: "4h ago", PainScore: 7, SedationScore: 1, RespiratoryRate: 16},
					{Time: "2h ago", PainScore: 5, SedationScore: 1, RespiratoryRate: 18},
					{Time: "Now", PainScore: 4, SedationScore: 0, RespiratoryRate: 18},
				},
				AnalgesiaPlan: "Femoral Nerve Block + PCA Morphine",
			},
			{
				ID:        102,
				Name:      "Jane Smith",
				Age:       62,
				Procedure: "Laparoscopic Cholecystectomy",
				PainTrend: clinical.TrendUp,
				Vitals: []clinical.Vital{
					{Time: "4h ago", PainScore: 4, SedationScore: 0, RespiratoryRate: 18},
					{Time: "2h ago", PainScore: 6, SedationScore: 1, RespiratoryRate: 16},
					{Time: "Now", PainScore: 8, SedationScore: 2, RespiratoryRate: 14},
				},
				AnalgesiaPlan:    "IV Acetaminophen + PO Oxycodone",
				IsBlockCandidate: true,
			},
			{
				ID:        103,
				Name:      "Peter Jones",
				Age:       78,
				Procedure: "Exploratory Laparotomy",
				PainTrend: clinical.TrendStable,
				Vitals: []clinical.Vital{
					{Time: "4h ago", PainScore: 6, SedationScore: 2, RespiratoryRate: 12},
					{Time: "2h ago", PainScore: 6, SedationScore: 2, RespiratoryRate: 12},
					{Time: "Now", PainScore: 5, SedationScore: 1, RespiratoryRate: 14},
				},
				AnalgesiaPlan: "Epidural Analgesia",
			},
		},
		Consults: []clinical.Consult{
			{ID: 1, PatientID: 102, PatientName: "Jane Smith", Reason: "Uncontrolled post-op pain, high sedation.", Time: "15m ago", Urgency: clinical.UrgencyUnknown},
			{ID: 2, PatientID: 101, PatientName: "John Doe", Reason: "PCA setting adjustment inquiry.", Time: "45m ago", Urgency: clinical.UrgencyUnknown},
			{ID: 3, PatientID: 103, PatientName: "Peter Jones", Reason: "Epidural check, mild hypotension.", Time: "1h ago", Urgency: clinical.UrgencyUnknown},
		},
		Team: []clinical.TeamMember{
			{ID: 1, Name: "Dr. Anya Sharma", Location: "Floor 3 East"},
			{ID: 2, Name: "Dr. Ben Carter", Location: "Floor 5 West"},
			{ID: 3, Name: "NP Chloe Davis", Location: "Floor 3 West"},
		},
	}
}
