package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"aps-assistant/internal/clinical"

	"google.golang.org/genai"
)

var triageSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id":        {Type: genai.TypeNumber},
			"urgency":   {Type: genai.TypeString},
			"rationale": {Type: genai.TypeString},
		},
		Required: []string{"id", "urgency", "rationale"},
	},
}

var analysisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"recommendation":  {Type: genai.TypeString},
		"reboundPainRisk": {Type: genai.TypeString},
	},
	Required: []string{"recommendation", "reboundPainRisk"},
}

// Pointer fields tell a missing key apart from a zero value.
type triagePayload struct {
	ID        *float64 `json:"id"`
	Urgency   *string  `json:"urgency"`
	Rationale *string  `json:"rationale"`
}

type analysisPayload struct {
	Recommendation  *string `json:"recommendation"`
	ReboundPainRisk *string `json:"reboundPainRisk"`
}

func decodeStrict(payload string, v any) error {
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("%w: trailing data after JSON value", ErrMalformedResponse)
	}
	return nil
}

// decodeTriage validates a triage payload against the requests it answers.
// Any invalid item fails the whole payload.
func decodeTriage(payload string, requested []TriageRequest) ([]TriageResult, error) {
	var items []triagePayload
	if err := decodeStrict(payload, &items); err != nil {
		return nil, err
	}

	known := make(map[int]bool, len(requested))
	for _, r := range requested {
		known[r.ID] = true
	}

	results := make([]TriageResult, 0, len(items))
	for i, it := range items {
		if it.ID == nil || it.Urgency == nil || it.Rationale == nil {
			return nil, fmt.Errorf("%w: item %d is missing a required field", ErrMalformedResponse, i)
		}
		if *it.ID != math.Trunc(*it.ID) {
			return nil, fmt.Errorf("%w: item %d has non-integer id %v", ErrMalformedResponse, i, *it.ID)
		}
		id := int(*it.ID)
		if !known[id] {
			return nil, fmt.Errorf("%w: id %d was not requested", ErrMalformedResponse, id)
		}
		urgency, err := clinical.ParseUrgency(*it.Urgency)
		if err != nil {
			return nil, fmt.Errorf("%w: id %d: %v", ErrMalformedResponse, id, err)
		}
		results = append(results, TriageResult{
			ID:        id,
			Urgency:   urgency,
			Rationale: strings.TrimSpace(*it.Rationale),
		})
	}
	return results, nil
}

func decodeAnalysis(payload string) (PatientAnalysis, error) {
	var p analysisPayload
	if err := decodeStrict(payload, &p); err != nil {
		return PatientAnalysis{}, err
	}
	if p.Recommendation == nil || p.ReboundPainRisk == nil {
		return PatientAnalysis{}, fmt.Errorf("%w: missing required field", ErrMalformedResponse)
	}
	rec := strings.TrimSpace(*p.Recommendation)
	if rec == "" {
		return PatientAnalysis{}, fmt.Errorf("%w: empty recommendation", ErrMalformedResponse)
	}
	risk, err := clinical.ParseRisk(*p.ReboundPainRisk)
	if err != nil {
		return PatientAnalysis{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return PatientAnalysis{Recommendation: rec, ReboundPainRisk: risk}, nil
}

func triagePrompt(consults []TriageRequest) (string, error) {
	data, err := json.MarshalIndent(consults, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal consults: %w", err)
	}
	var b bytes.Buffer
	b.WriteString("You are an expert Acute Pain Service physician. Triage the following new consult requests.\n")
	b.WriteString("For each consult, provide a \"urgency\" level ('High', 'Medium', or 'Low') and a brief \"rationale\" (max 15 words).\n")
	b.WriteString("Base your triage on the reason provided. High sedation and uncontrolled pain are high urgency. Routine checks are lower.\n\n")
	b.WriteString("Consults Data:\n")
	b.Write(data)
	return b.String(), nil
}

func analysisPrompt(patient clinical.Patient) (string, error) {
	data, err := json.MarshalIndent(patient, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal patient %d: %w", patient.ID, err)
	}
	var b bytes.Buffer
	b.WriteString("As an expert APS physician, analyze this patient's data and provide recommendations.\n")
	b.WriteString("The patient data is: ")
	b.Write(data)
	b.WriteString(".\n\nTasks:\n")
	b.WriteString("1. **recommendation**: Based on their vitals, procedure, and current plan, suggest one key optimization. (e.g., 'Consider adding a regional block for opioid-sparing effect.')\n")
	b.WriteString("2. **reboundPainRisk**: Predict the risk of rebound pain ('High', 'Medium', 'Low') after their current primary analgesia (like a block or epidural) wears off.\n")
	return b.String(), nil
}
