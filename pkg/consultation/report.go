package consultation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/anamnesis/pkg/domain"
)

// Report is the read-only result of a consultation, for rendering and export.
type Report struct {
	SessionID        string                `json:"sessionId"`
	PatientID        string                `json:"patientId"`
	DoctorID         string                `json:"doctorId"`
	Status           domain.Status         `json:"status"`
	PrimaryDiagnosis string                `json:"primaryDiagnosis,omitempty"`
	Confidence       int                   `json:"confidence"`
	Explanation      string                `json:"explanation"`
	History          []domain.HistoryEntry `json:"history"`
	Recommendations  domain.Recommendation `json:"recommendations"`
	Notes            string                `json:"notes,omitempty"`
	CompletedAt      *time.Time            `json:"completedAt,omitempty"`
}

var defaultRecommendation = domain.Recommendation{
	Medication: []string{
		"Symptomatic treatment as indicated",
		"Lubricating drops if needed",
	},
	General: []string{
		"Monitor how symptoms evolve",
		"Refer to a specialist to confirm the diagnosis",
	},
	FollowUp: []string{
		"Repeat consultation if symptoms persist",
		"Seek care immediately if the condition worsens",
	},
}

// Report builds the result view of a consultation in any status.
func (s *Service) Report(ctx context.Context, id string) (*Report, error) {
	c, err := s.manager.Get(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "report", id, err)
	}

	diagnosis := c.FinalDiagnosis
	if diagnosis == "" {
		diagnosis = c.DiagnosisCandidate
	}

	r := &Report{
		SessionID:        c.ID,
		PatientID:        c.PatientID,
		DoctorID:         c.DoctorID,
		Status:           c.Status,
		PrimaryDiagnosis: diagnosis,
		Confidence:       Confidence(len(c.History)),
		Explanation:      Explain(c.History, diagnosis),
		History:          c.History,
		Notes:            c.DoctorNotes,
		CompletedAt:      c.CompletedAt,
	}
	if diagnosis != "" {
		r.Recommendations = Recommend(s.graph.Recommendations(), diagnosis)
	}
	return r, nil
}

// Confidence grows with the number of answered questions, capped at 95.
func Confidence(answered int) int {
	if answered == 0 {
		return 0
	}
	return min(80+answered*2, 95)
}

// Explain summarizes the findings behind a diagnosis from the first three positive answers.
func Explain(history []domain.HistoryEntry, diagnosis string) string {
	if diagnosis == "" {
		return "No diagnosis has been reached yet."
	}
	if len(history) == 0 {
		return "Diagnosis based on baseline findings."
	}
	var positive []string
	for _, h := range history {
		if h.Answer == domain.AnswerYes {
			positive = append(positive, h.Question)
			if len(positive) == 3 {
				break
			}
		}
	}
	if len(positive) == 0 {
		return fmt.Sprintf("Diagnosis %q is based on the absence of findings typical of other conditions.", diagnosis)
	}
	return fmt.Sprintf("Diagnosis %q is based on the presence of: %s.", diagnosis, strings.Join(positive, ", "))
}

// Recommend picks the first catalog entry whose keyword appears in diagnosis.
// Entries without keywords, and then a built-in default, are the fallback.
func Recommend(catalog []domain.Recommendation, diagnosis string) domain.Recommendation {
	lower := strings.ToLower(diagnosis)
	var fallback *domain.Recommendation
	for i, rec := range catalog {
		if len(rec.Keywords) == 0 {
			if fallback == nil {
				fallback = &catalog[i]
			}
			continue
		}
		for _, k := range rec.Keywords {
			if k != "" && strings.Contains(lower, strings.ToLower(k)) {
				rec.Keywords = nil
				return rec
			}
		}
	}
	if fallback != nil {
		return *fallback
	}
	return defaultRecommendation
}
