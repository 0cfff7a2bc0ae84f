package http

import (
	"time"

	"github.com/aretw0/anamnesis/pkg/domain"
)

type startRequest struct {
	PatientID string `json:"patientId"`
	DoctorID  string `json:"doctorId"`
}

type answerRequest struct {
	Answer         string `json:"answer"`
	ExpectedNodeID string `json:"expectedNodeId,omitempty"`
}

type completeRequest struct {
	FinalDiagnosis string `json:"finalDiagnosis"`
	Notes          string `json:"notes"`
}

type questionResponse struct {
	SessionID string              `json:"sessionId"`
	Status    domain.Status       `json:"status"`
	Question  domain.QuestionView `json:"question"`
	Progress  domain.Progress     `json:"progress"`
}

type answerResponse struct {
	NextQuestion       *domain.QuestionView `json:"nextQuestion,omitempty"`
	DiagnosisCandidate string               `json:"diagnosisCandidate,omitempty"`
	Progress           domain.Progress      `json:"progress"`
	HistoryTail        []historyEntry       `json:"historyTail"`
	Replayed           bool                 `json:"replayed"`
}

type statusResponse struct {
	SessionID      string        `json:"sessionId"`
	Status         domain.Status `json:"status"`
	FinalDiagnosis string        `json:"finalDiagnosis,omitempty"`
}

type consultationResponse struct {
	Session       session             `json:"session"`
	Question      domain.QuestionView `json:"question"`
	Progress      domain.Progress     `json:"progress"`
	AnswerHistory []historyEntry      `json:"answerHistory"`
}

type listResponse struct {
	Sessions []session `json:"sessions"`
}

type historyEntry struct {
	Ordinal    int           `json:"ordinal"`
	NodeID     string        `json:"nodeId"`
	Question   string        `json:"question"`
	Answer     domain.Answer `json:"answer"`
	AnsweredAt time.Time     `json:"answeredAt"`
}

type session struct {
	SessionID          string        `json:"sessionId"`
	PatientID          string        `json:"patientId"`
	DoctorID           string        `json:"doctorId"`
	Status             domain.Status `json:"status"`
	CurrentNodeID      string        `json:"currentNodeId"`
	DiagnosisCandidate string        `json:"diagnosisCandidate,omitempty"`
	FinalDiagnosis     string        `json:"finalDiagnosis,omitempty"`
	Notes              string        `json:"notes,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
	CompletedAt        *time.Time    `json:"completedAt,omitempty"`
	Version            int64         `json:"version"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    domain.Kind `json:"kind"`
	Message string      `json:"message"`
}

func mapHistory(h []domain.HistoryEntry) []historyEntry {
	out := make([]historyEntry, len(h))
	for i, e := range h {
		out[i] = historyEntry{
			Ordinal:    e.Ordinal,
			NodeID:     e.NodeID,
			Question:   e.Question,
			Answer:     e.Answer,
			AnsweredAt: e.AnsweredAt,
		}
	}
	return out
}

func mapSession(c *domain.Consultation) session {
	return session{
		SessionID:          c.ID,
		PatientID:          c.PatientID,
		DoctorID:           c.DoctorID,
		Status:             c.Status,
		CurrentNodeID:      c.CurrentNodeID,
		DiagnosisCandidate: c.DiagnosisCandidate,
		FinalDiagnosis:     c.FinalDiagnosis,
		Notes:              c.DoctorNotes,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
		CompletedAt:        c.CompletedAt,
		Version:            c.Version,
	}
}
