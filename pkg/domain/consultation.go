package domain

import "time"

// Status is the lifecycle position of a consultation.
type Status string

const (
	StatusActive    Status = "active"    // Interview in progress
	StatusDraft     Status = "draft"     // Paused by the doctor, resumable
	StatusCompleted Status = "completed" // Finalized with a diagnosis
	StatusCanceled  Status = "canceled"  // Abandoned, kept for audit
)

var transitions = map[Status][]Status{
	StatusActive: {StatusDraft, StatusCanceled, StatusCompleted},
	StatusDraft:  {StatusActive, StatusCanceled},
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusDraft, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// HistoryEntry records one answered question. Ordinals start at 1 and are contiguous.
type HistoryEntry struct {
	Ordinal    int       `json:"ordinal"`
	NodeID     string    `json:"node_id"`
	Question   string    `json:"question"`
	Answer     Answer    `json:"answer"`
	AnsweredAt time.Time `json:"answered_at"`
}

// Consultation is one interview of a patient by a doctor.
type Consultation struct {
	ID        string `json:"id"`
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`

	// CurrentNodeID is the node the interview is positioned on.
	CurrentNodeID string `json:"current_node_id"`

	// History is the append-only answer log. Replaying it from the graph root
	// must reproduce CurrentNodeID.
	History []HistoryEntry `json:"history"`

	Status Status `json:"status"`

	// DiagnosisCandidate is set while CurrentNodeID is a terminal node.
	DiagnosisCandidate string `json:"diagnosis_candidate,omitempty"`

	// FinalDiagnosis and DoctorNotes are recorded on completion.
	FinalDiagnosis string `json:"final_diagnosis,omitempty"`
	DoctorNotes    string `json:"doctor_notes,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Version is bumped by the store on every successful save.
	Version int64 `json:"version"`
}

// NewConsultation creates an active consultation positioned at root.
func NewConsultation(id, patientID, doctorID, root string, now time.Time) *Consultation {
	return &Consultation{
		ID:            id,
		PatientID:     patientID,
		DoctorID:      doctorID,
		CurrentNodeID: root,
		History:       []HistoryEntry{},
		Status:        StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Clone returns a deep copy.
func (c *Consultation) Clone() *Consultation {
	if c == nil {
		return nil
	}
	out := *c
	out.History = make([]HistoryEntry, len(c.History))
	copy(out.History, c.History)
	if c.CompletedAt != nil {
		t := *c.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

// Tail returns at most the last n history entries.
func (c *Consultation) Tail(n int) []HistoryEntry {
	if n <= 0 || len(c.History) == 0 {
		return []HistoryEntry{}
	}
	start := len(c.History) - n
	if start < 0 {
		start = 0
	}
	out := make([]HistoryEntry, len(c.History)-start)
	copy(out, c.History[start:])
	return out
}

// Open reports whether the consultation can still be worked on.
func (c *Consultation) Open() bool {
	return !c.Status.IsTerminal()
}
