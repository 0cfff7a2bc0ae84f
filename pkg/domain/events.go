package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventConsultationStarted EventType = "consultation_started"
	EventAnswerRecorded      EventType = "answer_recorded"
	EventDiagnosisReached    EventType = "diagnosis_reached"
	EventStatusChanged       EventType = "status_changed"
	EventOperationFailed     EventType = "operation_failed"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// ConsultationEvent is emitted when a consultation is created.
type ConsultationEvent struct {
	EventBase
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
}

// AnswerEvent is emitted for every recorded answer.
type AnswerEvent struct {
	EventBase
	NodeID     string `json:"node_id"`
	Answer     Answer `json:"answer"`
	NextNodeID string `json:"next_node_id"`
	Ordinal    int    `json:"ordinal"`
}

// DiagnosisEvent is emitted when traversal lands on a terminal node.
type DiagnosisEvent struct {
	EventBase
	NodeID    string `json:"node_id"`
	Diagnosis string `json:"diagnosis"`
	Depth     int    `json:"depth"` // answers given to get here
}

// StatusEvent is emitted on every lifecycle transition.
type StatusEvent struct {
	EventBase
	From Status `json:"from"`
	To   Status `json:"to"`
}

// FailureEvent is emitted when an operation is rejected.
type FailureEvent struct {
	EventBase
	Op   string `json:"op"`
	Kind Kind   `json:"kind"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnConsultationStarted func(context.Context, *ConsultationEvent)
	OnAnswerRecorded      func(context.Context, *AnswerEvent)
	OnDiagnosisReached    func(context.Context, *DiagnosisEvent)
	OnStatusChanged       func(context.Context, *StatusEvent)
	OnOperationFailed     func(context.Context, *FailureEvent)
}
