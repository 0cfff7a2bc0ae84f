package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/anamnesis/pkg/domain"
)

// LoggingHooks writes one structured record per lifecycle event.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnConsultationStarted: func(ctx context.Context, e *domain.ConsultationEvent) {
			logger.InfoContext(ctx, "consultation_started",
				"session_id", e.SessionID,
				"patient_id", e.PatientID,
				"doctor_id", e.DoctorID,
			)
		},
		OnAnswerRecorded: func(ctx context.Context, e *domain.AnswerEvent) {
			logger.InfoContext(ctx, "answer_recorded",
				"session_id", e.SessionID,
				"node_id", e.NodeID,
				"answer", e.Answer,
				"next_node_id", e.NextNodeID,
				"ordinal", e.Ordinal,
			)
		},
		OnDiagnosisReached: func(ctx context.Context, e *domain.DiagnosisEvent) {
			logger.InfoContext(ctx, "diagnosis_reached",
				"session_id", e.SessionID,
				"node_id", e.NodeID,
				"diagnosis", e.Diagnosis,
			)
		},
		OnStatusChanged: func(ctx context.Context, e *domain.StatusEvent) {
			logger.InfoContext(ctx, "status_changed",
				"session_id", e.SessionID,
				"from", e.From,
				"to", e.To,
			)
		},
		OnOperationFailed: func(ctx context.Context, e *domain.FailureEvent) {
			logger.WarnContext(ctx, "operation_failed",
				"session_id", e.SessionID,
				"op", e.Op,
				"kind", e.Kind,
			)
		},
	}
}

// Combine fans every event out to all hook sets, in order.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		out.OnConsultationStarted = chain(out.OnConsultationStarted, h.OnConsultationStarted)
		out.OnAnswerRecorded = chain(out.OnAnswerRecorded, h.OnAnswerRecorded)
		out.OnDiagnosisReached = chain(out.OnDiagnosisReached, h.OnDiagnosisReached)
		out.OnStatusChanged = chain(out.OnStatusChanged, h.OnStatusChanged)
		out.OnOperationFailed = chain(out.OnOperationFailed, h.OnOperationFailed)
	}
	return out
}

func chain[E any](a, b func(context.Context, *E)) func(context.Context, *E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *E) {
		a(ctx, e)
		b(ctx, e)
	}
}
