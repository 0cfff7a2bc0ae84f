package consultation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/anamnesis/internal/logging"
	"github.com/aretw0/anamnesis/pkg/domain"
	"github.com/aretw0/anamnesis/pkg/graph"
	"github.com/aretw0/anamnesis/pkg/ports"
	"github.com/aretw0/anamnesis/pkg/progress"
	"github.com/aretw0/anamnesis/pkg/session"
	"github.com/aretw0/anamnesis/pkg/traversal"
)

// HistoryTailSize is the number of recent answers returned with each answer result.
const HistoryTailSize = 3

// Service runs consultations over a single decision graph.
type Service struct {
	graph   *graph.Graph
	engine  *traversal.Engine
	manager *session.Manager

	directory ports.Directory
	hooks     domain.LifecycleHooks
	logger    *slog.Logger

	backNavigation bool
	reuseOpen      bool
}

// Option configures a Service.
type Option func(*Service)

// WithDirectory sets the collaborator used to check patient and doctor identifiers.
// Without one, any non-empty identifier is accepted.
func WithDirectory(d ports.Directory) Option {
	return func(s *Service) {
		s.directory = d
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(h domain.LifecycleHooks) Option {
	return func(s *Service) {
		s.hooks = h
	}
}

// WithLogger configures a logger for the Service.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithBackNavigation toggles the "previous question" operation. Enabled by default.
func WithBackNavigation(enabled bool) Option {
	return func(s *Service) {
		s.backNavigation = enabled
	}
}

// WithReuseOpen makes Start return the newest active or draft consultation for the same
// patient and doctor instead of opening a second one. A reused draft is resumed.
func WithReuseOpen(enabled bool) Option {
	return func(s *Service) {
		s.reuseOpen = enabled
	}
}

// New creates a Service.
func New(g *graph.Graph, mgr *session.Manager, opts ...Option) *Service {
	s := &Service{
		graph:          g,
		manager:        mgr,
		logger:         logging.NewNop(),
		backNavigation: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = traversal.New(g, traversal.WithBackNavigation(s.backNavigation))
	return s
}

// Graph returns the decision graph.
func (s *Service) Graph() *graph.Graph { return s.graph }

// Engine returns the traversal engine.
func (s *Service) Engine() *traversal.Engine { return s.engine }

// Snapshot is a consultation together with what a client should display for it.
type Snapshot struct {
	Consultation *domain.Consultation
	Question     domain.QuestionView
	Progress     domain.Progress
}

// AnswerRequest is one answer submission.
type AnswerRequest struct {
	SessionID      string
	Answer         string
	ExpectedNodeID string
}

// AnswerResult describes where an answer led.
type AnswerResult struct {
	Consultation *domain.Consultation
	// NextQuestion is nil once a diagnosis candidate is reached.
	NextQuestion       *domain.QuestionView
	DiagnosisCandidate string
	Progress           domain.Progress
	HistoryTail        []domain.HistoryEntry
	Replayed           bool
}

func (s *Service) snapshot(c *domain.Consultation) (*Snapshot, error) {
	view, err := s.engine.View(c)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Consultation: c,
		Question:     view,
		Progress:     progress.Calculate(s.graph, c),
	}, nil
}

// Start opens a consultation for a patient by a doctor, positioned at the graph root.
func (s *Service) Start(ctx context.Context, patientID, doctorID string) (*Snapshot, error) {
	const op = "start"
	patientID = strings.TrimSpace(patientID)
	doctorID = strings.TrimSpace(doctorID)

	if err := s.checkParticipants(ctx, patientID, doctorID); err != nil {
		return nil, s.fail(ctx, op, "", err)
	}

	if s.reuseOpen {
		open, err := s.manager.List(ctx, ports.ListFilter{
			PatientID: patientID,
			DoctorID:  doctorID,
			Statuses:  []domain.Status{domain.StatusActive, domain.StatusDraft},
		})
		if err != nil {
			return nil, s.fail(ctx, op, "", err)
		}
		if len(open) > 0 {
			s.logger.Debug("Reusing open consultation", "session_id", open[0].ID, "status", open[0].Status)
			if open[0].Status == domain.StatusDraft {
				return s.Resume(ctx, open[0].ID)
			}
			return s.snapshot(open[0])
		}
	}

	root, err := s.graph.Node(s.graph.Root())
	if err != nil {
		return nil, s.fail(ctx, op, "", err)
	}
	c, err := s.manager.Create(ctx, patientID, doctorID, root)
	if err != nil {
		return nil, s.fail(ctx, op, "", err)
	}

	s.logger.Info("Consultation started", "session_id", c.ID, "patient_id", patientID, "doctor_id", doctorID)
	if s.hooks.OnConsultationStarted != nil {
		s.hooks.OnConsultationStarted(ctx, &domain.ConsultationEvent{
			EventBase: s.event(domain.EventConsultationStarted, c.ID),
			PatientID: patientID,
			DoctorID:  doctorID,
		})
	}
	return s.snapshot(c)
}

func (s *Service) checkParticipants(ctx context.Context, patientID, doctorID string) error {
	const op = "start"
	if patientID == "" {
		return domain.NewError(domain.KindValidation, op, "patient id is required")
	}
	if doctorID == "" {
		return domain.NewError(domain.KindValidation, op, "doctor id is required")
	}
	if s.directory == nil {
		return nil
	}
	ok, err := s.directory.PatientExists(ctx, patientID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Errorf(domain.KindValidation, op, "unknown patient %q", patientID)
	}
	ok, err = s.directory.DoctorExists(ctx, doctorID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Errorf(domain.KindValidation, op, "unknown doctor %q", doctorID)
	}
	return nil
}

// Answer records a yes/no answer on the current question.
func (s *Service) Answer(ctx context.Context, req AnswerRequest) (*AnswerResult, error) {
	const op = "answer"
	var step traversal.Step
	var from string

	if _, err := domain.ParseAnswer(req.Answer); err != nil {
		return nil, s.fail(ctx, op, req.SessionID, err)
	}

	c, err := s.manager.Update(ctx, req.SessionID, func(c *domain.Consultation) (*domain.Consultation, error) {
		from = c.CurrentNodeID
		next, st, err := s.engine.RecordAnswer(c, traversal.AnswerInput{
			Answer:         req.Answer,
			ExpectedNodeID: req.ExpectedNodeID,
			Now:            s.manager.Now(),
		})
		if err != nil {
			return nil, err
		}
		step = st
		if st.Replayed {
			return nil, nil
		}
		return next, nil
	})
	if err != nil {
		return nil, s.fail(ctx, op, req.SessionID, err)
	}

	res := &AnswerResult{
		Consultation:       c,
		DiagnosisCandidate: c.DiagnosisCandidate,
		Progress:           progress.Calculate(s.graph, c),
		HistoryTail:        c.Tail(HistoryTailSize),
		Replayed:           step.Replayed,
	}
	if !step.Question.Terminal {
		q := step.Question
		res.NextQuestion = &q
	}
	if step.Replayed {
		s.logger.Debug("Duplicate answer absorbed", "session_id", c.ID, "node_id", req.ExpectedNodeID)
		return res, nil
	}

	last := c.History[len(c.History)-1]
	s.logger.Debug("Answer recorded", "session_id", c.ID, "node_id", from, "answer", last.Answer, "next_node_id", c.CurrentNodeID)
	if s.hooks.OnAnswerRecorded != nil {
		s.hooks.OnAnswerRecorded(ctx, &domain.AnswerEvent{
			EventBase:  s.event(domain.EventAnswerRecorded, c.ID),
			NodeID:     from,
			Answer:     last.Answer,
			NextNodeID: c.CurrentNodeID,
			Ordinal:    last.Ordinal,
		})
	}
	if c.DiagnosisCandidate != "" {
		s.logger.Info("Diagnosis candidate reached", "session_id", c.ID, "node_id", c.CurrentNodeID)
		if s.hooks.OnDiagnosisReached != nil {
			s.hooks.OnDiagnosisReached(ctx, &domain.DiagnosisEvent{
				EventBase: s.event(domain.EventDiagnosisReached, c.ID),
				NodeID:    c.CurrentNodeID,
				Diagnosis: c.DiagnosisCandidate,
				Depth:     len(c.History),
			})
		}
	}
	return res, nil
}

// Back undoes the most recent answer.
func (s *Service) Back(ctx context.Context, id string) (*Snapshot, error) {
	c, err := s.manager.Update(ctx, id, func(c *domain.Consultation) (*domain.Consultation, error) {
		return s.engine.GoBack(c, s.manager.Now())
	})
	if err != nil {
		return nil, s.fail(ctx, "back", id, err)
	}
	return s.snapshot(c)
}

// SaveDraft pauses an active consultation. Saving a draft again is a no-op.
func (s *Service) SaveDraft(ctx context.Context, id string) (*domain.Consultation, error) {
	return s.changeStatus(ctx, "draft", id, domain.StatusDraft, func(c *domain.Consultation) bool {
		return c.Status == domain.StatusDraft
	}, nil)
}

// Resume reactivates a draft. Resuming an active consultation is a no-op.
func (s *Service) Resume(ctx context.Context, id string) (*Snapshot, error) {
	c, err := s.changeStatus(ctx, "resume", id, domain.StatusActive, func(c *domain.Consultation) bool {
		return c.Status == domain.StatusActive
	}, nil)
	if err != nil {
		return nil, err
	}
	return s.snapshot(c)
}

// Cancel abandons an active or draft consultation. Its history is kept.
func (s *Service) Cancel(ctx context.Context, id string) (*domain.Consultation, error) {
	return s.changeStatus(ctx, "cancel", id, domain.StatusCanceled, nil, nil)
}

// Complete finalizes a consultation that has reached a diagnosis candidate.
// An empty finalDiagnosis confirms the candidate.
func (s *Service) Complete(ctx context.Context, id, finalDiagnosis, notes string) (*domain.Consultation, error) {
	const op = "complete"
	return s.changeStatus(ctx, op, id, domain.StatusCompleted, nil, func(c *domain.Consultation) error {
		if c.Status != domain.StatusActive {
			return domain.Errorf(domain.KindInvalidState, op, "consultation is %s", c.Status)
		}
		if c.DiagnosisCandidate == "" {
			return domain.NewError(domain.KindInvalidState, op, "diagnosis not yet reached")
		}
		final := strings.TrimSpace(finalDiagnosis)
		if final == "" {
			final = c.DiagnosisCandidate
		}
		now := s.manager.Now()
		c.FinalDiagnosis = final
		c.DoctorNotes = notes
		c.CompletedAt = &now
		return nil
	})
}

// changeStatus moves a consultation to status `to`. noop reports when the consultation is
// already where it should be; prepare runs extra checks and edits before the save.
func (s *Service) changeStatus(
	ctx context.Context,
	op, id string,
	to domain.Status,
	noop func(*domain.Consultation) bool,
	prepare func(*domain.Consultation) error,
) (*domain.Consultation, error) {
	var from domain.Status
	var changed bool

	c, err := s.manager.Update(ctx, id, func(c *domain.Consultation) (*domain.Consultation, error) {
		from = c.Status
		if noop != nil && noop(c) {
			return nil, nil
		}
		if prepare != nil {
			if err := prepare(c); err != nil {
				return nil, err
			}
		}
		if !c.Status.CanTransitionTo(to) {
			return nil, domain.Errorf(domain.KindInvalidState, op, "cannot move a %s consultation to %s", c.Status, to)
		}
		c.Status = to
		c.UpdatedAt = s.manager.Now()
		changed = true
		return c, nil
	})
	if err != nil {
		return nil, s.fail(ctx, op, id, err)
	}

	if changed {
		s.logger.Info("Consultation status changed", "session_id", id, "from", from, "to", to)
		if s.hooks.OnStatusChanged != nil {
			s.hooks.OnStatusChanged(ctx, &domain.StatusEvent{
				EventBase: s.event(domain.EventStatusChanged, id),
				From:      from,
				To:        to,
			})
		}
	}
	return c, nil
}

// Get returns the current snapshot of a consultation. It does not take the lock.
func (s *Service) Get(ctx context.Context, id string) (*Snapshot, error) {
	c, err := s.manager.Get(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "get", id, err)
	}
	return s.snapshot(c)
}

// List returns consultations matching filter, newest first.
func (s *Service) List(ctx context.Context, filter ports.ListFilter) ([]*domain.Consultation, error) {
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return nil, s.fail(ctx, "list", "", domain.Errorf(domain.KindValidation, "list", "unknown status %q", st))
		}
	}
	list, err := s.manager.List(ctx, filter)
	if err != nil {
		return nil, s.fail(ctx, "list", "", err)
	}
	return list, nil
}

func (s *Service) event(t domain.EventType, id string) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now().UTC(), Type: t, SessionID: id}
}

// fail logs and reports a rejected operation, returning err unchanged.
func (s *Service) fail(ctx context.Context, op, id string, err error) error {
	kind := domain.KindOf(err)
	if kind == domain.KindInternal {
		s.logger.Error("Consultation operation failed", "op", op, "session_id", id, "err", err)
	} else {
		s.logger.Debug("Consultation operation rejected", "op", op, "session_id", id, "kind", kind, "err", err)
	}
	if s.hooks.OnOperationFailed != nil {
		s.hooks.OnOperationFailed(ctx, &domain.FailureEvent{
			EventBase: s.event(domain.EventOperationFailed, id),
			Op:        op,
			Kind:      kind,
		})
	}
	return err
}
