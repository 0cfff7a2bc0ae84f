package consultation_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/anamnesis/pkg/adapters/memory"
	"github.com/aretw0/anamnesis/pkg/consultation"
	"github.com/aretw0/anamnesis/pkg/domain"
	"github.com/aretw0/anamnesis/pkg/graph"
	"github.com/aretw0/anamnesis/pkg/ports"
	"github.com/aretw0/anamnesis/pkg/session"
)

func conjunctivitisGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.New("q1", []domain.DecisionNode{
		{ID: "q1", Question: "discharge?", Yes: "q2", No: "d2"},
		{ID: "q2", Question: "pain?", Yes: "d1", No: "d3"},
		{ID: "d1", Diagnosis: "Acute conjunctivitis"},
		{ID: "d2", Diagnosis: "No abnormality"},
		{ID: "d3", Diagnosis: "Allergic conjunctivitis"},
	}, graph.WithRecommendations([]domain.Recommendation{
		{Keywords: []string{"conjunctivitis"}, Medication: []string{"Antibiotic drops"}},
	}))
	require.NoError(t, err)
	return g
}

func newService(t *testing.T, opts ...consultation.Option) *consultation.Service {
	t.Helper()
	mgr := session.NewManager(memory.NewStore())
	return consultation.New(conjunctivitisGraph(t), mgr, opts...)
}

func answer(t *testing.T, svc *consultation.Service, id, a string) *consultation.AnswerResult {
	t.Helper()
	res, err := svc.Answer(context.Background(), consultation.AnswerRequest{SessionID: id, Answer: a})
	require.NoError(t, err)
	return res
}

func TestConjunctivitisScenario(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	snap, err := svc.Start(ctx, "patient-1", "doctor-1")
	require.NoError(t, err)
	id := snap.Consultation.ID
	assert.Equal(t, "discharge?", snap.Question.Text)
	assert.Equal(t, 0, snap.Progress.ProgressPercent)

	res := answer(t, svc, id, "yes")
	require.NotNil(t, res.NextQuestion)
	assert.Equal(t, "pain?", res.NextQuestion.Text)
	assert.Empty(t, res.DiagnosisCandidate)

	res = answer(t, svc, id, "yes")
	assert.Nil(t, res.NextQuestion)
	assert.Equal(t, "Acute conjunctivitis", res.DiagnosisCandidate)
	assert.Equal(t, 100, res.Progress.ProgressPercent)
	assert.Equal(t, 2, res.Progress.QuestionsAnswered)
	require.Len(t, res.HistoryTail, 2)
	assert.Equal(t, 1, res.HistoryTail[0].Ordinal)
	assert.Equal(t, "discharge?", res.HistoryTail[0].Question)
	assert.Equal(t, domain.AnswerYes, res.HistoryTail[0].Answer)
	assert.Equal(t, 2, res.HistoryTail[1].Ordinal)
	assert.Equal(t, "pain?", res.HistoryTail[1].Question)

	c, err := svc.Complete(ctx, id, "Acute conjunctivitis", "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, c.Status)
	assert.Equal(t, "Acute conjunctivitis", c.FinalDiagnosis)
	assert.NotNil(t, c.CompletedAt)

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Consultation.Status)
	assert.True(t, got.Question.Terminal)
}

func TestComplete_BeforeDiagnosis(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	snap, err := svc.Start(ctx, "p", "d")
	require.NoError(t, err)

	_, err = svc.Complete(ctx, snap.Consultation.ID, "Something", "")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestComplete_FallsBackToCandidate(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	snap, _ := svc.Start(ctx, "p", "d")
	id := snap.Consultation.ID
	answer(t, svc, id, "no")

	c, err := svc.Complete(ctx, id, "  ", "looks fine")
	require.NoError(t, err)
	assert.Equal(t, "No abnormality", c.FinalDiagnosis)
	assert.Equal(t, "looks fine", c.DoctorNotes)

	_, err = svc.Complete(ctx, id, "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidState, "re-completion must fail")
}

func TestStart_TerminalRoot(t *testing.T) {
	ctx := context.Background()
	g, err := graph.New("d", []domain.DecisionNode{{ID: "d", Diagnosis: "No abnormality"}})
	require.NoError(t, err)
	svc := consultation.New(g, session.NewManager(memory.NewStore()))

	snap, err := svc.Start(ctx, "p", "d")
	require.NoError(t, err)
	assert.Equal(t, "No abnormality", snap.Consultation.DiagnosisCandidate)
	assert.Equal(t, 100, snap.Progress.ProgressPercent)
	require.NoError(t, svc.Engine().Verify(snap.Consultation))

	_, err = svc.Answer(ctx, consultation.AnswerRequest{SessionID: snap.Consultation.ID, Answer: "yes"})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	c, err := svc.Complete(ctx, snap.Consultation.ID, "", "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, c.Status)
	assert.Equal(t, "No abnormality", c.FinalDiagnosis)
}

func TestCancel_ThenAnswer(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	snap, _ := svc.Start(ctx, "p", "d")
	id := snap.Consultation.ID
	answer(t, svc, id, "yes")

	c, err := svc.Cancel(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, c.Status)

	_, err = svc.Answer(ctx, consultation.AnswerRequest{SessionID: id, Answer: "yes"})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, got.Consultation.History, 1)
	assert.Equal(t, "q1", got.Consultation.History[0].NodeID)
}

func TestTerminalLockout(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	completed, _ := svc.Start(ctx, "p", "d")
	answer(t, svc, completed.Consultation.ID, "no")
	_, err := svc.Complete(ctx, completed.Consultation.ID, "", "")
	require.NoError(t, err)

	canceled, _ := svc.Start(ctx, "p", "d")
	_, err = svc.Cancel(ctx, canceled.Consultation.ID)
	require.NoError(t, err)

	for _, id := range []string{completed.Consultation.ID, canceled.Consultation.ID} {
		_, err := svc.Answer(ctx, consultation.AnswerRequest{SessionID: id, Answer: "yes"})
		assert.ErrorIs(t, err, domain.ErrInvalidState)
		_, err = svc.Back(ctx, id)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
		_, err = svc.SaveDraft(ctx, id)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
		_, err = svc.Resume(ctx, id)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
		_, err = svc.Cancel(ctx, id)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
		_, err = svc.Complete(ctx, id, "x", "")
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	}
}

func TestDraftAndResume(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	snap, _ := svc.Start(ctx, "p", "d")
	id := snap.Consultation.ID
	answer(t, svc, id, "yes")

	c, err := svc.SaveDraft(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, c.Status)
	version := c.Version

	c, err = svc.SaveDraft(ctx, id)
	require.NoError(t, err, "draft save is idempotent")
	assert.Equal(t, version, c.Version, "idempotent draft save must not write")

	_, err = svc.Answer(ctx, consultation.AnswerRequest{SessionID: id, Answer: "yes"})
	assert.ErrorIs(t, err, domain.ErrInvalidState, "drafts must be resumed before answering")

	_, err = svc.Complete(ctx, id, "x", "")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	resumed, err := svc.Resume(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, resumed.Consultation.Status)
	assert.Equal(t, "pain?", resumed.Question.Text)
	assert.Len(t, resumed.Consultation.History, 1)

	again, err := svc.Resume(ctx, id)
	require.NoError(t, err, "resume of an active consultation is a no-op")
	assert.Equal(t, resumed.Consultation.Version, again.Consultation.Version)

	_, err = svc.SaveDraft(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBack(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	snap, _ := svc.Start(ctx, "p", "d")
	id := snap.Consultation.ID

	_, err := svc.Back(ctx, id)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	answer(t, svc, id, "yes")
	answer(t, svc, id, "no")

	back, err := svc.Back(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "q2", back.Question.NodeID)
	assert.Empty(t, back.Consultation.DiagnosisCandidate)
	assert.Equal(t, 1, back.Progress.QuestionsAnswered)

	disabled := newService(t, consultation.WithBackNavigation(false))
	snap, _ = disabled.Start(ctx, "p", "d")
	answer(t, disabled, snap.Consultation.ID, "yes")
	_, err = disabled.Back(ctx, snap.Consultation.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestStart_Validation(t *testing.T) {
	ctx := context.Background()
	dir := memory.NewDirectory([]string{"p1"}, []string{"d1"})
	svc := newService(t, consultation.WithDirectory(dir))

	_, err := svc.Start(ctx, "", "d1")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.Start(ctx, "p1", "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.Start(ctx, "ghost", "d1")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.Start(ctx, "p1", "ghost")
	assert.ErrorIs(t, err, domain.ErrValidation)

	snap, err := svc.Start(ctx, " p1 ", "d1")
	require.NoError(t, err)
	assert.Equal(t, "p1", snap.Consultation.PatientID)
}

func TestStart_ReuseOpen(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, consultation.WithReuseOpen(true))

	first, err := svc.Start(ctx, "p", "d")
	require.NoError(t, err)
	_, err = svc.SaveDraft(ctx, first.Consultation.ID)
	require.NoError(t, err)

	second, err := svc.Start(ctx, "p", "d")
	require.NoError(t, err)
	assert.Equal(t, first.Consultation.ID, second.Consultation.ID)
	assert.Equal(t, domain.StatusActive, second.Consultation.Status, "reused draft is resumed")

	other, err := svc.Start(ctx, "p", "another-doctor")
	require.NoError(t, err)
	assert.NotEqual(t, first.Consultation.ID, other.Consultation.ID)

	plain := newService(t)
	a, _ := plain.Start(ctx, "p", "d")
	b, _ := plain.Start(ctx, "p", "d")
	assert.NotEqual(t, a.Consultation.ID, b.Consultation.ID)
}

func TestAnswer_Errors(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	_, err := svc.Answer(ctx, consultation.AnswerRequest{SessionID: "missing", Answer: "yes"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	snap, _ := svc.Start(ctx, "p", "d")
	_, err = svc.Answer(ctx, consultation.AnswerRequest{SessionID: snap.Consultation.ID, Answer: "perhaps"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, _ := svc.Get(ctx, snap.Consultation.ID)
	assert.Empty(t, got.Consultation.History)
}

func TestAnswer_DoubleSubmit(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	snap, _ := svc.Start(ctx, "p", "d")
	id := snap.Consultation.ID

	var wg sync.WaitGroup
	results := make([]*consultation.AnswerResult, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Answer(ctx, consultation.AnswerRequest{SessionID: id, Answer: "yes", ExpectedNodeID: "q1"})
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.True(t, results[0].Replayed != results[1].Replayed, "exactly one submission is recorded")

	got, _ := svc.Get(ctx, id)
	assert.Len(t, got.Consultation.History, 1)
}

func TestHooks(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	counts := map[domain.EventType]int{}
	record := func(t domain.EventType) {
		mu.Lock()
		defer mu.Unlock()
		counts[t]++
	}
	svc := newService(t, consultation.WithLifecycleHooks(domain.LifecycleHooks{
		OnConsultationStarted: func(_ context.Context, e *domain.ConsultationEvent) { record(e.Type) },
		OnAnswerRecorded:      func(_ context.Context, e *domain.AnswerEvent) { record(e.Type) },
		OnDiagnosisReached:    func(_ context.Context, e *domain.DiagnosisEvent) { record(e.Type) },
		OnStatusChanged:       func(_ context.Context, e *domain.StatusEvent) { record(e.Type) },
		OnOperationFailed:     func(_ context.Context, e *domain.FailureEvent) { record(e.Type) },
	}))

	snap, _ := svc.Start(ctx, "p", "d")
	id := snap.Consultation.ID
	answer(t, svc, id, "yes")
	answer(t, svc, id, "yes")
	_, _ = svc.Complete(ctx, id, "", "")
	_, _ = svc.Cancel(ctx, id)

	assert.Equal(t, 1, counts[domain.EventConsultationStarted])
	assert.Equal(t, 2, counts[domain.EventAnswerRecorded])
	assert.Equal(t, 1, counts[domain.EventDiagnosisReached])
	assert.Equal(t, 1, counts[domain.EventStatusChanged])
	assert.Equal(t, 1, counts[domain.EventOperationFailed])
}

func TestList(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	_, _ = svc.Start(ctx, "p1", "d1")
	_, _ = svc.Start(ctx, "p1", "d2")
	_, _ = svc.Start(ctx, "p2", "d1")

	list, err := svc.List(ctx, ports.ListFilter{PatientID: "p1"})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = svc.List(ctx, ports.ListFilter{Statuses: []domain.Status{"archived"}})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
