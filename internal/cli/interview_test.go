package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/anamnesis/pkg/adapters/memory"
	"github.com/aretw0/anamnesis/pkg/consultation"
	"github.com/aretw0/anamnesis/pkg/domain"
	"github.com/aretw0/anamnesis/pkg/graph"
	"github.com/aretw0/anamnesis/pkg/session"
)

func newService(t *testing.T) *consultation.Service {
	t.Helper()
	g, err := graph.New("q1", []domain.DecisionNode{
		{ID: "q1", Question: "Is there discharge?", Yes: "q2", No: "d2"},
		{ID: "q2", Question: "Is there pain?", Yes: "d1", No: "d3"},
		{ID: "d1", Diagnosis: "Acute conjunctivitis"},
		{ID: "d2", Diagnosis: "No abnormality"},
		{ID: "d3", Diagnosis: "Allergic conjunctivitis"},
	})
	require.NoError(t, err)
	return consultation.New(g, session.NewManager(memory.NewStore()))
}

func run(t *testing.T, svc Service, sessionID, input string) (*domain.Consultation, string, error) {
	t.Helper()
	var out bytes.Buffer
	c, err := RunInterview(context.Background(), svc, InterviewOptions{
		PatientID: "p1",
		DoctorID:  "d1",
		SessionID: sessionID,
		In:        strings.NewReader(input),
		Out:       &out,
	})
	return c, out.String(), err
}

func TestRunInterview_Complete(t *testing.T) {
	svc := newService(t)

	c, out, err := run(t, svc, "", "maybe\nyes\nback\ny\nn\n\nCold compresses\n")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, c.Status)
	assert.Equal(t, "Allergic conjunctivitis", c.FinalDiagnosis)
	assert.Equal(t, "Cold compresses", c.DoctorNotes)
	assert.Len(t, c.History, 2)

	assert.Contains(t, out, "Please answer y or n.")
	assert.Contains(t, out, "### Is there pain?")
	assert.Contains(t, out, "**Allergic conjunctivitis**")
	assert.Contains(t, out, "# Consultation "+c.ID)
}

func TestRunInterview_BackAtFirstQuestion(t *testing.T) {
	svc := newService(t)

	c, out, err := run(t, svc, "", "b\nno\nNormal eye\n\n")
	require.NoError(t, err)
	assert.Contains(t, out, ">>> already at first question")
	assert.Equal(t, "Normal eye", c.FinalDiagnosis)
}

func TestRunInterview_DraftAndResume(t *testing.T) {
	svc := newService(t)

	c, out, err := run(t, svc, "", "y\ns\n")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, c.Status)
	assert.Contains(t, out, "Resume with --session "+c.ID)

	c, out, err = run(t, svc, c.ID, "y\n\n\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Resuming at 'q2' node")
	assert.Equal(t, domain.StatusCompleted, c.Status)
	assert.Equal(t, "Acute conjunctivitis", c.FinalDiagnosis)
}

func TestRunInterview_EOFSavesDraft(t *testing.T) {
	svc := newService(t)

	c, _, err := run(t, svc, "", "yes\n")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, c.Status)
	assert.Equal(t, "q2", c.CurrentNodeID)
}

func TestRunInterview_Cancel(t *testing.T) {
	svc := newService(t)

	c, _, err := run(t, svc, "", "c\n")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, c.Status)

	_, _, err = run(t, svc, c.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestRunInterview_UnknownSession(t *testing.T) {
	_, _, err := run(t, newService(t), "missing", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHandleExecutionError(t *testing.T) {
	assert.NoError(t, HandleExecutionError(context.Canceled))
	assert.NoError(t, HandleExecutionError(errInterrupted))
	assert.Error(t, HandleExecutionError(assert.AnError))
}
