package mcp

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/anamnesis/pkg/adapters/memory"
	"github.com/aretw0/anamnesis/pkg/consultation"
	"github.com/aretw0/anamnesis/pkg/domain"
	"github.com/aretw0/anamnesis/pkg/graph"
	"github.com/aretw0/anamnesis/pkg/session"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	g, err := graph.New("q1", []domain.DecisionNode{
		{ID: "q1", Question: "Is there discharge?", Yes: "q2", No: "d2"},
		{ID: "q2", Question: "Is there pain?", Yes: "d1", No: "d3"},
		{ID: "d1", Diagnosis: "Acute conjunctivitis"},
		{ID: "d2", Diagnosis: "No abnormality"},
		{ID: "d3", Diagnosis: "Allergic conjunctivitis"},
	})
	require.NoError(t, err)
	return NewServer(consultation.New(g, session.NewManager(memory.NewStore())))
}

func call(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

func structured(t *testing.T, res *mcp.CallToolResult) SessionResult {
	t.Helper()
	require.NotNil(t, res)
	require.False(t, res.IsError, "unexpected tool error: %v", res.Content)
	out, ok := res.StructuredContent.(SessionResult)
	require.True(t, ok, "got %T", res.StructuredContent)
	return out
}

func errorText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.True(t, res.IsError)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestTools_ConsultationFlow(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleStart(ctx, call(map[string]any{"patient_id": "p1", "doctor_id": "doc"}))
	require.NoError(t, err)
	started := structured(t, res)
	require.NotNil(t, started.Question)
	assert.Equal(t, "q1", started.Question.NodeID)
	id := started.SessionID

	res, err = s.handleAnswer(ctx, call(map[string]any{"session_id": id, "answer": "yes", "expected_node_id": "q1"}))
	require.NoError(t, err)
	assert.Equal(t, "q2", structured(t, res).Question.NodeID)

	res, err = s.sessionHandler("go_back", s.svc.Back)(ctx, call(map[string]any{"session_id": id}))
	require.NoError(t, err)
	back := structured(t, res)
	assert.Equal(t, "q1", back.Question.NodeID)
	assert.Empty(t, back.History)

	res, err = s.handleAnswer(ctx, call(map[string]any{"session_id": id, "answer": "no"}))
	require.NoError(t, err)
	answered := structured(t, res)
	assert.Nil(t, answered.Question)
	assert.Equal(t, "No abnormality", answered.DiagnosisCandidate)
	assert.Equal(t, 100, answered.Progress.ProgressPercent)

	res, err = s.handleComplete(ctx, call(map[string]any{"session_id": id, "notes": "healthy"}))
	require.NoError(t, err)
	done := structured(t, res)
	assert.Equal(t, domain.StatusCompleted, done.Status)
	assert.Equal(t, "No abnormality", done.FinalDiagnosis)
}

func TestTools_DraftResumeCancel(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleStart(ctx, call(map[string]any{"patient_id": "p1", "doctor_id": "doc"}))
	require.NoError(t, err)
	id := structured(t, res).SessionID
	args := call(map[string]any{"session_id": id})

	res, err = s.statusHandler("save_draft", s.svc.SaveDraft)(ctx, args)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, structured(t, res).Status)

	res, err = s.sessionHandler("resume_consultation", s.svc.Resume)(ctx, args)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, structured(t, res).Status)

	res, err = s.statusHandler("cancel_consultation", s.svc.Cancel)(ctx, args)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, structured(t, res).Status)

	res, err = s.handleAnswer(ctx, call(map[string]any{"session_id": id, "answer": "yes"}))
	require.NoError(t, err)
	assert.Contains(t, errorText(t, res), "invalid_state:")
}

func TestTools_Errors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, err := s.sessionHandler("get_consultation", s.svc.Get)(ctx, call(map[string]any{"session_id": "missing"}))
	require.NoError(t, err)
	assert.Contains(t, errorText(t, res), "not_found:")

	res, err = s.handleStart(ctx, call(map[string]any{"patient_id": "p1"}))
	require.NoError(t, err)
	assert.Contains(t, errorText(t, res), "validation:")

	res, err = s.handleStart(ctx, call(map[string]any{"patient_id": "p1", "doctor_id": "doc"}))
	require.NoError(t, err)
	id := structured(t, res).SessionID

	res, err = s.handleComplete(ctx, call(map[string]any{"session_id": id}))
	require.NoError(t, err)
	assert.Contains(t, errorText(t, res), "invalid_state:")

	res, err = s.handleAnswer(ctx, call(map[string]any{"session_id": id, "answer": "maybe"}))
	require.NoError(t, err)
	assert.Contains(t, errorText(t, res), "validation:")
}

func TestToolError_MasksInternal(t *testing.T) {
	s := newTestServer(t)
	res := s.toolError("get_consultation", assert.AnError)
	assert.Equal(t, "internal: internal error", errorText(t, res))
}

func TestServer_ToolsAndResources(t *testing.T) {
	s := newTestServer(t)
	tools := s.MCPServer().ListTools()
	for _, name := range []string{
		"start_consultation", "answer_question", "go_back", "save_draft", "resume_consultation",
		"cancel_consultation", "complete_consultation", "get_consultation", "list_diagnoses",
	} {
		assert.Contains(t, tools, name)
	}

	res, err := tools["list_diagnoses"].Handler(context.Background(), call(nil))
	require.NoError(t, err)
	out, ok := res.StructuredContent.(DiagnosesResult)
	require.True(t, ok)
	assert.Len(t, out.Diagnoses, 3)
}
