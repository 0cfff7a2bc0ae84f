package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/anamnesis/pkg/domain"
)

func conjunctivitis(t *testing.T) *Graph {
	t.Helper()
	g, err := New("q1", []domain.DecisionNode{
		{ID: "q1", Question: "discharge?", Yes: "q2", No: "d2"},
		{ID: "q2", Question: "pain?", Yes: "d1", No: "d3"},
		{ID: "d1", Diagnosis: "Acute conjunctivitis"},
		{ID: "d2", Diagnosis: "No abnormality"},
		{ID: "d3", Diagnosis: "Allergic conjunctivitis"},
	})
	require.NoError(t, err)
	return g
}

func TestNew_RejectsInvalid(t *testing.T) {
	_, err := New("a", []domain.DecisionNode{
		{ID: "a", Question: "?", Yes: "b", No: "b"},
		{ID: "b", Question: "?", Yes: "a", No: "c"},
		{ID: "c", Diagnosis: "x"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrGraphInvalid))

	var ge *domain.GraphInvalidError
	require.ErrorAs(t, err, &ge)
	assert.Contains(t, ge.Reason, "cycle")
}

func TestFollow(t *testing.T) {
	g := conjunctivitis(t)

	next, err := g.Follow("q1", domain.AnswerYes)
	require.NoError(t, err)
	assert.Equal(t, "q2", next)

	next, err = g.Follow("q1", domain.AnswerNo)
	require.NoError(t, err)
	assert.Equal(t, "d2", next)

	_, err = g.Follow("d1", domain.AnswerYes)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = g.Follow("ghost", domain.AnswerYes)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLongestPath(t *testing.T) {
	g := conjunctivitis(t)
	assert.Equal(t, 2, g.LongestPath())
	assert.Equal(t, 2, g.LongestPathFrom("q1"))
	assert.Equal(t, 1, g.LongestPathFrom("q2"))
	assert.Equal(t, 0, g.LongestPathFrom("d1"))
}

func TestDiagnoses(t *testing.T) {
	g := conjunctivitis(t)
	out := g.Diagnoses()
	require.Len(t, out, 3)

	assert.Equal(t, "Acute conjunctivitis", out[0].Diagnosis)
	assert.Equal(t, []Step{{"q1", domain.AnswerYes}, {"q2", domain.AnswerYes}}, out[0].Path)
	assert.Equal(t, []Step{{"q1", domain.AnswerNo}}, out[1].Path)
}

func TestNodes_PreservesOrder(t *testing.T) {
	g := conjunctivitis(t)
	nodes := g.Nodes()
	require.Len(t, nodes, 5)
	assert.Equal(t, "q1", nodes[0].ID)
	assert.Equal(t, "d3", nodes[4].ID)
	assert.Equal(t, 5, g.Len())
}
