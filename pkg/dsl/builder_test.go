package dsl_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/anamnesis/pkg/domain"
	"github.com/aretw0/anamnesis/pkg/dsl"
)

func conjunctivitis() *dsl.Builder {
	b := dsl.New()
	b.Add("discharge").Ask("Is there discharge from the eye?", "pain", "healthy")
	b.Add("pain").Ask("Is there eye pain?", "acute", "allergic")
	b.Add("acute").Diagnosis("Acute conjunctivitis")
	b.Add("allergic").Diagnosis("Allergic conjunctivitis")
	b.Add("healthy").Diagnosis("No abnormality")
	return b
}

func TestBuilder_Graph(t *testing.T) {
	g, err := conjunctivitis().Graph()
	require.NoError(t, err)

	assert.Equal(t, "discharge", g.Root())
	assert.Equal(t, 5, g.Len())
	assert.Equal(t, 2, g.LongestPath())

	next, err := g.Follow("discharge", domain.AnswerYes)
	require.NoError(t, err)
	assert.Equal(t, "pain", next)
}

func TestBuilder_BuildLoader(t *testing.T) {
	b := conjunctivitis().Root("pain")
	b.Recommend(domain.Recommendation{Keywords: []string{"conjunctivitis"}, General: []string{"Wash hands"}})

	loader, err := b.Build()
	require.NoError(t, err)
	def, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "pain", def.Root)
	require.Len(t, def.Nodes, 5)
	assert.Equal(t, "discharge", def.Nodes[0].ID, "declaration order is kept")
	require.Len(t, def.Recommendations, 1)
}

func TestBuilder_AddReturnsExisting(t *testing.T) {
	b := dsl.New()
	first := b.Add("q")
	first.Question("one")
	assert.Same(t, first, b.Add("q"))
	assert.Equal(t, "one", b.Add("q").Build().Question)
}

func TestBuilder_DiagnosisClearsEdges(t *testing.T) {
	n := dsl.New().Add("x").Ask("?", "a", "b").Diagnosis("Done").Build()
	assert.True(t, n.IsTerminal())
	assert.Empty(t, n.Yes)
	assert.Empty(t, n.No)
}

func TestBuilder_Invalid(t *testing.T) {
	_, err := dsl.New().Build()
	assert.Error(t, err)

	b := dsl.New()
	b.Add("q").Ask("dangling?", "missing", "missing")
	_, err = b.Graph()
	assert.ErrorIs(t, err, domain.ErrGraphInvalid)
}
