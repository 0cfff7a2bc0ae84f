package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/anamnesis/pkg/adapters/memory"
	"github.com/aretw0/anamnesis/pkg/domain"
)

func TestLoader(t *testing.T) {
	loader := memory.NewLoader("start",
		domain.DecisionNode{ID: "start", Question: "Fever?", Yes: "flu", No: "ok"},
		domain.DecisionNode{ID: "flu", Diagnosis: "Influenza"},
		domain.DecisionNode{ID: "ok", Diagnosis: "Healthy"},
	).WithRecommendations(domain.Recommendation{Keywords: []string{"influenza"}, General: []string{"Rest"}})

	def, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "start", def.Root)
	assert.Len(t, def.Nodes, 3)
	assert.Len(t, def.Recommendations, 1)

	// Copies are handed out
	def.Nodes[0].Question = "changed"
	again, _ := loader.Load(context.Background())
	assert.Equal(t, "Fever?", again.Nodes[0].Question)

	_, err = memory.NewLoader("x").Load(context.Background())
	assert.Error(t, err)
}

func TestDirectory(t *testing.T) {
	ctx := context.Background()

	open := memory.NewDirectory(nil, nil)
	ok, _ := open.PatientExists(ctx, "anyone")
	assert.True(t, ok)

	strict := memory.NewDirectory([]string{"p1"}, []string{})
	ok, _ = strict.PatientExists(ctx, "p1")
	assert.True(t, ok)
	ok, _ = strict.PatientExists(ctx, "p2")
	assert.False(t, ok)
	ok, _ = strict.DoctorExists(ctx, "d1")
	assert.False(t, ok)

	strict.AddDoctor("d1")
	ok, _ = strict.DoctorExists(ctx, "d1")
	assert.True(t, ok)
}
