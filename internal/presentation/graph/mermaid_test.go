package graph_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/anamnesis/internal/presentation/graph"
	"github.com/aretw0/anamnesis/pkg/domain"
)

var nodes = []domain.DecisionNode{
	{ID: "q1", Question: "Is there discharge?", Yes: "q2", No: "d2"},
	{ID: "q2", Question: `Is the eye "red"?`, Yes: "d-1", No: "d2"},
	{ID: "d-1", Diagnosis: "Acute conjunctivitis"},
	{ID: "d2", Diagnosis: "No abnormality"},
}

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		overlay  *graph.GraphOverlay
		contains []string
		excludes []string
	}{
		{
			name: "Shapes",
			contains: []string{
				`q1(("Is there discharge?"))`,
				`q2{"Is the eye 'red'?"}`,
				`d_1[["Acute conjunctivitis"]]`,
			},
			excludes: []string{"classDef"},
		},
		{
			name: "Answer Edges",
			contains: []string{
				`q1 -- "yes" --> q2`,
				`q1 -- "no" --> d2`,
				`q2 -- "yes" --> d_1`,
			},
		},
		{
			name: "Overlay",
			overlay: graph.OverlayFor(&domain.Consultation{
				CurrentNodeID: "d-1",
				History: []domain.HistoryEntry{
					{Ordinal: 1, NodeID: "q1", Answer: domain.AnswerYes},
					{Ordinal: 2, NodeID: "q2", Answer: domain.AnswerYes},
				},
			}),
			contains: []string{
				"class q1 visited;",
				"class q2 visited;",
				"class d_1 current;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid("q1", nodes, tt.overlay)
			assert.True(t, strings.HasPrefix(got, "graph TD\n"))
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, got, unwanted)
			}
		})
	}
}
