package ports

import (
	"context"

	"github.com/aretw0/anamnesis/pkg/domain"
)

// GraphDefinition is an unvalidated graph as read from a source.
type GraphDefinition struct {
	Root            string
	Nodes           []domain.DecisionNode
	Recommendations []domain.Recommendation
}

// GraphLoader reads a graph definition from a backing source (file, Loam vault, memory).
// Validation happens afterwards, in graph.Load.
type GraphLoader interface {
	Load(ctx context.Context) (*GraphDefinition, error)
}
