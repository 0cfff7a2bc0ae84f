package memory

import (
	"context"
	"fmt"

	"github.com/aretw0/anamnesis/pkg/domain"
	"github.com/aretw0/anamnesis/pkg/ports"
)

// Loader implements ports.GraphLoader over nodes held in memory.
type Loader struct {
	def ports.GraphDefinition
}

// NewLoader creates a Loader rooted at root.
func NewLoader(root string, nodes ...domain.DecisionNode) *Loader {
	return &Loader{def: ports.GraphDefinition{
		Root:  root,
		Nodes: append([]domain.DecisionNode(nil), nodes...),
	}}
}

// WithRecommendations attaches a recommendation catalog and returns the loader.
func (l *Loader) WithRecommendations(recs ...domain.Recommendation) *Loader {
	l.def.Recommendations = append(l.def.Recommendations, recs...)
	return l
}

// Load returns a copy of the definition.
func (l *Loader) Load(ctx context.Context) (*ports.GraphDefinition, error) {
	if len(l.def.Nodes) == 0 {
		return nil, fmt.Errorf("memory loader: no nodes")
	}
	def := ports.GraphDefinition{
		Root:            l.def.Root,
		Nodes:           append([]domain.DecisionNode(nil), l.def.Nodes...),
		Recommendations: append([]domain.Recommendation(nil), l.def.Recommendations...),
	}
	return &def, nil
}
