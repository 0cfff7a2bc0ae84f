package graph

import (
	"context"
	"fmt"

	"github.com/aretw0/anamnesis/pkg/ports"
)

// Load reads a definition through l and validates it.
func Load(ctx context.Context, l ports.GraphLoader) (*Graph, error) {
	def, err := l.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}
	return New(def.Root, def.Nodes, WithRecommendations(def.Recommendations))
}
