package dsl

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/anamnesis/pkg/adapters/memory"
	"github.com/aretw0/anamnesis/pkg/domain"
	"github.com/aretw0/anamnesis/pkg/graph"
)

// Builder manages the graph construction.
type Builder struct {
	root  string
	order []string
	nodes map[string]*NodeBuilder
	recs  []domain.Recommendation
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{
		nodes: make(map[string]*NodeBuilder),
	}
}

// Root sets the entry node. It defaults to the first node added.
func (b *Builder) Root(id string) *Builder {
	b.root = id
	return b
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: domain.DecisionNode{
			ID: id,
		},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Recommend registers treatment advice for diagnoses containing any of the keywords.
func (b *Builder) Recommend(rec domain.Recommendation) *Builder {
	b.recs = append(b.recs, rec)
	return b
}

// Build compiles the nodes into a memory loader.
func (b *Builder) Build() (*memory.Loader, error) {
	if len(b.order) == 0 {
		return nil, errors.New("dsl: graph has no nodes")
	}
	root := b.root
	if root == "" {
		root = b.order[0]
	}

	nodes := make([]domain.DecisionNode, 0, len(b.order))
	for _, id := range b.order {
		nodes = append(nodes, b.nodes[id].node)
	}
	return memory.NewLoader(root, nodes...).WithRecommendations(b.recs...), nil
}

// Graph builds and validates the graph in one step.
func (b *Builder) Graph() (*graph.Graph, error) {
	loader, err := b.Build()
	if err != nil {
		return nil, err
	}
	g, err := graph.Load(context.Background(), loader)
	if err != nil {
		return nil, fmt.Errorf("dsl: %w", err)
	}
	return g, nil
}
