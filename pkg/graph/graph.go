// Package graph holds the immutable decision graph a consultation walks.
//
// A Graph is validated once at construction and never changes afterwards, so it can be
// shared by every session and read concurrently without locking.
package graph

import (
	"github.com/aretw0/anamnesis/internal/validator"
	"github.com/aretw0/anamnesis/pkg/domain"
)

// Graph is a validated, rooted DAG of yes/no questions.
type Graph struct {
	root    string
	nodes   map[string]domain.DecisionNode
	order   []string
	longest map[string]int
	recs    []domain.Recommendation
}

// Option configures a Graph.
type Option func(*Graph)

// WithRecommendations attaches the follow-up catalog used by consultation reports.
func WithRecommendations(recs []domain.Recommendation) Option {
	return func(g *Graph) {
		g.recs = append([]domain.Recommendation(nil), recs...)
	}
}

// New validates nodes and freezes them into a Graph.
// The first structural problem is returned as a *domain.GraphInvalidError.
func New(root string, nodes []domain.DecisionNode, opts ...Option) (*Graph, error) {
	if err := validator.Err(validator.Validate(root, nodes)); err != nil {
		return nil, err
	}

	g := &Graph{
		root:    root,
		nodes:   make(map[string]domain.DecisionNode, len(nodes)),
		order:   make([]string, 0, len(nodes)),
		longest: make(map[string]int, len(nodes)),
	}
	for _, n := range nodes {
		g.nodes[n.ID] = n
		g.order = append(g.order, n.ID)
	}
	for _, opt := range opts {
		opt(g)
	}
	g.computeLongest(root)
	return g, nil
}

func (g *Graph) computeLongest(id string) int {
	if d, ok := g.longest[id]; ok {
		return d
	}
	n := g.nodes[id]
	d := 0
	for _, target := range n.Edges() {
		if l := g.computeLongest(target) + 1; l > d {
			d = l
		}
	}
	g.longest[id] = d
	return d
}

// Root returns the entry node id.
func (g *Graph) Root() string { return g.root }

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.order) }

// Node returns the node with the given id.
func (g *Graph) Node(id string) (domain.DecisionNode, error) {
	n, ok := g.nodes[id]
	if !ok {
		return domain.DecisionNode{}, domain.Errorf(domain.KindNotFound, "graph node", "node %q not found", id)
	}
	return n, nil
}

// Follow resolves the edge taken when answering a at node id.
func (g *Graph) Follow(id string, a domain.Answer) (string, error) {
	n, err := g.Node(id)
	if err != nil {
		return "", err
	}
	if n.IsTerminal() {
		return "", domain.Errorf(domain.KindInvalidState, "graph follow", "node %q is terminal", id)
	}
	return n.Target(a), nil
}

// Nodes returns every node in declaration order.
func (g *Graph) Nodes() []domain.DecisionNode {
	out := make([]domain.DecisionNode, len(g.order))
	for i, id := range g.order {
		out[i] = g.nodes[id]
	}
	return out
}

// LongestPathFrom is the maximum number of answers still needed from id to reach a terminal node.
func (g *Graph) LongestPathFrom(id string) int {
	return g.longest[id]
}

// LongestPath is the maximum number of answers in any consultation.
func (g *Graph) LongestPath() int {
	return g.longest[g.root]
}

// Recommendations returns the follow-up catalog.
func (g *Graph) Recommendations() []domain.Recommendation {
	return append([]domain.Recommendation(nil), g.recs...)
}

// Step is one answered question on a path.
type Step struct {
	NodeID string        `json:"nodeId"`
	Answer domain.Answer `json:"answer"`
}

// Outcome is a reachable diagnosis together with the shortest answer path leading to it.
type Outcome struct {
	NodeID    string `json:"nodeId"`
	Diagnosis string `json:"diagnosis"`
	Path      []Step `json:"path"`
}

// Diagnoses lists every terminal node in declaration order with a shortest path from the root.
func (g *Graph) Diagnoses() []Outcome {
	paths := map[string][]Step{g.root: {}}
	queue := []string{g.root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		n := g.nodes[id]
		if n.IsTerminal() {
			continue
		}
		for _, a := range []domain.Answer{domain.AnswerYes, domain.AnswerNo} {
			target := n.Target(a)
			if _, seen := paths[target]; seen {
				continue
			}
			p := make([]Step, len(paths[id]), len(paths[id])+1)
			copy(p, paths[id])
			paths[target] = append(p, Step{NodeID: id, Answer: a})
			queue = append(queue, target)
		}
	}

	var out []Outcome
	for _, id := range g.order {
		n := g.nodes[id]
		if !n.IsTerminal() {
			continue
		}
		out = append(out, Outcome{NodeID: id, Diagnosis: n.Diagnosis, Path: paths[id]})
	}
	return out
}
