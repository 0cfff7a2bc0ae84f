// Package progress estimates how far a consultation has advanced.
package progress

import (
	"github.com/aretw0/anamnesis/pkg/domain"
	"github.com/aretw0/anamnesis/pkg/graph"
)

// Calculate reports answered questions and a percentage derived from the longest path
// still ahead of the current node. The percentage never decreases while answering
// forward and reaches exactly 100 only on a terminal node.
func Calculate(g *graph.Graph, c *domain.Consultation) domain.Progress {
	answered := len(c.History)
	remaining := g.LongestPathFrom(c.CurrentNodeID)

	p := domain.Progress{
		QuestionsAnswered: answered,
		RemainingMax:      remaining,
	}
	switch {
	case remaining == 0:
		p.ProgressPercent = 100
	case answered == 0:
		p.ProgressPercent = 0
	default:
		p.ProgressPercent = clamp(100 * answered / (answered + remaining))
	}
	return p
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
