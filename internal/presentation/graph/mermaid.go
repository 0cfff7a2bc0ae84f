package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/anamnesis/pkg/domain"
)

// GraphOverlay contains dynamic consultation data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// OverlayFor builds the overlay of a consultation: answered questions plus its position.
func OverlayFor(c *domain.Consultation) *GraphOverlay {
	o := &GraphOverlay{CurrentNode: c.CurrentNodeID}
	for _, h := range c.History {
		o.VisitedNodes = append(o.VisitedNodes, h.NodeID)
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart syntax string from a decision graph.
// It applies semantic styling:
// - Root: ((Circle))
// - Question: {Rhombus}
// - Diagnosis: [[Subroutine]]
// Edges are labelled with the answer that follows them.
// It also applies overlay styles (Visited/Current) if provided.
func GenerateMermaid(root string, nodes []domain.DecisionNode, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range nodes {
		safeID := sanitizeMermaidID(node.ID)

		text := node.Question
		opener, closer := "{", "}"
		switch {
		case node.IsTerminal():
			text = node.Diagnosis
			opener, closer = "[[", "]]"
		case node.ID == root:
			opener, closer = "((", "))"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, escapeLabel(text), closer)

		if node.IsTerminal() {
			continue
		}
		fmt.Fprintf(&sb, "    %s -- \"yes\" --> %s\n", safeID, sanitizeMermaidID(node.Yes))
		fmt.Fprintf(&sb, "    %s -- \"no\" --> %s\n", safeID, sanitizeMermaidID(node.No))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
