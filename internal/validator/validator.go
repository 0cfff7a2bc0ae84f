// Package validator checks the structure of a decision graph before it is served.
package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/anamnesis/pkg/domain"
)

// Issue is a single structural defect.
type Issue struct {
	NodeID string
	Reason string
}

func (i Issue) String() string {
	if i.NodeID == "" {
		return i.Reason
	}
	return fmt.Sprintf("%s: %s", i.NodeID, i.Reason)
}

// Validate returns every structural issue found in the graph rooted at root.
// An empty result means the graph is a rooted DAG where every node is reachable,
// every question has both edges and every leaf carries a diagnosis.
func Validate(root string, nodes []domain.DecisionNode) []Issue {
	var issues []Issue
	add := func(id, format string, args ...any) {
		issues = append(issues, Issue{NodeID: id, Reason: fmt.Sprintf(format, args...)})
	}

	byID := make(map[string]domain.DecisionNode, len(nodes))
	for _, n := range nodes {
		if strings.TrimSpace(n.ID) == "" {
			add("", "node with empty id")
			continue
		}
		if _, dup := byID[n.ID]; dup {
			add(n.ID, "duplicate node id")
			continue
		}
		byID[n.ID] = n
	}

	for _, n := range nodes {
		if n.ID == "" {
			continue
		}
		switch {
		case n.IsTerminal():
			if strings.TrimSpace(n.Diagnosis) == "" {
				add(n.ID, "terminal node has no diagnosis")
			}
		case n.Yes == "" || n.No == "":
			add(n.ID, "question must have both yes and no edges")
		default:
			if strings.TrimSpace(n.Question) == "" {
				add(n.ID, "question text is empty")
			}
			if n.Diagnosis != "" {
				add(n.ID, "diagnosis set on a non-terminal node")
			}
		}
		for _, target := range n.Edges() {
			if _, ok := byID[target]; !ok {
				add(n.ID, "missing node %q", target)
			}
		}
	}

	if strings.TrimSpace(root) == "" {
		add("", "root node is not set")
		return issues
	}
	if _, ok := byID[root]; !ok {
		add(root, "root node not found")
		return issues
	}

	// Crawl
	visited := map[string]bool{}
	queue := []string{root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		for _, target := range byID[id].Edges() {
			if _, ok := byID[target]; ok && !visited[target] {
				queue = append(queue, target)
			}
		}
	}
	for _, n := range nodes {
		if _, ok := byID[n.ID]; ok && !visited[n.ID] {
			add(n.ID, "unreachable from root %q", root)
		}
	}

	if id, ok := findCycle(root, byID); ok {
		add(id, "cycle detected")
	}

	return issues
}

// Err converts the first issue into a GraphInvalidError, or nil when there are none.
func Err(issues []Issue) error {
	if len(issues) == 0 {
		return nil
	}
	return &domain.GraphInvalidError{NodeID: issues[0].NodeID, Reason: issues[0].Reason}
}

// Format renders issues one per line.
func Format(issues []Issue) string {
	lines := make([]string, len(issues))
	for i, is := range issues {
		lines[i] = "- " + is.String()
	}
	return fmt.Sprintf("found %d errors:\n%s", len(issues), strings.Join(lines, "\n"))
}

const (
	white = iota
	grey
	black
)

func findCycle(root string, byID map[string]domain.DecisionNode) (string, bool) {
	color := make(map[string]int, len(byID))
	var visit func(id string) (string, bool)
	visit = func(id string) (string, bool) {
		color[id] = grey
		for _, target := range byID[id].Edges() {
			if _, ok := byID[target]; !ok {
				continue
			}
			switch color[target] {
			case grey:
				return target, true
			case white:
				if at, found := visit(target); found {
					return at, true
				}
			}
		}
		color[id] = black
		return "", false
	}
	if at, found := visit(root); found {
		return at, true
	}
	// Unreachable components may hide cycles too.
	for id := range byID {
		if color[id] == white {
			if at, found := visit(id); found {
				return at, true
			}
		}
	}
	return "", false
}
