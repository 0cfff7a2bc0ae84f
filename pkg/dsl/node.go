package dsl

import "github.com/aretw0/anamnesis/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.DecisionNode
	builder *Builder
}

// Question sets the text asked to the patient.
func (n *NodeBuilder) Question(text string) *NodeBuilder {
	n.node.Question = text
	return n
}

// Yes sets the node followed on a "yes" answer.
func (n *NodeBuilder) Yes(target string) *NodeBuilder {
	n.node.Yes = target
	return n
}

// No sets the node followed on a "no" answer.
func (n *NodeBuilder) No(target string) *NodeBuilder {
	n.node.No = target
	return n
}

// Ask is shorthand for Question(text).Yes(yes).No(no).
func (n *NodeBuilder) Ask(text, yes, no string) *NodeBuilder {
	return n.Question(text).Yes(yes).No(no)
}

// Diagnosis marks the node as terminal with the given diagnosis.
func (n *NodeBuilder) Diagnosis(text string) *NodeBuilder {
	n.node.Diagnosis = text
	n.node.Yes = ""
	n.node.No = ""
	return n
}

// Build returns the underlying domain.DecisionNode.
func (n *NodeBuilder) Build() domain.DecisionNode {
	return n.node
}
