package domain

// DecisionNode is a vertex of the diagnostic decision graph.
// Non-terminal nodes carry a question and both edges; terminal nodes carry only a diagnosis.
type DecisionNode struct {
	ID        string `json:"id" yaml:"id" mapstructure:"id"`
	Question  string `json:"question,omitempty" yaml:"question,omitempty" mapstructure:"question"`
	Yes       string `json:"yes,omitempty" yaml:"yes,omitempty" mapstructure:"yes"`
	No        string `json:"no,omitempty" yaml:"no,omitempty" mapstructure:"no"`
	Diagnosis string `json:"diagnosis,omitempty" yaml:"diagnosis,omitempty" mapstructure:"diagnosis"`
}

// IsTerminal reports whether the node has no outgoing edges.
func (n DecisionNode) IsTerminal() bool {
	return n.Yes == "" && n.No == ""
}

// Target returns the node reached by answering a.
func (n DecisionNode) Target(a Answer) string {
	if a == AnswerYes {
		return n.Yes
	}
	return n.No
}

// Edges returns the outgoing targets in yes, no order, skipping empty ones.
func (n DecisionNode) Edges() []string {
	var out []string
	if n.Yes != "" {
		out = append(out, n.Yes)
	}
	if n.No != "" {
		out = append(out, n.No)
	}
	return out
}

// Recommendation is follow-up advice for diagnoses mentioning any of Keywords
// (case-insensitive). An entry without keywords is the fallback.
type Recommendation struct {
	Keywords   []string `json:"keywords,omitempty" yaml:"keywords,omitempty" mapstructure:"keywords"`
	Medication []string `json:"medication,omitempty" yaml:"medication,omitempty" mapstructure:"medication"`
	General    []string `json:"general,omitempty" yaml:"general,omitempty" mapstructure:"general"`
	FollowUp   []string `json:"follow_up,omitempty" yaml:"follow_up,omitempty" mapstructure:"follow_up"`
}
