package domain

// QuestionView is what a client renders for the current position.
// For terminal nodes Terminal is true and Diagnosis carries the candidate.
type QuestionView struct {
	NodeID    string `json:"nodeId"`
	Text      string `json:"text,omitempty"`
	Terminal  bool   `json:"terminal"`
	Diagnosis string `json:"diagnosis,omitempty"`
}

// ViewOf builds the client view of a node.
func ViewOf(n DecisionNode) QuestionView {
	if n.IsTerminal() {
		return QuestionView{NodeID: n.ID, Terminal: true, Diagnosis: n.Diagnosis}
	}
	return QuestionView{NodeID: n.ID, Text: n.Question}
}

// Progress is informational feedback on how far an interview has gone.
type Progress struct {
	QuestionsAnswered int `json:"questionsAnswered"`
	ProgressPercent   int `json:"progressPercent"`
	RemainingMax      int `json:"remainingMax"`
}
