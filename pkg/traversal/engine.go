// Package traversal moves a consultation through the decision graph.
//
// Every operation takes a consultation value and returns a new one; the input is never
// mutated, so callers can discard the result when a later step (persistence) fails.
package traversal

import (
	"time"

	"github.com/aretw0/anamnesis/pkg/domain"
	"github.com/aretw0/anamnesis/pkg/graph"
)

// Engine applies answers and back navigation against a single graph.
type Engine struct {
	graph          *graph.Graph
	backNavigation bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithBackNavigation toggles the "previous question" capability. Enabled by default.
func WithBackNavigation(enabled bool) Option {
	return func(e *Engine) {
		e.backNavigation = enabled
	}
}

// New creates an Engine over g.
func New(g *graph.Graph, opts ...Option) *Engine {
	e := &Engine{graph: g, backNavigation: true}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Graph returns the graph the engine walks.
func (e *Engine) Graph() *graph.Graph { return e.graph }

// BackNavigation reports whether GoBack is enabled.
func (e *Engine) BackNavigation() bool { return e.backNavigation }

// Step describes where an answer led.
type Step struct {
	Question  domain.QuestionView
	Diagnosis string
	// Replayed is true when the answer was a duplicate submission and nothing changed.
	Replayed bool
}

// AnswerInput is a single answer submission.
type AnswerInput struct {
	Answer string
	// ExpectedNodeID is the node the client believes it is answering. Optional.
	ExpectedNodeID string
	Now            time.Time
}

// RecordAnswer validates the answer, follows the matching edge and appends it to the history.
//
// When ExpectedNodeID is set and the consultation has already moved past it with the same
// answer, the submission is treated as a retry and the consultation is returned unchanged.
// Any other mismatch is reported as a concurrency error.
func (e *Engine) RecordAnswer(c *domain.Consultation, in AnswerInput) (*domain.Consultation, Step, error) {
	const op = "answer"

	a, err := domain.ParseAnswer(in.Answer)
	if err != nil {
		return nil, Step{}, err
	}
	if c.Status != domain.StatusActive {
		return nil, Step{}, domain.Errorf(domain.KindInvalidState, op, "consultation is %s", c.Status)
	}

	if in.ExpectedNodeID != "" && in.ExpectedNodeID != c.CurrentNodeID {
		if n := len(c.History); n > 0 && c.History[n-1].NodeID == in.ExpectedNodeID && c.History[n-1].Answer == a {
			view, err := e.View(c)
			if err != nil {
				return nil, Step{}, err
			}
			return c.Clone(), Step{Question: view, Diagnosis: c.DiagnosisCandidate, Replayed: true}, nil
		}
		return nil, Step{}, domain.Errorf(domain.KindConcurrency, op,
			"expected to answer %q but consultation is at %q", in.ExpectedNodeID, c.CurrentNodeID)
	}

	current, err := e.graph.Node(c.CurrentNodeID)
	if err != nil {
		return nil, Step{}, err
	}
	if current.IsTerminal() {
		return nil, Step{}, domain.NewError(domain.KindInvalidState, op, "diagnosis already reached")
	}

	nextID, err := e.graph.Follow(current.ID, a)
	if err != nil {
		return nil, Step{}, err
	}
	next, err := e.graph.Node(nextID)
	if err != nil {
		return nil, Step{}, err
	}

	out := c.Clone()
	out.History = append(out.History, domain.HistoryEntry{
		Ordinal:    len(c.History) + 1,
		NodeID:     current.ID,
		Question:   current.Question,
		Answer:     a,
		AnsweredAt: in.Now,
	})
	out.CurrentNodeID = next.ID
	out.DiagnosisCandidate = ""
	if next.IsTerminal() {
		out.DiagnosisCandidate = next.Diagnosis
	}
	out.UpdatedAt = in.Now

	return out, Step{Question: domain.ViewOf(next), Diagnosis: out.DiagnosisCandidate}, nil
}

// GoBack undoes the most recent answer and repositions the consultation by replaying
// the remaining history from the root.
func (e *Engine) GoBack(c *domain.Consultation, now time.Time) (*domain.Consultation, error) {
	const op = "back"

	if !e.backNavigation {
		return nil, domain.NewError(domain.KindInvalidState, op, "back navigation is disabled")
	}
	if c.Status != domain.StatusActive {
		return nil, domain.Errorf(domain.KindInvalidState, op, "consultation is %s", c.Status)
	}
	if len(c.History) == 0 {
		return nil, domain.NewError(domain.KindInvalidState, op, "already at first question")
	}

	out := c.Clone()
	out.History = out.History[:len(out.History)-1]
	pos, err := e.Replay(out.History)
	if err != nil {
		return nil, err
	}
	node, err := e.graph.Node(pos)
	if err != nil {
		return nil, err
	}
	out.CurrentNodeID = pos
	out.DiagnosisCandidate = ""
	if node.IsTerminal() {
		out.DiagnosisCandidate = node.Diagnosis
	}
	out.UpdatedAt = now
	return out, nil
}

// Replay walks history from the root and returns the node it ends on.
func (e *Engine) Replay(history []domain.HistoryEntry) (string, error) {
	pos := e.graph.Root()
	for i, h := range history {
		if h.Ordinal != i+1 {
			return "", domain.Errorf(domain.KindInvalidState, "replay", "history ordinal %d out of sequence", h.Ordinal)
		}
		if h.NodeID != pos {
			return "", domain.Errorf(domain.KindInvalidState, "replay",
				"history entry %d answers %q but walk is at %q", h.Ordinal, h.NodeID, pos)
		}
		next, err := e.graph.Follow(pos, h.Answer)
		if err != nil {
			return "", err
		}
		pos = next
	}
	return pos, nil
}

// Verify checks that c is consistent with the graph: history replays to the current node
// and the diagnosis candidate is present exactly on terminal nodes.
func (e *Engine) Verify(c *domain.Consultation) error {
	pos, err := e.Replay(c.History)
	if err != nil {
		return err
	}
	if pos != c.CurrentNodeID {
		return domain.Errorf(domain.KindInvalidState, "verify", "history ends at %q but current node is %q", pos, c.CurrentNodeID)
	}
	node, err := e.graph.Node(pos)
	if err != nil {
		return err
	}
	if node.IsTerminal() != (c.DiagnosisCandidate != "") {
		return domain.Errorf(domain.KindInvalidState, "verify", "diagnosis candidate mismatch at %q", pos)
	}
	return nil
}

// View returns the client view of the consultation's current node.
func (e *Engine) View(c *domain.Consultation) (domain.QuestionView, error) {
	n, err := e.graph.Node(c.CurrentNodeID)
	if err != nil {
		return domain.QuestionView{}, err
	}
	return domain.ViewOf(n), nil
}
