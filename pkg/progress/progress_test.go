package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/anamnesis/pkg/domain"
	"github.com/aretw0/anamnesis/pkg/graph"
	"github.com/aretw0/anamnesis/pkg/traversal"
)

// ladder is deliberately unbalanced: "no" ends early, "yes" goes deep.
func ladder(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.New("q1", []domain.DecisionNode{
		{ID: "q1", Question: "1?", Yes: "q2", No: "end"},
		{ID: "q2", Question: "2?", Yes: "q3", No: "q4"},
		{ID: "q3", Question: "3?", Yes: "q4", No: "end"},
		{ID: "q4", Question: "4?", Yes: "deep", No: "end"},
		{ID: "deep", Diagnosis: "Deep"},
		{ID: "end", Diagnosis: "End"},
	})
	require.NoError(t, err)
	return g
}

func TestCalculate_AtRoot(t *testing.T) {
	g := ladder(t)
	c := domain.NewConsultation("s", "p", "d", g.Root(), time.Now())
	p := Calculate(g, c)
	assert.Equal(t, domain.Progress{QuestionsAnswered: 0, ProgressPercent: 0, RemainingMax: 4}, p)
}

func TestCalculate_TerminalRoot(t *testing.T) {
	g, err := graph.New("only", []domain.DecisionNode{{ID: "only", Diagnosis: "Done"}})
	require.NoError(t, err)
	c := domain.NewConsultation("s", "p", "d", g.Root(), time.Now())
	assert.Equal(t, 100, Calculate(g, c).ProgressPercent)
}

func TestCalculate_MonotoneAndExactlyHundredAtTerminal(t *testing.T) {
	g := ladder(t)
	e := traversal.New(g)

	paths := [][]string{
		{"no"},
		{"yes", "no", "no"},
		{"yes", "yes", "yes", "yes"},
		{"yes", "yes", "no"},
		{"yes", "no", "yes"},
	}
	for _, path := range paths {
		c := domain.NewConsultation("s", "p", "d", g.Root(), time.Now())
		last := Calculate(g, c).ProgressPercent
		for i, a := range path {
			var err error
			c, _, err = e.RecordAnswer(c, traversal.AnswerInput{Answer: a})
			require.NoError(t, err)

			p := Calculate(g, c)
			assert.GreaterOrEqual(t, p.ProgressPercent, last, "path %v step %d", path, i)
			assert.Equal(t, i+1, p.QuestionsAnswered)
			if i < len(path)-1 {
				assert.Less(t, p.ProgressPercent, 100, "path %v step %d", path, i)
			}
			last = p.ProgressPercent
		}
		assert.Equal(t, 100, last, "path %v", path)
	}
}
