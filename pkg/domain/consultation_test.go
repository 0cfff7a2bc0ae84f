package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusActive, StatusDraft, true},
		{StatusActive, StatusCanceled, true},
		{StatusActive, StatusCompleted, true},
		{StatusDraft, StatusActive, true},
		{StatusDraft, StatusCanceled, true},
		{StatusDraft, StatusCompleted, false},
		{StatusCompleted, StatusActive, false},
		{StatusCompleted, StatusCanceled, false},
		{StatusCanceled, StatusActive, false},
		{StatusCanceled, StatusDraft, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestConsultation_CloneIsDeep(t *testing.T) {
	now := time.Now()
	c := NewConsultation("s1", "p1", "d1", "root", now)
	c.History = append(c.History, HistoryEntry{Ordinal: 1, NodeID: "root", Answer: AnswerYes})
	c.CompletedAt = &now

	cp := c.Clone()
	cp.History[0].Answer = AnswerNo
	*cp.CompletedAt = now.Add(time.Hour)

	assert.Equal(t, AnswerYes, c.History[0].Answer)
	assert.Equal(t, now, *c.CompletedAt)
}

func TestConsultation_Tail(t *testing.T) {
	c := NewConsultation("s1", "p1", "d1", "root", time.Now())
	assert.Empty(t, c.Tail(3))

	for i := 1; i <= 5; i++ {
		c.History = append(c.History, HistoryEntry{Ordinal: i})
	}
	tail := c.Tail(3)
	if assert.Len(t, tail, 3) {
		assert.Equal(t, 3, tail[0].Ordinal)
		assert.Equal(t, 5, tail[2].Ordinal)
	}
	assert.Len(t, c.Tail(10), 5)
}

func TestParseAnswer(t *testing.T) {
	a, err := ParseAnswer("yes")
	assert.NoError(t, err)
	assert.Equal(t, AnswerYes, a)

	for _, bad := range []string{"", "maybe", "YES", " no"} {
		_, err := ParseAnswer(bad)
		assert.ErrorIs(t, err, ErrValidation, "input %q", bad)
	}
}
