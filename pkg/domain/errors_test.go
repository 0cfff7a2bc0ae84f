package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIs(t *testing.T) {
	wrapped := fmt.Errorf("load s1: %w", ErrSessionNotFound)

	if !errors.Is(wrapped, ErrSessionNotFound) {
		t.Error("expected wrapped error to match ErrSessionNotFound")
	}
	if !errors.Is(wrapped, ErrNotFound) {
		t.Error("expected session not found to be a not_found error")
	}
	if errors.Is(wrapped, ErrConcurrency) {
		t.Error("did not expect a concurrency match")
	}

	other := NewError(KindNotFound, "node", "node missing")
	if errors.Is(other, ErrSessionNotFound) {
		t.Error("a different not_found message must not match ErrSessionNotFound")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, ""},
		{errors.New("boom"), KindInternal},
		{fmt.Errorf("save: %w", ErrVersionConflict), KindConcurrency},
		{&GraphInvalidError{NodeID: "a", Reason: "cycle"}, KindGraphInvalid},
		{Errorf(KindInvalidState, "answer", "status is %s", StatusCompleted), KindInvalidState},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestGraphInvalidError(t *testing.T) {
	err := fmt.Errorf("load graph: %w", &GraphInvalidError{NodeID: "q1", Reason: "cycle detected"})
	if !errors.Is(err, ErrGraphInvalid) {
		t.Error("expected graph invalid match")
	}
	var ge *GraphInvalidError
	if !errors.As(err, &ge) || ge.NodeID != "q1" {
		t.Errorf("expected GraphInvalidError for q1, got %v", err)
	}
}
