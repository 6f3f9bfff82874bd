package callstack

import (
	"errors"
	"testing"

	"github.com/getsentry/calltracer/internal/errorutil"
	"github.com/getsentry/calltracer/internal/frame"
	"github.com/getsentry/calltracer/internal/testutil"
)

func TestStackPushPop(t *testing.T) {
	s := New()
	if s.CurrentParent() != frame.NoParent || s.CurrentDepth() != 0 {
		t.Fatalf("unexpected empty stack state: %d %d", s.CurrentParent(), s.CurrentDepth())
	}
	s.Push(1)
	s.Push(2)
	s.Push(5)
	if s.CurrentParent() != 5 || s.CurrentDepth() != 3 {
		t.Fatalf("unexpected stack state: %d %d", s.CurrentParent(), s.CurrentDepth())
	}
	if diff := testutil.Diff(s.Ancestors(), []frame.CallID{5, 2, 1}); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
	for _, id := range []frame.CallID{5, 2, 1} {
		if err := s.Pop(id); err != nil {
			t.Fatalf("unexpected error popping %d: %v", id, err)
		}
	}
	if s.Len() != 0 {
		t.Fatalf("expected an empty stack, got %d", s.Len())
	}
}

func TestStackCorruption(t *testing.T) {
	tests := []struct {
		name   string
		pushed []frame.CallID
		pop    frame.CallID
	}{
		{name: "empty", pop: 1},
		{name: "not on top", pushed: []frame.CallID{1, 2}, pop: 1},
		{name: "unknown", pushed: []frame.CallID{1}, pop: 7},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := New()
			for _, id := range test.pushed {
				s.Push(id)
			}
			err := s.Pop(test.pop)
			if !errors.Is(err, ErrStackCorruption) || !errors.Is(err, errorutil.ErrDataIntegrity) {
				t.Fatalf("expected ErrStackCorruption, got %v", err)
			}
			if s.Len() != len(test.pushed) {
				t.Fatalf("failed pop changed the stack: %d", s.Len())
			}
		})
	}
}

func TestStackReset(t *testing.T) {
	s := New()
	s.Push(1)
	s.Push(2)
	s.Reset()
	if s.Len() != 0 || s.CurrentParent() != frame.NoParent {
		t.Fatalf("stack not empty after reset: %v", s.Ancestors())
	}
}
