package callstack

import (
	"fmt"

	"github.com/getsentry/calltracer/internal/errorutil"
	"github.com/getsentry/calltracer/internal/frame"
)

// ErrStackCorruption means push and pop calls went out of balance. It is a
// bug in the caller, never a condition to recover from.
var ErrStackCorruption = fmt.Errorf("callstack: %w: stack corruption", errorutil.ErrDataIntegrity)

// Stack mirrors the goroutine's call stack for instrumented calls only.
// It stores ids into the registry, not frames.
type Stack struct {
	ids []frame.CallID
}

func New() *Stack {
	return &Stack{}
}

// CurrentParent returns the id on top of the stack or frame.NoParent.
func (s *Stack) CurrentParent() frame.CallID {
	if len(s.ids) == 0 {
		return frame.NoParent
	}
	return s.ids[len(s.ids)-1]
}

func (s *Stack) CurrentDepth() int {
	return len(s.ids)
}

func (s *Stack) Push(id frame.CallID) {
	s.ids = append(s.ids, id)
}

// Pop removes id from the top of the stack. Popping anything else than the
// most recently pushed id fails and leaves the stack untouched.
func (s *Stack) Pop(id frame.CallID) error {
	if len(s.ids) == 0 {
		return fmt.Errorf("%w: pop of call %d on an empty stack", ErrStackCorruption, id)
	}
	top := s.ids[len(s.ids)-1]
	if top != id {
		return fmt.Errorf("%w: pop of call %d while call %d is on top", ErrStackCorruption, id, top)
	}
	s.ids = s.ids[:len(s.ids)-1]
	return nil
}

// Ancestors lists the active calls from the top of the stack down to the
// root call.
func (s *Stack) Ancestors() []frame.CallID {
	ancestors := make([]frame.CallID, len(s.ids))
	for i, id := range s.ids {
		ancestors[len(s.ids)-1-i] = id
	}
	return ancestors
}

func (s *Stack) Len() int {
	return len(s.ids)
}

func (s *Stack) Reset() {
	s.ids = s.ids[:0]
}
