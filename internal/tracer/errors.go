package tracer

import (
	"errors"
	"fmt"

	"github.com/getsentry/calltracer/internal/frame"
)

// ErrDepthExceeded is matched by every DepthExceededError.
var ErrDepthExceeded = errors.New("tracer: max depth exceeded")

// DepthExceededError is raised by the tracer itself, not by the traced
// function, when a call would go deeper than the configured limit.
type DepthExceededError struct {
	Limit  int
	Depth  int
	CallID frame.CallID
	Name   string
}

func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("tracer: call %d to %s at depth %d exceeds max depth %d", e.CallID, e.Name, e.Depth, e.Limit)
}

func (e *DepthExceededError) Is(target error) bool {
	return target == ErrDepthExceeded
}

// ErrCallLimitExceeded is matched by every CallLimitError.
var ErrCallLimitExceeded = errors.New("tracer: call limit exceeded")

// CallLimitError refuses a call once the session recorded as many calls as
// allowed. The refused call is not recorded.
type CallLimitError struct {
	Limit int
	Name  string
}

func (e *CallLimitError) Error() string {
	return fmt.Sprintf("tracer: call to %s refused, session already recorded %d calls", e.Name, e.Limit)
}

func (e *CallLimitError) Is(target error) bool {
	return target == ErrCallLimitExceeded
}
