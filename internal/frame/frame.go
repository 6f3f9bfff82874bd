package frame

import (
	"errors"
	"fmt"
	"hash"
	"hash/fnv"
)

// NoParent is the parent id of root frames. Call ids start at 1 so it is
// never assigned to a frame.
const NoParent CallID = 0

// ErrTerminal is returned when a frame that already returned or raised is
// finished a second time.
var ErrTerminal = errors.New("frame: already terminal")

type (
	CallID uint64

	Status string

	Argument struct {
		Name  string `json:"name"`
		Value any    `json:"value"`
	}

	// Exception is a panic or returned error captured as plain data, so the
	// frame does not hold on to the live value once the stack unwinds.
	Exception struct {
		Type    string `json:"type"`
		Message string `json:"message"`
		Panic   bool   `json:"panic,omitempty"`
	}

	Frame struct {
		CallID       CallID `json:"call_id"`
		FunctionName string `json:"function_name"`
		// File and Line locate the traced function's declaration when known.
		File              string     `json:"file,omitempty"`
		Line              int        `json:"line,omitempty"`
		Arguments         []Argument `json:"arguments,omitempty"`
		ArgumentsRedacted bool       `json:"arguments_redacted,omitempty"`
		Depth             int        `json:"depth"`
		ParentID          CallID     `json:"parent_id,omitempty"`
		ChildrenIDs       []CallID   `json:"children_ids,omitempty"`
		StartNS           uint64     `json:"start_ns"`
		EndNS             uint64     `json:"end_ns,omitempty"`
		ReturnValues      []any      `json:"return_values,omitempty"`
		Exception         *Exception `json:"exception,omitempty"`
		Status            Status     `json:"status"`
		CacheHitOf        CallID     `json:"cache_hit_of,omitempty"`
		Uncacheable       bool       `json:"uncacheable,omitempty"`
	}
)

const (
	StatusEntered  Status = "entered"
	StatusReturned Status = "returned"
	StatusRaised   Status = "raised"
)

func (id CallID) String() string {
	return fmt.Sprintf("%d", uint64(id))
}

func (s Status) IsTerminal() bool {
	return s == StatusReturned || s == StatusRaised
}

// New returns an active frame. Terminal fields are filled in later through
// Return or Raise.
func New(id CallID, name string, args []Argument, parentID CallID, depth int, startNS uint64) *Frame {
	return &Frame{
		CallID:       id,
		FunctionName: name,
		Arguments:    args,
		Depth:        depth,
		ParentID:     parentID,
		StartNS:      startNS,
		Status:       StatusEntered,
	}
}

func (f Frame) IsRoot() bool {
	return f.ParentID == NoParent
}

func (f Frame) IsCacheHit() bool {
	return f.CacheHitOf != NoParent
}

// Duration is zero while the frame is active.
func (f Frame) Duration() uint64 {
	if !f.Status.IsTerminal() || f.EndNS < f.StartNS {
		return 0
	}
	return f.EndNS - f.StartNS
}

// Return finishes the frame normally.
func (f *Frame) Return(values []any, endNS uint64) error {
	if f.Status.IsTerminal() {
		return fmt.Errorf("%w: call %d is %s", ErrTerminal, f.CallID, f.Status)
	}
	f.ReturnValues = values
	f.EndNS = endNS
	f.Status = StatusReturned
	return nil
}

// Raise finishes the frame with a captured exception.
func (f *Frame) Raise(exc Exception, endNS uint64) error {
	if f.Status.IsTerminal() {
		return fmt.Errorf("%w: call %d is %s", ErrTerminal, f.CallID, f.Status)
	}
	f.Exception = &exc
	f.EndNS = endNS
	f.Status = StatusRaised
	return nil
}

// ReturnValue collapses the return values to a single value: nil for no
// results, the value itself for one result and the slice otherwise.
func (f Frame) ReturnValue() any {
	switch len(f.ReturnValues) {
	case 0:
		return nil
	case 1:
		return f.ReturnValues[0]
	}
	return f.ReturnValues
}

// Clone returns a copy that shares no slices with f.
func (f Frame) Clone() Frame {
	c := f
	if f.Arguments != nil {
		c.Arguments = make([]Argument, len(f.Arguments))
		copy(c.Arguments, f.Arguments)
	}
	if f.ChildrenIDs != nil {
		c.ChildrenIDs = make([]CallID, len(f.ChildrenIDs))
		copy(c.ChildrenIDs, f.ChildrenIDs)
	}
	if f.ReturnValues != nil {
		c.ReturnValues = make([]any, len(f.ReturnValues))
		copy(c.ReturnValues, f.ReturnValues)
	}
	if f.Exception != nil {
		exc := *f.Exception
		c.Exception = &exc
	}
	return c
}

func (f Frame) WriteToHash(h hash.Hash) {
	s := f.FunctionName
	if s == "" {
		s = "-"
	}
	h.Write([]byte(s))
}

// Fingerprint identifies the function a frame belongs to, so frames of the
// same function can be grouped together.
func (f Frame) Fingerprint() uint64 {
	h := fnv.New64()
	f.WriteToHash(h)
	return h.Sum64()
}

// ExceptionFrom captures a returned error or a recovered panic value.
func ExceptionFrom(v any, panicked bool) Exception {
	exc := Exception{Type: fmt.Sprintf("%T", v), Panic: panicked}
	switch t := v.(type) {
	case error:
		exc.Message = t.Error()
	case fmt.Stringer:
		exc.Message = t.String()
	default:
		exc.Message = fmt.Sprint(v)
	}
	return exc
}

func (e Exception) String() string {
	return e.Type + ": " + e.Message
}
