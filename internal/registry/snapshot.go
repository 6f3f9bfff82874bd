package registry

import (
	"fmt"
	"sort"

	"github.com/getsentry/calltracer/internal/frame"
)

// Snapshot is a read-only view of the registry at one instant.
type Snapshot struct {
	frames []frame.Frame
}

// NewSnapshot builds a snapshot from frames recovered outside of a session,
// for example from an exported document. Ids must be dense from 1 and every
// parent must exist and have a smaller id than its children.
func NewSnapshot(frames []frame.Frame) (*Snapshot, error) {
	sorted := make([]frame.Frame, len(frames))
	for i, f := range frames {
		sorted[i] = f.Clone()
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CallID < sorted[j].CallID
	})
	for i, f := range sorted {
		if f.CallID != frame.CallID(i+1) {
			return nil, fmt.Errorf("%w: expected call %d, found %d", ErrInconsistent, i+1, f.CallID)
		}
		if f.IsRoot() {
			if f.Depth != 0 {
				return nil, fmt.Errorf("%w: root call %d has depth %d", ErrInconsistent, f.CallID, f.Depth)
			}
			continue
		}
		if f.ParentID >= f.CallID {
			return nil, fmt.Errorf("%w: call %d has parent %d", ErrInconsistent, f.CallID, f.ParentID)
		}
		parent := sorted[f.ParentID-1]
		if f.Depth != parent.Depth+1 {
			return nil, fmt.Errorf("%w: call %d has depth %d under a parent of depth %d", ErrInconsistent, f.CallID, f.Depth, parent.Depth)
		}
	}
	return &Snapshot{frames: sorted}, nil
}

func (s *Snapshot) Get(id frame.CallID) (frame.Frame, error) {
	if id == frame.NoParent || uint64(id) > uint64(len(s.frames)) {
		return frame.Frame{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return s.frames[id-1], nil
}

// All returns frames in creation order.
func (s *Snapshot) All() []frame.Frame {
	return s.frames
}

func (s *Snapshot) Roots() []frame.Frame {
	var roots []frame.Frame
	for _, f := range s.frames {
		if f.IsRoot() {
			roots = append(roots, f)
		}
	}
	return roots
}

// Children returns the children of a call in call order.
func (s *Snapshot) Children(id frame.CallID) []frame.Frame {
	f, err := s.Get(id)
	if err != nil {
		return nil
	}
	children := make([]frame.Frame, 0, len(f.ChildrenIDs))
	for _, c := range f.ChildrenIDs {
		if child, err := s.Get(c); err == nil {
			children = append(children, child)
		}
	}
	return children
}

func (s *Snapshot) Len() int {
	return len(s.frames)
}
