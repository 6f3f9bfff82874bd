package registry

import (
	"fmt"

	"github.com/getsentry/calltracer/internal/errorutil"
	"github.com/getsentry/calltracer/internal/frame"
)

var (
	// ErrNotFound is returned for lookups of ids the registry never
	// allocated.
	ErrNotFound = fmt.Errorf("registry: %w: call not found", errorutil.ErrNoResults)

	// ErrInconsistent is returned when frames can't form a valid forest.
	ErrInconsistent = fmt.Errorf("registry: %w", errorutil.ErrDataIntegrity)
)

// Registry is an append-only arena of frames. A frame's id is its index in
// the arena plus one, which gives constant time lookups without a map.
type Registry struct {
	frames []*frame.Frame
}

func New() *Registry {
	return &Registry{}
}

// Create allocates the next call id, stores a new active frame and links it
// to its parent.
func (r *Registry) Create(name string, args []frame.Argument, parentID frame.CallID, depth int, startNS uint64) frame.CallID {
	id := frame.CallID(len(r.frames) + 1)
	f := frame.New(id, name, args, parentID, depth, startNS)
	if parentID != frame.NoParent {
		if parent, err := r.Get(parentID); err == nil {
			parent.ChildrenIDs = append(parent.ChildrenIDs, id)
		}
	}
	r.frames = append(r.frames, f)
	return id
}

// Get returns the live frame, callers outside the tracer should use a
// Snapshot instead.
func (r *Registry) Get(id frame.CallID) (*frame.Frame, error) {
	if id == frame.NoParent || uint64(id) > uint64(len(r.frames)) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return r.frames[id-1], nil
}

// All returns frames in creation order.
func (r *Registry) All() []*frame.Frame {
	all := make([]*frame.Frame, len(r.frames))
	copy(all, r.frames)
	return all
}

func (r *Registry) Roots() []*frame.Frame {
	var roots []*frame.Frame
	for _, f := range r.frames {
		if f.IsRoot() {
			roots = append(roots, f)
		}
	}
	return roots
}

func (r *Registry) Len() int {
	return len(r.frames)
}

// Reset drops every frame and restarts ids at 1.
func (r *Registry) Reset() {
	r.frames = nil
}

// Snapshot copies the registry so it can be read while tracing continues.
func (r *Registry) Snapshot() *Snapshot {
	frames := make([]frame.Frame, len(r.frames))
	for i, f := range r.frames {
		frames[i] = f.Clone()
	}
	return &Snapshot{frames: frames}
}
