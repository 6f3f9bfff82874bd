package registry

import (
	"errors"
	"testing"

	"github.com/getsentry/calltracer/internal/errorutil"
	"github.com/getsentry/calltracer/internal/frame"
	"github.com/getsentry/calltracer/internal/testutil"
)

func newTestRegistry() *Registry {
	r := New()
	root := r.Create("fib", []frame.Argument{{Name: "n", Value: 2}}, frame.NoParent, 0, 0)
	r.Create("fib", []frame.Argument{{Name: "n", Value: 1}}, root, 1, 1)
	r.Create("fib", []frame.Argument{{Name: "n", Value: 0}}, root, 1, 2)
	r.Create("fib", []frame.Argument{{Name: "n", Value: 1}}, frame.NoParent, 0, 3)
	return r
}

func TestRegistryCreate(t *testing.T) {
	r := newTestRegistry()
	if r.Len() != 4 {
		t.Fatalf("expected 4 frames, got %d", r.Len())
	}
	root, err := r.Get(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := testutil.Diff(root.ChildrenIDs, []frame.CallID{2, 3}); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
	var ids []frame.CallID
	for _, f := range r.Roots() {
		ids = append(ids, f.CallID)
	}
	if diff := testutil.Diff(ids, []frame.CallID{1, 4}); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
	for i, f := range r.All() {
		if f.CallID != frame.CallID(i+1) {
			t.Fatalf("frames are not in creation order: %d at %d", f.CallID, i)
		}
		if f.Status != frame.StatusEntered {
			t.Fatalf("new frame %d is %s", f.CallID, f.Status)
		}
	}
}

func TestRegistryGetNotFound(t *testing.T) {
	r := newTestRegistry()
	for _, id := range []frame.CallID{frame.NoParent, 5, 100} {
		_, err := r.Get(id)
		if !errors.Is(err, ErrNotFound) || !errors.Is(err, errorutil.ErrNoResults) {
			t.Fatalf("expected ErrNotFound for %d, got %v", id, err)
		}
	}
}

func TestRegistryReset(t *testing.T) {
	r := newTestRegistry()
	r.Reset()
	if r.Len() != 0 || len(r.Roots()) != 0 {
		t.Fatalf("registry not empty after reset: %d", r.Len())
	}
	if id := r.Create("fib", nil, frame.NoParent, 0, 0); id != 1 {
		t.Fatalf("expected ids to restart at 1, got %d", id)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	r := newTestRegistry()
	s := r.Snapshot()
	live, _ := r.Get(1)
	_ = live.Return([]any{1}, 10)
	r.Create("fib", nil, 1, 1, 11)

	got, err := s.Get(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != frame.StatusEntered || len(got.ChildrenIDs) != 2 {
		t.Fatalf("snapshot observed later mutation: %+v", got)
	}
	if s.Len() != 4 {
		t.Fatalf("expected 4 frames in the snapshot, got %d", s.Len())
	}
	var children []frame.CallID
	for _, c := range s.Children(1) {
		children = append(children, c.CallID)
	}
	if diff := testutil.Diff(children, []frame.CallID{2, 3}); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
}

func TestNewSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		frames  []frame.Frame
		wantErr bool
	}{
		{
			name: "valid out of order",
			frames: []frame.Frame{
				{CallID: 2, ParentID: 1, Depth: 1},
				{CallID: 1, ChildrenIDs: []frame.CallID{2}},
			},
		},
		{
			name: "gap in ids",
			frames: []frame.Frame{
				{CallID: 1},
				{CallID: 3},
			},
			wantErr: true,
		},
		{
			name: "parent after child",
			frames: []frame.Frame{
				{CallID: 1, ParentID: 2, Depth: 1},
				{CallID: 2},
			},
			wantErr: true,
		},
		{
			name: "wrong depth",
			frames: []frame.Frame{
				{CallID: 1},
				{CallID: 2, ParentID: 1, Depth: 2},
			},
			wantErr: true,
		},
		{
			name: "root with depth",
			frames: []frame.Frame{
				{CallID: 1, Depth: 1},
			},
			wantErr: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s, err := NewSnapshot(test.frames)
			if test.wantErr {
				if !errors.Is(err, ErrInconsistent) {
					t.Fatalf("expected ErrInconsistent, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(s.Roots()) != 1 || len(s.Children(1)) != 1 {
				t.Fatalf("unexpected shape: %+v", s.All())
			}
		})
	}
}
