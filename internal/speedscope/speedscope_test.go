package speedscope

import (
	"testing"

	"github.com/getsentry/calltracer/internal/frame"
	"github.com/getsentry/calltracer/internal/registry"
	"github.com/getsentry/calltracer/internal/testutil"
)

func TestFromTree(t *testing.T) {
	snapshot, err := registry.NewSnapshot([]frame.Frame{
		{CallID: 1, FunctionName: "merge_sort", File: "sorting.go", Line: 9, ChildrenIDs: []frame.CallID{2, 3}, StartNS: 10, EndNS: 60, Status: frame.StatusReturned},
		{CallID: 2, FunctionName: "merge_sort", ParentID: 1, Depth: 1, StartNS: 15, EndNS: 20, Status: frame.StatusReturned},
		{CallID: 3, FunctionName: "merge", ParentID: 1, Depth: 1, StartNS: 25, EndNS: 50, Status: frame.StatusRaised},
		{CallID: 4, FunctionName: "merge", StartNS: 70, Status: frame.StatusEntered},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := FromTree("session", snapshot)
	want := Output{
		Schema:   Schema,
		Exporter: "calltracer",
		Name:     "session",
		Profiles: []EventedProfile{
			{
				Name:       "session",
				Type:       ProfileTypeEvented,
				Unit:       ValueUnitNanoseconds,
				StartValue: 10,
				EndValue:   70,
				Events: []Event{
					{Type: EventTypeOpenFrame, Frame: 0, At: 10},
					{Type: EventTypeOpenFrame, Frame: 0, At: 15},
					{Type: EventTypeCloseFrame, Frame: 0, At: 20},
					{Type: EventTypeOpenFrame, Frame: 1, At: 25},
					{Type: EventTypeCloseFrame, Frame: 1, At: 50},
					{Type: EventTypeCloseFrame, Frame: 0, At: 60},
					{Type: EventTypeOpenFrame, Frame: 1, At: 70},
					{Type: EventTypeCloseFrame, Frame: 1, At: 70},
				},
			},
		},
		Shared: SharedData{Frames: []Frame{{Name: "merge_sort", File: "sorting.go", Line: 9}, {Name: "merge"}}},
	}
	if diff := testutil.Diff(got, want); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
}

func TestFromEmptyTree(t *testing.T) {
	snapshot, err := registry.NewSnapshot(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := FromTree("empty", snapshot)
	if len(got.Profiles) != 1 || len(got.Profiles[0].Events) != 0 || len(got.Shared.Frames) != 0 {
		t.Fatalf("unexpected output %+v", got)
	}
}
