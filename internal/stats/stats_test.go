package stats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/getsentry/calltracer/internal/frame"
	"github.com/getsentry/calltracer/internal/testutil"
)

type frames []frame.Frame

func (f frames) All() []frame.Frame {
	return f
}

func testFrames() frames {
	return frames{
		{CallID: 1, FunctionName: "fib", Depth: 0, ChildrenIDs: []frame.CallID{2, 3, 4}, StartNS: 0, EndNS: 100, Status: frame.StatusReturned},
		{CallID: 2, FunctionName: "fib", Depth: 1, ParentID: 1, StartNS: 10, EndNS: 40, Status: frame.StatusReturned},
		{CallID: 3, FunctionName: "fib", Depth: 1, ParentID: 1, StartNS: 40, EndNS: 60, Status: frame.StatusReturned, CacheHitOf: 2},
		{CallID: 4, FunctionName: "fib", Depth: 1, ParentID: 1, StartNS: 60, EndNS: 90, Status: frame.StatusRaised, Uncacheable: true},
		{CallID: 5, FunctionName: "hanoi", Depth: 0, StartNS: 200, EndNS: 210, Status: frame.StatusReturned},
	}
}

func TestCompute(t *testing.T) {
	src := testFrames()
	got := Compute(src)
	want := Stats{
		TotalCalls:      5,
		TotalDurationNS: 110,
		MaxDepth:        1,
		CacheHits:       1,
		HitRate:         0.2,
		Raised:          1,
		Uncacheable:     1,
		Functions: []FunctionStats{
			{
				Name:        "fib",
				Fingerprint: frame.Frame{FunctionName: "fib"}.Fingerprint(),
				Count:       4,
				SumNS:       180,
				AvgNS:       45,
				P75NS:       70,
				P95NS:       100,
				P99NS:       100,
				Raised:      1,
				CacheHits:   1,
				Slowest:     1,
			},
			{
				Name:        "hanoi",
				Fingerprint: frame.Frame{FunctionName: "hanoi"}.Fingerprint(),
				Count:       1,
				SumNS:       10,
				AvgNS:       10,
				P75NS:       10,
				P95NS:       10,
				P99NS:       10,
				Slowest:     5,
			},
		},
		Slowest: []frame.Frame{src[0], src[1], src[3], src[2], src[4]},
	}
	if diff := testutil.Diff(got, want); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
}

func TestComputeOptions(t *testing.T) {
	got := Compute(testFrames(), WithMaxFunctions(1), WithSlowestCount(2))
	if len(got.Functions) != 1 || got.Functions[0].Name != "fib" {
		t.Fatalf("expected only fib, got %+v", got.Functions)
	}
	var ids []frame.CallID
	for _, f := range got.Slowest {
		ids = append(ids, f.CallID)
	}
	if diff := testutil.Diff(ids, []frame.CallID{1, 2}); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
}

func TestComputeEmpty(t *testing.T) {
	got := Compute(frames{})
	if diff := testutil.Diff(got, Stats{}); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
}

func TestComputeSkipsActiveFramesInSlowest(t *testing.T) {
	src := frames{
		{CallID: 1, FunctionName: "fib", StartNS: 0, Status: frame.StatusEntered, ChildrenIDs: []frame.CallID{2}},
		{CallID: 2, FunctionName: "fib", Depth: 1, ParentID: 1, StartNS: 5, EndNS: 8, Status: frame.StatusReturned},
	}
	got := Compute(src)
	if got.TotalDurationNS != 0 {
		t.Fatalf("an active root has no duration, got %d", got.TotalDurationNS)
	}
	if len(got.Slowest) != 1 || got.Slowest[0].CallID != 2 {
		t.Fatalf("expected only call 2, got %+v", got.Slowest)
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTable(&buf, Compute(testFrames())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"CALLS", "HIT RATE", "20.0%", "FUNCTION", "fib", "hanoi", "[1]", "[5]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in\n%s", want, out)
		}
	}
}
