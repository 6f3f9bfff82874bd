package memo

import (
	"errors"
	"testing"

	"github.com/getsentry/calltracer/internal/frame"
)

type point struct {
	X, Y int
	tag  string
}

type node struct {
	Next *node
}

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name  string
		a, b  any
		equal bool
	}{
		{name: "ints", a: 4, b: 4, equal: true},
		{name: "different ints", a: 4, b: 5},
		{name: "strings", a: "a,b", b: "a,b", equal: true},
		{name: "string is not int", a: "4", b: 4},
		{name: "slices", a: []int{1, 2, 3}, b: []int{1, 2, 3}, equal: true},
		{name: "slice order matters", a: []int{1, 2, 3}, b: []int{3, 2, 1}},
		{name: "nil and empty slice differ", a: []int(nil), b: []int{}},
		{
			name:  "map order does not matter",
			a:     map[string]int{"a": 1, "b": 2, "c": 3},
			b:     map[string]int{"c": 3, "b": 2, "a": 1},
			equal: true,
		},
		{
			name:  "set-like maps",
			a:     map[point]struct{}{{X: 1}: {}, {X: 2}: {}},
			b:     map[point]struct{}{{X: 2}: {}, {X: 1}: {}},
			equal: true,
		},
		{name: "structs", a: point{X: 1, Y: 2}, b: point{X: 1, Y: 2}, equal: true},
		{name: "unexported fields count", a: point{tag: "a"}, b: point{tag: "b"}},
		{name: "pointers by value", a: &point{X: 1}, b: &point{X: 1}, equal: true},
		{name: "nested", a: [][]string{{"a"}, {"b", "c"}}, b: [][]string{{"a"}, {"b", "c"}}, equal: true},
		{name: "nil", a: nil, b: nil, equal: true},
		{name: "int is not float", a: 1, b: float64(1)},
		{name: "int is not uint8", a: 1, b: uint8(1)},
		{name: "interface slice is not int slice", a: []any{1}, b: []int{1}},
		{name: "interface elements keep their type", a: []any{1}, b: []any{int64(1)}},
		{name: "interface elements", a: []any{1, "a"}, b: []any{1, "a"}, equal: true},
		{name: "named types differ", a: point{X: 1}, b: struct{ X, Y int; tag string }{X: 1}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			a, err := Canonicalize(test.a)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			b, err := Canonicalize(test.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (a == b) != test.equal {
				t.Fatalf("expected equal=%v, got %q and %q", test.equal, a, b)
			}
		})
	}
}

func TestCanonicalizeUncacheable(t *testing.T) {
	cyclic := &node{}
	cyclic.Next = cyclic
	selfMap := map[string]any{}
	selfMap["self"] = selfMap

	tests := []struct {
		name  string
		value any
	}{
		{name: "func", value: func() {}},
		{name: "chan", value: make(chan int)},
		{name: "func in slice", value: []any{1, func() {}}},
		{name: "cyclic pointer", value: cyclic},
		{name: "cyclic map", value: selfMap},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Canonicalize(test.value)
			if !errors.Is(err, ErrUncacheable) {
				t.Fatalf("expected ErrUncacheable, got %v", err)
			}
		})
	}
}

func TestCanonicalizeSharedPointerIsNotCyclic(t *testing.T) {
	shared := &point{X: 1}
	if _, err := Canonicalize([]*point{shared, shared}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDetectorCheckAndRecord(t *testing.T) {
	d := NewDetector()
	args := func(n int) []frame.Argument {
		return []frame.Argument{{Name: "n", Value: n}}
	}
	steps := []struct {
		name string
		args []frame.Argument
		id   frame.CallID
		want frame.CallID
	}{
		{name: "fib", args: args(4), id: 1, want: frame.NoParent},
		{name: "fib", args: args(3), id: 2, want: frame.NoParent},
		{name: "fib", args: args(4), id: 3, want: 1},
		{name: "fib", args: args(4), id: 4, want: 1},
		{name: "fact", args: args(4), id: 5, want: frame.NoParent},
		{name: "fib", args: []frame.Argument{{Name: "n", Value: float64(4)}}, id: 6, want: frame.NoParent},
		{name: "fib", args: []frame.Argument{{Name: "n", Value: float64(4)}}, id: 7, want: 6},
	}
	for _, step := range steps {
		got, err := d.CheckAndRecord(step.name, step.args, step.id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != step.want {
			t.Fatalf("call %d: expected %d, got %d", step.id, step.want, got)
		}
	}
	if d.Len() != 4 {
		t.Fatalf("expected 4 keys, got %d", d.Len())
	}
	d.Reset()
	if got, _ := d.CheckAndRecord("fib", args(4), 9); got != frame.NoParent || d.Len() != 1 {
		t.Fatalf("detector kept state across reset: %d", got)
	}
}

func TestDetectorKey(t *testing.T) {
	d := NewDetector()
	a, err := d.Key("fib_memo", []frame.Argument{
		{Name: "n", Value: 3},
		{Name: "memo", Value: map[int]int{1: 1}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := d.Key("fib_memo", []frame.Argument{
		{Name: "memo", Value: map[int]int{1: 1, 2: 1}},
		{Name: "n", Value: 3},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Fatalf("excluded or reordered arguments changed the key: %q != %q", a, b)
	}

	custom := NewDetector("path")
	_, err = custom.Key("permute", []frame.Argument{{Name: "path", Value: func() {}}})
	if err != nil {
		t.Fatalf("excluded argument was canonicalized: %v", err)
	}
	_, err = custom.Key("permute", []frame.Argument{{Name: "memo", Value: func() {}}})
	if !errors.Is(err, ErrUncacheable) {
		t.Fatalf("expected ErrUncacheable, got %v", err)
	}
}
