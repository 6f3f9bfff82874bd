package memo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getsentry/calltracer/internal/frame"
)

// DefaultExcluded lists parameter names that carry memoization caches or
// accumulators. They change between otherwise identical calls and would
// hide every repeat.
var DefaultExcluded = []string{"memo", "cache", "acc", "accumulator"}

// Detector remembers the first call for every cache key. Entries are never
// overwritten or removed before Reset.
type Detector struct {
	excluded map[string]struct{}
	first    map[string]frame.CallID
}

// NewDetector excludes DefaultExcluded when called without names.
func NewDetector(excluded ...string) *Detector {
	if len(excluded) == 0 {
		excluded = DefaultExcluded
	}
	d := &Detector{
		excluded: make(map[string]struct{}, len(excluded)),
		first:    make(map[string]frame.CallID),
	}
	for _, name := range excluded {
		d.excluded[name] = struct{}{}
	}
	return d
}

// Key builds the cache key of a call. Arguments are sorted by name so the
// key doesn't depend on the order they were bound in.
func (d *Detector) Key(name string, args []frame.Argument) (string, error) {
	sorted := make([]frame.Argument, 0, len(args))
	for _, arg := range args {
		if _, ok := d.excluded[arg.Name]; ok {
			continue
		}
		sorted = append(sorted, arg)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte(':')
	b.WriteByte('(')
	for i, arg := range sorted {
		if i > 0 {
			b.WriteByte(',')
		}
		v, err := Canonicalize(arg.Value)
		if err != nil {
			return "", fmt.Errorf("%s argument %q: %w", name, arg.Name, err)
		}
		b.WriteString(arg.Name)
		b.WriteByte('=')
		b.WriteString(v)
	}
	b.WriteByte(')')
	return b.String(), nil
}

// CheckAndRecord returns the id of the first call with the same key, or
// frame.NoParent after recording id as that first call. Errors wrap
// ErrUncacheable and leave the detector unchanged.
func (d *Detector) CheckAndRecord(name string, args []frame.Argument, id frame.CallID) (frame.CallID, error) {
	key, err := d.Key(name, args)
	if err != nil {
		return frame.NoParent, err
	}
	if first, ok := d.first[key]; ok {
		return first, nil
	}
	d.first[key] = id
	return frame.NoParent, nil
}

// Len is the number of distinct cache keys seen.
func (d *Detector) Len() int {
	return len(d.first)
}

func (d *Detector) Reset() {
	d.first = make(map[string]frame.CallID)
}
