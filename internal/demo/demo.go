package demo

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/getsentry/calltracer/internal/tracer"
)

var (
	ErrUnknownDemo     = errors.New("demo: unknown demo")
	ErrInvalidArgument = errors.New("demo: invalid argument")
)

// Demo is a traced recursive algorithm runnable by name. Run parses its
// own arguments and falls back to defaults when they are missing.
type Demo struct {
	Name        string
	Description string
	Usage       string
	Run         func(s *tracer.Session, args []string) (any, error)
}

var demos = map[string]Demo{}

func register(d Demo) {
	if _, exists := demos[d.Name]; exists {
		panic("demo: " + d.Name + " registered twice")
	}
	demos[d.Name] = d
}

// All returns the demos sorted by name.
func All() []Demo {
	all := make([]Demo, 0, len(demos))
	for _, d := range demos {
		all = append(all, d)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Name < all[j].Name
	})
	return all
}

func Lookup(name string) (Demo, error) {
	d, ok := demos[name]
	if !ok {
		return Demo{}, fmt.Errorf("%w: %q", ErrUnknownDemo, name)
	}
	return d, nil
}

func intArg(args []string, i int, def int) (int, error) {
	if i >= len(args) {
		return def, nil
	}
	v, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidArgument, args[i])
	}
	return v, nil
}

func intsArg(args []string, def []int) ([]int, error) {
	if len(args) == 0 {
		values := make([]int, len(def))
		copy(values, def)
		return values, nil
	}
	values := make([]int, len(args))
	for i := range args {
		v, err := intArg(args, i, 0)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// Execute runs d and turns a depth or call limit hit inside a traced helper, which
// can only panic, into an error. Other panics go through.
func Execute(d Demo, s *tracer.Session, args []string) (result any, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if e, ok := r.(error); ok && (errors.Is(e, tracer.ErrDepthExceeded) || errors.Is(e, tracer.ErrCallLimitExceeded)) {
			result, err = nil, e
			return
		}
		panic(r)
	}()
	return d.Run(s, args)
}
