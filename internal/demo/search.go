package demo

import (
	"github.com/getsentry/calltracer/internal/tracer"
)

func init() {
	register(Demo{
		Name:        "binary_search",
		Description: "index of target in a sorted slice, -1 when missing",
		Usage:       "[target=7] [values...=1 3 5 7 9 11 13]",
		Run: func(s *tracer.Session, args []string) (any, error) {
			target, err := intArg(args, 0, 7)
			if err != nil {
				return nil, err
			}
			var rest []string
			if len(args) > 1 {
				rest = args[1:]
			}
			values, err := intsArg(rest, []int{1, 3, 5, 7, 9, 11, 13})
			if err != nil {
				return nil, err
			}
			return BinarySearch(s)(values, target, 0, len(values)-1), nil
		},
	})
	register(Demo{
		Name:        "permute",
		Description: "every permutation of the input, built by swapping in place",
		Usage:       "[values...=1 2 3]",
		Run: func(s *tracer.Session, args []string) (any, error) {
			values, err := intsArg(args, []int{1, 2, 3})
			if err != nil {
				return nil, err
			}
			return Permute(s)(values, 0), nil
		},
	})
}

func BinarySearch(s *tracer.Session) func(values []int, target, left, right int) int {
	var search func([]int, int, int, int) int
	search = tracer.Instrument(s, "binary_search", func(values []int, target, left, right int) int {
		if left > right {
			return -1
		}
		mid := (left + right) / 2
		switch {
		case values[mid] == target:
			return mid
		case values[mid] < target:
			return search(values, target, mid+1, right)
		default:
			return search(values, target, left, mid-1)
		}
	}, "arr", "target", "left", "right")
	return search
}

func Permute(s *tracer.Session) func(values []int, start int) [][]int {
	var permute func([]int, int) [][]int
	permute = tracer.Func2(s, "permute", func(values []int, start int) [][]int {
		if start == len(values) {
			p := make([]int, len(values))
			copy(p, values)
			return [][]int{p}
		}
		var result [][]int
		for i := start; i < len(values); i++ {
			values[start], values[i] = values[i], values[start]
			result = append(result, permute(values, start+1)...)
			values[start], values[i] = values[i], values[start]
		}
		return result
	}, [2]string{"nums", "start"})
	return permute
}
