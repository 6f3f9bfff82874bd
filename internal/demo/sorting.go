package demo

import (
	"github.com/getsentry/calltracer/internal/tracer"
)

func init() {
	register(Demo{
		Name:        "merge_sort",
		Description: "merge sort on a copy of the input",
		Usage:       "[values...=3 1 4 1 5 9 2 6]",
		Run: func(s *tracer.Session, args []string) (any, error) {
			values, err := intsArg(args, []int{3, 1, 4, 1, 5, 9, 2, 6})
			if err != nil {
				return nil, err
			}
			return MergeSort(s)(values), nil
		},
	})
	register(Demo{
		Name:        "quick_sort",
		Description: "in place quick sort with a Lomuto partition",
		Usage:       "[values...=10 7 8 9 1 5]",
		Run: func(s *tracer.Session, args []string) (any, error) {
			values, err := intsArg(args, []int{10, 7, 8, 9, 1, 5})
			if err != nil {
				return nil, err
			}
			return QuickSort(s)(values, 0, len(values)-1), nil
		},
	})
}

func MergeSort(s *tracer.Session) func([]int) []int {
	merge := tracer.Func2(s, "merge", func(left, right []int) []int {
		result := make([]int, 0, len(left)+len(right))
		i, j := 0, 0
		for i < len(left) && j < len(right) {
			if left[i] <= right[j] {
				result = append(result, left[i])
				i++
			} else {
				result = append(result, right[j])
				j++
			}
		}
		result = append(result, left[i:]...)
		return append(result, right[j:]...)
	}, [2]string{"left", "right"})

	var sort func([]int) []int
	sort = tracer.Func1(s, "merge_sort", func(values []int) []int {
		if len(values) <= 1 {
			return values
		}
		mid := len(values) / 2
		left := sort(values[:mid])
		right := sort(values[mid:])
		return merge(left, right)
	}, "arr")
	return sort
}

// QuickSort sorts values between low and high included. Arguments are
// recorded by reference, so they show the slice as it ends up.
func QuickSort(s *tracer.Session) func(values []int, low, high int) []int {
	partition := tracer.Func3(s, "partition", func(values []int, low, high int) int {
		pivot := values[high]
		i := low - 1
		for j := low; j < high; j++ {
			if values[j] <= pivot {
				i++
				values[i], values[j] = values[j], values[i]
			}
		}
		values[i+1], values[high] = values[high], values[i+1]
		return i + 1
	}, [3]string{"arr", "low", "high"})

	var sort func([]int, int, int) []int
	sort = tracer.Func3(s, "quick_sort", func(values []int, low, high int) []int {
		if low < high {
			p := partition(values, low, high)
			sort(values, low, p-1)
			sort(values, p+1, high)
		}
		return values
	}, [3]string{"arr", "low", "high"})
	return sort
}
