package demo

import (
	"fmt"

	"github.com/getsentry/calltracer/internal/tracer"
)

func init() {
	register(Demo{
		Name:        "fib",
		Description: "naive Fibonacci, every subproblem is solved again",
		Usage:       "[n=5]",
		Run: func(s *tracer.Session, args []string) (any, error) {
			n, err := intArg(args, 0, 5)
			if err != nil {
				return nil, err
			}
			return Fib(s)(n), nil
		},
	})
	register(Demo{
		Name:        "fib_memo",
		Description: "Fibonacci with a memo table shared by every call",
		Usage:       "[n=5]",
		Run: func(s *tracer.Session, args []string) (any, error) {
			n, err := intArg(args, 0, 5)
			if err != nil {
				return nil, err
			}
			return FibMemo(s)(n, map[int]int{}), nil
		},
	})
	register(Demo{
		Name:        "factorial",
		Description: "n! with a linear chain of calls, negative n fails",
		Usage:       "[n=5]",
		Run: func(s *tracer.Session, args []string) (any, error) {
			n, err := intArg(args, 0, 5)
			if err != nil {
				return nil, err
			}
			return Factorial(s)(n)
		},
	})
	register(Demo{
		Name:        "sum_digits",
		Description: "sum of the decimal digits of n",
		Usage:       "[n=12345]",
		Run: func(s *tracer.Session, args []string) (any, error) {
			n, err := intArg(args, 0, 12345)
			if err != nil {
				return nil, err
			}
			return SumDigits(s)(n), nil
		},
	})
	register(Demo{
		Name:        "hanoi",
		Description: "moves needed to solve the towers of Hanoi",
		Usage:       "[disks=3]",
		Run: func(s *tracer.Session, args []string) (any, error) {
			n, err := intArg(args, 0, 3)
			if err != nil {
				return nil, err
			}
			return Hanoi(s)(n, "A", "C", "B"), nil
		},
	})
}

func Fib(s *tracer.Session) func(int) int {
	var fib func(int) int
	fib = tracer.Instrument(s, "fib", func(n int) int {
		if n <= 1 {
			return n
		}
		return fib(n-1) + fib(n-2)
	}, "n")
	return fib
}

// FibMemo stores results in memo. The table is left out of cache keys, so
// repeated calls still show up as cache hits.
func FibMemo(s *tracer.Session) func(int, map[int]int) int {
	var fib func(int, map[int]int) int
	fib = tracer.Func2(s, "fib_memo", func(n int, memo map[int]int) int {
		if n <= 1 {
			return n
		}
		if v, ok := memo[n]; ok {
			return v
		}
		memo[n] = fib(n-1, memo) + fib(n-2, memo)
		return memo[n]
	}, [2]string{"n", "memo"})
	return fib
}

func Factorial(s *tracer.Session) func(int) (int, error) {
	var factorial func(int) (int, error)
	factorial = tracer.Instrument(s, "factorial", func(n int) (int, error) {
		if n < 0 {
			return 0, fmt.Errorf("%w: factorial of %d", ErrInvalidArgument, n)
		}
		if n <= 1 {
			return 1, nil
		}
		r, err := factorial(n - 1)
		if err != nil {
			return 0, err
		}
		return n * r, nil
	}, "n")
	return factorial
}

func SumDigits(s *tracer.Session) func(int) int {
	var sum func(int) int
	sum = tracer.Func1(s, "sum_digits", func(n int) int {
		if n < 0 {
			n = -n
		}
		if n < 10 {
			return n
		}
		return n%10 + sum(n/10)
	}, "n")
	return sum
}

// Hanoi returns the number of moves to bring n disks from one peg to
// another.
func Hanoi(s *tracer.Session) func(n int, from, to, via string) int {
	var hanoi func(int, string, string, string) int
	hanoi = tracer.Instrument(s, "hanoi", func(n int, from, to, via string) int {
		if n <= 0 {
			return 0
		}
		return hanoi(n-1, from, via, to) + 1 + hanoi(n-1, via, to, from)
	}, "n", "from", "to", "via")
	return hanoi
}
