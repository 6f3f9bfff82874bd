package tracer

import (
	"fmt"
	"reflect"
	"runtime"

	"github.com/getsentry/calltracer/internal/frame"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

type location struct {
	file string
	line int
}

// locate finds where fn is declared, the zero location if the runtime
// doesn't know.
func locate(fn any) location {
	pc := reflect.ValueOf(fn).Pointer()
	f := runtime.FuncForPC(pc)
	if f == nil {
		return location{}
	}
	file, line := f.FileLine(f.Entry())
	return location{file: file, line: line}
}

// Instrument wraps fn into a function of the very same type that traces
// every call under name. params names the arguments in order, unnamed ones
// are recorded as arg0, arg1 and so on; a variadic parameter is recorded as
// a single slice.
//
// When the last result of fn is an error, a non-nil error marks the call as
// raised and tracer failures such as DepthExceededError are returned
// through it. Otherwise they are raised as panics.
//
// Recursive functions must call the returned function for inner calls to
// be traced:
//
//	var fib func(int) int
//	fib = tracer.Instrument(s, "fib", func(n int) int {
//		if n <= 1 {
//			return n
//		}
//		return fib(n-1) + fib(n-2)
//	}, "n")
func Instrument[F any](s *Session, name string, fn F, params ...string) F {
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		panic(fmt.Sprintf("tracer: can't instrument %s, not a function", t))
	}
	if v.IsNil() {
		panic(fmt.Sprintf("tracer: can't instrument a nil %s", t))
	}
	names := paramNames(t, params)
	loc := locate(fn)
	returnsError := t.NumOut() > 0 && t.Out(t.NumOut()-1) == errorType

	wrapped := reflect.MakeFunc(t, func(in []reflect.Value) []reflect.Value {
		args := make([]frame.Argument, len(in))
		for i, a := range in {
			args[i] = frame.Argument{Name: names[i], Value: a.Interface()}
		}

		var (
			out []reflect.Value
			ran bool
		)
		results, err := s.call(name, loc, args, func() ([]any, error) {
			if t.IsVariadic() {
				out = v.CallSlice(in)
			} else {
				out = v.Call(in)
			}
			ran = true
			return splitResults(out, returnsError)
		})
		if ran {
			return out
		}
		if err != nil {
			if !returnsError {
				panic(err)
			}
			return zeroResults(t, err)
		}
		return buildResults(t, results, returnsError)
	})
	return wrapped.Interface().(F)
}

func paramNames(t reflect.Type, params []string) []string {
	names := make([]string, t.NumIn())
	for i := range names {
		if i < len(params) && params[i] != "" {
			names[i] = params[i]
		} else {
			names[i] = fmt.Sprintf("arg%d", i)
		}
	}
	return names
}

// splitResults separates a trailing error from the values to record.
func splitResults(out []reflect.Value, returnsError bool) ([]any, error) {
	n := len(out)
	if returnsError {
		n--
	}
	values := make([]any, n)
	for i := 0; i < n; i++ {
		values[i] = out[i].Interface()
	}
	if returnsError && !out[len(out)-1].IsNil() {
		return values, out[len(out)-1].Interface().(error)
	}
	return values, nil
}

func zeroResults(t reflect.Type, err error) []reflect.Value {
	out := make([]reflect.Value, t.NumOut())
	for i := range out {
		out[i] = reflect.Zero(t.Out(i))
	}
	errValue := reflect.New(errorType).Elem()
	errValue.Set(reflect.ValueOf(err))
	out[len(out)-1] = errValue
	return out
}

// buildResults turns recorded values back into results of the function's
// declared types.
func buildResults(t reflect.Type, values []any, returnsError bool) []reflect.Value {
	out := make([]reflect.Value, t.NumOut())
	for i := range out {
		rv := reflect.New(t.Out(i)).Elem()
		if i < len(values) && values[i] != nil {
			rv.Set(reflect.ValueOf(values[i]))
		}
		out[i] = rv
	}
	if returnsError {
		out[len(out)-1] = reflect.Zero(errorType)
	}
	return out
}

// Func1 traces a function of one argument without reflection.
func Func1[A, R any](s *Session, name string, fn func(A) R, param string) func(A) R {
	loc := locate(fn)
	return func(a A) R {
		var r R
		results, ran := call(s, name, loc, []frame.Argument{{Name: param, Value: a}}, func() any {
			r = fn(a)
			return r
		})
		if ran {
			return r
		}
		return as[R](results)
	}
}

// Func2 traces a function of two arguments without reflection.
func Func2[A, B, R any](s *Session, name string, fn func(A, B) R, params [2]string) func(A, B) R {
	loc := locate(fn)
	return func(a A, b B) R {
		var r R
		args := []frame.Argument{{Name: params[0], Value: a}, {Name: params[1], Value: b}}
		results, ran := call(s, name, loc, args, func() any {
			r = fn(a, b)
			return r
		})
		if ran {
			return r
		}
		return as[R](results)
	}
}

// Func3 traces a function of three arguments without reflection.
func Func3[A, B, C, R any](s *Session, name string, fn func(A, B, C) R, params [3]string) func(A, B, C) R {
	loc := locate(fn)
	return func(a A, b B, c C) R {
		var r R
		args := []frame.Argument{{Name: params[0], Value: a}, {Name: params[1], Value: b}, {Name: params[2], Value: c}}
		results, ran := call(s, name, loc, args, func() any {
			r = fn(a, b, c)
			return r
		})
		if ran {
			return r
		}
		return as[R](results)
	}
}

// call runs body through the session and reports whether it ran. Tracer
// errors are raised as panics since the typed helpers have no error result.
func call(s *Session, name string, loc location, args []frame.Argument, body func() any) ([]any, bool) {
	ran := false
	results, err := s.call(name, loc, args, func() ([]any, error) {
		v := body()
		ran = true
		return []any{v}, nil
	})
	if err != nil {
		panic(err)
	}
	return results, ran
}

func as[R any](values []any) R {
	var r R
	if len(values) == 0 {
		return r
	}
	if v, ok := values[0].(R); ok {
		return v
	}
	return r
}
