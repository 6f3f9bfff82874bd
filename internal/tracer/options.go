package tracer

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/getsentry/calltracer/internal/frame"
	"github.com/getsentry/calltracer/internal/memo"
)

// Listener observes calls as they happen. It receives copies, so it can
// keep them around, and the recorded tree never depends on it.
type Listener interface {
	OnEnter(f frame.Frame, stack []frame.CallID)
	OnExit(f frame.Frame)
}

type (
	Options struct {
		// MaxDepth aborts calls at this depth or deeper, 0 means unbounded.
		MaxDepth int
		// MaxCalls refuses new calls once this many were recorded, 0 means
		// unbounded.
		MaxCalls          int
		DetectMemoization bool
		RecordArguments   bool
		// SkipCachedCalls returns the values of the first identical call
		// instead of running the body again.
		SkipCachedCalls bool
		ExcludedParams  []string
		Locking         bool
		Listener        Listener
		Logger          zerolog.Logger
		Clock           func() time.Time
	}

	Option func(*Options)
)

func DefaultOptions() Options {
	return Options{
		DetectMemoization: true,
		RecordArguments:   true,
		ExcludedParams:    memo.DefaultExcluded,
		Logger:            log.Logger,
		Clock:             time.Now,
	}
}

func WithMaxDepth(depth int) Option {
	return func(o *Options) {
		o.MaxDepth = depth
	}
}

func WithMaxCalls(calls int) Option {
	return func(o *Options) {
		o.MaxCalls = calls
	}
}

func WithMemoization(enabled bool) Option {
	return func(o *Options) {
		o.DetectMemoization = enabled
	}
}

func WithArgumentRecording(enabled bool) Option {
	return func(o *Options) {
		o.RecordArguments = enabled
	}
}

// WithSkipCachedCalls turns repeated calls into real cache hits. It changes
// what the traced program executes, so it is off by default.
func WithSkipCachedCalls(enabled bool) Option {
	return func(o *Options) {
		o.SkipCachedCalls = enabled
	}
}

func WithExcludedParams(names ...string) Option {
	return func(o *Options) {
		o.ExcludedParams = names
	}
}

// WithLocking guards the session's bookkeeping with a mutex. Calls must
// still not interleave: it only allows handing a session from one goroutine
// to another.
func WithLocking() Option {
	return func(o *Options) {
		o.Locking = true
	}
}

func WithListener(l Listener) Option {
	return func(o *Options) {
		o.Listener = l
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

func WithClock(clock func() time.Time) Option {
	return func(o *Options) {
		o.Clock = clock
	}
}
