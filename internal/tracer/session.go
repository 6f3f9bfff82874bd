package tracer

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/getsentry/calltracer/internal/callstack"
	"github.com/getsentry/calltracer/internal/frame"
	"github.com/getsentry/calltracer/internal/memo"
	"github.com/getsentry/calltracer/internal/registry"
)

// Session owns all the state of one tracing run: the frames, the stack of
// active calls and the cache keys seen so far. A session must be driven by
// a single goroutine at a time, calls never interleave.
type Session struct {
	opts   Options
	logger zerolog.Logger
	mu     *sync.Mutex

	id        string
	startedAt time.Time

	registry *registry.Registry
	stack    *callstack.Stack
	detector *memo.Detector

	// broken is set once the stack went out of balance, every later call
	// fails with it until Reset.
	broken error
}

func NewSession(opts ...Option) *Session {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	s := &Session{
		opts:      o,
		registry:  registry.New(),
		stack:     callstack.New(),
		detector:  memo.NewDetector(o.ExcludedParams...),
		id:        uuid.New().String(),
		startedAt: o.Clock(),
	}
	if o.Locking {
		s.mu = &sync.Mutex{}
	}
	s.logger = o.Logger.With().Str("session_id", s.id).Logger()
	return s
}

func (s *Session) lock() {
	if s.mu != nil {
		s.mu.Lock()
	}
}

func (s *Session) unlock() {
	if s.mu != nil {
		s.mu.Unlock()
	}
}

func (s *Session) ID() string {
	s.lock()
	defer s.unlock()
	return s.id
}

func (s *Session) StartedAt() time.Time {
	s.lock()
	defer s.unlock()
	return s.startedAt
}

func (s *Session) Options() Options {
	return s.opts
}

// Snapshot returns a copy of every frame recorded so far.
func (s *Session) Snapshot() *registry.Snapshot {
	s.lock()
	defer s.unlock()
	return s.registry.Snapshot()
}

// Active is the number of calls currently in flight.
func (s *Session) Active() int {
	s.lock()
	defer s.unlock()
	return s.stack.Len()
}

// CacheSize is the number of distinct cache keys seen.
func (s *Session) CacheSize() int {
	s.lock()
	defer s.unlock()
	return s.detector.Len()
}

// Reset clears the session and starts a new one with a fresh id. It must
// not be called while a traced call is running.
func (s *Session) Reset() {
	s.lock()
	defer s.unlock()
	s.registry.Reset()
	s.stack.Reset()
	s.detector.Reset()
	s.broken = nil
	s.id = uuid.New().String()
	s.startedAt = s.opts.Clock()
	s.logger = s.opts.Logger.With().Str("session_id", s.id).Logger()
}

func (s *Session) now() uint64 {
	d := s.opts.Clock().Sub(s.startedAt)
	if d < 0 {
		return 0
	}
	return uint64(d)
}

// Call traces one invocation of body. The frame is recorded before body
// runs and finished on every exit path: a non-nil error is returned
// unchanged, a panic is recorded and re-raised with the same value.
func (s *Session) Call(name string, args []frame.Argument, body func() ([]any, error)) ([]any, error) {
	return s.call(name, location{}, args, body)
}

func (s *Session) call(name string, loc location, args []frame.Argument, body func() ([]any, error)) ([]any, error) {
	f, cached, err := s.enter(name, loc, args)
	if f == nil {
		return nil, err
	}

	finished := false
	defer func() {
		if finished {
			return
		}
		r := recover()
		if r == nil {
			// runtime.Goexit, let it continue unwinding.
			s.finish(f, func(end uint64) error {
				return f.Raise(frame.Exception{Type: "runtime.Goexit", Message: "goroutine exited", Panic: true}, end)
			})
			return
		}
		s.finish(f, func(end uint64) error {
			return f.Raise(frame.ExceptionFrom(r, true), end)
		})
		panic(r)
	}()

	s.notifyEnter(f)
	if err != nil {
		finished = true
		s.exit(f, nil, err)
		return nil, err
	}
	if cached != nil {
		finished = true
		s.exit(f, cached, nil)
		return cached, nil
	}

	results, err := body()
	finished = true
	s.exit(f, results, err)
	return results, err
}

// enter records the frame and pushes it. It returns the values to reuse
// when the call is skipped as a cache hit, or the error the call must fail
// with before its body runs.
func (s *Session) enter(name string, loc location, args []frame.Argument) (*frame.Frame, []any, error) {
	s.lock()
	defer s.unlock()

	if s.broken != nil {
		panic(s.broken)
	}

	if s.opts.MaxCalls > 0 && s.registry.Len() >= s.opts.MaxCalls {
		err := &CallLimitError{Limit: s.opts.MaxCalls, Name: name}
		s.logger.Debug().Err(err).Msg("call refused")
		return nil, nil, err
	}

	parentID := s.stack.CurrentParent()
	depth := s.stack.CurrentDepth()

	recorded := args
	if !s.opts.RecordArguments {
		recorded = nil
	}
	id := s.registry.Create(name, recorded, parentID, depth, s.now())
	f, err := s.registry.Get(id)
	if err != nil {
		s.fail(err)
	}
	f.ArgumentsRedacted = !s.opts.RecordArguments && len(args) > 0
	f.File, f.Line = loc.file, loc.line
	s.stack.Push(id)

	if s.opts.DetectMemoization {
		first, err := s.detector.CheckAndRecord(name, args, id)
		if err != nil {
			f.Uncacheable = true
			s.logger.Debug().Err(err).Uint64("call_id", uint64(id)).Str("function", name).Msg("arguments can't be used as a cache key")
		} else {
			f.CacheHitOf = first
		}
	}

	s.logger.Trace().
		Uint64("call_id", uint64(id)).
		Uint64("parent_id", uint64(parentID)).
		Int("depth", depth).
		Str("function", name).
		Msg("call entered")

	if s.opts.MaxDepth > 0 && depth >= s.opts.MaxDepth {
		err := &DepthExceededError{Limit: s.opts.MaxDepth, Depth: depth, CallID: id, Name: name}
		s.logger.Debug().Err(err).Msg("call aborted")
		return f, nil, err
	}

	if s.opts.SkipCachedCalls && f.IsCacheHit() {
		first, err := s.registry.Get(f.CacheHitOf)
		if err == nil && first.Status == frame.StatusReturned {
			values := make([]any, len(first.ReturnValues))
			copy(values, first.ReturnValues)
			return f, values, nil
		}
	}
	return f, nil, nil
}

func (s *Session) exit(f *frame.Frame, results []any, err error) {
	s.finish(f, func(end uint64) error {
		if err != nil {
			return f.Raise(frame.ExceptionFrom(err, false), end)
		}
		return f.Return(results, end)
	})
}

func (s *Session) finish(f *frame.Frame, terminate func(end uint64) error) {
	s.lock()
	defer s.unlock()

	if err := terminate(s.now()); err != nil {
		s.fail(err)
	}
	if err := s.stack.Pop(f.CallID); err != nil {
		s.fail(err)
	}

	s.logger.Trace().
		Uint64("call_id", uint64(f.CallID)).
		Str("function", f.FunctionName).
		Str("status", string(f.Status)).
		Uint64("duration_ns", f.Duration()).
		Msg("call finished")

	if s.opts.Listener != nil {
		exited := f.Clone()
		s.notify(f.CallID, "exit", func() {
			s.opts.Listener.OnExit(exited)
		})
	}
}

// notifyEnter runs once the call is armed to finish, so a failing listener
// can't leave the frame on the stack.
func (s *Session) notifyEnter(f *frame.Frame) {
	if s.opts.Listener == nil {
		return
	}
	s.lock()
	entered, stack := f.Clone(), s.stack.Ancestors()
	s.unlock()
	s.notify(f.CallID, "enter", func() {
		s.opts.Listener.OnEnter(entered, stack)
	})
}

// notify shields the trace from a panicking listener.
func (s *Session) notify(id frame.CallID, event string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Uint64("call_id", uint64(id)).
				Str("event", event).
				Interface("panic", r).
				Msg("listener panicked")
		}
	}()
	fn()
}

// fail marks the session as broken and aborts the current call. The
// caller holds the lock.
func (s *Session) fail(err error) {
	s.broken = err
	s.logger.Error().Err(err).Msg("tracing stopped")
	panic(err)
}
