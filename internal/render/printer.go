package render

import (
	"io"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/getsentry/calltracer/internal/frame"
)

// Printer writes calls as they happen. It implements tracer.Listener.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
	r  renderer
}

func NewPrinter(w io.Writer, opts ...Option) *Printer {
	return &Printer{w: w, r: newRenderer(opts)}
}

func (p *Printer) OnEnter(f frame.Frame, stack []frame.CallID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.r.enter(p.w, f); err != nil {
		log.Err(err).Uint64("call_id", uint64(f.CallID)).Msg("can't print call entry")
		return
	}
	if p.r.opts.Stack {
		if err := p.r.stack(p.w, f.Depth, stack); err != nil {
			log.Err(err).Uint64("call_id", uint64(f.CallID)).Msg("can't print call stack")
		}
	}
}

func (p *Printer) OnExit(f frame.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.r.exit(p.w, f); err != nil {
		log.Err(err).Uint64("call_id", uint64(f.CallID)).Msg("can't print call exit")
	}
}
