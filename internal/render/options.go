package render

import (
	"github.com/fatih/color"
)

type (
	Options struct {
		Color       bool
		Timing      bool
		MaxValueLen int
		// Location appends where the traced function is declared to entry
		// lines.
		Location bool
		// Stack prints the active call stack after every entry line, only
		// used by the Printer.
		Stack bool
	}

	Option func(*Options)
)

func WithColor(enabled bool) Option {
	return func(o *Options) {
		o.Color = enabled
	}
}

func WithTiming(enabled bool) Option {
	return func(o *Options) {
		o.Timing = enabled
	}
}

func WithMaxValueLen(n int) Option {
	return func(o *Options) {
		o.MaxValueLen = n
	}
}

func WithLocation(enabled bool) Option {
	return func(o *Options) {
		o.Location = enabled
	}
}

func WithStack(enabled bool) Option {
	return func(o *Options) {
		o.Stack = enabled
	}
}

func newOptions(opts []Option) Options {
	o := Options{MaxValueLen: DefaultMaxValueLen}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type palette struct {
	id, name, arg, value, failure, cached, timing *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		id:      color.New(color.FgCyan),
		name:    color.New(color.Bold),
		arg:     color.New(color.FgYellow),
		value:   color.New(color.FgGreen),
		failure: color.New(color.FgRed),
		cached:  color.New(color.FgMagenta),
		timing:  color.New(color.FgHiBlack),
	}
	for _, c := range []*color.Color{p.id, p.name, p.arg, p.value, p.failure, p.cached, p.timing} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}
