package render

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/getsentry/calltracer/internal/frame"
)

// Forest is a recorded call forest, such as a registry snapshot.
type Forest interface {
	Roots() []frame.Frame
	Children(id frame.CallID) []frame.Frame
}

type renderer struct {
	opts    Options
	palette palette
}

func newRenderer(opts []Option) renderer {
	o := newOptions(opts)
	return renderer{opts: o, palette: newPalette(o.Color)}
}

// Tree writes every call of src depth first: the entry line, the calls it
// made, then its exit line once it finished.
func Tree(w io.Writer, src Forest, opts ...Option) error {
	r := newRenderer(opts)
	for _, root := range src.Roots() {
		if err := r.subtree(w, src, root); err != nil {
			return err
		}
	}
	return nil
}

func (r renderer) subtree(w io.Writer, src Forest, f frame.Frame) error {
	if err := r.enter(w, f); err != nil {
		return err
	}
	for _, child := range src.Children(f.CallID) {
		if err := r.subtree(w, src, child); err != nil {
			return err
		}
	}
	if !f.Status.IsTerminal() {
		return nil
	}
	return r.exit(w, f)
}

func (r renderer) enter(w io.Writer, f frame.Frame) error {
	var b strings.Builder
	b.WriteString(indent(f.Depth, true))
	b.WriteString(r.palette.id.Sprintf("[%d]", f.CallID))
	b.WriteString(" ")
	b.WriteString(r.palette.name.Sprint(f.FunctionName))
	b.WriteString("(")
	if f.ArgumentsRedacted {
		b.WriteString("...")
	}
	for i, a := range f.Arguments {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.Name + "=" + r.palette.arg.Sprint(FormatValue(a.Value, r.opts.MaxValueLen)))
	}
	b.WriteString(")")
	if r.opts.Location && f.Line > 0 {
		b.WriteString(r.palette.timing.Sprintf(" @%s:%d", filepath.Base(f.File), f.Line))
	}
	b.WriteString("\n")
	if f.IsCacheHit() {
		b.WriteString(strings.Repeat(pipe, f.Depth))
		b.WriteString(r.palette.cached.Sprintf("⚡ cached from [%d]", f.CacheHitOf))
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (r renderer) exit(w io.Writer, f frame.Frame) error {
	var b strings.Builder
	b.WriteString(indent(f.Depth, false))
	b.WriteString(r.palette.id.Sprintf("[%d]", f.CallID))
	b.WriteString(" ")
	if f.Exception != nil {
		b.WriteString(r.palette.failure.Sprint("✗ " + f.Exception.String()))
	} else {
		b.WriteString(r.palette.value.Sprint("→ " + FormatValue(f.ReturnValue(), r.opts.MaxValueLen)))
	}
	if r.opts.Timing {
		b.WriteString(r.palette.timing.Sprintf(" (%.3fms)", float64(f.Duration())/1e6))
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func (r renderer) stack(w io.Writer, depth int, ids []frame.CallID) error {
	parts := make([]string, len(ids))
	for i, id := range ids {
		// ids come top first, print them from the root down.
		parts[len(ids)-1-i] = fmt.Sprintf("[%d]", id)
	}
	_, err := fmt.Fprintf(w, "%s%s\n", strings.Repeat(pipe, depth), r.palette.timing.Sprint("stack: "+strings.Join(parts, " > ")))
	return err
}
