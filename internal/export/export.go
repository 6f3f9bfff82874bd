package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/getsentry/calltracer/internal/frame"
	"github.com/getsentry/calltracer/internal/registry"
	"github.com/getsentry/calltracer/internal/timeutil"
)

type (
	// Tree is a recorded call forest, such as a registry snapshot.
	Tree interface {
		Roots() []frame.Frame
		Children(id frame.CallID) []frame.Frame
	}

	// Value is an argument or return value already rendered to text. It
	// prints as is, without the quotes a string would get.
	Value string

	// Argument holds the rendered value of an argument.
	Argument struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}

	Node struct {
		CallID            frame.CallID     `json:"call_id"`
		FunctionName      string           `json:"function_name"`
		File              string           `json:"file,omitempty"`
		Line              int              `json:"line,omitempty"`
		Arguments         []Argument       `json:"arguments"`
		ArgumentsRedacted bool             `json:"arguments_redacted,omitempty"`
		ReturnValue       string           `json:"return_value,omitempty"`
		Exception         *frame.Exception `json:"exception,omitempty"`
		Status            frame.Status     `json:"status"`
		CacheHitOf        frame.CallID     `json:"cache_hit_of,omitempty"`
		Uncacheable       bool             `json:"uncacheable,omitempty"`
		StartNS           uint64           `json:"start_ns"`
		DurationNS        uint64           `json:"duration_ns"`
		Depth             int              `json:"depth"`
		Children          []*Node          `json:"children"`
	}

	Document struct {
		SessionID string        `json:"session_id"`
		StartedAt timeutil.Time `json:"started_at"`
		Roots     []*Node       `json:"roots"`
	}
)

// Build converts a recorded forest into nested nodes. Values are rendered
// to strings so any document can be decoded again.
func Build(sessionID string, startedAt time.Time, src Tree) Document {
	doc := Document{
		SessionID: sessionID,
		StartedAt: timeutil.Time(startedAt),
		Roots:     []*Node{},
	}
	for _, root := range src.Roots() {
		doc.Roots = append(doc.Roots, buildNode(src, root))
	}
	return doc
}

func buildNode(src Tree, f frame.Frame) *Node {
	n := &Node{
		CallID:            f.CallID,
		FunctionName:      f.FunctionName,
		File:              f.File,
		Line:              f.Line,
		Arguments:         make([]Argument, 0, len(f.Arguments)),
		ArgumentsRedacted: f.ArgumentsRedacted,
		Status:            f.Status,
		CacheHitOf:        f.CacheHitOf,
		Uncacheable:       f.Uncacheable,
		StartNS:           f.StartNS,
		DurationNS:        f.Duration(),
		Depth:             f.Depth,
		Children:          []*Node{},
	}
	for _, a := range f.Arguments {
		n.Arguments = append(n.Arguments, Argument{Name: a.Name, Value: text(a.Value)})
	}
	switch f.Status {
	case frame.StatusReturned:
		n.ReturnValue = text(f.ReturnValue())
	case frame.StatusRaised:
		if f.Exception != nil {
			exc := *f.Exception
			n.Exception = &exc
		}
	}
	for _, child := range src.Children(f.CallID) {
		n.Children = append(n.Children, buildNode(src, child))
	}
	return n
}

func text(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprint(v)
}

func Encode(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func Decode(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("export: can't decode document: %w", err)
	}
	return doc, nil
}

// Frames flattens the document back into frames, parents before children.
// Rendered values are kept as Value.
func (d Document) Frames() []frame.Frame {
	var frames []frame.Frame
	var walk func(n *Node, parentID frame.CallID)
	walk = func(n *Node, parentID frame.CallID) {
		f := frame.Frame{
			CallID:            n.CallID,
			FunctionName:      n.FunctionName,
			File:              n.File,
			Line:              n.Line,
			ArgumentsRedacted: n.ArgumentsRedacted,
			Depth:             n.Depth,
			ParentID:          parentID,
			StartNS:           n.StartNS,
			Status:            n.Status,
			CacheHitOf:        n.CacheHitOf,
			Uncacheable:       n.Uncacheable,
		}
		if len(n.Arguments) > 0 {
			f.Arguments = make([]frame.Argument, len(n.Arguments))
			for i, a := range n.Arguments {
				f.Arguments[i] = frame.Argument{Name: a.Name, Value: Value(a.Value)}
			}
		}
		if n.Status.IsTerminal() {
			f.EndNS = n.StartNS + n.DurationNS
		}
		switch n.Status {
		case frame.StatusReturned:
			f.ReturnValues = []any{Value(n.ReturnValue)}
		case frame.StatusRaised:
			if n.Exception != nil {
				exc := *n.Exception
				f.Exception = &exc
			}
		}
		for _, c := range n.Children {
			f.ChildrenIDs = append(f.ChildrenIDs, c.CallID)
		}
		frames = append(frames, f)
		for _, c := range n.Children {
			walk(c, n.CallID)
		}
	}
	for _, root := range d.Roots {
		walk(root, frame.NoParent)
	}
	return frames
}

// Snapshot rebuilds a registry snapshot from the document, it fails when
// the ids or depths are not consistent.
func (d Document) Snapshot() (*registry.Snapshot, error) {
	return registry.NewSnapshot(d.Frames())
}

// Shape describes the structure of the forest with call ids only, two
// documents with the same shape have isomorphic trees.
func (d Document) Shape() string {
	var b strings.Builder
	for _, root := range d.Roots {
		b.WriteString(root.Shape())
	}
	return b.String()
}

func (n *Node) Shape() string {
	var b strings.Builder
	b.WriteString("(")
	b.WriteString(n.CallID.String())
	for _, c := range n.Children {
		b.WriteString(c.Shape())
	}
	b.WriteString(")")
	return b.String()
}
