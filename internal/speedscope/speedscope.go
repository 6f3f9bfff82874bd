package speedscope

import (
	"github.com/getsentry/calltracer/internal/frame"
)

const (
	Schema = "https://www.speedscope.app/file-format-schema.json"

	ValueUnitNanoseconds ValueUnit = "nanoseconds"

	EventTypeOpenFrame  EventType = "O"
	EventTypeCloseFrame EventType = "C"

	ProfileTypeEvented ProfileType = "evented"
)

type (
	// Tree is a recorded call forest, such as a registry snapshot.
	Tree interface {
		Roots() []frame.Frame
		Children(id frame.CallID) []frame.Frame
	}

	Frame struct {
		Name string `json:"name"`
		File string `json:"file,omitempty"`
		Line int    `json:"line,omitempty"`
	}

	Event struct {
		Type  EventType `json:"type"`
		Frame int       `json:"frame"`
		At    uint64    `json:"at"`
	}

	EventedProfile struct {
		EndValue   uint64      `json:"endValue"`
		Events     []Event     `json:"events"`
		Name       string      `json:"name"`
		StartValue uint64      `json:"startValue"`
		Type       ProfileType `json:"type"`
		Unit       ValueUnit   `json:"unit"`
	}

	SharedData struct {
		Frames []Frame `json:"frames"`
	}

	EventType   string
	ProfileType string
	ValueUnit   string

	// Output is a file speedscope can open.
	Output struct {
		Schema             string           `json:"$schema"`
		ActiveProfileIndex int              `json:"activeProfileIndex"`
		Exporter           string           `json:"exporter"`
		Name               string           `json:"name"`
		Profiles           []EventedProfile `json:"profiles"`
		Shared             SharedData       `json:"shared"`
	}
)

// FromTree lays every call of src out as an evented profile with one frame
// per function. Calls still active are closed at the end of the profile.
func FromTree(name string, src Tree) Output {
	b := builder{frames: make(map[string]int)}
	roots := src.Roots()
	p := EventedProfile{
		Name:   name,
		Type:   ProfileTypeEvented,
		Unit:   ValueUnitNanoseconds,
		Events: []Event{},
	}
	if len(roots) > 0 {
		p.StartValue = roots[0].StartNS
		p.EndValue = p.StartValue
		for _, root := range roots {
			b.end(src, root, &p.EndValue)
		}
		for _, root := range roots {
			b.walk(src, root, p.EndValue)
		}
		p.Events = b.events
	}
	return Output{
		Schema:   Schema,
		Exporter: "calltracer",
		Name:     name,
		Profiles: []EventedProfile{p},
		Shared:   SharedData{Frames: b.shared},
	}
}

type builder struct {
	frames map[string]int
	shared []Frame
	events []Event
}

func (b *builder) frameIndex(f frame.Frame) int {
	if i, ok := b.frames[f.FunctionName]; ok {
		return i
	}
	i := len(b.shared)
	b.frames[f.FunctionName] = i
	b.shared = append(b.shared, Frame{Name: f.FunctionName, File: f.File, Line: f.Line})
	return i
}

// end finds the latest timestamp recorded under f.
func (b *builder) end(src Tree, f frame.Frame, max *uint64) {
	if f.StartNS > *max {
		*max = f.StartNS
	}
	if f.Status.IsTerminal() && f.EndNS > *max {
		*max = f.EndNS
	}
	for _, c := range src.Children(f.CallID) {
		b.end(src, c, max)
	}
}

func (b *builder) walk(src Tree, f frame.Frame, profileEnd uint64) {
	i := b.frameIndex(f)
	b.events = append(b.events, Event{Type: EventTypeOpenFrame, Frame: i, At: f.StartNS})
	for _, c := range src.Children(f.CallID) {
		b.walk(src, c, profileEnd)
	}
	end := profileEnd
	if f.Status.IsTerminal() {
		end = f.EndNS
	}
	b.events = append(b.events, Event{Type: EventTypeCloseFrame, Frame: i, At: end})
}
