package render

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/getsentry/calltracer/internal/frame"
)

const (
	DefaultMaxValueLen = 50

	pipe   = "│   "
	opener = "┌─ "
	closer = "└─ "
)

// FormatValue renders v on a single line, strings quoted, cut after max
// runes. A max of 0 or less disables truncation.
func FormatValue(v any, max int) string {
	var s string
	switch t := v.(type) {
	case nil:
		s = "nil"
	case string:
		s = strconv.Quote(t)
	case error:
		s = t.Error()
	default:
		s = fmt.Sprintf("%v", v)
	}
	s = strings.ReplaceAll(s, "\n", `\n`)
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}

// FormatArgs renders arguments as a comma separated name=value list.
func FormatArgs(args []frame.Argument, max int) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, a.Name+"="+FormatValue(a.Value, max))
	}
	return strings.Join(parts, ", ")
}

func indent(depth int, entry bool) string {
	if depth == 0 {
		return ""
	}
	if entry {
		return strings.Repeat(pipe, depth-1) + opener
	}
	return strings.Repeat(pipe, depth-1) + closer
}
