package stats

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
)

// WriteTable prints the summary followed by one row per function.
func WriteTable(w io.Writer, s Stats) error {
	summary := tablewriter.NewWriter(w)
	summary.SetHeader([]string{"Calls", "Duration", "Max depth", "Cache hits", "Hit rate", "Raised", "Uncacheable"})
	summary.Append([]string{
		fmt.Sprintf("%d", s.TotalCalls),
		time.Duration(s.TotalDurationNS).String(),
		fmt.Sprintf("%d", s.MaxDepth),
		fmt.Sprintf("%d", s.CacheHits),
		fmt.Sprintf("%.1f%%", s.HitRate*100),
		fmt.Sprintf("%d", s.Raised),
		fmt.Sprintf("%d", s.Uncacheable),
	})
	summary.Render()

	if len(s.Functions) > 0 {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		functions := tablewriter.NewWriter(w)
		functions.SetHeader([]string{"Function", "Count", "Sum", "Avg", "P75", "P95", "P99", "Raised", "Cache hits", "Slowest"})
		for _, f := range s.Functions {
			functions.Append([]string{
				f.Name,
				fmt.Sprintf("%d", f.Count),
				time.Duration(f.SumNS).String(),
				time.Duration(f.AvgNS).String(),
				time.Duration(f.P75NS).String(),
				time.Duration(f.P95NS).String(),
				time.Duration(f.P99NS).String(),
				fmt.Sprintf("%d", f.Raised),
				fmt.Sprintf("%d", f.CacheHits),
				"[" + f.Slowest.String() + "]",
			})
		}
		functions.Render()
	}

	if len(s.Slowest) > 0 {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		slowest := tablewriter.NewWriter(w)
		slowest.SetHeader([]string{"Call", "Function", "Depth", "Duration"})
		for _, f := range s.Slowest {
			slowest.Append([]string{
				"[" + f.CallID.String() + "]",
				f.FunctionName,
				fmt.Sprintf("%d", f.Depth),
				time.Duration(f.Duration()).String(),
			})
		}
		slowest.Render()
	}
	return nil
}
