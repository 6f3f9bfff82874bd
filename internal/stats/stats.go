package stats

import (
	"sort"

	"github.com/getsentry/calltracer/internal/frame"
	"github.com/getsentry/calltracer/internal/quantile"
)

type (
	// Source is anything holding a set of recorded frames, a live registry
	// snapshot or a decoded document.
	Source interface {
		All() []frame.Frame
	}

	Stats struct {
		TotalCalls      int             `json:"total_calls"`
		TotalDurationNS uint64          `json:"total_duration_ns"`
		MaxDepth        int             `json:"max_depth"`
		CacheHits       int             `json:"cache_hits"`
		HitRate         float64         `json:"hit_rate"`
		Raised          int             `json:"raised"`
		Uncacheable     int             `json:"uncacheable"`
		Functions       []FunctionStats `json:"functions"`
		Slowest         []frame.Frame   `json:"slowest"`
	}

	FunctionStats struct {
		Name        string       `json:"name"`
		Fingerprint uint64       `json:"fingerprint"`
		Count       uint64       `json:"count"`
		SumNS       uint64       `json:"sum_ns"`
		AvgNS       float64      `json:"avg_ns"`
		P75NS       uint64       `json:"p75_ns"`
		P95NS       uint64       `json:"p95_ns"`
		P99NS       uint64       `json:"p99_ns"`
		Raised      uint64       `json:"raised"`
		CacheHits   uint64       `json:"cache_hits"`
		Slowest     frame.CallID `json:"slowest"`
	}

	Options struct {
		MaxFunctions int
		SlowestCount int
	}

	Option func(*Options)
)

const (
	DefaultMaxFunctions = 20
	DefaultSlowestCount = 5
)

func WithMaxFunctions(n int) Option {
	return func(o *Options) {
		o.MaxFunctions = n
	}
}

func WithSlowestCount(n int) Option {
	return func(o *Options) {
		o.SlowestCount = n
	}
}

// Compute walks every frame of src once. Nothing is kept between calls so
// it can be run on a session while it keeps recording.
func Compute(src Source, opts ...Option) Stats {
	o := Options{
		MaxFunctions: DefaultMaxFunctions,
		SlowestCount: DefaultSlowestCount,
	}
	for _, opt := range opts {
		opt(&o)
	}

	frames := src.All()
	s := Stats{TotalCalls: len(frames)}
	agg := NewAggregator(o.MaxFunctions)
	for _, f := range frames {
		if f.IsRoot() {
			s.TotalDurationNS += f.Duration()
		}
		if f.Depth > s.MaxDepth {
			s.MaxDepth = f.Depth
		}
		if f.IsCacheHit() {
			s.CacheHits++
		}
		if f.Status == frame.StatusRaised {
			s.Raised++
		}
		if f.Uncacheable {
			s.Uncacheable++
		}
		agg.Add(f)
	}
	if s.TotalCalls > 0 {
		s.HitRate = float64(s.CacheHits) / float64(s.TotalCalls)
	}
	s.Functions = agg.ToStats()
	s.Slowest = slowest(frames, o.SlowestCount)
	return s
}

// slowest returns the n longest terminal frames, earlier calls first on
// ties.
func slowest(frames []frame.Frame, n int) []frame.Frame {
	if n <= 0 {
		return nil
	}
	candidates := make([]frame.Frame, 0, len(frames))
	for _, f := range frames {
		if f.Status.IsTerminal() {
			candidates = append(candidates, f)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Duration() > candidates[j].Duration()
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}

type (
	functionCalls struct {
		name        string
		durationsNS []uint64
		sumNS       uint64
		raised      uint64
		cacheHits   uint64
		maxNS       uint64
		worst       frame.CallID
	}

	// Aggregator groups frames by function.
	Aggregator struct {
		MaxUniqueFunctions int
		functions          map[uint64]*functionCalls
	}
)

func NewAggregator(maxUniqueFunctions int) Aggregator {
	return Aggregator{
		MaxUniqueFunctions: maxUniqueFunctions,
		functions:          make(map[uint64]*functionCalls),
	}
}

func (a *Aggregator) Add(f frame.Frame) {
	fingerprint := f.Fingerprint()
	fn, ok := a.functions[fingerprint]
	if !ok {
		fn = &functionCalls{name: f.FunctionName, worst: f.CallID}
		a.functions[fingerprint] = fn
	}
	d := f.Duration()
	fn.durationsNS = append(fn.durationsNS, d)
	fn.sumNS += d
	if d > fn.maxNS {
		fn.maxNS = d
		fn.worst = f.CallID
	}
	if f.Status == frame.StatusRaised {
		fn.raised++
	}
	if f.IsCacheHit() {
		fn.cacheHits++
	}
}

func (a *Aggregator) ToStats() []FunctionStats {
	stats := make([]FunctionStats, 0, len(a.functions))
	for fingerprint, fn := range a.functions {
		q := quantile.FromDurations(fn.durationsNS)
		stats = append(stats, FunctionStats{
			Name:        fn.name,
			Fingerprint: fingerprint,
			Count:       uint64(len(fn.durationsNS)),
			SumNS:       fn.sumNS,
			AvgNS:       q.Mean(),
			P75NS:       uint64(q.Percentile(0.75)),
			P95NS:       uint64(q.Percentile(0.95)),
			P99NS:       uint64(q.Percentile(0.99)),
			Raised:      fn.raised,
			CacheHits:   fn.cacheHits,
			Slowest:     fn.worst,
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].SumNS != stats[j].SumNS {
			return stats[i].SumNS > stats[j].SumNS
		}
		return stats[i].Name < stats[j].Name
	})
	if a.MaxUniqueFunctions > 0 && len(stats) > a.MaxUniqueFunctions {
		stats = stats[:a.MaxUniqueFunctions]
	}
	return stats
}
