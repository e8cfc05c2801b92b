package reporting

import (
	"context"
	"sort"
	"sync"

	"github.com/ducminhle1904/futures-executor/pkg/types"
)

// Collector accumulates execution results for the session report
type Collector struct {
	mu      sync.Mutex
	results []types.ExecutionResult
}

func NewCollector() *Collector {
	return &Collector{}
}

// Run records results until the channel is closed or ctx ends
func (c *Collector) Run(ctx context.Context, results <-chan types.ExecutionResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case res, open := <-results:
			if !open {
				return
			}
			c.Add(res)
		}
	}
}

func (c *Collector) Add(res types.ExecutionResult) {
	c.mu.Lock()
	c.results = append(c.results, res)
	c.mu.Unlock()
}

// Results returns the recorded results ordered by start time
func (c *Collector) Results() []types.ExecutionResult {
	c.mu.Lock()
	out := append([]types.ExecutionResult(nil), c.results...)
	c.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// SymbolSummary counts outcomes for one symbol
type SymbolSummary struct {
	Symbol    string
	Submitted int
	Rejected  int
	Errors    int
	Conflicts int
	Warnings  int
	Attempts  int
}

func (s SymbolSummary) Total() int {
	return s.Submitted + s.Rejected + s.Errors + s.Conflicts
}

// Summarize aggregates results per symbol, sorted by symbol
func Summarize(results []types.ExecutionResult) []SymbolSummary {
	bySymbol := make(map[string]*SymbolSummary)
	for _, r := range results {
		s, ok := bySymbol[r.Symbol]
		if !ok {
			s = &SymbolSummary{Symbol: r.Symbol}
			bySymbol[r.Symbol] = s
		}
		switch r.Status {
		case types.StatusSubmitted:
			s.Submitted++
		case types.StatusRejected:
			s.Rejected++
		case types.StatusError:
			s.Errors++
		case types.StatusConflict:
			s.Conflicts++
		}
		if r.LeverageWarning != "" || len(r.Warnings) > 0 {
			s.Warnings++
		}
		s.Attempts += r.Attempts
	}

	out := make([]SymbolSummary, 0, len(bySymbol))
	for _, s := range bySymbol {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
