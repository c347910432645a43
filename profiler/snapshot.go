package profiler

import (
	"fmt"

	"callScope/report"
	"callScope/stats"
)

// Snapshot copies the current counters and call graph.
func (p *Profiler) Snapshot() *stats.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := &stats.Snapshot{
		Since:     p.since,
		Taken:     p.now(),
		Functions: make([]stats.Function, 0, len(p.order)),
	}
	for _, e := range p.order {
		snap.Functions = append(snap.Functions, stats.Function{
			Name:   e.key,
			Count:  e.count,
			Total:  e.total,
			Self:   e.self,
			Symbol: e.symbol,
		})
	}
	for _, e := range p.order {
		c, ok := p.graph[e.key]
		if !ok {
			continue
		}
		for _, callee := range c.order {
			snap.Edges = append(snap.Edges, stats.Edge{
				Caller: e.key,
				Callee: callee,
				Count:  c.counts[callee],
			})
		}
	}

	return snap
}

// Calls returns how many times caller directly invoked callee.
func (p *Profiler) Calls(caller, callee string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.graph.count(caller, callee)
}

// FunctionReport renders the per-function table.
func (p *Profiler) FunctionReport() string {
	return report.Functions(p.Snapshot())
}

// CallGraphReport renders the caller/callee table.
func (p *Profiler) CallGraphReport() string {
	return report.CallGraph(p.Snapshot())
}

// Report writes both reports to the configured output.
func (p *Profiler) Report() error {
	snap := p.Snapshot()
	if _, err := fmt.Fprintf(p.output, "%s\n%s\n", report.Functions(snap), report.CallGraph(snap)); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
