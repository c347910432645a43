package profiler

// callGraph counts direct invocations per caller/callee pair. Edges appear on
// their first increment.
type callGraph map[string]*callees

type callees struct {
	order  []string // First-seen order
	counts map[string]int64
}

func (g callGraph) add(caller, callee string) {
	c, ok := g[caller]
	if !ok {
		c = &callees{counts: make(map[string]int64)}
		g[caller] = c
	}
	if _, seen := c.counts[callee]; !seen {
		c.order = append(c.order, callee)
	}
	c.counts[callee]++
}

func (g callGraph) count(caller, callee string) int64 {
	if c, ok := g[caller]; ok {
		return c.counts[callee]
	}
	return 0
}
