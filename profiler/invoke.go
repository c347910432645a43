package profiler

import (
	"reflect"
	"time"

	"github.com/petermattis/goid"
)

// instrument builds a replacement with the same type as the original of e.
func (p *Profiler) instrument(e *entry) any {
	call := e.fn.Call
	if e.fn.Type().IsVariadic() {
		call = e.fn.CallSlice
	}

	return reflect.MakeFunc(e.fn.Type(), func(args []reflect.Value) []reflect.Value {
		gid := goid.Get()
		start := p.enter(e, gid)
		defer p.leave(e, gid, start)

		return call(args)
	}).Interface()
}

// enter pushes e onto the stack of goroutine gid and returns the start
// timestamp of the invocation.
func (p *Profiler) enter(e *entry, gid int64) time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stacks[gid] = append(p.stacks[gid], e)
	return p.now()
}

// leave pops the invocation of e, charges its elapsed time to e and deducts
// it from the self time of the frame below on the same goroutine. It also
// runs when the original panics, so the stack stays balanced.
func (p *Profiler) leave(e *entry, gid int64, start time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := p.now().Sub(start)
	stack := p.stacks[gid]
	stack = stack[:len(stack)-1]
	if len(stack) == 0 {
		delete(p.stacks, gid)
	} else {
		p.stacks[gid] = stack
	}

	e.count++
	e.total += elapsed
	e.self += elapsed

	if n := len(stack); n > 0 {
		parent := stack[n-1]
		parent.self -= elapsed
		p.graph.add(parent.key, e.key)
	}
}

// Depth returns the number of instrumented invocations in progress across
// all goroutines.
func (p *Profiler) Depth() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, stack := range p.stacks {
		n += len(stack)
	}
	return n
}
