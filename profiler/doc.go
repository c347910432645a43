// Package profiler instruments functions in place and accounts their time.
//
// Functions are registered by the caller in a [resolver.Namespace] (or any
// value the resolver can traverse: struct pointers with func fields, string
// keyed maps, [resolver.Constructor] method tables) and named by path:
//
//	root := resolver.NewNamespace()
//	root.Set("lib", lib) // lib is a *Library with func fields
//
//	p, err := profiler.New(root, []string{"lib"})
//	if err := p.Start(); err != nil { ... }
//	defer p.Stop()
//
//	lib.Render(rows) // calls through the instrumented func field
//	p.Report()
//
// # Wrapping
//
// Start resolves every target. Functions get a replacement of the same type
// that times each invocation; namespaces are traversed member by member and
// constructors have every method of their method table wrapped before the
// constructor itself. Traversal stops at the configured maximum depth, which
// bounds cyclic or very wide object graphs. Wrapping a path twice is a no-op.
//
// Stop restores each original function, but only where the slot still holds
// the replacement installed by this profiler. Slots changed by someone else
// since Start are left alone.
//
// # Accounting
//
// Each invocation pushes onto a call stack owned by the profiler, one per
// goroutine. When it returns, its elapsed time is added to the count, total
// and self counters of its entry and deducted from the self time of the entry
// below it on the same goroutine, and the caller/callee edge between the two
// is incremented. A panic in the wrapped function is accounted the same way
// before it propagates.
//
// Counters and edges are shared by all goroutines. A call made on a new
// goroutine starts a fresh stack, so it records no edge to the function that
// spawned it.
package profiler
