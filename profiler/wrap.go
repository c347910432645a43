package profiler

import (
	"reflect"
	"runtime"
	"slices"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"callScope/resolver"
	"callScope/stats"
)

// wrap instruments the value at path. Functions and constructors are
// replaced in place, namespaces are traversed one level deeper and anything
// else is ignored. Nothing at or below maxDepth is visited.
func (p *Profiler) wrap(path resolver.Path, depth int) error {
	if depth >= p.maxDepth {
		return nil
	}
	if p.exclude != nil && p.exclude.MatchString(path.String()) {
		p.logger.Debug("Skipping excluded path", zap.Stringer("path", path))
		return nil
	}

	b, err := resolver.Resolve(p.root, path)
	if err != nil {
		return err
	}

	switch resolver.KindOf(b.Value) {
	case resolver.KindFunc:
		return p.wrapFunc(path, b, nil, depth)

	case resolver.KindConstructor:
		ctor := b.Value.(*resolver.Constructor)
		slot, err := resolver.Lookup(ctor, resolver.MemberNew)
		if err != nil {
			return err
		}
		return p.wrapFunc(path, slot, ctor, depth)

	case resolver.KindNamespace:
		var errs error
		for _, name := range resolver.Members(b.Value) {
			errs = multierr.Append(errs, p.wrap(path.Index(name), depth+1))
		}
		return errs
	}

	return nil
}

// wrapFunc installs a replacement for the function held by slot. For a
// constructor, its methods are wrapped first.
func (p *Profiler) wrapFunc(path resolver.Path, slot *resolver.Binding, ctor *resolver.Constructor, depth int) error {
	key := path.String()
	current := slot.Value

	if !slot.Settable() {
		p.logger.Debug("Slot cannot be replaced, leaving it", zap.String("path", key))
		return nil
	}

	e, exists := p.entries[key]
	switch {
	case exists && e.installed && resolver.Same(current, e.replacement):
		return nil
	case exists && !resolver.Same(current, e.original):
		p.logger.Debug("Slot no longer holds the original, leaving it", zap.String("path", key))
		return nil
	case !exists:
		if owner := p.owner(current); owner != nil {
			p.logger.Debug("Function already instrumented",
				zap.String("path", key),
				zap.String("as", owner.key))
			return nil
		}
		e = p.register(key, path, current, ctor != nil)
	}

	var errs error
	if ctor != nil {
		errs = p.wrapMethods(path, ctor, depth)
	}

	replacement := p.instrument(e)
	if err := slot.Set(replacement); err != nil {
		if !exists {
			p.unregister(e)
		}
		return multierr.Append(errs, err)
	}
	e.replacement = replacement
	e.installed = true

	p.logger.Debug("Wrapped", zap.String("path", key), zap.Int("depth", depth))
	return errs
}

// wrapMethods wraps every function in the method table of ctor one level deeper.
func (p *Profiler) wrapMethods(path resolver.Path, ctor *resolver.Constructor, depth int) error {
	proto, err := resolver.Lookup(ctor, resolver.MemberPrototype)
	if err != nil {
		return err
	}

	var errs error
	for _, name := range resolver.Members(proto.Value) {
		method, err := resolver.Lookup(proto.Value, name)
		if err != nil || resolver.KindOf(method.Value) != resolver.KindFunc {
			continue
		}
		errs = multierr.Append(errs, p.wrap(path.Field(resolver.MemberPrototype).Index(name), depth+1))
	}
	return errs
}

// owner returns the entry whose installed replacement is v.
func (p *Profiler) owner(v any) *entry {
	for _, e := range p.order {
		if e.installed && resolver.Same(v, e.replacement) {
			return e
		}
	}
	return nil
}

func (p *Profiler) register(key string, path resolver.Path, original any, constructor bool) *entry {
	fn := reflect.ValueOf(original)
	e := &entry{
		key:         key,
		path:        path,
		constructor: constructor,
		original:    original,
		fn:          fn,
		symbol:      symbolize(fn),
	}
	p.entries[key] = e
	p.order = append(p.order, e)
	return e
}

// unregister drops an entry that was never installed.
func (p *Profiler) unregister(e *entry) {
	delete(p.entries, e.key)
	p.order = slices.DeleteFunc(p.order, func(o *entry) bool { return o == e })
}

// symbolize looks up the runtime function behind fn.
func symbolize(fn reflect.Value) stats.Symbol {
	f := runtime.FuncForPC(fn.Pointer())
	if f == nil {
		return stats.Symbol{}
	}
	file, line := f.FileLine(f.Entry())
	return stats.Symbol{Func: f.Name(), File: file, Line: line}
}
