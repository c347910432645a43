package resolver

import "sync"

// Namespace is an ordered table of named values that acts as a root scope or
// as a nested namespace. Functions stored in a Namespace can be rebound in
// place, so callers that look them up through the Namespace see replacements.
type Namespace struct {
	mu      sync.RWMutex
	names   []string
	members map[string]any
}

// NewNamespace creates an empty Namespace.
func NewNamespace() *Namespace {
	return &Namespace{
		members: make(map[string]any),
	}
}

// Set binds name to v. New names keep insertion order; rebinding an existing
// name keeps its position.
func (n *Namespace) Set(name string, v any) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, exists := n.members[name]; !exists {
		n.names = append(n.names, name)
	}
	n.members[name] = v
}

// Get returns the value bound to name.
func (n *Namespace) Get(name string) (any, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	v, ok := n.members[name]
	return v, ok
}

// Delete removes name from the namespace.
func (n *Namespace) Delete(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, exists := n.members[name]; !exists {
		return
	}
	delete(n.members, name)
	for i, existing := range n.names {
		if existing == name {
			n.names = append(n.names[:i:i], n.names[i+1:]...)
			break
		}
	}
}

// Names returns member names in insertion order.
func (n *Namespace) Names() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return append([]string(nil), n.names...)
}

// Constructor is a callable that carries a method table, the Go counterpart
// of a class: New builds values and Methods holds the functions they share.
// Methods may be a *Namespace, a pointer to a struct of func fields or a
// map[string]T.
//
// A Constructor is addressed by path like a function. Its members are
// reachable as "new" (the New func) and "prototype" (the method table).
type Constructor struct {
	mu      sync.RWMutex
	New     any
	Methods any
}

// NewConstructor returns a Constructor with the given constructor func and method table.
func NewConstructor(newFunc any, methods any) *Constructor {
	return &Constructor{New: newFunc, Methods: methods}
}

// Constructor member names.
const (
	MemberNew       = "new"
	MemberPrototype = "prototype"
)

func (c *Constructor) get(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch name {
	case MemberNew:
		return c.New, true
	case MemberPrototype:
		return c.Methods, true
	}
	return nil, false
}

func (c *Constructor) set(name string, v any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch name {
	case MemberNew:
		c.New = v
	case MemberPrototype:
		c.Methods = v
	default:
		return false
	}
	return true
}

// Call looks up the current New func and asserts it to F.
// Call sites that go through Call observe an installed replacement.
func Call[F any](c *Constructor) F {
	v, _ := c.get(MemberNew)
	f, _ := v.(F)
	return f
}

// Func returns the value bound to name in n asserted to F, or the zero F when
// the name is missing or has another type.
func Func[F any](n *Namespace, name string) F {
	v, _ := n.Get(name)
	f, _ := v.(F)
	return f
}
