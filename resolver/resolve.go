package resolver

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
)

var (
	// ErrUnresolved is matched by every *ResolutionError.
	ErrUnresolved = errors.New("unresolved path")

	// ErrNotSettable indicates a binding that cannot hold the given value.
	ErrNotSettable = errors.New("binding not settable")
)

// ResolutionError reports a path segment that does not exist.
type ResolutionError struct {
	Path  Path // Path being resolved
	Index int  // Index of the first missing segment
}

func (e *ResolutionError) Error() string {
	if e.Index == 0 {
		return fmt.Sprintf("resolve %s: %q not found in root scope", e.Path, e.Path[0].Name)
	}
	return fmt.Sprintf("resolve %s: %q not found in %s", e.Path, e.Path[e.Index].Name, e.Path[:e.Index])
}

func (e *ResolutionError) Unwrap() error {
	return ErrUnresolved
}

// Kind classifies a resolved value for traversal.
type Kind int

const (
	KindOther       Kind = iota // Nothing to instrument
	KindFunc                    // Non-nil func value
	KindConstructor             // *Constructor with a non-nil New func
	KindNamespace               // *Namespace, struct pointer or string-keyed map
)

func (k Kind) String() string {
	switch k {
	case KindFunc:
		return "func"
	case KindConstructor:
		return "constructor"
	case KindNamespace:
		return "namespace"
	}
	return "other"
}

// KindOf classifies v. Struct values (as opposed to pointers) are KindOther:
// a copy held in an interface or map has no settable fields.
func KindOf(v any) Kind {
	switch x := v.(type) {
	case nil:
		return KindOther
	case *Namespace:
		if x == nil {
			return KindOther
		}
		return KindNamespace
	case *Constructor:
		if x == nil {
			return KindOther
		}
		newFunc, _ := x.get(MemberNew)
		if KindOf(newFunc) != KindFunc {
			return KindOther
		}
		return KindConstructor
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func:
		if !rv.IsNil() {
			return KindFunc
		}
	case reflect.Pointer:
		if !rv.IsNil() && rv.Elem().Kind() == reflect.Struct {
			return KindNamespace
		}
	case reflect.Map:
		if !rv.IsNil() && rv.Type().Key().Kind() == reflect.String {
			return KindNamespace
		}
	}
	return KindOther
}

// Members lists the member names of a namespace value in a stable order:
// insertion order for *Namespace, declaration order of exported fields for
// structs and sorted keys for maps. Other values have no members.
func Members(v any) []string {
	if ns, ok := v.(*Namespace); ok {
		if ns == nil {
			return nil
		}
		return ns.Names()
	}
	if _, ok := v.(*Constructor); ok {
		return nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		var names []string
		for i := range rv.NumField() {
			if field := rv.Type().Field(i); field.IsExported() {
				names = append(names, field.Name)
			}
		}
		return names
	case reflect.Map:
		if rv.IsNil() || rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		names := make([]string, 0, rv.Len())
		for _, key := range rv.MapKeys() {
			names = append(names, key.String())
		}
		slices.Sort(names)
		return names
	}
	return nil
}

// Binding is a resolved location: the value found at a path together with
// the means to replace it in place.
type Binding struct {
	Path  Path
	Value any // Value at resolution time
	slot  slot
}

// Current re-reads the value stored at the binding.
func (b *Binding) Current() any {
	v, _ := b.slot.load()
	return iface(v)
}

// Settable reports whether Set can replace the value in place. Fields of
// struct values read through an interface or map are not.
func (b *Binding) Settable() bool {
	return b.slot.settable()
}

// Set stores v at the binding.
func (b *Binding) Set(v any) error {
	if err := b.slot.store(v); err != nil {
		return fmt.Errorf("set %s: %w", b.Path, err)
	}
	b.Value = v
	return nil
}

// Resolve walks path from root and returns the binding of its last segment.
// Root is usually a *Namespace; any traversable value is accepted.
func Resolve(root any, path Path) (*Binding, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	cursor := reflect.ValueOf(root)
	for i, seg := range path {
		s, ok := member(cursor, seg.Name)
		if !ok {
			return nil, &ResolutionError{Path: path, Index: i}
		}
		v, _ := s.load()
		if i == len(path)-1 {
			return &Binding{Path: path, Value: iface(v), slot: s}, nil
		}
		cursor = v
	}
	panic("unreachable")
}

// Lookup resolves a single member of v.
func Lookup(v any, name string) (*Binding, error) {
	s, ok := member(reflect.ValueOf(v), name)
	if !ok {
		return nil, &ResolutionError{Path: Path{{Name: name}}}
	}
	cur, _ := s.load()
	return &Binding{Path: Path{{Name: name}}, Value: iface(cur), slot: s}, nil
}

// slot is one storage location inside a namespace value.
type slot struct {
	ns    *Namespace
	ctor  *Constructor
	field reflect.Value // Addressable struct field
	m     reflect.Value // String-keyed map
	key   reflect.Value
	name  string
}

func member(cursor reflect.Value, name string) (slot, bool) {
	for cursor.Kind() == reflect.Interface && !cursor.IsNil() {
		cursor = cursor.Elem()
	}
	if !cursor.IsValid() {
		return slot{}, false
	}

	if cursor.CanInterface() {
		switch x := cursor.Interface().(type) {
		case *Namespace:
			if x == nil {
				return slot{}, false
			}
			_, ok := x.Get(name)
			return slot{ns: x, name: name}, ok
		case *Constructor:
			if x == nil {
				return slot{}, false
			}
			_, ok := x.get(name)
			return slot{ctor: x, name: name}, ok
		}
	}

	switch cursor.Kind() {
	case reflect.Pointer:
		if cursor.IsNil() || cursor.Elem().Kind() != reflect.Struct {
			return slot{}, false
		}
		return structField(cursor.Elem(), name)
	case reflect.Struct:
		return structField(cursor, name)
	case reflect.Map:
		if cursor.IsNil() || cursor.Type().Key().Kind() != reflect.String {
			return slot{}, false
		}
		key := reflect.ValueOf(name).Convert(cursor.Type().Key())
		if !cursor.MapIndex(key).IsValid() {
			return slot{}, false
		}
		return slot{m: cursor, key: key, name: name}, true
	}
	return slot{}, false
}

func structField(v reflect.Value, name string) (slot, bool) {
	sf, ok := v.Type().FieldByName(name)
	if !ok || !sf.IsExported() {
		return slot{}, false
	}
	field, err := v.FieldByIndexErr(sf.Index)
	if err != nil {
		return slot{}, false
	}
	return slot{field: field, name: name}, true
}

func (s slot) load() (reflect.Value, bool) {
	switch {
	case s.ns != nil:
		v, ok := s.ns.Get(s.name)
		return reflect.ValueOf(v), ok
	case s.ctor != nil:
		v, ok := s.ctor.get(s.name)
		return reflect.ValueOf(v), ok
	case s.field.IsValid():
		return s.field, true
	case s.m.IsValid():
		v := s.m.MapIndex(s.key)
		return v, v.IsValid()
	}
	return reflect.Value{}, false
}

func (s slot) settable() bool {
	switch {
	case s.ns != nil, s.ctor != nil, s.m.IsValid():
		return true
	case s.field.IsValid():
		return s.field.CanSet()
	}
	return false
}

func (s slot) store(v any) error {
	switch {
	case s.ns != nil:
		s.ns.Set(s.name, v)
		return nil
	case s.ctor != nil:
		if !s.ctor.set(s.name, v) {
			return fmt.Errorf("%w: constructor has no member %q", ErrNotSettable, s.name)
		}
		return nil
	case s.field.IsValid():
		if !s.field.CanSet() {
			return fmt.Errorf("%w: field %q is not addressable", ErrNotSettable, s.name)
		}
		rv, err := assignable(v, s.field.Type())
		if err != nil {
			return err
		}
		s.field.Set(rv)
		return nil
	case s.m.IsValid():
		rv, err := assignable(v, s.m.Type().Elem())
		if err != nil {
			return err
		}
		s.m.SetMapIndex(s.key, rv)
		return nil
	}
	return ErrNotSettable
}

func assignable(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, fmt.Errorf("%w: %s is not assignable to %s", ErrNotSettable, rv.Type(), t)
	}
	return rv, nil
}

func iface(v reflect.Value) any {
	if !v.IsValid() || !v.CanInterface() {
		return nil
	}
	return v.Interface()
}
