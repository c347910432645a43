package resolver

import (
	"reflect"
	"unsafe"
)

// Same reports whether a and b are the same value. Func values are compared
// by closure identity: two func values are the same only if they share the
// same closure object, so a wrapper never compares equal to the function it
// wraps even when both have the same code pointer.
func Same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}

	if ta.Kind() == reflect.Func {
		return closure(a) == closure(b)
	}
	if !ta.Comparable() {
		return false
	}
	return a == b
}

// closure returns the data word of an interface holding a func. Func values
// are stored directly in the interface, so the data word is the closure pointer.
func closure(v any) unsafe.Pointer {
	type eface struct {
		typ  unsafe.Pointer
		data unsafe.Pointer
	}
	return (*eface)(unsafe.Pointer(&v)).data
}
