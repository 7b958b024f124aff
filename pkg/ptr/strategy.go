package ptr

import (
	"reflect"
)

// Kind names a disposal strategy.
type Kind uint8

const (
	KindNone Kind = iota
	KindSingle
	KindArray
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindArray:
		return "array"
	case KindCustom:
		return "custom"
	default:
		return "none"
	}
}

// Disposable is implemented by values that hold resources beyond memory.
// Dispose is called exactly once, when the last strong handle goes away.
type Disposable interface {
	Dispose()
}

// DisposeStrategy releases a target once its last strong handle is gone.
// Dispose returns the number of values it disposed.
type DisposeStrategy[T any] interface {
	Kind() Kind
	Dispose(target *T) int
}

type single[T any] struct{}

// Single disposes one value.
func Single[T any]() DisposeStrategy[T] {
	return single[T]{}
}

func (single[T]) Kind() Kind { return KindSingle }

func (single[T]) Dispose(target *T) int {
	disposeValue(target)
	return 1
}

type array[E any] struct{}

// Array disposes every element of a slice, last element first.
func Array[E any]() DisposeStrategy[[]E] {
	return array[E]{}
}

func (array[E]) Kind() Kind { return KindArray }

func (array[E]) Dispose(target *[]E) int {
	elems := *target
	disposeRange(elems, len(elems))
	*target = nil
	return len(elems)
}

type funcStrategy[T any] struct {
	fn func(target *T) int
}

// DisposeFunc wraps fn as a custom strategy, e.g. returning a buffer to its pool.
func DisposeFunc[T any](fn func(target *T) int) DisposeStrategy[T] {
	return funcStrategy[T]{fn: fn}
}

func (funcStrategy[T]) Kind() Kind { return KindCustom }

func (s funcStrategy[T]) Dispose(target *T) int {
	return s.fn(target)
}

// forward disposes a converted handle through the strategy of the handle it was converted from.
type forward[U, T any] struct {
	orig   DisposeStrategy[T]
	target *T
}

func (f forward[U, T]) Kind() Kind { return f.orig.Kind() }

func (f forward[U, T]) Dispose(cell *U) int {
	n := f.orig.Dispose(f.target)
	var zero U
	*cell = zero
	return n
}

// disposeRange disposes elems[:n] in reverse construction order.
func disposeRange[E any](elems []E, n int) {
	for i := n - 1; i >= 0; i-- {
		disposeValue(&elems[i])
	}
}

func disposeValue[T any](v *T) {
	if d, ok := any(v).(Disposable); ok {
		d.Dispose()
	} else if d, ok := any(*v).(Disposable); ok && !isNilPointer(d) {
		d.Dispose()
	}
	var zero T
	*v = zero
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}
