package ptr

import (
	"cmp"
	"fmt"
	"unsafe"
)

// Shared is an owning handle. The zero value and a nil *Shared are empty
// handles; every read-only method accepts both, mutating methods need a
// non-nil receiver.
type Shared[T any] struct {
	_ noCopy
	b binding[T]
}

// FromWeak promotes w to a strong handle.
// Returns ErrExpired when w is empty or its target is already disposed.
func FromWeak[T any](w *Weak[T]) (*Shared[T], error) {
	if w == nil {
		return nil, ErrExpired
	}
	b, ok := w.b.promote()
	if !ok {
		return nil, ErrExpired
	}
	return &Shared[T]{b: b}, nil
}

// Get returns the target, or nil for an empty handle.
func (s *Shared[T]) Get() *T {
	if s == nil {
		return nil
	}
	return s.b.target
}

// Value returns a copy of the target, or ErrNilDereference for an empty handle.
func (s *Shared[T]) Value() (T, error) {
	if !s.Valid() {
		var zero T
		return zero, ErrNilDereference
	}
	return *s.b.target, nil
}

// MustValue is like Value but panics with ErrNilDereference on an empty handle.
func (s *Shared[T]) MustValue() T {
	v, err := s.Value()
	if err != nil {
		panic(err)
	}
	return v
}

// UseCount returns the number of strong handles sharing the target, 0 when empty.
func (s *Shared[T]) UseCount() int64 {
	if s == nil {
		return 0
	}
	return s.b.strong()
}

// Unique reports whether s is the only strong handle of its target.
func (s *Shared[T]) Unique() bool {
	return s.UseCount() == 1
}

// Valid reports whether s is bound to a target.
func (s *Shared[T]) Valid() bool {
	return s != nil && s.b.target != nil
}

// IsNil reports whether s is empty.
func (s *Shared[T]) IsNil() bool {
	return !s.Valid()
}

// Kind returns the disposal strategy kind of the target, KindNone when empty.
func (s *Shared[T]) Kind() Kind {
	if s == nil {
		return KindNone
	}
	return s.b.kind()
}

// Clone returns a new strong handle to the same target.
// Cloning an empty handle yields an empty handle.
func (s *Shared[T]) Clone() *Shared[T] {
	if s == nil {
		return &Shared[T]{}
	}
	return &Shared[T]{b: s.b.retainStrong()}
}

// Move transfers ownership to a new handle and leaves s empty.
func (s *Shared[T]) Move() *Shared[T] {
	if s == nil {
		return &Shared[T]{}
	}
	return &Shared[T]{b: s.b.take()}
}

// Assign releases the target of s and makes it share the target of o.
func (s *Shared[T]) Assign(o *Shared[T]) {
	if s == o {
		return
	}
	var next binding[T]
	if o != nil {
		next = o.b.retainStrong()
	}
	s.b.releaseStrong()
	s.b = next
}

// MoveFrom releases the target of s and takes over the binding of o, leaving o empty.
func (s *Shared[T]) MoveFrom(o *Shared[T]) {
	if s == o {
		return
	}
	var next binding[T]
	if o != nil {
		next = o.b.take()
	}
	s.b.releaseStrong()
	s.b = next
}

// Release drops the ownership held by s and leaves it empty. The target is
// disposed if s was its last strong handle. Releasing an empty handle is a no-op.
func (s *Shared[T]) Release() {
	if s == nil {
		return
	}
	s.b.releaseStrong()
}

// Reset releases the current target and adopts target with the same
// disposal strategy (Single when s was empty). A nil target leaves s empty.
//
// The caller transfers ownership of target: it must not be adopted by any other handle.
func (s *Shared[T]) Reset(target *T) {
	strategy := s.b.strategy
	if strategy == nil {
		strategy = Single[T]()
	}
	s.b.releaseStrong()
	if target != nil {
		s.b = newBinding(target, strategy)
	}
}

// Swap exchanges the targets of s and o without touching any counter.
// A nil handle counts as empty and cannot hold a target, so swapping with nil
// releases the other side.
func (s *Shared[T]) Swap(o *Shared[T]) {
	if s == nil || o == nil {
		s.Release()
		o.Release()
		return
	}
	s.b, o.b = o.b, s.b
}

// Weak returns a weak handle observing the target of s.
func (s *Shared[T]) Weak() *Weak[T] {
	return NewWeak(s)
}

func (s *Shared[T]) addr() unsafe.Pointer {
	if s == nil {
		return nil
	}
	return s.b.addr
}

// Equal reports whether s and o point at the same target. Two empty handles are equal.
func (s *Shared[T]) Equal(o *Shared[T]) bool {
	return s.addr() == o.addr()
}

// Compare orders handles by target address. Empty handles sort first.
func (s *Shared[T]) Compare(o *Shared[T]) int {
	return cmp.Compare(uintptr(s.addr()), uintptr(o.addr()))
}

// Less reports whether the target of s has a lower address than the target of o.
func (s *Shared[T]) Less(o *Shared[T]) bool {
	return s.Compare(o) < 0
}

// String returns the target address, "0x0" for an empty handle.
func (s *Shared[T]) String() string {
	return fmt.Sprintf("%p", s.addr())
}

// SameTarget reports whether two handles of possibly different types point at the same target.
func SameTarget[T, U any](a *Shared[T], b *Shared[U]) bool {
	return a.addr() == b.addr()
}

// At returns a pointer to element i of a shared array.
// Panics with ErrNilDereference on an empty handle; an out-of-range index
// panics like any slice index.
func At[E any](s *Shared[[]E], i int) *E {
	elems := s.Get()
	if elems == nil {
		panic(ErrNilDereference)
	}
	return &(*elems)[i]
}
