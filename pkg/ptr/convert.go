package ptr

import (
	"fmt"
)

// Convert returns a strong handle of type U sharing the target of s.
//
// It succeeds when *T is *U, or when *T implements the interface U; in the
// latter case Get returns a pointer to an interface value wrapping the target,
// while identity (Equal, SameTarget) and disposal stay those of the
// source target. Any other pair fails with ErrIncompatible. An empty s converts to an
// empty handle.
func Convert[U, T any](s *Shared[T]) (*Shared[U], error) {
	if s == nil || !s.b.bound() {
		return &Shared[U]{}, nil
	}
	b, err := convertBinding[U](&s.b)
	if err != nil {
		return nil, err
	}
	b.block.IncStrong()
	return &Shared[U]{b: b}, nil
}

// ConvertWeak is Convert for weak handles.
func ConvertWeak[U, T any](w *Weak[T]) (*Weak[U], error) {
	if w == nil || !w.b.bound() {
		return &Weak[U]{}, nil
	}
	b, err := convertBinding[U](&w.b)
	if err != nil {
		return nil, err
	}
	b.block.IncWeak()
	return &Weak[U]{b: b}, nil
}

func convertBinding[U, T any](b *binding[T]) (binding[U], error) {
	if target, ok := any(b.target).(*U); ok {
		if strategy, ok := any(b.strategy).(DisposeStrategy[U]); ok {
			return binding[U]{target: target, addr: b.addr, block: b.block, strategy: strategy}, nil
		}
	}
	if v, ok := any(b.target).(U); ok {
		cell := new(U)
		*cell = v
		return binding[U]{
			target:   cell,
			addr:     b.addr,
			block:    b.block,
			strategy: forward[U, T]{orig: b.strategy, target: b.target},
		}, nil
	}
	return binding[U]{}, fmt.Errorf("%w: %s to %s", ErrIncompatible, typeName[T](), typeName[U]())
}
