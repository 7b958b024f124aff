// Package ptr provides reference-counted shared and weak handles over
// heap-allocated values with deterministic disposal.
//
// # Overview
//
// A Shared[T] owns one unit of a target's lifetime. Every handle bound to the
// same target references one refcount.Block which counts strong (Shared) and
// weak (Weak) holders:
//
//   - the target is disposed exactly once, when the strong count goes 1 -> 0;
//   - the block is returned to its pool when both counts reach zero;
//   - a Weak[T] never disposes anything and may be promoted back to a
//     Shared[T] with Lock while the strong count is non-zero.
//
// Go has no destructors, so every handle must be released explicitly,
// usually with defer:
//
//	s, err := ptr.New[Conn]()
//	if err != nil {
//	    return err
//	}
//	defer s.Release()
//
//	w := s.Weak()
//	defer w.Release()
//
//	if alive := w.Lock(); alive.Valid() {
//	    defer alive.Release()
//	    use(alive.Get())
//	}
//
// # Copying
//
// Handles are used through pointers. Clone registers a new owner, Move
// transfers ownership. Copying a Shared or Weak struct by value bypasses the
// counters (go vet reports it through the embedded noCopy guard).
//
// # Disposal
//
// The disposal strategy is chosen at construction: Single for one value,
// Array for every element of a slice, DisposeFunc for anything else. A value
// is disposed by calling Dispose on it when it implements Disposable and then
// zeroing it.
//
// # Concurrency
//
// Counters are not atomic. A target and all of its handles belong to one
// goroutine at a time; share them across goroutines only under external
// synchronization.
//
// # Cycles
//
// Two targets holding Shared handles to each other are never disposed.
// Break cycles with Weak handles.
package ptr
