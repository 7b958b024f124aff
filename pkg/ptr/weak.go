package ptr

// Weak observes a target without keeping it alive. The zero value and a nil
// *Weak are empty handles.
type Weak[T any] struct {
	_ noCopy
	b binding[T]
}

// NewWeak returns a weak handle observing the target of s.
// An empty or nil s yields an empty weak handle.
func NewWeak[T any](s *Shared[T]) *Weak[T] {
	if s == nil {
		return &Weak[T]{}
	}
	return &Weak[T]{b: s.b.retainWeak()}
}

// Clone returns another weak handle observing the same target.
func (w *Weak[T]) Clone() *Weak[T] {
	if w == nil {
		return &Weak[T]{}
	}
	return &Weak[T]{b: w.b.retainWeak()}
}

// Move transfers the observation to a new handle and leaves w empty.
// No counter changes.
func (w *Weak[T]) Move() *Weak[T] {
	if w == nil {
		return &Weak[T]{}
	}
	return &Weak[T]{b: w.b.take()}
}

// Assign makes w observe the target of o.
func (w *Weak[T]) Assign(o *Weak[T]) {
	if w == o {
		return
	}
	var next binding[T]
	if o != nil {
		next = o.b.retainWeak()
	}
	w.b.releaseWeak()
	w.b = next
}

// AssignShared makes w observe the target of s.
func (w *Weak[T]) AssignShared(s *Shared[T]) {
	var next binding[T]
	if s != nil {
		next = s.b.retainWeak()
	}
	w.b.releaseWeak()
	w.b = next
}

// Release stops observing and leaves w empty. Never disposes the target.
// Releasing an empty handle is a no-op.
func (w *Weak[T]) Release() {
	if w == nil {
		return
	}
	w.b.releaseWeak()
}

// Expired reports whether w is empty or its target was already disposed.
func (w *Weak[T]) Expired() bool {
	return w.UseCount() == 0
}

// UseCount returns the number of strong handles still owning the target.
func (w *Weak[T]) UseCount() int64 {
	if w == nil {
		return 0
	}
	return w.b.strong()
}

// Lock returns a strong handle to the target, or an empty handle once it expired.
func (w *Weak[T]) Lock() *Shared[T] {
	if w == nil {
		return &Shared[T]{}
	}
	b, _ := w.b.promote()
	return &Shared[T]{b: b}
}

// Swap exchanges the targets of w and o without touching any counter.
// Swapping with a nil handle releases the other side, as for Shared.
func (w *Weak[T]) Swap(o *Weak[T]) {
	if w == nil || o == nil {
		w.Release()
		o.Release()
		return
	}
	w.b, o.b = o.b, w.b
}
