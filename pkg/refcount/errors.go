package refcount

import "errors"

var (
	// ErrStrongUnderflow is raised when a strong reference is released while the strong count is already zero.
	ErrStrongUnderflow = errors.New("refcount: strong references already zero")

	// ErrWeakUnderflow is raised when a weak reference is released while the weak count is already zero.
	ErrWeakUnderflow = errors.New("refcount: weak references already zero")

	// ErrOverflow is raised when a counter would exceed MaxCount.
	ErrOverflow = errors.New("refcount: counter overflow")

	// ErrUseAfterFree is raised on any counter operation against a block that was returned to the pool.
	ErrUseAfterFree = errors.New("refcount: block used after free")

	// ErrDoubleFree is raised when a block is freed twice, or freed while it still has references.
	ErrDoubleFree = errors.New("refcount: block freed twice or while referenced")
)

// LogicError reports a misuse of the reference-counting protocol. It is never
// returned: blocks panic with it, because the caller's bookkeeping is already broken.
type LogicError struct {
	Op     string
	Strong int64
	Weak   int64
	Err    error
}

func (e *LogicError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *LogicError) Unwrap() error {
	return e.Err
}

func logicPanic(op string, b *Block, err error) {
	strong, weak := unpack(b.state)
	panic(&LogicError{Op: op, Strong: strong, Weak: weak, Err: err})
}
