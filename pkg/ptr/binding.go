package ptr

import (
	"unsafe"

	"github.com/Borislavv/refptr/pkg/refcount"
	"github.com/rs/zerolog/log"
)

// noCopy makes go vet's copylocks check flag handles copied by value.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// binding is the state shared by strong and weak handles: the target, its
// identity address, the count block and the disposal strategy. A zero binding
// is the empty state. Only this file touches the block counters on behalf of handles.
type binding[T any] struct {
	target   *T
	addr     unsafe.Pointer
	block    *refcount.Block
	strategy DisposeStrategy[T]
}

func newBinding[T any](target *T, strategy DisposeStrategy[T]) binding[T] {
	b := binding[T]{
		target:   target,
		addr:     unsafe.Pointer(target),
		block:    refcount.Acquire(),
		strategy: strategy,
	}
	observer.BlockAllocated(strategy.Kind())
	log.Trace().Msgf("[ptr] block allocated for %p (%s)", target, strategy.Kind())
	return b
}

func (b *binding[T]) bound() bool {
	return b.block != nil
}

func (b *binding[T]) kind() Kind {
	if b.strategy == nil {
		return KindNone
	}
	return b.strategy.Kind()
}

func (b *binding[T]) strong() int64 {
	if b.block == nil {
		return 0
	}
	return b.block.Strong()
}

// retainStrong returns a copy of b holding one more strong reference.
func (b *binding[T]) retainStrong() binding[T] {
	if b.block == nil {
		return binding[T]{}
	}
	b.block.IncStrong()
	return *b
}

// retainWeak returns a copy of b holding one more weak reference.
func (b *binding[T]) retainWeak() binding[T] {
	if b.block == nil {
		return binding[T]{}
	}
	b.block.IncWeak()
	return *b
}

// promote returns a strong copy of b if the target is still alive.
func (b *binding[T]) promote() (binding[T], bool) {
	if b.block == nil {
		return binding[T]{}, false
	}
	if !b.block.TryIncStrong() {
		observer.Promoted(false)
		return binding[T]{}, false
	}
	observer.Promoted(true)
	return *b, true
}

// take empties b and returns what it held.
func (b *binding[T]) take() binding[T] {
	cur := *b
	*b = binding[T]{}
	return cur
}

// releaseStrong drops the strong reference held by b and empties it.
// The handle is emptied before the disposer runs, so disposers may release
// other handles of the same target.
func (b *binding[T]) releaseStrong() {
	if b.block == nil {
		return
	}
	cur := b.take()
	if cur.block.DecStrong() > 0 {
		return
	}
	cur.dispose()
}

// releaseWeak drops the weak reference held by b and empties it.
func (b *binding[T]) releaseWeak() {
	if b.block == nil {
		return
	}
	cur := b.take()
	if cur.block.DecWeak() == 0 && !cur.block.HasRefs() {
		freeBlock(cur.block, cur.kind())
	}
}

// dispose runs the strategy on a target whose strong count just reached zero.
// A temporary weak reference keeps the block alive while user code runs, so a
// disposer releasing the last weak handle of its own target cannot free it early.
func (b binding[T]) dispose() {
	blk, kind := b.block, b.kind()
	blk.IncWeak()
	defer func() {
		if blk.DecWeak() == 0 && !blk.HasRefs() {
			freeBlock(blk, kind)
		}
	}()

	n := b.strategy.Dispose(b.target)
	observer.TargetDisposed(kind, n)
	log.Trace().Msgf("[ptr] target %p disposed (%s, %d values)", b.addr, kind, n)
}

func freeBlock(blk *refcount.Block, kind Kind) {
	refcount.Free(blk)
	observer.BlockFreed(kind)
	log.Trace().Msgf("[ptr] block freed (%s)", kind)
}
