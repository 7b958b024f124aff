package refcount

import (
	"github.com/Borislavv/refptr/pkg/synced"
)

var blocks = synced.NewBatchPool(func() *Block {
	return new(Block)
})

// Acquire returns a block in its initial state (strong=1, weak=0).
func Acquire() *Block {
	return blocks.Get().reset()
}

// Free returns a block without references to the pool.
// Panics with ErrDoubleFree if the block is already freed or still referenced.
func Free(b *Block) {
	if b.freed || b.HasRefs() {
		logicPanic("free", b, ErrDoubleFree)
	}
	b.freed = true
	blocks.Put(b)
}

// Preallocate warms the block pool with n blocks.
func Preallocate(n int) {
	if n <= 0 {
		return
	}
	blocks.Preallocate(n)
}
