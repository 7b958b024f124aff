package synced

import (
	"sync"
)

// BatchPool is a generic object pool with optional batch preallocation.
//
// The main goal is to:
// - Minimize allocations by reusing objects.
// - Reduce allocation spikes by preallocating objects in one batch.
// - Provide a typed Get/Put API over sync.Pool.
type BatchPool[T any] struct {
	pool      *sync.Pool // Underlying sync.Pool for thread-safe pooling
	allocFunc func() T   // Function to create new T
}

// NewBatchPool creates a new BatchPool.
// - allocFunc: function to construct a new T.
func NewBatchPool[T any](allocFunc func() T) *BatchPool[T] {
	bp := &BatchPool[T]{allocFunc: allocFunc}
	bp.pool = &sync.Pool{
		New: func() any {
			return allocFunc()
		},
	}

	return bp
}

// Preallocate puts n freshly allocated objects into the pool.
// The runtime may still drop pooled objects on any GC cycle.
func (bp *BatchPool[T]) Preallocate(n int) {
	for i := 0; i < n; i++ {
		bp.pool.Put(bp.allocFunc())
	}
}

// Get retrieves an object from the pool, allocating if necessary.
// Never returns nil (unless allocFunc does).
func (bp *BatchPool[T]) Get() T {
	return bp.pool.Get().(T)
}

// Put returns an object to the pool for future reuse.
func (bp *BatchPool[T]) Put(v T) {
	bp.pool.Put(v)
}
