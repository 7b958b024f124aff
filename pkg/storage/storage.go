package storage

import (
	"context"

	"github.com/Borislavv/refptr/pkg/ptr"
)

// Storage is a keyed store of shared handles.
type Storage[T any] interface {
	// Run starts the background sweeper of the weak index.
	Run(ctx context.Context)

	// Put takes ownership of h and stores it under key.
	// Returns false when the strong tier did not admit the value.
	Put(key string, h *ptr.Shared[T], cost int64) bool

	// Get returns a new strong handle to the value under key.
	Get(key string) (*ptr.Shared[T], bool)

	// View calls fn with the value under key while the store keeps it alive.
	View(key string, fn func(v *T)) bool

	// Del drops the value under key from both tiers.
	Del(key string)

	// Sweep drops weak index entries whose targets were already disposed.
	Sweep() int

	// Clear drops every value and returns the number of weak entries released.
	Clear() int

	// Stats returns a snapshot of the store counters.
	Stats() Stats

	// Close releases everything the store holds.
	Close()
}

type Stats struct {
	Hits        int64   `json:"hits"`
	WeakHits    int64   `json:"weakHits"`
	Misses      int64   `json:"misses"`
	Evicted     int64   `json:"evicted"`
	Rejected    int64   `json:"rejected"`
	WeakEntries int64   `json:"weakEntries"`
	Pending     int64   `json:"pending"`
	Ratio       float64 `json:"ratio"` // ristretto hit ratio, 0 unless store.metrics is on
}
