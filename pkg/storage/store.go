package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Borislavv/refptr/pkg/config"
	"github.com/Borislavv/refptr/pkg/ptr"
	"github.com/Borislavv/refptr/pkg/utils"
	"github.com/dgraph-io/ristretto"
	"github.com/rs/zerolog/log"
	"github.com/zeebo/xxh3"
)

var ErrClosed = errors.New("store is closed")

// Meter receives store events. *metrics.Metrics implements it.
type Meter interface {
	IncStoreHit()
	IncStoreWeakHit()
	IncStoreMiss()
	IncStoreEvicted()
	SetStoreLen(n int64)
	SetWeakIndexLen(n int64)
}

type nopMeter struct{}

func (nopMeter) IncStoreHit()          {}
func (nopMeter) IncStoreWeakHit()      {}
func (nopMeter) IncStoreMiss()         {}
func (nopMeter) IncStoreEvicted()      {}
func (nopMeter) SetStoreLen(int64)     {}
func (nopMeter) SetWeakIndexLen(int64) {}

// Store keeps shared handles in two tiers: a ristretto cache holding strong
// handles under a cost budget, and a weak index finding values that were
// evicted from the cache but are still owned elsewhere.
//
// Handles held by the store are only touched under mu. Ristretto hands
// evicted, rejected and replaced values to OnExit from its own goroutine,
// OnExit just queues them and the next store call releases them.
//
// A handle returned by Get belongs to the calling goroutine. Callers sharing
// one store between goroutines use View and must not keep other handles to
// the values they Put.
type Store[T any] struct {
	cfg   config.Store
	meter Meter

	mu     sync.Mutex
	cache  *ristretto.Cache
	weak   *weakIndex[T]
	closed bool

	hits, weakHits, misses int64 // guarded by mu

	pendMu  sync.Mutex
	pending []*ptr.Shared[T]

	evicted  atomic.Int64
	rejected atomic.Int64
}

// New builds a store. A nil meter disables metrics.
func New[T any](cfg config.Store, meter Meter) (*Store[T], error) {
	if meter == nil {
		meter = nopMeter{}
	}
	s := &Store[T]{cfg: cfg, meter: meter, weak: newWeakIndex[T]()}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
		KeyToHash:   keyToHash,
		OnEvict: func(*ristretto.Item) {
			s.evicted.Add(1)
			s.meter.IncStoreEvicted()
		},
		OnReject: func(*ristretto.Item) {
			s.rejected.Add(1)
		},
		OnExit: s.enqueue,
		// costs are set by callers, handles carry no internal cost
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("init ristretto cache: %w", err)
	}
	s.cache = cache

	return s, nil
}

func keyToHash(key interface{}) (uint64, uint64) {
	switch k := key.(type) {
	case string:
		h := xxh3.HashString128(k)
		return h.Lo, h.Hi
	case []byte:
		h := xxh3.Hash128(k)
		return h.Lo, h.Hi
	default:
		panic(fmt.Sprintf("storage: unsupported key type %T", key))
	}
}

// enqueue runs on ristretto goroutines and must not take mu.
func (s *Store[T]) enqueue(val interface{}) {
	h, ok := val.(*ptr.Shared[T])
	if !ok || h == nil {
		return
	}
	s.pendMu.Lock()
	s.pending = append(s.pending, h)
	s.pendMu.Unlock()
}

// drain releases the handles ristretto gave back. Needs mu.
func (s *Store[T]) drain() {
	s.pendMu.Lock()
	pending := s.pending
	s.pending = nil
	s.pendMu.Unlock()

	for _, h := range pending {
		h.Release()
	}
}

func (s *Store[T]) Run(ctx context.Context) {
	go func() {
		ticker := utils.NewTicker(ctx, s.cfg.SweepInterval)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker:
				if dropped := s.Sweep(); dropped > 0 {
					log.Debug().Msgf("[store] %d expired weak entries swept", dropped)
				}
			}
		}
	}()
}

// Put moves h into the store and reports whether it was admitted. The write
// is applied before Put returns, so a later Get sees the latest value put
// under key. A value the cache refuses is released.
func (s *Store[T]) Put(key string, h *ptr.Shared[T], cost int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.drain()

	owned := h.Move()
	if owned.IsNil() || s.closed {
		owned.Release()
		return false
	}

	if !s.cache.Set(key, owned, cost) {
		// dropped before reaching the cache, OnExit will not see it
		owned.Release()
		return false
	}
	// a Set still sitting in ristretto's buffer would make the next Put of
	// the same key look like a new key and get rejected by the policy
	s.cache.Wait()
	s.drain()

	if v, ok := s.cache.Get(key); !ok || v.(*ptr.Shared[T]) != owned {
		// rejected by the admission policy, released by drain
		return false
	}

	s.weak.observe(key, owned)
	s.meter.SetWeakIndexLen(s.weak.len)
	return true
}

func (s *Store[T]) Get(key string) (*ptr.Shared[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.drain()

	return s.get(key)
}

func (s *Store[T]) get(key string) (*ptr.Shared[T], bool) {
	if s.closed {
		return nil, false
	}

	if v, ok := s.cache.Get(key); ok {
		if h, ok := v.(*ptr.Shared[T]); ok && h.Valid() {
			s.hits++
			s.meter.IncStoreHit()
			return h.Clone(), true
		}
	}

	if h, ok := s.weak.lock(key); ok {
		s.weakHits++
		s.meter.IncStoreWeakHit()
		return h, true
	}

	s.misses++
	s.meter.IncStoreMiss()
	return nil, false
}

func (s *Store[T]) View(key string, fn func(v *T)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.drain()

	h, ok := s.get(key)
	if !ok {
		return false
	}
	defer h.Release()

	fn(h.Get())
	return true
}

func (s *Store[T]) Del(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.drain()

	if s.closed {
		return
	}
	s.cache.Del(key)
	s.weak.del(key)
	s.meter.SetWeakIndexLen(s.weak.len)
}

func (s *Store[T]) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.drain()

	dropped := s.weak.sweep()
	s.meter.SetWeakIndexLen(s.weak.len)
	return dropped
}

func (s *Store[T]) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.drain()

	if s.closed {
		return 0
	}
	s.cache.Clear()
	n := s.weak.clear()
	s.meter.SetWeakIndexLen(0)
	s.meter.SetStoreLen(0)

	log.Info().Msgf("[store] cleared, %d weak entries released", n)
	return n
}

// Wait blocks until pending cache writes are applied.
func (s *Store[T]) Wait() {
	s.cache.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.drain()
}

func (s *Store[T]) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pendMu.Lock()
	pending := int64(len(s.pending))
	s.pendMu.Unlock()

	st := Stats{
		Hits:        s.hits,
		WeakHits:    s.weakHits,
		Misses:      s.misses,
		Evicted:     s.evicted.Load(),
		Rejected:    s.rejected.Load(),
		WeakEntries: s.weak.len,
		Pending:     pending,
	}
	if s.cfg.Metrics && s.cache.Metrics != nil {
		st.Ratio = s.cache.Metrics.Ratio()
		s.meter.SetStoreLen(int64(s.cache.Metrics.KeysAdded() - s.cache.Metrics.KeysEvicted()))
	}
	return st
}

func (s *Store[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	started := time.Now()
	s.cache.Clear()
	s.cache.Close()
	s.drain()
	n := s.weak.clear()

	log.Info().Msgf("[store] closed in %s, %d weak entries released", time.Since(started), n)
}
