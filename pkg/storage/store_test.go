package storage

import (
	"context"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Borislavv/refptr/pkg/config"
	"github.com/Borislavv/refptr/pkg/ptr"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	os.Exit(m.Run())
}

type payload struct {
	name string
	live *int
}

func (p *payload) Dispose() {
	if p.live != nil {
		*p.live--
	}
}

func newPayload(live *int, name string) *ptr.Shared[payload] {
	*live++
	return ptr.Make(payload{name: name, live: live})
}

func testCfg() config.Store {
	return config.Store{
		NumCounters:   10_000,
		MaxCost:       1_000,
		BufferItems:   64,
		Metrics:       true,
		SweepInterval: 10 * time.Millisecond,
	}
}

func newTestStore(t *testing.T) *Store[payload] {
	t.Helper()
	s, err := New[payload](testCfg(), nil)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestStore_PutTakesOwnership(t *testing.T) {
	live := 0
	s := newTestStore(t)

	h := newPayload(&live, "a")
	assert.True(t, s.Put("a", h, 1))
	assert.True(t, h.IsNil(), "Put must move the handle into the store")

	s.Wait()
	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", got.Get().name)
	assert.Equal(t, int64(2), got.UseCount())
	got.Release()

	s.Del("a")
	assert.Equal(t, 0, live)

	_, ok = s.Get("a")
	assert.False(t, ok)
}

func TestStore_PutEmpty(t *testing.T) {
	s := newTestStore(t)
	assert.False(t, s.Put("empty", &ptr.Shared[payload]{}, 1))
	assert.False(t, s.Put("nil", nil, 1))
}

func TestStore_WeakFallback(t *testing.T) {
	live := 0
	s := newTestStore(t)

	h := newPayload(&live, "kept")
	require.True(t, s.Put("kept", h.Clone(), 1))
	s.Wait()

	// evict from the strong tier only
	s.cache.Del("kept")
	s.Wait()
	assert.Equal(t, int64(1), h.UseCount())

	got, ok := s.Get("kept")
	require.True(t, ok, "a value still owned elsewhere must be found through the weak index")
	assert.True(t, got.Equal(h))
	got.Release()
	assert.Equal(t, int64(1), s.Stats().WeakHits)

	h.Release()
	assert.Equal(t, 0, live)

	_, ok = s.Get("kept")
	assert.False(t, ok)
	assert.Equal(t, int64(0), s.Stats().WeakEntries, "an expired entry is dropped on lookup")
}

func TestStore_Sweep(t *testing.T) {
	live := 0
	s := newTestStore(t)

	for _, key := range []string{"a", "b", "c"} {
		require.True(t, s.Put(key, newPayload(&live, key), 1))
	}
	s.Wait()

	s.cache.Del("a")
	s.cache.Del("b")
	s.Wait()
	assert.Equal(t, 1, live)

	assert.Equal(t, 2, s.Sweep())
	assert.Equal(t, int64(1), s.Stats().WeakEntries)
	assert.Equal(t, 0, s.Sweep())
}

func TestStore_Replace(t *testing.T) {
	live := 0
	s := newTestStore(t)

	require.True(t, s.Put("k", newPayload(&live, "old"), 1))
	s.Wait()
	require.True(t, s.Put("k", newPayload(&live, "new"), 1))
	s.Wait()

	assert.Equal(t, 1, live, "the replaced value must be released")
	assert.True(t, s.View("k", func(v *payload) {
		assert.Equal(t, "new", v.name)
	}))
	assert.Equal(t, int64(1), s.Stats().WeakEntries)
}

func TestStore_ReplaceBackToBack(t *testing.T) {
	live := 0
	s := newTestStore(t)

	require.True(t, s.Put("k", newPayload(&live, "old"), 1))
	require.True(t, s.Put("k", newPayload(&live, "new"), 1))

	got, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", got.Get().name)
	got.Release()

	s.Wait()
	assert.Equal(t, 1, live, "the replaced value must be released")
}

func TestStore_View(t *testing.T) {
	live := 0
	s := newTestStore(t)

	require.True(t, s.Put("v", newPayload(&live, "view"), 1))
	s.Wait()

	var seen string
	assert.True(t, s.View("v", func(v *payload) { seen = v.name }))
	assert.Equal(t, "view", seen)
	assert.False(t, s.View("missing", func(*payload) { t.Fail() }))
}

func TestStore_ClearAndClose(t *testing.T) {
	live := 0
	faker := gofakeit.New(42)

	s, err := New[payload](testCfg(), nil)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		s.Put(faker.UUID(), newPayload(&live, faker.Word()), 1)
	}
	s.Wait()

	assert.Equal(t, 100, s.Clear())
	s.Wait()
	assert.Equal(t, 0, live)

	require.True(t, s.Put("after", newPayload(&live, "after"), 1))
	s.Wait()
	s.Close()
	assert.Equal(t, 0, live)

	assert.False(t, s.Put("closed", newPayload(&live, "closed"), 1))
	assert.Equal(t, 0, live)
	s.Close()
}

func TestStore_RandomKeys(t *testing.T) {
	live := 0
	faker := gofakeit.New(7)
	s := newTestStore(t)

	keys := make(map[string]string, 200)
	for len(keys) < 200 {
		keys[faker.UUID()] = faker.Name()
	}

	admitted := make(map[string]bool, len(keys))
	for key, name := range keys {
		admitted[key] = s.Put(key, newPayload(&live, name), 1)
	}
	s.Wait()

	for key, name := range keys {
		if !admitted[key] {
			continue
		}
		assert.True(t, s.View(key, func(v *payload) {
			assert.Equal(t, name, v.name)
		}), key)
	}

	s.Close()
	assert.Equal(t, 0, live)
}

func TestStore_Run(t *testing.T) {
	live := 0
	s := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Run(ctx)

	require.True(t, s.Put("swept", newPayload(&live, "swept"), 1))
	s.Wait()
	s.cache.Del("swept")
	s.Wait()

	assert.Eventually(t, func() bool {
		return s.Stats().WeakEntries == 0
	}, time.Second, 10*time.Millisecond)
}

type counted struct {
	n    int
	live *atomic.Int64
}

func (c *counted) Dispose() { c.live.Add(-1) }

func TestStore_Concurrent(t *testing.T) {
	var live atomic.Int64
	s, err := New[counted](testCfg(), nil)
	require.NoError(t, err)

	const (
		workers = 8
		rounds  = 500
		keys    = 16
	)

	wg := &sync.WaitGroup{}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				key := "k" + strconv.Itoa((w+i)%keys)
				switch i % 4 {
				case 0, 1:
					live.Add(1)
					s.Put(key, ptr.Make(counted{n: i, live: &live}), 1)
				case 2:
					s.View(key, func(v *counted) { _ = v.n })
				default:
					if i%8 == 3 {
						s.Del(key)
					} else {
						s.Sweep()
					}
				}
			}
		}(w)
	}
	wg.Wait()

	s.Close()
	assert.Equal(t, int64(0), live.Load(), "every value put must be released by Close")
}

func TestKeyToHash(t *testing.T) {
	a1, a2 := keyToHash("key")
	b1, b2 := keyToHash([]byte("key"))
	assert.Equal(t, a1, b1)
	assert.Equal(t, a2, b2)

	c1, _ := keyToHash("other")
	assert.NotEqual(t, a1, c1)

	assert.Panics(t, func() { keyToHash(1) })
}
