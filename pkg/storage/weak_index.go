package storage

import (
	"github.com/Borislavv/refptr/pkg/ptr"
	"github.com/zeebo/xxh3"
)

type entry[T any] struct {
	key string
	w   *ptr.Weak[T]
}

// weakIndex remembers every value put into the store by a weak handle, so a
// value evicted from the strong tier can still be found while someone owns it.
// Not safe for concurrent use.
type weakIndex[T any] struct {
	entries map[uint64][]*entry[T]
	len     int64
}

func newWeakIndex[T any]() *weakIndex[T] {
	return &weakIndex[T]{entries: make(map[uint64][]*entry[T])}
}

func (idx *weakIndex[T]) find(key string) (h uint64, i int) {
	h = xxh3.HashString(key)
	for i, e := range idx.entries[h] {
		if e.key == key {
			return h, i
		}
	}
	return h, -1
}

// observe makes the entry of key observe s.
func (idx *weakIndex[T]) observe(key string, s *ptr.Shared[T]) {
	h, i := idx.find(key)
	if i >= 0 {
		idx.entries[h][i].w.AssignShared(s)
		return
	}
	idx.entries[h] = append(idx.entries[h], &entry[T]{key: key, w: s.Weak()})
	idx.len++
}

// lock promotes the entry of key. An expired entry is dropped.
func (idx *weakIndex[T]) lock(key string) (*ptr.Shared[T], bool) {
	h, i := idx.find(key)
	if i < 0 {
		return nil, false
	}
	s := idx.entries[h][i].w.Lock()
	if s.IsNil() {
		idx.remove(h, i)
		return nil, false
	}
	return s, true
}

func (idx *weakIndex[T]) del(key string) {
	if h, i := idx.find(key); i >= 0 {
		idx.remove(h, i)
	}
}

func (idx *weakIndex[T]) remove(h uint64, i int) {
	bucket := idx.entries[h]
	bucket[i].w.Release()

	last := len(bucket) - 1
	bucket[i], bucket[last] = bucket[last], nil
	if last == 0 {
		delete(idx.entries, h)
	} else {
		idx.entries[h] = bucket[:last]
	}
	idx.len--
}

// sweep drops expired entries and returns how many were dropped.
func (idx *weakIndex[T]) sweep() (dropped int) {
	for h, bucket := range idx.entries {
		for i := len(bucket) - 1; i >= 0; i-- {
			if bucket[i].w.Expired() {
				idx.remove(h, i)
				bucket = idx.entries[h]
				dropped++
			}
		}
	}
	return dropped
}

// clear releases every entry and returns how many there were.
func (idx *weakIndex[T]) clear() int {
	n := int(idx.len)
	for _, bucket := range idx.entries {
		for _, e := range bucket {
			e.w.Release()
		}
	}
	clear(idx.entries)
	idx.len = 0
	return n
}
