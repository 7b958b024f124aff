package ptr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeak_FromEmptyShared(t *testing.T) {
	var empty Shared[int]

	for _, w := range []*Weak[int]{NewWeak(&empty), NewWeak[int](nil), empty.Weak(), {}} {
		assert.True(t, w.Expired())
		assert.Equal(t, int64(0), w.UseCount())
		assert.True(t, w.Lock().IsNil())
		w.Release()
	}
}

func TestWeak_ObservesWithoutOwning(t *testing.T) {
	s := Make(5)
	w := s.Weak()
	defer w.Release()

	assert.Equal(t, int64(1), s.UseCount(), "a weak handle must not change the strong count")
	assert.Equal(t, int64(1), w.UseCount())
	assert.Equal(t, int64(1), s.b.block.Weak())
	assert.False(t, w.Expired())

	s.Release()
	assert.True(t, w.Expired())
	assert.Equal(t, int64(0), w.UseCount())
	assert.True(t, w.Lock().IsNil())
}

func TestWeak_LockSharesIdentity(t *testing.T) {
	s := Make(5)
	defer s.Release()
	w := s.Weak()
	defer w.Release()

	locked := w.Lock()
	defer locked.Release()

	assert.True(t, locked.Equal(s))
	assert.Equal(t, 5, locked.MustValue())
	assert.Equal(t, int64(2), s.UseCount())
	assert.Equal(t, int64(2), w.UseCount())
}

func TestWeak_LockedHandleKeepsTargetAlive(t *testing.T) {
	resetLive(t)

	s, err := New[tracked]()
	require.NoError(t, err)
	w := s.Weak()
	defer w.Release()

	locked := w.Lock()
	s.Release()
	assert.Equal(t, 1, live)
	assert.False(t, w.Expired())

	locked.Release()
	assert.Equal(t, 0, live)
	assert.True(t, w.Expired())
}

func TestWeak_FromWeak(t *testing.T) {
	s := Make("value")
	w := s.Weak()
	defer w.Release()

	promoted, err := FromWeak(w)
	require.NoError(t, err)
	assert.True(t, promoted.Equal(s))
	promoted.Release()

	s.Release()
	_, err = FromWeak(w)
	assert.ErrorIs(t, err, ErrExpired)

	_, err = FromWeak[string](nil)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestWeak_Clone(t *testing.T) {
	s := Make(1)
	defer s.Release()
	w := s.Weak()
	c := w.Clone()

	assert.Equal(t, int64(2), s.b.block.Weak())
	locked := c.Lock()
	assert.True(t, locked.Equal(s))
	locked.Release()

	c.Release()
	w.Release()
	assert.Equal(t, int64(0), s.b.block.Weak())
}

func TestWeak_MoveIsTransfer(t *testing.T) {
	s := Make(1)
	defer s.Release()
	w := s.Weak()

	moved := w.Move()
	defer moved.Release()

	assert.True(t, w.Expired(), "source must be empty after a move")
	assert.False(t, moved.Expired())
	assert.Equal(t, int64(1), s.b.block.Weak(), "a move must not change the weak count")

	w.Release()
	assert.Equal(t, int64(1), s.b.block.Weak())
}

func TestWeak_Assign(t *testing.T) {
	a := Make(1)
	b := Make(2)
	defer a.Release()
	defer b.Release()

	wa := a.Weak()
	wb := b.Weak()
	defer wb.Release()

	wa.Assign(wb)
	assert.Equal(t, int64(0), a.b.block.Weak())
	assert.Equal(t, int64(2), b.b.block.Weak())

	wa.Assign(wa)
	assert.Equal(t, int64(2), b.b.block.Weak())

	wa.AssignShared(a)
	assert.Equal(t, int64(1), a.b.block.Weak())
	assert.Equal(t, int64(1), b.b.block.Weak())

	wa.Assign(nil)
	assert.True(t, wa.Expired())
	assert.Equal(t, int64(0), a.b.block.Weak())
}

func TestWeak_Swap(t *testing.T) {
	a := Make(1)
	b := Make(2)
	defer a.Release()
	defer b.Release()

	wa := a.Weak()
	wb := b.Weak()
	defer wa.Release()
	defer wb.Release()

	wa.Swap(wb)

	la, lb := wa.Lock(), wb.Lock()
	defer la.Release()
	defer lb.Release()
	assert.Equal(t, 2, la.MustValue())
	assert.Equal(t, 1, lb.MustValue())
}

func TestWeak_SwapWithNil(t *testing.T) {
	s := Make(1)
	defer s.Release()

	w := s.Weak()
	assert.NotPanics(t, func() { w.Swap(nil) })
	assert.True(t, w.Expired())
	assert.Equal(t, int64(1), s.UseCount())
	assert.Equal(t, int64(0), s.b.block.Weak(), "the weak count must be released")
}

func TestWeak_OutlivesTarget(t *testing.T) {
	o := observe(t)

	s := Make(1)
	w := s.Weak()
	blk := s.b.block

	s.Release()
	assert.Equal(t, 1, o.disposed[KindSingle])
	assert.Equal(t, 0, o.freed[KindSingle])
	assert.False(t, blk.IsFreed())

	assert.True(t, w.Lock().IsNil())
	assert.Equal(t, 1, o.failed)

	w.Release()
	assert.Equal(t, 1, o.freed[KindSingle])
	assert.True(t, blk.IsFreed())
}

func TestWeak_ReleaseTwiceIsNoop(t *testing.T) {
	s := Make(1)
	defer s.Release()
	w := s.Weak()

	w.Release()
	w.Release()
	assert.Equal(t, int64(0), s.b.block.Weak())
}
