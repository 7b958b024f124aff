package selfcheck

import (
	"errors"
	"fmt"

	"github.com/Borislavv/refptr/pkg/config"
	"github.com/Borislavv/refptr/pkg/ptr"
	"github.com/Borislavv/refptr/pkg/refcount"
	"github.com/Borislavv/refptr/pkg/storage"
)

var errFailAt = errors.New("element construction failed")

// cell counts live values through a counter owned by the scenario.
type cell struct {
	live *int
	v    int
}

func newCell(live *int, v int) cell {
	*live++
	return cell{live: live, v: v}
}

func (c *cell) Dispose() {
	if c.live != nil {
		*c.live--
	}
}

func expect(cond bool, format string, args ...any) error {
	if cond {
		return nil
	}
	return fmt.Errorf(format, args...)
}

func expectCount(what string, got, want int64) error {
	return expect(got == want, "%s: got %d, want %d", what, got, want)
}

// Scenarios returns the built-in checks. The store scenario runs against a
// private store built from cfg.
func Scenarios(cfg config.Store) []Scenario {
	return []Scenario{
		{Name: "copy-use-count", Run: copyUseCount},
		{Name: "weak-expiry", Run: weakExpiry},
		{Name: "weak-lock-identity", Run: weakLockIdentity},
		{Name: "array-liveness", Run: arrayLiveness},
		{Name: "array-rollback", Run: arrayRollback},
		{Name: "swap", Run: swap},
		{Name: "equality", Run: equality},
		{Name: "assign-through-empty-weak", Run: assignThroughEmptyWeak},
		{Name: "counter-underflow", Run: counterUnderflow},
		{Name: "store-roundtrip", Run: func() error { return storeRoundtrip(cfg) }},
	}
}

func copyUseCount() error {
	x := ptr.Adopt(new(int))
	if err := expectCount("adopted use count", x.UseCount(), 1); err != nil {
		return err
	}

	y := x.Clone()
	defer y.Release()
	if x.UseCount() != 2 || y.UseCount() != 2 {
		return fmt.Errorf("copied use counts: got %d and %d, want 2", x.UseCount(), y.UseCount())
	}

	x.Release()
	if err := expectCount("use count after drop", y.UseCount(), 1); err != nil {
		return err
	}
	return expect(y.Unique() && x.UseCount() == 0, "survivor must be unique and the dropped handle empty")
}

func weakExpiry() error {
	live := 0
	s := ptr.Make(newCell(&live, 1))
	w := s.Weak()
	defer w.Release()

	if w.UseCount() != 1 || s.UseCount() != 1 {
		return fmt.Errorf("use counts: weak %d, strong %d, want 1", w.UseCount(), s.UseCount())
	}
	if w.Expired() {
		return errors.New("weak handle expired while a strong handle is alive")
	}

	s.Release()
	if !w.Expired() {
		return errors.New("weak handle not expired after the last strong handle was released")
	}
	if err := expect(live == 0, "target not disposed, live=%d", live); err != nil {
		return err
	}
	locked := w.Lock()
	return expect(locked.IsNil(), "lock on an expired handle must yield an empty handle")
}

func weakLockIdentity() error {
	s := ptr.Make(42)
	defer s.Release()
	w := s.Weak()
	defer w.Release()

	locked := w.Lock()
	defer locked.Release()

	if !locked.Equal(s) {
		return fmt.Errorf("locked target %s differs from %s", locked, s)
	}
	return expectCount("use count with locked handle", s.UseCount(), 2)
}

func arrayLiveness() error {
	live := 0
	arr, err := ptr.MakeArrayFunc(5, func(i int) (cell, error) {
		return newCell(&live, i), nil
	})
	if err != nil {
		return err
	}

	during := live
	arr.Release()

	if err = expect(during == 5, "live while owned: got %d, want 5", during); err != nil {
		return err
	}
	return expect(live == 0, "live after release: got %d, want 0", live)
}

func arrayRollback() error {
	live := 0
	const n, failAt = 8, 5

	arr, err := ptr.MakeArrayFunc(n, func(i int) (cell, error) {
		if i == failAt {
			return cell{}, errFailAt
		}
		return newCell(&live, i), nil
	})
	if arr != nil {
		arr.Release()
		return errors.New("a failed construction returned a handle")
	}

	var cerr *ptr.ConstructError
	if !errors.As(err, &cerr) || !errors.Is(err, errFailAt) {
		return fmt.Errorf("unexpected error: %v", err)
	}
	if cerr.Index != failAt {
		return fmt.Errorf("failed index: got %d, want %d", cerr.Index, failAt)
	}
	return expect(live == 0, "partial construction leaked %d values", live)
}

func swap() error {
	a, b := ptr.Make(1), ptr.Make(2)
	defer a.Release()
	defer b.Release()
	c := a.Clone()
	defer c.Release()

	wa, wb := a.Weak(), b.Weak()
	defer wa.Release()
	defer wb.Release()

	a.Swap(b)
	wa.Swap(wb)

	if a.MustValue() != 2 || b.MustValue() != 1 {
		return errors.New("strong swap did not exchange targets")
	}
	if a.UseCount() != 1 || b.UseCount() != 2 {
		return fmt.Errorf("use counts after swap: %d and %d, want 1 and 2", a.UseCount(), b.UseCount())
	}
	return expect(wa.UseCount() == 1 && wb.UseCount() == 2, "weak swap changed counters")
}

func equality() error {
	a := ptr.Make(7)
	defer a.Release()
	same := a.Clone()
	defer same.Release()
	other := ptr.Make(7)
	defer other.Release()
	var empty ptr.Shared[int]

	switch {
	case !a.Equal(same):
		return errors.New("clones must be equal")
	case a.Equal(other):
		return errors.New("distinct targets with equal values must differ")
	case a.Equal(&empty) || !empty.Equal(nil):
		return errors.New("a bound handle must differ from the empty state")
	}
	return nil
}

// assignThroughEmptyWeak: empty shared, weak from it, assign a fresh target, copy.
func assignThroughEmptyWeak() error {
	var first ptr.Shared[int]
	second := ptr.NewWeak(&first)
	defer second.Release()

	fresh := ptr.Make(5)
	first.MoveFrom(fresh)
	t := first.Clone()
	defer t.Release()
	defer first.Release()

	if err := expectCount("use count", first.UseCount(), 2); err != nil {
		return err
	}
	return expect(second.Expired(), "weak handle built from an empty handle must stay empty")
}

func counterUnderflow() (err error) {
	b := refcount.Acquire()
	b.DecStrong()
	defer refcount.Free(b)

	defer func() {
		r := recover()
		lerr, ok := r.(*refcount.LogicError)
		if !ok || !errors.Is(lerr, refcount.ErrStrongUnderflow) {
			err = fmt.Errorf("expected a strong underflow panic, got %v", r)
		}
	}()
	b.DecStrong()
	return nil
}

func storeRoundtrip(cfg config.Store) error {
	live := 0
	store, err := storage.New[cell](cfg, nil)
	if err != nil {
		return err
	}

	kept := ptr.Make(newCell(&live, 1))
	store.Put("kept", kept.Clone(), 1)
	store.Put("owned", ptr.Make(newCell(&live, 2)), 1)
	store.Wait()

	got, ok := store.Get("kept")
	if !ok {
		store.Close()
		kept.Release()
		return errors.New("stored value not found")
	}
	sameTarget := got.Equal(kept)
	got.Release()

	store.Close()
	if err = expect(sameTarget, "store returned a different target"); err != nil {
		kept.Release()
		return err
	}
	if err = expect(live == 1 && kept.Unique(), "close must release every stored handle, live=%d", live); err != nil {
		kept.Release()
		return err
	}

	kept.Release()
	return expect(live == 0, "live after release: %d", live)
}
