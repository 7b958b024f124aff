package ptr

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Initializer is implemented by values needing construction beyond their zero
// value. New and MakeArray call Init on every freshly allocated value.
type Initializer interface {
	Init() error
}

// Adopt takes ownership of target and disposes it as a single value.
// A nil target yields an empty handle.
//
// The caller transfers ownership: the same pointer must never be adopted twice,
// two independent blocks would dispose it twice. Prefer New, Make or MakeFunc.
func Adopt[T any](target *T) *Shared[T] {
	return AdoptWith(target, Single[T]())
}

// AdoptWith is like Adopt with an explicit disposal strategy (Single when nil).
func AdoptWith[T any](target *T, strategy DisposeStrategy[T]) *Shared[T] {
	if target == nil {
		return &Shared[T]{}
	}
	if strategy == nil {
		strategy = Single[T]()
	}
	return &Shared[T]{b: newBinding(target, strategy)}
}

// AdoptArray takes ownership of elems and disposes every element once the last
// strong handle is gone. A nil slice yields an empty handle.
func AdoptArray[E any](elems []E) *Shared[[]E] {
	if elems == nil {
		return &Shared[[]E]{}
	}
	return AdoptWith(&elems, Array[E]())
}

// New allocates a zero T, runs its Init hook and binds it to a fresh block.
// On an Init failure nothing stays allocated.
func New[T any]() (*Shared[T], error) {
	target := new(T)
	if err := initValue(target); err != nil {
		return nil, &ConstructError{Type: typeName[T](), Index: -1, Err: err}
	}
	return Adopt(target), nil
}

// Make copies v into a new target.
func Make[T any](v T) *Shared[T] {
	target := new(T)
	*target = v
	return Adopt(target)
}

// MakeFunc builds the target with ctor. The block is acquired only once ctor
// succeeded, so a failing or panicking ctor leaves nothing allocated.
func MakeFunc[T any](ctor func() (T, error)) (*Shared[T], error) {
	v, err := ctor()
	if err != nil {
		return nil, &ConstructError{Type: typeName[T](), Index: -1, Err: err}
	}
	return Make(v), nil
}

// MakeArray allocates n zero elements, runs the Init hook of each one and
// binds them to a fresh block with the Array strategy. When element i fails,
// elements 0..i-1 are disposed before the error is returned.
func MakeArray[E any](n int) (*Shared[[]E], error) {
	elems, err := buildArray(n, func(_ int, slot *E) error {
		return initValue(slot)
	})
	if err != nil {
		return nil, err
	}
	return AdoptWith(&elems, Array[E]()), nil
}

// MakeArrayFunc builds n elements with ctor. When element i fails or panics,
// elements 0..i-1 are disposed before the error is returned or the panic resumes.
func MakeArrayFunc[E any](n int, ctor func(i int) (E, error)) (*Shared[[]E], error) {
	elems, err := buildArray(n, func(i int, slot *E) (err error) {
		*slot, err = ctor(i)
		return err
	})
	if err != nil {
		return nil, err
	}
	return AdoptWith(&elems, Array[E]()), nil
}

func initValue[T any](v *T) error {
	if in, ok := any(v).(Initializer); ok {
		return in.Init()
	}
	return nil
}

// buildArray constructs n elements in order and rolls back the built prefix
// on error or panic.
func buildArray[E any](n int, build func(i int, slot *E) error) ([]E, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeSize, n)
	}

	buf := make([]E, n)
	built := 0
	defer func() {
		if built == n {
			return
		}
		r := recover()
		disposeRange(buf, built)
		log.Debug().Msgf("[ptr] %s array construction failed at %d/%d, built elements disposed", typeName[E](), built, n)
		if r != nil {
			panic(r)
		}
	}()

	for built < n {
		if err := build(built, &buf[built]); err != nil {
			return nil, &ConstructError{Type: typeName[E](), Index: built, Err: err}
		}
		built++
	}
	return buf, nil
}
