package ptr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RunsInit(t *testing.T) {
	resetLive(t)

	s, err := New[tracked]()
	require.NoError(t, err)
	assert.True(t, s.Get().alive)
	assert.Equal(t, 1, live)

	s.Release()
	assert.Equal(t, 0, live)
}

func TestNew_InitFailure(t *testing.T) {
	resetLive(t)
	failAt = 0

	s, err := New[failing]()
	assert.Nil(t, s)
	assert.ErrorIs(t, err, errBoom)

	var cerr *ConstructError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, -1, cerr.Index)
	assert.Equal(t, 0, live)
}

func TestMakeFunc(t *testing.T) {
	s, err := MakeFunc(func() (string, error) { return "built", nil })
	require.NoError(t, err)
	assert.Equal(t, "built", s.MustValue())
	s.Release()

	s, err = MakeFunc(func() (string, error) { return "", errBoom })
	assert.Nil(t, s)
	assert.ErrorIs(t, err, errBoom)
}

func TestMakeFunc_PanicLeavesNothingAllocated(t *testing.T) {
	o := observe(t)

	assert.PanicsWithValue(t, "ctor", func() {
		_, _ = MakeFunc(func() (int, error) { panic("ctor") })
	})
	assert.Equal(t, 0, o.allocated[KindSingle])
}

func TestMakeArray_Liveness(t *testing.T) {
	resetLive(t)
	o := observe(t)

	s, err := MakeArray[tracked](5)
	require.NoError(t, err)
	assert.Equal(t, 5, live)
	assert.Equal(t, KindArray, s.Kind())
	assert.Len(t, *s.Get(), 5)

	c := s.Clone()
	s.Release()
	assert.Equal(t, 5, live)

	c.Release()
	assert.Equal(t, 0, live)
	assert.Equal(t, 5, o.disposed[KindArray])
	assert.Equal(t, 1, o.freed[KindArray])
}

func TestMakeArray_Zero(t *testing.T) {
	s, err := MakeArray[int](0)
	require.NoError(t, err)
	assert.True(t, s.Valid())
	assert.Empty(t, *s.Get())
	s.Release()
}

func TestMakeArray_NegativeSize(t *testing.T) {
	s, err := MakeArray[int](-1)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrNegativeSize)
}

func TestMakeArray_RollsBackOnFailure(t *testing.T) {
	resetLive(t)
	o := observe(t)
	failAt = 3

	s, err := MakeArray[failing](5)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, errBoom)

	var cerr *ConstructError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, 3, cerr.Index)
	assert.Equal(t, 0, live, "every built element must be disposed")
	assert.Equal(t, 0, o.allocated[KindArray])
}

func TestMakeArrayFunc(t *testing.T) {
	s, err := MakeArrayFunc(4, func(i int) (int, error) { return i * i, nil })
	require.NoError(t, err)
	defer s.Release()

	assert.Equal(t, []int{0, 1, 4, 9}, *s.Get())
	*At(s, 2) = 7
	assert.Equal(t, 7, (*s.Get())[2])
}

func TestMakeArrayFunc_PanicRollsBack(t *testing.T) {
	resetLive(t)

	var order []int
	assert.PanicsWithValue(t, "element", func() {
		_, _ = MakeArrayFunc(4, func(i int) (*tracked, error) {
			if i == 2 {
				panic("element")
			}
			v := &tracked{id: i}
			_ = v.Init()
			order = append(order, i)
			return v, nil
		})
	})
	assert.Equal(t, []int{0, 1}, order)
	assert.Equal(t, 0, live)
}

type ordered struct {
	id  int
	log *[]int
}

func (v ordered) Dispose() {
	*v.log = append(*v.log, v.id)
}

func TestArray_DisposesInReverseOrder(t *testing.T) {
	var disposed []int
	elems := make([]ordered, 4)
	for i := range elems {
		elems[i] = ordered{id: i, log: &disposed}
	}

	s := AdoptArray(elems)
	s.Release()

	assert.Equal(t, []int{3, 2, 1, 0}, disposed)
}

func TestAdoptArray(t *testing.T) {
	resetLive(t)

	elems := make([]tracked, 3)
	for i := range elems {
		require.NoError(t, elems[i].Init())
	}

	s := AdoptArray(elems)
	assert.Equal(t, 3, live)
	assert.Equal(t, KindArray, s.Kind())

	s.Release()
	assert.Equal(t, 0, live)

	assert.True(t, AdoptArray[int](nil).IsNil())
}

func TestAt_EmptyPanics(t *testing.T) {
	var s Shared[[]int]
	assert.PanicsWithError(t, ErrNilDereference.Error(), func() { At(&s, 0) })
}

func TestAdoptWith_CustomStrategy(t *testing.T) {
	o := observe(t)

	returned := 0
	s := AdoptWith(new([]byte), DisposeFunc(func(buf *[]byte) int {
		returned++
		*buf = nil
		return 1
	}))
	assert.Equal(t, KindCustom, s.Kind())

	c := s.Clone()
	s.Release()
	assert.Equal(t, 0, returned)

	c.Release()
	assert.Equal(t, 1, returned)
	assert.Equal(t, 1, o.disposed[KindCustom])
}

func TestAdoptWith_NilStrategyDefaultsToSingle(t *testing.T) {
	s := AdoptWith(new(int), nil)
	defer s.Release()
	assert.Equal(t, KindSingle, s.Kind())
}
