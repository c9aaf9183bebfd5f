package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDeque(t *testing.T) *Deque[int] {
	d := NewDeque[int](0)
	for i := 0; i < 5; i += 1 {
		d.PushBack(i)
	}
	assert.Equal(t, 5, d.Len())
	return d
}

func TestDeque_Get(t *testing.T) {
	d := testDeque(t)

	for i := 0; i < d.Len(); i += 1 {
		got, err := d.Get(i)
		assert.NoError(t, err)
		assert.Equal(t, i, got)
	}

	_, err := d.Get(-1)
	assert.Error(t, err)
	_, err = d.Get(d.Len())
	assert.Error(t, err)
}

func TestDeque_PushFront(t *testing.T) {
	d := NewDeque[int](2)
	for i := 0; i < 40; i += 1 {
		d.PushFront(i)
		got, err := d.Get(0)
		require.NoError(t, err)
		assert.Equal(t, i, got)
		assert.Equal(t, i+1, d.Len())
	}

	got := d.Slice()
	assert.Equal(t, 39, got[0])
	assert.Equal(t, 0, got[39])
}

func TestDeque_PopFront(t *testing.T) {
	d := testDeque(t)
	for i := 0; i < 5; i += 1 {
		got, err := d.PopFront()
		assert.NoError(t, err)
		assert.Equal(t, i, got)
	}

	_, err := d.PopFront()
	assert.Error(t, err)
	assert.Equal(t, 0, d.Len())
}

func TestDeque_PopBack(t *testing.T) {
	d := testDeque(t)
	for i := 4; i >= 0; i -= 1 {
		got, err := d.PopBack()
		assert.NoError(t, err)
		assert.Equal(t, i, got)
	}

	_, err := d.PopBack()
	assert.Error(t, err)
}

func TestDeque_WrapAround(t *testing.T) {
	d := NewDeque[int](minDequeCap)
	// push past the physical start so the ring wraps, then grow
	for i := 0; i < minDequeCap-2; i += 1 {
		d.PushBack(i)
	}
	d.PushFront(-1)
	d.PushFront(-2)
	d.PushFront(-3)

	want := []int{-3, -2, -1}
	for i := 0; i < minDequeCap-2; i += 1 {
		want = append(want, i)
	}
	assert.Equal(t, want, d.Slice())
}

func TestDeque_DropFront(t *testing.T) {
	d := testDeque(t)
	assert.NoError(t, d.DropFront(2))
	assert.Equal(t, []int{2, 3, 4}, d.Slice())

	assert.Error(t, d.DropFront(4))
	assert.Error(t, d.DropFront(-1))
	assert.NoError(t, d.DropFront(0))
	assert.NoError(t, d.DropFront(3))
	assert.Equal(t, 0, d.Len())
}

func TestDeque_SetSwap(t *testing.T) {
	d := testDeque(t)
	assert.NoError(t, d.Set(1, 42))
	assert.NoError(t, d.Swap(0, 4))
	assert.Equal(t, []int{4, 42, 2, 3, 0}, d.Slice())

	assert.Error(t, d.Set(5, 1))
	assert.Error(t, d.Swap(0, 5))
}

func TestDeque_ZeroValue(t *testing.T) {
	var d Deque[string]
	_, err := d.PopFront()
	assert.Error(t, err)
	assert.NoError(t, d.DropFront(0))

	d.PushFront("b")
	d.PushFront("a")
	assert.Equal(t, []string{"a", "b"}, d.Slice())

	d.Clear()
	assert.Equal(t, 0, d.Len())
	assert.Empty(t, d.Slice())
}
