package types

import (
	"fmt"
)

const minDequeCap = 16

// Deque is a growable ring buffer addressed from its front. Index 0 is
// the front element. Push and pop at either end are amortised O(1) and
// indexed access is O(1).
type Deque[T any] struct {
	data []T
	head int
	size int
}

func NewDeque[T any](capacity int) *Deque[T] {
	if capacity < minDequeCap {
		capacity = minDequeCap
	}
	return &Deque[T]{
		data: make([]T, capacity),
	}
}

func (d *Deque[T]) Len() int {
	return d.size
}

// physical slot of logical index idx
func (d *Deque[T]) slot(idx int) int {
	return (d.head + idx) % len(d.data)
}

func (d *Deque[T]) grow(need int) {
	if d.size+need <= len(d.data) {
		return
	}
	newCap := len(d.data) * 2
	if newCap < minDequeCap {
		newCap = minDequeCap
	}
	for newCap < d.size+need {
		newCap *= 2
	}
	out := make([]T, newCap)
	d.copyTo(out)
	d.data = out
	d.head = 0
}

func (d *Deque[T]) copyTo(out []T) {
	if d.size == 0 {
		return
	}
	end := d.head + d.size
	if end <= len(d.data) {
		copy(out, d.data[d.head:end])
		return
	}
	n := copy(out, d.data[d.head:])
	copy(out[n:], d.data[:end-len(d.data)])
}

func (d *Deque[T]) PushFront(val T) {
	d.grow(1)
	d.head = (d.head - 1 + len(d.data)) % len(d.data)
	d.data[d.head] = val
	d.size++
}

func (d *Deque[T]) PushBack(val T) {
	d.grow(1)
	d.data[d.slot(d.size)] = val
	d.size++
}

func (d *Deque[T]) PopFront() (T, error) {
	var empty T
	if d.size == 0 {
		return empty, fmt.Errorf("pop from empty deque")
	}
	val := d.data[d.head]
	d.data[d.head] = empty
	d.head = (d.head + 1) % len(d.data)
	d.size--
	return val, nil
}

func (d *Deque[T]) PopBack() (T, error) {
	var empty T
	if d.size == 0 {
		return empty, fmt.Errorf("pop from empty deque")
	}
	idx := d.slot(d.size - 1)
	val := d.data[idx]
	d.data[idx] = empty
	d.size--
	return val, nil
}

// DropFront removes the first n elements.
func (d *Deque[T]) DropFront(n int) error {
	if n < 0 || n > d.size {
		return fmt.Errorf("drop %d from deque of len %d", n, d.size)
	}
	var empty T
	for i := 0; i < n; i++ {
		d.data[d.slot(i)] = empty
	}
	if len(d.data) > 0 {
		d.head = (d.head + n) % len(d.data)
	}
	d.size -= n
	return nil
}

func (d *Deque[T]) Get(idx int) (T, error) {
	var empty T
	if idx < 0 || idx >= d.size {
		return empty, fmt.Errorf("index out of range. idx %d len %d",
			idx,
			d.size)
	}
	return d.data[d.slot(idx)], nil
}

func (d *Deque[T]) Set(idx int, val T) error {
	if idx < 0 || idx >= d.size {
		return fmt.Errorf("index out of range. idx %d len %d",
			idx,
			d.size)
	}
	d.data[d.slot(idx)] = val
	return nil
}

func (d *Deque[T]) Swap(i, j int) error {
	if i < 0 || i >= d.size || j < 0 || j >= d.size {
		return fmt.Errorf("swap out of range. i %d j %d len %d", i, j, d.size)
	}
	si, sj := d.slot(i), d.slot(j)
	d.data[si], d.data[sj] = d.data[sj], d.data[si]
	return nil
}

// Slice returns a copy of the elements, front first.
func (d *Deque[T]) Slice() []T {
	out := make([]T, d.size)
	d.copyTo(out)
	return out
}

func (d *Deque[T]) Clear() {
	var empty T
	for i := 0; i < d.size; i++ {
		d.data[d.slot(i)] = empty
	}
	d.head = 0
	d.size = 0
}
