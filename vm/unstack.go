package vm

import (
	"strconv"
	"strings"

	"github.com/HiddyTiddy/bottom/types"
)

// Unstack is a sequence of integers that is pushed to and popped from
// its bottom, index 0. Deeper elements are addressed by their distance
// from the bottom.
type Unstack struct {
	data *types.Deque[int64]
}

type UnstackOption func(*Unstack) *Unstack

// WithCapacity preallocates room for n values.
func WithCapacity(n int) UnstackOption {
	return func(u *Unstack) *Unstack {
		if u.data.Len() == 0 {
			u.data = types.NewDeque[int64](n)
		}
		return u
	}
}

// WithValues seeds the unstack, bottom first.
func WithValues(vals ...int64) UnstackOption {
	return func(u *Unstack) *Unstack {
		for _, v := range vals {
			u.data.PushBack(v)
		}
		return u
	}
}

func NewUnstack(opts ...UnstackOption) *Unstack {
	u := &Unstack{
		data: types.NewDeque[int64](0),
	}
	for _, opt := range opts {
		u = opt(u)
	}
	return u
}

func (u *Unstack) Len() int {
	return u.data.Len()
}

func (u *Unstack) Empty() bool {
	return u.data.Len() == 0
}

// PushBottom inserts v at index 0.
func (u *Unstack) PushBottom(v int64) {
	u.data.PushFront(v)
}

// PopBottom removes and returns the value at index 0.
func (u *Unstack) PopBottom() (int64, error) {
	if u.Empty() {
		return 0, underflow(1, 0)
	}
	return u.data.PopFront()
}

// NthFromBottom reads index n; 0 is the bottom itself.
func (u *Unstack) NthFromBottom(n int) (int64, error) {
	if n < 0 || n >= u.Len() {
		return 0, outOfRange(n, u.Len())
	}
	return u.data.Get(n)
}

// SwapWithBottom exchanges index n with index 0.
func (u *Unstack) SwapWithBottom(n int) error {
	if n < 0 || n >= u.Len() {
		return outOfRange(n, u.Len())
	}
	return u.data.Swap(0, n)
}

// Discard removes the bottom n values.
func (u *Unstack) Discard(n int) error {
	if n < 0 || n > u.Len() {
		return underflow(n, u.Len())
	}
	return u.data.DropFront(n)
}

// DuplicateBottom inserts a copy of the bottom n values below them,
// keeping their order: [a b c ...] with n=2 becomes [a b a b c ...].
func (u *Unstack) DuplicateBottom(n int) error {
	if n < 0 || n > u.Len() {
		return underflow(n, u.Len())
	}
	// walking from the deepest copied value down to the bottom keeps
	// the source index fixed at n-1 while the block is pushed below it
	for i := 0; i < n; i++ {
		v, err := u.data.Get(n - 1)
		if err != nil {
			return err
		}
		u.data.PushFront(v)
	}
	return nil
}

// Values returns a copy of the contents, bottom first.
func (u *Unstack) Values() []int64 {
	return u.data.Slice()
}

func (u *Unstack) String() string {
	return FormatValues(u.Values())
}

// FormatValues renders values as [1, 2, 3].
func FormatValues(vals []int64) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range vals {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.FormatInt(v, 10))
	}
	sb.WriteByte(']')
	return sb.String()
}
