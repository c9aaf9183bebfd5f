package vm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnstack(t *testing.T) {
	tests := []struct {
		name string
		opts []UnstackOption
		want []int64
	}{
		{
			name: "default",
			want: []int64{},
		},
		{
			name: "capacity",
			opts: []UnstackOption{WithCapacity(128)},
			want: []int64{},
		},
		{
			name: "seeded",
			opts: []UnstackOption{WithValues(1, 2, 3)},
			want: []int64{1, 2, 3},
		},
		{
			name: "capacity then seeded",
			opts: []UnstackOption{WithCapacity(4), WithValues(9)},
			want: []int64{9},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := NewUnstack(tt.opts...)
			assert.Equal(t, tt.want, u.Values())
			assert.Equal(t, len(tt.want), u.Len())
		})
	}
}

func TestUnstack_PushPopBottom(t *testing.T) {
	u := NewUnstack()
	assert.True(t, u.Empty())

	vals := []int64{420, 69, 42069, -1, -1948}
	for i, v := range vals {
		u.PushBottom(v)
		got, err := u.NthFromBottom(0)
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, i+1, u.Len())
	}
	// the first push is now the deepest value
	assert.Equal(t, []int64{-1948, -1, 42069, 69, 420}, u.Values())

	for i := len(vals) - 1; i >= 0; i-- {
		got, err := u.PopBottom()
		assert.NoError(t, err)
		assert.Equal(t, vals[i], got)
	}

	// underflow
	_, err := u.PopBottom()
	assert.ErrorIs(t, err, StackUnderflow)
	assert.True(t, u.Empty())
}

func TestUnstack_NthFromBottom(t *testing.T) {
	u := NewUnstack(WithValues(10, 20, 30))
	tests := []struct {
		name    string
		n       int
		want    int64
		wantErr error
	}{
		{name: "bottom", n: 0, want: 10},
		{name: "middle", n: 1, want: 20},
		{name: "top", n: 2, want: 30},
		{name: "past top", n: 3, wantErr: IndexOutOfRange},
		{name: "negative", n: -1, wantErr: IndexOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := u.NthFromBottom(tt.n)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnstack_SwapWithBottom(t *testing.T) {
	tests := []struct {
		name    string
		start   []int64
		n       int
		want    []int64
		wantErr error
	}{
		{name: "zero is a no-op", start: []int64{1, 2, 3}, n: 0, want: []int64{1, 2, 3}},
		{name: "neighbour", start: []int64{1, 2, 3}, n: 1, want: []int64{2, 1, 3}},
		{name: "top", start: []int64{1, 2, 3}, n: 2, want: []int64{3, 2, 1}},
		{name: "out of range", start: []int64{1, 2, 3}, n: 3, want: []int64{1, 2, 3}, wantErr: IndexOutOfRange},
		{name: "empty", start: nil, n: 0, want: []int64{}, wantErr: IndexOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := NewUnstack(WithValues(tt.start...))
			err := u.SwapWithBottom(tt.n)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, u.Values())
		})
	}
}

func TestUnstack_Discard(t *testing.T) {
	u := NewUnstack(WithValues(1, 2, 3, 4))
	assert.NoError(t, u.Discard(0))
	assert.NoError(t, u.Discard(2))
	assert.Equal(t, []int64{3, 4}, u.Values())

	err := u.Discard(3)
	assert.ErrorIs(t, err, StackUnderflow)
	assert.Equal(t, []int64{3, 4}, u.Values())

	assert.NoError(t, u.Discard(2))
	assert.True(t, u.Empty())
}

func TestUnstack_DuplicateBottom(t *testing.T) {
	tests := []struct {
		name    string
		start   []int64
		n       int
		want    []int64
		wantErr error
	}{
		{name: "zero on empty", n: 0, want: []int64{}},
		{name: "one", start: []int64{7, 8}, n: 1, want: []int64{7, 7, 8}},
		{name: "block keeps order", start: []int64{1, 2, 3}, n: 2, want: []int64{1, 2, 1, 2, 3}},
		{name: "whole unstack", start: []int64{1, 2, 3}, n: 3, want: []int64{1, 2, 3, 1, 2, 3}},
		{name: "underflow", start: []int64{1}, n: 2, want: []int64{1}, wantErr: StackUnderflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := NewUnstack(WithValues(tt.start...))
			err := u.DuplicateBottom(tt.n)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, u.Values())
		})
	}
}

func TestUnstack_DuplicateThenDiscard(t *testing.T) {
	start := []int64{5, -3, 0, 12, 9}
	for n := 0; n <= len(start); n++ {
		u := NewUnstack(WithValues(start...))
		require.NoError(t, u.DuplicateBottom(n))
		assert.Equal(t, len(start)+n, u.Len())
		require.NoError(t, u.Discard(n))
		assert.Equal(t, start, u.Values(), "n=%d", n)
	}
}

func TestUnstack_String(t *testing.T) {
	assert.Equal(t, "[]", NewUnstack().String())
	assert.Equal(t, "[1, -2, 3]", NewUnstack(WithValues(1, -2, 3)).String())
}

func TestUnstackErrorDetail(t *testing.T) {
	u := NewUnstack(WithValues(1))
	err := u.Discard(4)
	var ue *unstackError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "need 4, have 1", ue.detail())
	assert.Equal(t, "stack underflow: need 4, have 1", err.Error())
}
