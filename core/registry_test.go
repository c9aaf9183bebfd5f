package core

import (
	"errors"
	"testing"

	"github.com/HiddyTiddy/bottom/types"
	"github.com/HiddyTiddy/bottom/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRegistry(t *testing.T, opts ...RegistryOpt) *Registry {
	r := NewRegistry(append([]RegistryOpt{WithLogger(zaptest.NewLogger(t))}, opts...)...)
	assert.NotNil(t, r)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRegistry_AddSource(t *testing.T) {
	r := newTestRegistry(t)

	e, err := r.AddSource("🥺5 🥺3 💓0")
	require.NoError(t, err)
	assert.Equal(t, 3, e.Program.Len())
	assert.Equal(t, r.Hash(e.Program), e.Hash)
	assert.Equal(t, 1, r.Len())

	got, err := r.Get(e.Hash)
	require.NoError(t, err)
	assert.Same(t, e, got)

	// same program, different layout
	again, err := r.AddSource("🥺5\n🥺3\n💓0\n")
	require.NoError(t, err)
	assert.Same(t, e, again)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_SyntaxError(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.AddSource("🥺5 ?")
	var se *vm.SyntaxError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_Validator(t *testing.T) {
	r := newTestRegistry(t, WithValidator(LimitValidator{MaxInstructions: 2}))
	_, err := r.AddSource("🥺1 🥺2 🥺3")
	assert.Error(t, err)

	_, err = r.AddSource("🥺1 🥺2")
	assert.NoError(t, err)
}

func TestRegistry_GetMissing(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Get(types.Hash{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLint(t *testing.T) {
	p := vm.MustProgram(
		vm.Instruction{Op: vm.OpPush, N: 1},
		vm.Instruction{Op: vm.OpLoopBack, N: 1},
		vm.Instruction{Op: vm.OpLoopBack, N: 3},
	)
	warnings := Lint(p)
	require.Len(t, warnings, 1)
	assert.Equal(t, 2, warnings[0].Index)
	assert.Contains(t, warnings[0].String(), "jump target -1")

	assert.NoError(t, LimitValidator{}.ValidateProgram(p))
	assert.Error(t, LimitValidator{MaxInstructions: 1}.ValidateProgram(p))
}

type mapStore map[types.Hash]*Entry

func (m mapStore) Put(k types.Hash, v *Entry) error {
	m[k] = v
	return nil
}

func (m mapStore) Get(k types.Hash) (*Entry, error) {
	e, ok := m[k]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

func (m mapStore) Len() int { return len(m) }

func TestRegistry_Close(t *testing.T) {
	r := NewRegistry(WithLogger(zaptest.NewLogger(t)))
	_, err := r.AddSource("🥺1")
	require.NoError(t, err)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err = r.AddSource("🥺2")
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.Equal(t, 0, r.Len())

	// stores without resources are left alone
	plain := NewRegistry(WithLogger(zaptest.NewLogger(t)), WithStore(mapStore{}))
	assert.NoError(t, plain.Close())
	_, err = plain.AddSource("🥺2")
	assert.NoError(t, err)
}
