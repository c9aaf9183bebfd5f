package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProgram(t *testing.T) {
	tests := []struct {
		name    string
		code    []Instruction
		wantErr bool
	}{
		{name: "empty"},
		{name: "valid", code: []Instruction{push(-1), floordiv(-3), swap(0), dup(0), loopback(0)}},
		{name: "unknown opcode", code: []Instruction{push(1), {Op: 0x01}}, wantErr: true},
		{name: "negative swap", code: []Instruction{swap(-1)}, wantErr: true},
		{name: "negative discard", code: []Instruction{discard2mul(-1)}, wantErr: true},
		{name: "negative jump", code: []Instruction{loopback(-3)}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProgram(tt.code...)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.code), p.Len())
		})
	}

	assert.Panics(t, func() { MustProgram(swap(-1)) })
}

func TestProgram_Immutable(t *testing.T) {
	code := []Instruction{push(1), push(2)}
	p := MustProgram(code...)

	code[0] = push(99)
	got, ok := p.At(0)
	require.True(t, ok)
	assert.Equal(t, push(1), got)

	out := p.Instructions()
	out[1] = push(99)
	got, _ = p.At(1)
	assert.Equal(t, push(2), got)

	_, ok = p.At(2)
	assert.False(t, ok)
	_, ok = p.At(-1)
	assert.False(t, ok)
}

func TestProgram_Listing(t *testing.T) {
	p := MustProgram(push(3), swap(1), loopback(1))
	want := "" +
		"0000  push         3\n" +
		"0001  swap         1\n" +
		"0002  loopback     1\t; -> 1\n"
	assert.Equal(t, want, p.String())
	assert.Equal(t, "🥺3\n👉👈1\n🫂1\n", p.Source())
}

func TestOpcode(t *testing.T) {
	for _, op := range opcodes {
		assert.True(t, op.Valid())
		assert.NotEmpty(t, op.Marker())
		assert.NotContains(t, op.String(), "op(")
	}
	assert.False(t, Opcode(0).Valid())
	assert.Equal(t, "op(0x00)", Opcode(0).String())
	assert.True(t, OpPush.Signed())
	assert.True(t, OpFloorDiv.Signed())
	assert.False(t, OpLoopBack.Signed())
}
