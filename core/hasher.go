package core

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/HiddyTiddy/bottom/types"
	"github.com/HiddyTiddy/bottom/vm"
)

type Hasher[T any] interface {
	Hash(T) types.Hash
}

// DefaultProgramHasher hashes the decoded instructions, so sources that
// differ only in layout share a hash.
type DefaultProgramHasher struct{}

func (DefaultProgramHasher) Hash(p *vm.Program) types.Hash {
	h := sha256.New()
	var buf [9]byte
	for _, inst := range p.Instructions() {
		buf[0] = byte(inst.Op)
		binary.BigEndian.PutUint64(buf[1:], uint64(inst.N))
		h.Write(buf[:])
	}
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}
