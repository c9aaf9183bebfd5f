package vm

import (
	"fmt"
	"strconv"
)

type Opcode byte

const (
	OpPush        Opcode = 0x0a // 🥺
	OpFloorDiv    Opcode = 0x0b // 💖
	OpSwap        Opcode = 0x0c // 👉👈
	OpDiscard2Mul Opcode = 0x0d // 💓
	OpDuplicate   Opcode = 0x0e // ✨
	OpLoopBack    Opcode = 0x0f // 🫂
)

var opcodes = []Opcode{
	OpPush,
	OpFloorDiv,
	OpSwap,
	OpDiscard2Mul,
	OpDuplicate,
	OpLoopBack,
}

var opMarkers = map[Opcode]string{
	OpPush:        "🥺",
	OpFloorDiv:    "💖",
	OpSwap:        "👉👈",
	OpDiscard2Mul: "💓",
	OpDuplicate:   "✨",
	OpLoopBack:    "🫂",
}

var opNames = map[Opcode]string{
	OpPush:        "push",
	OpFloorDiv:    "floordiv",
	OpSwap:        "swap",
	OpDiscard2Mul: "discard2mul",
	OpDuplicate:   "dup",
	OpLoopBack:    "loopback",
}

func (op Opcode) Valid() bool {
	_, ok := opMarkers[op]
	return ok
}

// Marker is the source text that introduces op.
func (op Opcode) Marker() string {
	return opMarkers[op]
}

func (op Opcode) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("op(0x%02x)", byte(op))
}

// Signed reports whether op accepts a negative operand. The other
// opcodes take counts, indices or jump distances.
func (op Opcode) Signed() bool {
	return op == OpPush || op == OpFloorDiv
}

type Instruction struct {
	Op Opcode
	N  int64
}

func (inst Instruction) Validate() error {
	if !inst.Op.Valid() {
		return fmt.Errorf("unknown opcode 0x%02x", byte(inst.Op))
	}
	if inst.N < 0 && !inst.Op.Signed() {
		return fmt.Errorf("%s operand out of range: %d", inst.Op, inst.N)
	}
	return nil
}

// Source renders the instruction in marker form, e.g. 👉👈3.
func (inst Instruction) Source() string {
	return inst.Op.Marker() + strconv.FormatInt(inst.N, 10)
}

func (inst Instruction) String() string {
	return fmt.Sprintf("%s %d", inst.Op, inst.N)
}

// example: 2 * 3 then halve
// 🥺2 🥺3 💓0 💖2
// [3]
