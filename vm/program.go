package vm

import (
	"fmt"
	"strings"
)

// Program is an immutable, index-addressed sequence of instructions.
// A Program can be shared by any number of VMs.
type Program struct {
	code []Instruction
}

func NewProgram(instrs ...Instruction) (*Program, error) {
	code := make([]Instruction, len(instrs))
	for i, inst := range instrs {
		if err := inst.Validate(); err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		code[i] = inst
	}
	return &Program{code: code}, nil
}

// MustProgram is NewProgram for fixed instruction lists. It panics on
// invalid input.
func MustProgram(instrs ...Instruction) *Program {
	p, err := NewProgram(instrs...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Program) Len() int {
	return len(p.code)
}

func (p *Program) At(i int) (Instruction, bool) {
	if i < 0 || i >= len(p.code) {
		return Instruction{}, false
	}
	return p.code[i], true
}

// Instructions returns a copy of the program's code.
func (p *Program) Instructions() []Instruction {
	out := make([]Instruction, len(p.code))
	copy(out, p.code)
	return out
}

// Source renders canonical source text: one instruction per line.
// Decoding the result yields an equal Program.
func (p *Program) Source() string {
	var sb strings.Builder
	for _, inst := range p.code {
		sb.WriteString(inst.Source())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// String is a disassembly listing.
func (p *Program) String() string {
	var sb strings.Builder
	for i, inst := range p.code {
		fmt.Fprintf(&sb, "%04d  %-12s %d", i, inst.Op, inst.N)
		if inst.Op == OpLoopBack {
			fmt.Fprintf(&sb, "\t; -> %d", int64(i)-inst.N)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
