package core

import (
	"fmt"

	"github.com/HiddyTiddy/bottom/vm"
)

type Validator interface {
	ValidateProgram(*vm.Program) error
}

// LimitValidator rejects programs longer than MaxInstructions. Zero
// means no limit.
type LimitValidator struct {
	MaxInstructions int
}

func (v LimitValidator) ValidateProgram(p *vm.Program) error {
	if v.MaxInstructions > 0 && p.Len() > v.MaxInstructions {
		return fmt.Errorf("program has %d instructions, limit is %d", p.Len(), v.MaxInstructions)
	}
	return nil
}

// Warning flags an instruction that is legal but cannot succeed.
type Warning struct {
	Index int
	Instr vm.Instruction
	Msg   string
}

func (w Warning) String() string {
	return fmt.Sprintf("%04d %s: %s", w.Index, w.Instr, w.Msg)
}

// Lint reports loop-backs whose target lies before the first
// instruction; taking one always faults with InvalidJumpTarget.
func Lint(p *vm.Program) []Warning {
	var out []Warning
	for i, inst := range p.Instructions() {
		if inst.Op == vm.OpLoopBack && inst.N > int64(i) {
			out = append(out, Warning{
				Index: i,
				Instr: inst,
				Msg:   fmt.Sprintf("jump target %d is before the start of the program", int64(i)-inst.N),
			})
		}
	}
	return out
}
