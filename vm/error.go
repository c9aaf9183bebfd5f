package vm

import (
	"errors"
	"fmt"
	"strings"
)

// List of run-time faults for FaultKind
const (
	StackUnderflow = FaultKind(iota + 1)
	IndexOutOfRange
	DivisionByZero
	InvalidJumpTarget
)

var strFault = map[FaultKind]string{
	StackUnderflow:    "stack underflow",
	IndexOutOfRange:   "index out of range",
	DivisionByZero:    "division by zero",
	InvalidJumpTarget: "invalid jump target",
}

var (
	// ErrHalted is returned by Step once the VM reached a terminal state.
	ErrHalted = errors.New("vm halted")
	// ErrStepLimit is returned when a run exceeds its step budget.
	ErrStepLimit = errors.New("step limit exceeded")
)

// FaultKind describes the reason for a fault.
type FaultKind int

func (k FaultKind) Error() string {
	if s, ok := strFault[k]; ok {
		return s
	}
	return fmt.Sprintf("fault(%d)", int(k))
}

func (k FaultKind) String() string {
	return k.Error()
}

// Name is the identifier used in machine-readable output.
func (k FaultKind) Name() string {
	switch k {
	case StackUnderflow:
		return "StackUnderflow"
	case IndexOutOfRange:
		return "IndexOutOfRange"
	case DivisionByZero:
		return "DivisionByZero"
	case InvalidJumpTarget:
		return "InvalidJumpTarget"
	}
	return k.Error()
}

// Fault describes the cause and the context of an aborted run.
type Fault struct {
	Kind    FaultKind   // nature of the fault
	Index   int         // index of the faulting instruction
	Instr   Instruction // faulting instruction
	Unstack []int64     // unstack at the time of the fault, bottom first
	Detail  string      // optional context, e.g. required vs. actual length
}

func (f *Fault) Error() string {
	var sb strings.Builder
	sb.WriteString(f.Kind.Error())
	if f.Detail != "" {
		sb.WriteString(" (")
		sb.WriteString(f.Detail)
		sb.WriteString(")")
	}
	fmt.Fprintf(&sb, " at %d: %s", f.Index, f.Instr)
	return sb.String()
}

func (f *Fault) Unwrap() error {
	return f.Kind
}

// unstackError is returned by Unstack primitives: a kind plus the
// lengths involved.
type unstackError struct {
	kind FaultKind
	need int
	have int
}

func (e *unstackError) Error() string {
	return fmt.Sprintf("%s: %s", e.kind, e.detail())
}

func (e *unstackError) Unwrap() error {
	return e.kind
}

func (e *unstackError) detail() string {
	if e.kind == IndexOutOfRange {
		return fmt.Sprintf("index %d, len %d", e.need, e.have)
	}
	return fmt.Sprintf("need %d, have %d", e.need, e.have)
}

func underflow(need, have int) error {
	return &unstackError{kind: StackUnderflow, need: need, have: have}
}

func outOfRange(idx, have int) error {
	return &unstackError{kind: IndexOutOfRange, need: idx, have: have}
}

// SyntaxError reports malformed source found while decoding.
type SyntaxError struct {
	Offset int    // byte offset into the source
	Line   int    // 1-based
	Column int    // 1-based, in runes
	Text   string // offending text
	Msg    string
}

func (e *SyntaxError) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("syntax error at %d:%d: %s: %q", e.Line, e.Column, e.Msg, e.Text)
	}
	return fmt.Sprintf("syntax error at %d:%d: %s", e.Line, e.Column, e.Msg)
}
