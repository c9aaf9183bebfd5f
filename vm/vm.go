package vm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// how many steps RunContext takes between context checks
const ctxCheckInterval = 1024

type VM struct {
	program *Program
	// instruction pointer
	ip     int
	status Status
	fault  *Fault
	steps  uint64
	// 0 means unlimited
	maxSteps uint64

	Unstack *Unstack
	logger  *zap.Logger
}

type VMOpt func(*VM) *VM

func LoggerOpt(l *zap.Logger) VMOpt {
	return func(vm *VM) *VM {
		if l != nil {
			vm.logger = l
		}
		return vm
	}
}

// MaxStepsOpt bounds Run and RunContext to n executed instructions.
func MaxStepsOpt(n uint64) VMOpt {
	return func(vm *VM) *VM {
		vm.maxSteps = n
		return vm
	}
}

// UnstackOpt starts the run from u instead of an empty unstack.
func UnstackOpt(u *Unstack) VMOpt {
	return func(vm *VM) *VM {
		if u != nil {
			vm.Unstack = u
		}
		return vm
	}
}

func NewVM(p *Program, opts ...VMOpt) *VM {
	if p == nil {
		p = &Program{}
	}
	vm := &VM{
		program: p,
		ip:      0,
		status:  Running,
		Unstack: NewUnstack(),
		logger:  zap.L(),
	}

	for _, opt := range opts {
		vm = opt(vm)
	}

	vm.logger = vm.logger.Named("vm")
	if p.Len() == 0 {
		vm.status = Halted
	}

	return vm
}

func (vm *VM) Program() *Program { return vm.program }
func (vm *VM) Status() Status    { return vm.status }
func (vm *VM) Cursor() int       { return vm.ip }
func (vm *VM) Steps() uint64     { return vm.steps }

// Fault is the fault that ended the run, or nil.
func (vm *VM) Fault() *Fault { return vm.fault }

func (vm *VM) Result() Result {
	return Result{
		Status:  vm.status,
		Cursor:  vm.ip,
		Steps:   vm.steps,
		Unstack: vm.Unstack.Values(),
		Fault:   vm.fault,
	}
}

func (vm *VM) Run() error {
	return vm.RunContext(context.Background())
}

// RunContext steps until the VM halts or faults. It stops early, leaving
// the VM Running, when the step budget is used up or ctx is done.
func (vm *VM) RunContext(ctx context.Context) error {
	for !vm.status.Terminal() {
		if vm.maxSteps > 0 && vm.steps >= vm.maxSteps {
			return fmt.Errorf("vm run: %w after %d steps at %d", ErrStepLimit, vm.steps, vm.ip)
		}
		if vm.steps%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("vm run: %w", err)
			}
		}
		if err := vm.Step(); err != nil {
			return fmt.Errorf("vm run: %w", err)
		}
	}
	return nil
}

// Step executes the instruction at the cursor.
func (vm *VM) Step() error {
	if vm.status.Terminal() {
		return ErrHalted
	}

	inst, ok := vm.program.At(vm.ip)
	if !ok {
		vm.status = Halted
		return nil
	}

	if ce := vm.logger.Check(zap.DebugLevel, "step"); ce != nil {
		ce.Write(
			zap.Int("cursor", vm.ip),
			zap.Stringer("op", inst.Op),
			zap.Int64("n", inst.N),
			zap.Stringer("unstack", vm.Unstack),
		)
	}

	next, err := vm.exec(inst)
	vm.steps++
	if err != nil {
		vm.fail(inst, err)
		return vm.fault
	}
	vm.ip = next
	if vm.ip >= vm.program.Len() {
		vm.status = Halted
		vm.logger.Debug("halted",
			zap.Uint64("steps", vm.steps),
			zap.Stringer("unstack", vm.Unstack))
	}
	return nil
}

func (vm *VM) fail(inst Instruction, err error) {
	f := &Fault{
		Index:   vm.ip,
		Instr:   inst,
		Unstack: vm.Unstack.Values(),
	}
	var ue *unstackError
	switch {
	case errors.As(err, &ue):
		f.Kind = ue.kind
		f.Detail = ue.detail()
	case errors.As(err, &f.Kind):
	default:
		// exec only produces fault kinds
		panic(fmt.Sprintf("vm: unexpected error %v", err))
	}
	vm.status = Faulted
	vm.fault = f
	vm.logger.Debug("fault",
		zap.Int("cursor", vm.ip),
		zap.Stringer("kind", f.Kind),
		zap.String("detail", f.Detail))
}

// Exec applies a single instruction to the unstack. The cursor, step
// count and status are left alone, so a LoopBack only consumes its value.
func (vm *VM) Exec(inst Instruction) error {
	if err := inst.Validate(); err != nil {
		return err
	}
	_, err := vm.exec(inst)
	return err
}

// exec applies inst at the current cursor and returns the next cursor.
// Preconditions are checked before anything is mutated, so a failed
// instruction leaves the unstack untouched.
func (vm *VM) exec(inst Instruction) (int, error) {
	u := vm.Unstack
	next := vm.ip + 1

	switch inst.Op {
	case OpPush:
		u.PushBottom(inst.N)

	case OpFloorDiv:
		if u.Empty() {
			return 0, underflow(1, 0)
		}
		if inst.N == 0 {
			return 0, DivisionByZero
		}
		v, err := u.PopBottom()
		if err != nil {
			return 0, err
		}
		u.PushBottom(floorDiv(v, inst.N))

	case OpSwap:
		if err := u.SwapWithBottom(toInt(inst.N)); err != nil {
			return 0, err
		}

	case OpDiscard2Mul:
		if inst.N > int64(u.Len())-2 {
			need := toInt(inst.N)
			if need <= maxInt-2 {
				need += 2
			}
			return 0, underflow(need, u.Len())
		}
		a, err := u.PopBottom()
		if err != nil {
			return 0, err
		}
		b, err := u.PopBottom()
		if err != nil {
			return 0, err
		}
		if err := u.Discard(int(inst.N)); err != nil {
			return 0, err
		}
		u.PushBottom(a * b)

	case OpDuplicate:
		if inst.N > int64(u.Len()) {
			return 0, underflow(toInt(inst.N), u.Len())
		}
		if err := u.DuplicateBottom(int(inst.N)); err != nil {
			return 0, err
		}

	case OpLoopBack:
		v, err := u.NthFromBottom(0)
		if err != nil {
			return 0, underflow(1, 0)
		}
		target := int64(vm.ip) - inst.N
		if v != 0 && target < 0 {
			return 0, InvalidJumpTarget
		}
		if _, err := u.PopBottom(); err != nil {
			return 0, err
		}
		if v != 0 {
			next = int(target)
		}

	default:
		return 0, fmt.Errorf("unknown opcode 0x%02x", byte(inst.Op))
	}

	return next, nil
}

const maxInt = int(^uint(0) >> 1)

// toInt saturates operands that do not fit an int.
func toInt(n int64) int {
	if n > int64(maxInt) {
		return maxInt
	}
	return int(n)
}

// floorDiv rounds toward negative infinity, unlike Go's / which
// truncates toward zero.
func floorDiv(v, n int64) int64 {
	q := v / n
	if v%n != 0 && (v < 0) != (n < 0) {
		q--
	}
	return q
}
