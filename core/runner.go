package core

import (
	"context"
	"errors"
	"time"

	"github.com/HiddyTiddy/bottom/vm"
	"go.uber.org/zap"
)

type RunnerOpts struct {
	// 0 means unlimited
	MaxSteps uint64
	// 0 means no timeout
	Timeout time.Duration
	Logger  *zap.Logger
}

// Runner executes programs under the configured limits and logs the
// outcome of each run.
type Runner struct {
	RunnerOpts
	logger *zap.Logger
}

func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = zap.L()
	}
	return &Runner{
		RunnerOpts: opts,
		logger:     opts.Logger.Named("runner"),
	}
}

// StepLimit caps a caller's requested step budget at the runner's own.
// 0 asks for no limit, which is only granted when the runner has none.
func (r *Runner) StepLimit(requested uint64) uint64 {
	if r.MaxSteps > 0 && (requested == 0 || requested > r.MaxSteps) {
		return r.MaxSteps
	}
	return requested
}

// Run executes p on a fresh VM. The returned Result is valid even when
// err is non-nil: a fault leaves it Faulted, a limit leaves it Running.
// Options are applied after the runner's own, so they can override them.
func (r *Runner) Run(ctx context.Context, p *vm.Program, opts ...vm.VMOpt) (vm.Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	vmOpts := append([]vm.VMOpt{
		vm.LoggerOpt(r.logger),
		vm.MaxStepsOpt(r.MaxSteps),
	}, opts...)
	machine := vm.NewVM(p, vmOpts...)

	start := time.Now()
	err := machine.RunContext(ctx)
	res := machine.Result()

	fields := []zap.Field{
		zap.Stringer("status", res.Status),
		zap.Int("cursor", res.Cursor),
		zap.Uint64("steps", res.Steps),
		zap.Int("unstack len", len(res.Unstack)),
		zap.Duration("elapsed", time.Since(start)),
	}
	var fault *vm.Fault
	switch {
	case err == nil:
		r.logger.Info("run halted", fields...)
	case errors.As(err, &fault):
		r.logger.Warn("run faulted", append(fields,
			zap.String("kind", fault.Kind.Name()),
			zap.Int("index", fault.Index))...)
	default:
		r.logger.Warn("run stopped", append(fields, zap.Error(err))...)
	}
	return res, err
}
