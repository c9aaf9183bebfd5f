package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/HiddyTiddy/bottom/api"
	"github.com/HiddyTiddy/bottom/core"
	"github.com/HiddyTiddy/bottom/vm"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// loadProgram reads a program from path. Files ending in the image
// extension are decoded as program images, everything else as source.
// The returned code is the exit code to use when err is non-nil.
func (e *env) loadProgram(path string) (*vm.Program, int, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(e.stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, exitError, err
	}

	var p *vm.Program
	if strings.HasSuffix(path, core.ImageExt) {
		p, err = core.UnmarshalProgram(data)
	} else {
		p, err = vm.Decode(string(data))
	}
	if err != nil {
		return nil, exitUsage, fmt.Errorf("%s: %w", displayName(path), err)
	}

	v := core.LimitValidator{MaxInstructions: e.cfg.VM.MaxInstructions}
	if err := v.ValidateProgram(p); err != nil {
		return nil, exitUsage, fmt.Errorf("%s: %w", displayName(path), err)
	}
	return p, exitOK, nil
}

func displayName(path string) string {
	if path == "-" {
		return "<stdin>"
	}
	return path
}

func runCmd(e *env, args []string) int {
	fs := subcommand(e, "run")
	ascii := fs.Bool("a", false, "print the unstack as characters")
	trace := fs.Bool("trace", false, "log every executed instruction to stderr")
	maxSteps := fs.Uint64("max-steps", e.cfg.VM.MaxSteps, "stop after N instructions, 0 for no limit")
	timeout := fs.Duration("timeout", e.cfg.VM.Timeout, "stop after this long, 0 for no limit")
	path, ok := parseFile(fs, args)
	if !ok {
		return exitUsage
	}

	p, code, err := e.loadProgram(path)
	if err != nil {
		e.errorf("%v", err)
		return code
	}

	logger := e.logger
	if *trace {
		logger = traceLogger(e)
	}
	runner := core.NewRunner(core.RunnerOpts{
		MaxSteps: *maxSteps,
		Timeout:  *timeout,
		Logger:   logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := runner.Run(ctx, p)
	if err != nil {
		if res.Fault != nil {
			e.errorf("%v", res.Fault)
			e.errorf("unstack: %s", vm.FormatValues(res.Fault.Unstack))
		} else {
			e.errorf("%v", err)
		}
		return exitError
	}

	if *ascii {
		var sb strings.Builder
		for _, v := range res.Unstack {
			sb.WriteRune(rune(byte(v & 0xff)))
		}
		fmt.Fprintln(e.stdout, sb.String())
	} else {
		fmt.Fprintln(e.stdout, vm.FormatValues(res.Unstack))
	}
	return exitOK
}

// traceLogger writes debug output, including every VM step, to the
// command's stderr.
func traceLogger(e *env) *zap.Logger {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	return zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(enc),
		zapcore.AddSync(e.stderr),
		zapcore.DebugLevel,
	))
}

func checkCmd(e *env, args []string) int {
	fs := subcommand(e, "check")
	path, ok := parseFile(fs, args)
	if !ok {
		return exitUsage
	}
	p, code, err := e.loadProgram(path)
	if err != nil {
		e.errorf("%v", err)
		return code
	}

	h := core.DefaultProgramHasher{}.Hash(p)
	fmt.Fprintf(e.stdout, "%s: %d instructions, hash %s\n", displayName(path), p.Len(), h)
	for _, w := range core.Lint(p) {
		fmt.Fprintf(e.stderr, "%s: warning: %s\n", displayName(path), w)
	}
	return exitOK
}

func disasmCmd(e *env, args []string) int {
	fs := subcommand(e, "disasm")
	path, ok := parseFile(fs, args)
	if !ok {
		return exitUsage
	}
	p, code, err := e.loadProgram(path)
	if err != nil {
		e.errorf("%v", err)
		return code
	}
	fmt.Fprint(e.stdout, p.String())
	return exitOK
}

func fmtCmd(e *env, args []string) int {
	fs := subcommand(e, "fmt")
	path, ok := parseFile(fs, args)
	if !ok {
		return exitUsage
	}
	p, code, err := e.loadProgram(path)
	if err != nil {
		e.errorf("%v", err)
		return code
	}
	fmt.Fprint(e.stdout, p.Source())
	return exitOK
}

func compileCmd(e *env, args []string) int {
	fs := subcommand(e, "compile")
	out := fs.String("o", "", "output file, defaults to FILE with the image extension")
	path, ok := parseFile(fs, args)
	if !ok {
		return exitUsage
	}
	if *out == "" {
		if path == "-" {
			e.errorf("compile: -o is required when reading stdin")
			return exitUsage
		}
		*out = strings.TrimSuffix(path, filepath.Ext(path)) + core.ImageExt
	}

	p, code, err := e.loadProgram(path)
	if err != nil {
		e.errorf("%v", err)
		return code
	}
	data, err := core.MarshalProgram(p)
	if err != nil {
		e.errorf("compile: %v", err)
		return exitError
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		e.errorf("compile: %v", err)
		return exitError
	}
	fmt.Fprintf(e.stdout, "wrote %s (%d instructions, %d bytes)\n", *out, p.Len(), len(data))
	return exitOK
}

func serveCmd(e *env, args []string) int {
	fs := subcommand(e, "serve")
	addr := fs.String("addr", e.cfg.API.ListenAddr, "listen address")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 0 {
		fs.Usage()
		return exitUsage
	}

	registry := core.NewRegistry(
		core.WithLogger(e.logger),
		core.WithValidator(core.LimitValidator{MaxInstructions: e.cfg.VM.MaxInstructions}),
	)
	defer registry.Close() //nolint:errcheck
	runner := core.NewRunner(core.RunnerOpts{
		MaxSteps: e.cfg.VM.MaxSteps,
		Timeout:  e.cfg.VM.Timeout,
		Logger:   e.logger,
	})
	srv, err := api.NewServer(api.ServerConfig{
		ListenerAddr:   *addr,
		ID:             e.cfg.API.ServerID,
		MaxSourceBytes: e.cfg.API.MaxSourceBytes,
		HistorySize:    e.cfg.API.HistorySize,
		Logger:         e.logger,
	}, registry, runner)
	if err != nil {
		e.errorf("serve: %v", err)
		return exitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			e.errorf("serve: %v", err)
			return exitError
		}
		return exitOK
	case <-ctx.Done():
	}

	e.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		e.errorf("serve: shutdown: %v", err)
		return exitError
	}
	return exitOK
}

func configCmd(e *env, args []string) int {
	fs := subcommand(e, "config")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	data, err := e.cfg.Marshal()
	if err != nil {
		e.errorf("%v", err)
		return exitError
	}
	if e.cfg.Path != "" {
		fmt.Fprintf(e.stdout, "# %s\n", e.cfg.Path)
	}
	e.stdout.Write(data) //nolint:errcheck
	return exitOK
}
