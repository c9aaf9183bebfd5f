// Package cli implements the bottom command line.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"

	"github.com/HiddyTiddy/bottom/config"
	"go.uber.org/zap"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// env is what a subcommand gets to work with.
type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	cfg    *config.Config
	logger *zap.Logger
}

func (e *env) errorf(format string, args ...any) {
	fmt.Fprintf(e.stderr, "bottom: "+format+"\n", args...)
}

type command struct {
	usage string
	help  string
	run   func(e *env, args []string) int
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"run": {
			usage: "run [-a] [-trace] [-max-steps N] [-timeout D] FILE|-",
			help:  "run a program and print the final unstack",
			run:   runCmd,
		},
		"check": {
			usage: "check FILE|-",
			help:  "decode a program and print its size and hash",
			run:   checkCmd,
		},
		"disasm": {
			usage: "disasm FILE|-",
			help:  "print the instruction listing",
			run:   disasmCmd,
		},
		"fmt": {
			usage: "fmt FILE|-",
			help:  "print the program in canonical form",
			run:   fmtCmd,
		},
		"compile": {
			usage: "compile [-o OUT] FILE|-",
			help:  "write a program image",
			run:   compileCmd,
		},
		"serve": {
			usage: "serve [-addr ADDR]",
			help:  "start the HTTP API",
			run:   serveCmd,
		},
		"config": {
			usage: "config",
			help:  "print the effective configuration",
			run:   configCmd,
		},
	}
}

// Main runs the command line in args (without the program name) and
// returns the process exit code.
func Main(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("bottom", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML config file")
	logLevel := fs.String("log-level", "", "log level: debug, info, warn, error")
	fs.Usage = func() { usage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() == 0 {
		usage(stderr, fs)
		return exitUsage
	}

	name, rest := fs.Arg(0), fs.Args()[1:]
	if name == "help" {
		usage(stdout, fs)
		return exitOK
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "bottom: unknown command %q\n", name)
		usage(stderr, fs)
		return exitUsage
	}

	cfg, err := loadConfig(*configPath, *logLevel)
	if err != nil {
		fmt.Fprintf(stderr, "bottom: %v\n", err)
		return exitUsage
	}
	logger, err := cfg.Logger()
	if err != nil {
		fmt.Fprintf(stderr, "bottom: %v\n", err)
		return exitUsage
	}
	defer logger.Sync() //nolint:errcheck
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	e := &env{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		cfg:    cfg,
		logger: logger,
	}
	return cmd.run(e, rest)
}

func loadConfig(path, level string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	}
	if level != "" {
		cfg.Log.Level = level
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	return cfg, nil
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "Usage: bottom [options] <command> [arguments]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-50s %s\n", commands[name].usage, commands[name].help)
	}
	fmt.Fprintf(w, "\nOptions:\n")
	out := fs.Output()
	fs.SetOutput(w)
	fs.PrintDefaults()
	fs.SetOutput(out)
}

// subcommand builds the flag set shared by all subcommands.
func subcommand(e *env, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.Usage = func() {
		fmt.Fprintf(e.stderr, "Usage: bottom %s\n", commands[name].usage)
		fs.PrintDefaults()
	}
	return fs
}

// parseFile parses args and returns the single FILE argument.
func parseFile(fs *flag.FlagSet, args []string) (string, bool) {
	if err := fs.Parse(args); err != nil {
		return "", false
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return "", false
	}
	return fs.Arg(0), true
}
