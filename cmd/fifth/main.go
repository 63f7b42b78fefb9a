// Command fifth runs the Forth engine implemented by package forth,
// either interactively against stdin or over one or more -e code
// strings and script files named on the command line, interleaved in
// the order given (spec §6, §8).
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fifth-forth/fifth/forth"
	"github.com/fifth-forth/fifth/internal/logio"
)

// cliInput is one top-level source named on the command line, in the
// order it was given: either a -e code string or a file path. Go's
// stdlib flag package stops recognizing flags at the first positional
// argument, which can't express "-e ... file -e ..." interleaving, so
// argv is scanned by hand instead (grounded on db47h-ngaro's cmd/retro,
// which reaches for its own flag.Value types for the same repeatable-
// flag reason, though here the interleaving requirement goes further
// than flag.FlagSet supports at all).
type cliInput struct {
	code  bool
	value string
}

type config struct {
	memLimit uint
	timeout  time.Duration
	trace    bool
	raw      bool
	bootPath string
	inputs   []cliInput
}

func parseArgs(args []string) (config, error) {
	var cfg config
	next := func(i *int, name string) (string, error) {
		*i++
		if *i >= len(args) {
			return "", fmt.Errorf("flag -%s requires an argument", name)
		}
		return args[*i], nil
	}
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch trimFlag(a) {
		case "e":
			v, err := next(&i, "e")
			if err != nil {
				return cfg, err
			}
			cfg.inputs = append(cfg.inputs, cliInput{code: true, value: v})
		case "mem-limit":
			v, err := next(&i, "mem-limit")
			if err != nil {
				return cfg, err
			}
			n, perr := strconv.ParseUint(v, 10, 64)
			if perr != nil {
				return cfg, fmt.Errorf("invalid -mem-limit %q: %w", v, perr)
			}
			cfg.memLimit = uint(n)
		case "timeout":
			v, err := next(&i, "timeout")
			if err != nil {
				return cfg, err
			}
			d, perr := time.ParseDuration(v)
			if perr != nil {
				return cfg, fmt.Errorf("invalid -timeout %q: %w", v, perr)
			}
			cfg.timeout = d
		case "trace":
			cfg.trace = true
		case "raw":
			cfg.raw = true
		case "boot":
			v, err := next(&i, "boot")
			if err != nil {
				return cfg, err
			}
			cfg.bootPath = v
		case "h", "help":
			return cfg, fmt.Errorf("usage: fifth [-mem-limit n] [-timeout d] [-trace] [-raw] [-boot path] [-e code | file] ...")
		default:
			if strings.HasPrefix(a, "-") && a != "-" {
				return cfg, fmt.Errorf("unknown flag %q", a)
			}
			cfg.inputs = append(cfg.inputs, cliInput{code: false, value: expandHome(a)})
		}
	}
	return cfg, nil
}

// trimFlag strips one or two leading dashes, or returns "" for anything
// that isn't flag-shaped (a bare positional argument, including a lone
// "-" meaning stdin-as-a-file).
func trimFlag(a string) string {
	switch {
	case strings.HasPrefix(a, "--"):
		return a[2:]
	case strings.HasPrefix(a, "-") && a != "-":
		return a[1:]
	default:
		return ""
	}
}

// expandHome replaces a leading ~ or ~/ with $HOME, the one shell
// expansion spec §6 asks the CLI to perform itself since it never goes
// through a real shell (file paths are passed to os.Open directly).
func expandHome(path string) string {
	home := os.Getenv("HOME")
	if home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

func main() {
	cfg, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := logio.Logger{}
	log.SetOutput(os.Stderr)

	exitCode := 0
	defer func() { os.Exit(exitCode) }()

	var opts []forth.VMOption
	if cfg.memLimit != 0 {
		opts = append(opts, forth.WithMemLimit(cfg.memLimit))
	}
	if cfg.trace {
		tlog := log.Leveledf("TRACE")
		opts = append(opts, forth.WithTrace(tlog))
	}
	opts = append(opts, forth.WithOutput(os.Stdout))
	opts = append(opts, forth.WithDiagnostics(os.Stderr))
	opts = append(opts, forth.WithArgs(os.Args[1:]))
	opts = append(opts, forth.WithBatch(len(cfg.inputs) > 0))

	// Input is a LIFO stack (top()/readRune pop the most-recently-
	// pushed frame first, to let REQUIRE/INCLUDE nest), so the -e/file
	// sources must be pushed in REVERSE of the order they should be
	// read in, and the bootstrap pushed last of all so it lands on top
	// and is read before anything the user supplied.
	var restore func()
	if len(cfg.inputs) == 0 {
		if cfg.raw && isTerminal(os.Stdin) {
			var rerr error
			restore, rerr = setRawIO(os.Stdin)
			if rerr != nil {
				log.Printf("WARN", "could not set raw terminal mode: %v", rerr)
			}
		}
		opts = append(opts, forth.WithInput("<stdin>", os.Stdin))
	} else {
		for i := len(cfg.inputs) - 1; i >= 0; i-- {
			in := cfg.inputs[i]
			if in.code {
				opts = append(opts, forth.WithInput("<-e>", strings.NewReader(in.value)))
				continue
			}
			if in.value == "-" {
				opts = append(opts, forth.WithInput("<stdin>", os.Stdin))
				continue
			}
			f, ferr := os.Open(in.value)
			if ferr != nil {
				log.Errorf("%+v", ferr)
				exitCode = log.ExitCode()
				return
			}
			defer f.Close()
			opts = append(opts, forth.WithInput(in.value, f))
		}
	}
	if restore != nil {
		defer restore()
	}

	bootName, bootFile, err := openBoot(cfg.bootPath)
	if err != nil {
		log.Errorf("%+v", err)
		exitCode = log.ExitCode()
		return
	}
	if bootFile != nil {
		defer bootFile.Close()
		opts = append(opts, forth.WithInput(bootName, bootFile))
	}

	vm, err := forth.New(opts...)
	if err != nil {
		log.Errorf("%+v", err)
		exitCode = log.ExitCode()
		return
	}
	defer vm.Close()

	ctx := context.Background()
	if cfg.timeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	runErr := vm.Run(ctx)
	if runErr != nil {
		if code, ok := forth.AsBye(runErr); ok {
			exitCode = int(code)
			return
		}
		log.ErrorIf(runErr)
	}
	exitCode = log.ExitCode()
	if exitCode == 0 && vm.HadFault() {
		exitCode = 1
	}
}

// openBoot resolves the bootstrap core.fs file: an explicit -boot path, or
// else the first boot/core.fs found in the running executable's directory,
// in the directory above it, or under $HOME/fifth/engine. Startup proceeds
// without one, after a warning on stderr, if none is found; this differs
// from the teacher's WithInputWriter(thirdKernel) being unconditional only
// because its bootstrap is embedded as Go source rather than a standalone
// file.
func openBoot(explicit string) (string, *os.File, error) {
	candidates := []string{explicit}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		candidates = append(candidates,
			filepath.Join(dir, "boot", "core.fs"),
			filepath.Join(dir, "..", "boot", "core.fs"))
	}
	if home := os.Getenv("HOME"); home != "" {
		candidates = append(candidates, filepath.Join(home, "fifth", "engine", "boot", "core.fs"))
	}
	for _, path := range candidates {
		if path == "" {
			continue
		}
		f, err := os.Open(path)
		if err == nil {
			return path, f, nil
		}
		if explicit != "" && path == explicit {
			return "", nil, fmt.Errorf("opening -boot file: %w", err)
		}
	}
	fmt.Fprintln(os.Stderr, "warning: boot/core.fs not found; starting without the bootstrap")
	return "", nil, nil
}
