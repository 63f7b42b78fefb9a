package forth

import (
	"context"
	"io"
	"os"

	"github.com/fifth-forth/fifth/internal/flushio"
	"github.com/fifth-forth/fifth/internal/panicerr"
)

// VM is a single Forth engine instance: dictionary, data space, stacks,
// input, and I/O, tied together the way the teacher's VM struct does but
// with the dictionary and memory split into their own types (Dictionary,
// Memory) instead of living as raw fields on the VM itself.
type VM struct {
	dict *Dictionary
	mem  *Memory
	ds   *stack // data stack
	rs   *stack // return stack
	pic  pictured

	in  *Input
	out flushio.WriteFlusher
	// outSynced marks that out has already been wrapped in
	// flushio.Sync, done lazily the first time SPAWN hands it to a
	// second goroutine (see spawn.go); avoids paying the lock on the
	// common single-threaded run.
	outSynced bool

	files    *fileTable
	children childSet
	required map[string]bool
	argv     []string

	base int

	state       bool // true while compiling
	handle      XT   // definition currently being compiled, notFound otherwise
	hereAtColon uint // HERE snapshot taken at ':', restored on a compile-time abort
	ip          Cell // inner interpreter instruction pointer
	running     bool

	// batch marks a non-interactive run (-e/file args); hadFault
	// latches when any VMError is recovered from during the run.
	// Together they drive the CLI's exit-code contract (spec §7) --
	// the outer interpreter itself always resumes after a fault,
	// interactive or not (see outer.go).
	batch    bool
	hadFault bool

	// diag receives the one-line stderr fault diagnostic the outer
	// interpreter prints on every recovered VMError (spec §7). Defaults
	// to os.Stderr; nil disables it entirely.
	diag io.Writer

	trace func(format string, args ...interface{})

	// cached XTs for control-flow primitives the compiler/inner loop
	// reference directly, resolved once at startup (spec §4.4/§9).
	xtLit, xtSLit, xtBranch, xt0Branch, xtExit       XT
	xtDo, xtQDo, xtLoop, xtPlusLoop, xtDoesAction XT
	xtUnloop, xtI, xtJ                            XT
}

// VMOption configures a VM at construction time, the functional-options
// idiom the teacher's api.go/options.go both implement (here unified into
// one consistent set rather than the teacher's two overlapping copies).
type VMOption func(vm *VM) error

// New builds a VM, applying each option in order, then bootstrapping the
// dictionary's primitive layer.
func New(opts ...VMOption) (*VM, error) {
	vm := &VM{
		dict:  newDictionary(),
		mem:   newMemory(minDataSpace),
		ds:    newStack(minStackDepth),
		rs:    newStack(minStackDepth),
		in:    newInput(),
		out:   flushio.NewWriteFlusher(os.Stdout),
		files: newFileTable(),
		base:  10,
		handle: notFound,
		diag:  os.Stderr,
	}
	vm.registerPrimitives()
	vm.resolveControlXTs()
	for _, opt := range opts {
		if err := opt(vm); err != nil {
			return nil, err
		}
	}
	return vm, nil
}

func (vm *VM) resolveControlXTs() {
	must := func(name string) XT {
		xt := vm.dict.Find(name)
		if xt == notFound {
			panic("fifth: missing required primitive " + name)
		}
		return xt
	}
	vm.xtLit = must("(LIT)")
	vm.xtSLit = must("(SLIT)")
	vm.xtBranch = must("(BRANCH)")
	vm.xt0Branch = must("(0BRANCH)")
	vm.xtExit = must("EXIT")
	vm.xtDo = must("(DO)")
	vm.xtQDo = must("(?DO)")
	vm.xtLoop = must("(LOOP)")
	vm.xtPlusLoop = must("(+LOOP)")
	vm.xtDoesAction = must("(DOES>)")
	vm.xtUnloop = must("UNLOOP")
	vm.xtI = must("I")
	vm.xtJ = must("J")
}

// WithInput pushes r as the VM's initial (or next) input source.
func WithInput(name string, r io.Reader) VMOption {
	return func(vm *VM) error { return vm.in.PushReader(name, r) }
}

// WithOutput replaces the VM's primary output sink.
func WithOutput(w io.Writer) VMOption {
	return func(vm *VM) error {
		vm.out = flushio.NewWriteFlusher(w)
		return nil
	}
}

// WithMemLimit caps the data space size in bytes.
func WithMemLimit(limit uint) VMOption {
	return func(vm *VM) error {
		vm.mem = newMemory(limit)
		return nil
	}
}

// WithTrace installs a per-step trace sink, as the CLI's -trace flag does.
func WithTrace(fn func(format string, args ...interface{})) VMOption {
	return func(vm *VM) error {
		vm.trace = fn
		return nil
	}
}

// WithDiagnostics replaces the sink for the outer interpreter's one-line
// fault diagnostics (spec §7); pass nil to silence them entirely.
func WithDiagnostics(w io.Writer) VMOption {
	return func(vm *VM) error {
		vm.diag = w
		return nil
	}
}

// WithBatch marks the run as non-interactive (-e/file args rather than a
// stdin REPL), the distinction spec §7 draws for exit-code purposes: see
// HadFault.
func WithBatch(batch bool) VMOption {
	return func(vm *VM) error {
		vm.batch = batch
		return nil
	}
}

// WithArgs supplies the command-line arguments ARGC/ARGV expose to
// running Forth code.
func WithArgs(argv []string) VMOption {
	return func(vm *VM) error {
		vm.argv = argv
		return nil
	}
}

// Run drives the outer interpreter to completion (EOF on the whole input
// stack) or until ctx is cancelled. It isolates execution in its own
// goroutine via internal/panicerr.Recover, exactly as the teacher's
// (*VM).Run does, so a stray runtime.Goexit or an actual Go panic (a bug,
// not a Forth-level fault -- those are plain error returns, see
// errors.go) surfaces as a normal error instead of killing the caller's
// goroutine silently.
func (vm *VM) Run(ctx context.Context) error {
	vm.running = true
	defer func() { vm.running = false }()
	err := panicerr.Recover("fifth", func() error {
		return vm.outerLoop(ctx)
	})
	if ferr := vm.out.Flush(); err == nil {
		err = ferr
	}
	return err
}

// Close releases any resources opened over the VM's lifetime: files left
// open by OPEN-FILE/CREATE-FILE without a matching CLOSE-FILE.
func (vm *VM) Close() error {
	return vm.files.closeAll()
}

// HadFault reports whether a VMError was recovered from during a batch
// (-e/file) run, the signal cmd/fifth uses to set a non-zero process
// exit code per spec §7 without the run having been cut short early --
// an interactive REPL session recovers from the very same faults but
// doesn't force its eventual exit code this way.
func (vm *VM) HadFault() bool { return vm.batch && vm.hadFault }

// Depth reports the current data stack depth, mainly for tests.
func (vm *VM) Depth() int { return vm.ds.depth() }

// Push/Pop/Peek expose the data stack for tests and embedders.
func (vm *VM) Push(v Cell) error       { return vm.ds.push(v) }
func (vm *VM) Pop() (Cell, error)      { return vm.ds.pop() }
func (vm *VM) Peek(n int) (Cell, error) { return vm.ds.peek(n) }
