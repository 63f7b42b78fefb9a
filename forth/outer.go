package forth

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// outerLoop is the top-level read-eval loop: pull one word at a time and
// either execute it (interpret state) or compile it (compile state),
// per spec §4.4/§9, continuing across REQUIRE/INCLUDE'd sources until
// the whole input stack reaches EOF.
func (vm *VM) outerLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		word, ok, err := vm.in.word()
		if err != nil {
			if resume, ferr := vm.handleFault(err); resume {
				continue
			} else if ferr != nil {
				return ferr
			}
		}
		if !ok {
			return nil
		}

		if err := vm.interpretWord(ctx, word); err != nil {
			if resume, ferr := vm.handleFault(err); resume {
				continue
			} else if ferr != nil {
				return ferr
			}
		}
	}
}

// handleFault classifies an error from the read/interpret path: a
// VMError of any Kind is reported and recovered from exactly as an
// explicit ABORT always was (spec §7's Propagation paragraph draws no
// distinction between Kinds), resuming the outer loop; anything else --
// an explicit BYE, context cancellation, a genuine Go-level bug -- is
// fatal and unwinds Run.
func (vm *VM) handleFault(err error) (resume bool, fatal error) {
	ve, ok := AsVMError(err)
	if !ok {
		return false, err
	}
	vm.hadFault = true
	vm.reportFault(ve)
	vm.resetAfterAbort()
	return true, nil
}

// reportFault prints the one-line stderr diagnostic spec §7 calls for:
// the source location active when the fault was raised, then the
// VMError itself (word name, kind, and host detail if any -- see
// VMError.Error).
func (vm *VM) reportFault(ve *VMError) {
	if vm.diag == nil {
		return
	}
	if name, line := vm.in.Location(); name != "" {
		fmt.Fprintf(vm.diag, "%s:%d: %v\n", name, line, ve)
		return
	}
	fmt.Fprintf(vm.diag, "%v\n", ve)
}

// interpretWord dispatches one token: a known word runs immediately if
// it's IMMEDIATE or the VM is interpreting, otherwise it is compiled into
// the definition under construction; an unknown token is parsed as a
// number (literal in interpret state, compiled as (LIT) in compile
// state), or faults with KindUnknownWord.
func (vm *VM) interpretWord(ctx context.Context, word string) error {
	if xt := vm.dict.Find(word); xt != notFound {
		e := vm.dict.entry(xt)
		if !vm.state || e.immediate() {
			return vm.execute(ctx, xt)
		}
		return vm.compileCall(xt)
	}

	n, ok := vm.parseNumber(word)
	if !ok {
		return &VMError{Kind: KindUnknownWord, Word: word}
	}
	if !vm.state {
		return vm.ds.push(n)
	}
	return vm.compileLiteral(n)
}

// resetAfterAbort clears the data/return stacks, rolls HERE back to its
// value at the start of any colon definition left unfinished, and pops
// every REQUIRE/INCLUDE-nested input source back to the top-level source
// the fault was raised under -- the way ABORT is specified to (spec
// §4.7, §8's HERE-rollback boundary law), without tearing down the
// dictionary or data space already built.
func (vm *VM) resetAfterAbort() {
	vm.ds.reset()
	vm.rs.reset()
	vm.state = false
	if vm.handle != notFound {
		vm.mem.SetHere(vm.hereAtColon)
	}
	vm.handle = notFound
	vm.in.UnwindToTerminal()
}

// parseNumber converts a token to a Cell using the current BASE, honoring
// the prefix overrides spec §4.2 calls for: $ (hex), # (decimal),
// % (binary), and 'c' (character literal, single byte c).
func (vm *VM) parseNumber(word string) (Cell, bool) {
	if word == "" {
		return 0, false
	}
	if len(word) == 3 && word[0] == '\'' && word[2] == '\'' {
		return Cell(word[1]), true
	}

	base := vm.base
	s := word
	neg := false
	if s[0] == '-' && len(s) > 1 {
		neg = true
		s = s[1:]
	}
	switch s[0] {
	case '$':
		base, s = 16, s[1:]
	case '#':
		base, s = 10, s[1:]
	case '%':
		base, s = 2, s[1:]
	}
	if s == "" {
		return 0, false
	}

	var v int64
	for _, r := range s {
		d, ok := digitValue(r)
		if !ok || d >= base {
			return 0, false
		}
		v = v*int64(base) + int64(d)
	}
	if neg {
		v = -v
	}
	return Cell(v), true
}

func digitValue(r rune) (int, bool) {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0'), true
	case r >= 'a' && r <= 'z':
		return int(r-'a') + 10, true
	case r >= 'A' && r <= 'Z':
		return int(r-'A') + 10, true
	}
	return 0, false
}

// emit writes s to the VM's current output sink.
func (vm *VM) emit(s string) error {
	_, err := io.WriteString(vm.out, s)
	return wrapIOError("write", err)
}

func (vm *VM) emitf(format string, args ...interface{}) error {
	return vm.emit(fmt.Sprintf(format, args...))
}

// formatStack renders the data stack bottom-to-top (ANS Forth convention
// for .S: oldest first) using the current BASE.
func (vm *VM) formatStack() string {
	var sb strings.Builder
	for i := vm.ds.depth() - 1; i >= 0; i-- {
		v, _ := vm.ds.peek(i)
		sb.WriteString(formatCell(v, vm.base))
		sb.WriteByte(' ')
	}
	return sb.String()
}
