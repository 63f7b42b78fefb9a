package forth

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies the VM-level failures spec'd in §7.
type Kind int

const (
	// KindStackFault is a data or return stack under/overflow.
	KindStackFault Kind = iota
	// KindDataSpaceExhausted is raised when the data space cannot grow
	// further (hit MemLimit, or host allocation failed).
	KindDataSpaceExhausted
	// KindDictionaryFull is raised when the dictionary's entry table is
	// exhausted.
	KindDictionaryFull
	// KindNameTooLong is raised for names longer than 31 bytes.
	KindNameTooLong
	// KindUnknownWord is raised when a token is neither a dictionary entry
	// nor a parseable number.
	KindUnknownWord
	// KindCompileMismatch is raised for unbalanced control structures,
	// e.g. THEN with no IF, or ; outside of a definition.
	KindCompileMismatch
	// KindNumberFormat is raised by SET-BASE for a base outside 2..36; a
	// token that does not parse as a number in the current BASE (and is
	// not a word) is KindUnknownWord.
	KindNumberFormat
	// KindIOError wraps a host I/O failure (file, SYSTEM, stdin/stdout).
	KindIOError
	// KindAlignmentFault is raised on a misaligned cell access.
	KindAlignmentFault
	// KindAbort is an explicit ABORT / ABORT".
	KindAbort
)

func (k Kind) String() string {
	switch k {
	case KindStackFault:
		return "StackFault"
	case KindDataSpaceExhausted:
		return "DataSpaceExhausted"
	case KindDictionaryFull:
		return "DictionaryFull"
	case KindNameTooLong:
		return "NameTooLong"
	case KindUnknownWord:
		return "UnknownWord"
	case KindCompileMismatch:
		return "CompileMismatch"
	case KindNumberFormat:
		return "NumberFormat"
	case KindIOError:
		return "IOError"
	case KindAlignmentFault:
		return "AlignmentFault"
	case KindAbort:
		return "Abort"
	default:
		return "Unknown"
	}
}

// VMError is the single error type every primitive returns for a
// Forth-level fault. Word names the dictionary entry active when the fault was
// raised, if any.
type VMError struct {
	Kind   Kind
	Word   string
	Detail error
}

func (e *VMError) Error() string {
	if e.Word != "" {
		if e.Detail != nil {
			return fmt.Sprintf("%s: %v (%v)", e.Word, e.Kind, e.Detail)
		}
		return fmt.Sprintf("%s: %v", e.Word, e.Kind)
	}
	if e.Detail != nil {
		return fmt.Sprintf("%v: %v", e.Kind, e.Detail)
	}
	return e.Kind.String()
}

func (e *VMError) Unwrap() error { return e.Detail }

func fault(kind Kind) error { return &VMError{Kind: kind} }

func faultf(kind Kind, detail error) error { return &VMError{Kind: kind, Detail: detail} }

// wrapIOError attaches host I/O failure context the way
// db47h-ngaro/vm.Run wraps recovered errors with errors.Wrapf, giving the
// -trace diagnostics a useful %+v.
func wrapIOError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &VMError{Kind: KindIOError, Detail: errors.Wrapf(err, "io: %s", op)}
}

// IsAbort reports whether err (or anything it wraps) is a KindAbort
// VMError, the distinction the REPL needs between "user said ABORT" and
// "something is actually broken".
func IsAbort(err error) bool {
	ve, ok := AsVMError(err)
	return ok && ve.Kind == KindAbort
}

// AsVMError reports whether err (or anything it wraps) is a *VMError,
// returning it for inspection. Every VMError of any Kind is recoverable
// by the outer interpreter (spec §7); IsAbort above is just the one
// Kind callers historically singled out.
func AsVMError(err error) (*VMError, bool) {
	var ve *VMError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// ByeError signals an explicit BYE, carrying the process exit code to
// use. Unlike VMError it is never recovered by the outer interpreter --
// it unwinds Run entirely, the way an uncaught error would, but without
// printing a fault diagnostic since it was requested, not raised.
type ByeError struct{ Code Cell }

func (e *ByeError) Error() string { return fmt.Sprintf("BYE %d", e.Code) }

// AsBye reports whether err is an explicit BYE, returning its exit code.
func AsBye(err error) (Cell, bool) {
	var be *ByeError
	if errors.As(err, &be) {
		return be.Code, true
	}
	return 0, false
}
