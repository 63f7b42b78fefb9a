package forth

import (
	"io"
	"strings"

	"github.com/fifth-forth/fifth/internal/fileinput"
	"github.com/fifth-forth/fifth/internal/runeio"
)

// maxOpenFiles bounds REQUIRE/INCLUDE nesting depth (spec §4.3).
const maxOpenFiles = 16

// frame is one level of the input stack: a single reader plus its line
// tracking, adapted from the teacher's fileinput.Input which flattened
// this into one struct backed by a flat Queue. REQUIRE/INCLUDE need true
// LIFO nesting (an included file can itself include another), so each
// pushed source gets its own frame instead of sharing one Queue entry.
type frame struct {
	rr   runeio.Reader
	name string
	scan fileinput.Line
	last fileinput.Line
	// topLevel marks a source supplied directly at VM construction
	// (a -e string or a file argument), as opposed to one pushed by
	// REQUIRE/INCLUDE; UnwindToTerminal uses this to know where a
	// fault's unwind should stop (spec §4.7, §8).
	topLevel bool
}

// Input is the parser's layered input: a stack of sources (console,
// REQUIRE'd/INCLUDE'd files), word buffer, and BASE-agnostic parse state.
// Grounded on the teacher's internal/fileinput.Input and runeio.Reader.
type Input struct {
	stack  []*frame
	toIn   int    // >IN equivalent: offset into line for word/parse
	line   []byte // current line buffer being parsed
	pushed rune
	havePushed bool
}

func newInput() *Input { return &Input{} }

// PushReader pushes a new top-level source onto the input stack (a -e
// string or file argument handed to the CLI), becoming the current
// source until it reaches EOF or is explicitly popped. Returns an error
// if doing so would exceed maxOpenFiles (spec §4.3's nesting ceiling,
// guarding against e.g. a file REQUIRE-ing itself forever).
func (in *Input) PushReader(name string, r io.Reader) error {
	return in.push(name, r, true)
}

// pushNested pushes a REQUIRE/INCLUDE-opened source; unlike PushReader
// it is eligible to be unwound by UnwindToTerminal on a fault, since it
// was not one of the sources the CLI itself queued up.
func (in *Input) pushNested(name string, r io.Reader) error {
	return in.push(name, r, false)
}

func (in *Input) push(name string, r io.Reader, topLevel bool) error {
	if len(in.stack) >= maxOpenFiles {
		return fault(KindIOError)
	}
	f := &frame{rr: runeio.NewReader(r), name: name, topLevel: topLevel}
	f.scan.Name, f.scan.Line = name, 1
	in.stack = append(in.stack, f)
	in.line = nil
	in.toIn = 0
	return nil
}

// UnwindToTerminal pops every REQUIRE/INCLUDE-nested source off the top
// of the stack, stopping at the current top-level source (or the empty
// stack), the way ABORT's recovery must discard included files without
// disturbing sibling top-level sources still queued underneath (spec
// §4.7, §8).
func (in *Input) UnwindToTerminal() {
	for {
		f := in.top()
		if f == nil || f.topLevel {
			return
		}
		in.popSource()
	}
}

// popSource discards the exhausted top frame and returns whether another
// source remains underneath it.
func (in *Input) popSource() bool {
	if len(in.stack) == 0 {
		return false
	}
	top := in.stack[len(in.stack)-1]
	if cl, ok := top.rr.(io.Closer); ok {
		cl.Close()
	}
	in.stack = in.stack[:len(in.stack)-1]
	in.line = nil
	in.toIn = 0
	return len(in.stack) > 0
}

// Depth reports how many sources are currently open.
func (in *Input) Depth() int { return len(in.stack) }

// top panics-free accessor to the active frame, or nil if the stack is empty.
func (in *Input) top() *frame {
	if len(in.stack) == 0 {
		return nil
	}
	return in.stack[len(in.stack)-1]
}

// readRune reads the next rune, popping exhausted sources and falling
// through to the one beneath until a rune is available or the whole stack
// is empty (EOF).
func (in *Input) readRune() (rune, error) {
	if in.havePushed {
		in.havePushed = false
		return in.pushed, nil
	}
	for {
		f := in.top()
		if f == nil {
			return 0, io.EOF
		}
		r, _, err := f.rr.ReadRune()
		if err == nil {
			if r == '\n' {
				f.last.Reset()
				f.last.Name, f.last.Line = f.scan.Name, f.scan.Line
				f.last.Write(f.scan.Bytes())
				f.scan.Reset()
				f.scan.Line++
			} else {
				f.scan.WriteRune(r)
			}
			return r, nil
		}
		if err == io.EOF {
			if !in.popSource() {
				return 0, io.EOF
			}
			continue
		}
		return 0, wrapIOError("read", err)
	}
}

func (in *Input) unreadRune(r rune) {
	in.pushed = r
	in.havePushed = true
}

// refill loads the next raw line from the active source into the parse
// buffer, per spec §4.3. Returns false at end of the whole input stack.
func (in *Input) refill() (bool, error) {
	var sb strings.Builder
	any := false
	depth := len(in.stack)
	for {
		r, err := in.readRune()
		if err == io.EOF {
			break
		}
		if err != nil {
			return false, err
		}
		if len(in.stack) < depth {
			// readRune fell through to the source beneath: a source that
			// ends without a newline still ends the line here.
			if any {
				in.unreadRune(r)
				break
			}
			depth = len(in.stack)
		}
		any = true
		if r == '\n' {
			break
		}
		sb.WriteRune(r)
	}
	if !any {
		return false, nil
	}
	in.line = []byte(sb.String())
	in.toIn = 0
	return true, nil
}

const whitespaceMax = 0x20

func isSpace(b byte) bool { return b <= whitespaceMax }

// word scans the next blank-delimited token from the parse buffer,
// refilling lines as needed, per spec §4.3. Returns ok=false only at the
// end of the entire input stack.
func (in *Input) word() (string, bool, error) {
	for {
		for in.toIn < len(in.line) && isSpace(in.line[in.toIn]) {
			in.toIn++
		}
		if in.toIn >= len(in.line) {
			ok, err := in.refill()
			if err != nil {
				return "", false, err
			}
			if !ok {
				return "", false, nil
			}
			continue
		}
		start := in.toIn
		for in.toIn < len(in.line) && !isSpace(in.line[in.toIn]) {
			in.toIn++
		}
		tok := string(in.line[start:in.toIn])
		if in.toIn < len(in.line) {
			in.toIn++ // consume the one delimiter that ended the token
		}
		return tok, true, nil
	}
}

// parse scans up to delim (or end of line) without skipping leading
// whitespace, as used by S" and .", per spec §4.3/§4.6.
func (in *Input) parse(delim byte) (string, error) {
	if in.toIn >= len(in.line) {
		ok, err := in.refill()
		if err != nil {
			return "", err
		}
		if !ok {
			return "", nil
		}
	}
	start := in.toIn
	for in.toIn < len(in.line) && in.line[in.toIn] != delim {
		in.toIn++
	}
	s := string(in.line[start:in.toIn])
	if in.toIn < len(in.line) {
		in.toIn++ // consume delim
	}
	return s, nil
}

// Location reports the current source name and line, for diagnostics.
func (in *Input) Location() (name string, line int) {
	f := in.top()
	if f == nil {
		return "", 0
	}
	return f.scan.Name, f.scan.Line
}
