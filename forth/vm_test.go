package forth_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/fifth-forth/fifth/forth"
	"github.com/stretchr/testify/require"
)

// run compiles and executes src against a fresh VM, returning its
// captured stdout and the final error from Run (nil on clean EOF).
func run(t *testing.T, src string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	vm, err := forth.New(
		forth.WithInput("<test>", strings.NewReader(src)),
		forth.WithOutput(&out),
	)
	require.NoError(t, err)
	defer vm.Close()
	runErr := vm.Run(context.Background())
	return out.String(), runErr
}

func TestStackWords(t *testing.T) {
	out, err := run(t, `1 2 3 .S`)
	require.NoError(t, err)
	require.Equal(t, "1 2 3 ", out)
}

func TestArithmetic(t *testing.T) {
	out, err := run(t, `5 3 - . 2 3 * . 7 2 MOD .`)
	require.NoError(t, err)
	require.Equal(t, "2 6 1 ", out)
}

func TestColonDefinition(t *testing.T) {
	out, err := run(t, `: SQUARE DUP * ; 5 SQUARE .`)
	require.NoError(t, err)
	require.Equal(t, "25 ", out)
}

func TestIfElseThen(t *testing.T) {
	out, err := run(t, `
		: SIGNUM DUP 0< IF DROP -1 ELSE 0> IF 1 ELSE 0 THEN THEN ;
		-5 SIGNUM . 0 SIGNUM . 5 SIGNUM .
	`)
	require.NoError(t, err)
	require.Equal(t, "-1 0 1 ", out)
}

func TestDoLoop(t *testing.T) {
	out, err := run(t, `: COUNT 5 0 DO I . LOOP ; COUNT`)
	require.NoError(t, err)
	require.Equal(t, "0 1 2 3 4 ", out)
}

func TestQDoEmptyRange(t *testing.T) {
	out, err := run(t, `: COUNT 0 0 ?DO I . LOOP ; COUNT ." done"`)
	require.NoError(t, err)
	require.Equal(t, "done", out)
}

func TestNestedLoopJ(t *testing.T) {
	out, err := run(t, `
		: PAIRS 2 0 DO 2 0 DO J . I . LOOP LOOP ;
		PAIRS
	`)
	require.NoError(t, err)
	require.Equal(t, "0 0 0 1 1 0 1 1 ", out)
}

func TestBeginUntil(t *testing.T) {
	out, err := run(t, `
		: COUNTDOWN BEGIN DUP . 1- DUP 0= UNTIL DROP ;
		3 COUNTDOWN
	`)
	require.NoError(t, err)
	require.Equal(t, "3 2 1 ", out)
}

func TestBeginWhileRepeat(t *testing.T) {
	out, err := run(t, `
		: UPTO ( n -- ) 0 BEGIN 2DUP > WHILE DUP . 1+ REPEAT 2DROP ;
		3 UPTO
	`)
	require.NoError(t, err)
	require.Equal(t, "0 1 2 ", out)
}

func TestCreateDoesDefinesArray(t *testing.T) {
	out, err := run(t, `
		: ARRAY CREATE CELLS ALLOT DOES> SWAP CELLS + ;
		3 ARRAY NUMS
		10 0 NUMS ! 20 1 NUMS ! 30 2 NUMS !
		1 NUMS @ .
	`)
	require.NoError(t, err)
	require.Equal(t, "20 ", out)
}

func TestVariableConstant(t *testing.T) {
	out, err := run(t, `
		VARIABLE COUNTER
		42 CONSTANT ANSWER
		ANSWER COUNTER !
		COUNTER @ .
	`)
	require.NoError(t, err)
	require.Equal(t, "42 ", out)
}

func TestCaseOfEndcase(t *testing.T) {
	out, err := run(t, `
		: NAME ( n -- ) CASE
			1 OF ." one" ENDOF
			2 OF ." two" ENDOF
			." other"
		ENDCASE ;
		1 NAME 2 NAME 3 NAME
	`)
	require.NoError(t, err)
	require.Equal(t, "onetwoother", out)
}

func TestStringLiteralAndType(t *testing.T) {
	out, err := run(t, `: GREET S" hello" TYPE ; GREET`)
	require.NoError(t, err)
	require.Equal(t, "hello", out)
}

func TestPicturedNumericOutput(t *testing.T) {
	out, err := run(t, `: SHOW <# #S #> TYPE ; 123 SHOW`)
	require.NoError(t, err)
	require.Equal(t, "123", out)
}

func TestNumberBasePrefixes(t *testing.T) {
	out, err := run(t, `$FF . %101 . #42 .`)
	require.NoError(t, err)
	require.Equal(t, "255 5 42 ", out)
}

func TestUnknownWordFaults(t *testing.T) {
	// A VMError of any Kind -- including an unknown word -- is
	// recovered from by the outer interpreter rather than ending the
	// run (spec §7): the REPL reports it on stderr and keeps going, so
	// words after the fault still execute and EOF still ends cleanly.
	var out, diag bytes.Buffer
	vm, err := forth.New(
		forth.WithInput("<test>", strings.NewReader(`NOSUCHWORD 1 2 . .`)),
		forth.WithOutput(&out),
		forth.WithDiagnostics(&diag),
	)
	require.NoError(t, err)
	defer vm.Close()
	require.NoError(t, vm.Run(context.Background()))
	require.Equal(t, "2 1 ", out.String())
	require.Contains(t, diag.String(), "NOSUCHWORD")
	require.Contains(t, diag.String(), forth.KindUnknownWord.String())
}

func TestHereRollsBackAfterFailedColon(t *testing.T) {
	// A fault raised while compiling a definition must roll HERE back
	// to its value at the ':' that opened it (spec §8), so the
	// abandoned partial definition doesn't leak into data space. The
	// fault also clears the data stack, so the value of HERE from before
	// the ':' is kept in a CONSTANT (which allots no data space).
	var out bytes.Buffer
	vm, err := forth.New(
		forth.WithInput("<test>", strings.NewReader(`HERE CONSTANT BEFORE : BAD NOSUCHWORD ; BEFORE HERE`)),
		forth.WithOutput(&out),
		forth.WithDiagnostics(nil),
	)
	require.NoError(t, err)
	defer vm.Close()
	require.NoError(t, vm.Run(context.Background()))
	after, err := vm.Pop()
	require.NoError(t, err)
	before, err := vm.Pop()
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestAbortResetsStack(t *testing.T) {
	// ABORT clears the stacks and returns control to the outer
	// interpreter rather than terminating the run, so a clean EOF
	// right after it still ends the program normally.
	out, err := run(t, `1 2 3 ABORT 4 5 .S`)
	require.NoError(t, err)
	require.Equal(t, "4 5 ", out)
}

func TestRecurse(t *testing.T) {
	out, err := run(t, `
		: FACT ( n -- n! ) DUP 1 > IF DUP 1- RECURSE * THEN ;
		5 FACT .
	`)
	require.NoError(t, err)
	require.Equal(t, "120 ", out)
}
