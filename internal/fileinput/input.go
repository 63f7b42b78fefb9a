// Package fileinput provides the line/location bookkeeping forth/parser.go's
// Input stack uses to report where a fault or trace line came from; the
// original sequential-queue Input/ReadRune machinery this package used to
// carry was superseded by parser.go's own LIFO frame stack (REQUIRE/INCLUDE
// need push/pop of arbitrarily many open files, not a flat queue) and was
// removed rather than kept unwired -- see DESIGN.md.
package fileinput

import (
	"bytes"
	"fmt"
)

// Location names a line in an input file.
type Location struct {
	Name string
	Line int
}

// Line combines a Location along with a bytes.Buffer for handling it.
type Line struct {
	Location
	bytes.Buffer
}

func (loc Location) String() string { return fmt.Sprintf("%v:%v", loc.Name, loc.Line) }
func (il Line) String() string      { return fmt.Sprintf("%v %q", il.Location, il.Buffer.String()) }
