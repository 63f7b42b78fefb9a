// Package forth implements a small, embeddable Forth engine: a threaded
// dictionary, a flat paged data space, and the interpret/compile outer
// loop that drives them, as well as the control-flow, numeric, and I/O
// word families an interactive Forth system needs.
//
// A VM is built with New and driven with (*VM).Run, which reads words
// from whatever sources have been pushed onto its input stack (see
// WithInput, REQUIRE, INCLUDE) until the stack runs dry or the supplied
// context is cancelled.
package forth
