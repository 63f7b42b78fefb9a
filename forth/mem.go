package forth

import (
	"encoding/binary"

	"github.com/fifth-forth/fifth/internal/mem"
)

// Cell is the VM's native integer/pointer width. A fixed 64-bit width is
// used (rather than bare Go int) so that image semantics do not shift
// across host architectures, the same documentation concern
// db47h-ngaro/vm.Cell calls out for its own explicit Cell type.
type Cell int64

// cellSize is the byte width of one Cell; cell loads/stores must be
// naturally aligned to this, per spec §3/§4.1 ("implementer's choice, but
// must be consistent and documented").
const cellSize = 8

// minDataSpace is the spec's "≥ 1 MiB" floor for the flat data space. The
// space itself pages in lazily (see internal/mem.Paged) so declaring a
// large minimum costs nothing until words actually allocate into it.
const minDataSpace = 1 << 20

// Memory is the flat, byte-addressable data space: mem[0..Size). HERE is a
// monotonic bump cursor; there is no deallocation, per spec §3.
type Memory struct {
	bytes mem.Bytes
	here  uint
}

func newMemory(limit uint) *Memory {
	m := &Memory{}
	m.bytes.PageSize = mem.DefaultPageSize
	m.bytes.Limit = limit
	return m
}

// clone returns an independent deep copy of m, used by SPAWN.
func (m *Memory) clone() *Memory {
	c := &Memory{here: m.here}
	c.bytes = *m.bytes.Clone()
	return c
}

// Here returns the next free byte offset.
func (m *Memory) Here() uint { return m.here }

// SetHere forces the HERE cursor, used to roll back a failed colon
// definition to the snapshot taken at ':' (spec §4.5 compile-failure
// rollback requirement).
func (m *Memory) SetHere(addr uint) { m.here = addr }

// Align rounds HERE up to the next cell boundary.
func (m *Memory) Align() {
	if r := m.here % cellSize; r != 0 {
		m.here += cellSize - r
	}
}

// Aligned rounds an arbitrary address up to the next cell boundary.
func Aligned(addr uint) uint {
	if r := addr % cellSize; r != 0 {
		addr += cellSize - r
	}
	return addr
}

// Allot bumps HERE by n bytes (n may be negative, as ANS Forth allows, to
// release space compiled since a known point).
func (m *Memory) Allot(n int) error {
	if n < 0 {
		if uint(-n) > m.here {
			return fault(KindDataSpaceExhausted)
		}
		m.here -= uint(-n)
		return nil
	}
	m.here += uint(n)
	return nil
}

// CFetch reads one byte at addr.
func (m *Memory) CFetch(addr uint) (byte, error) {
	v, err := m.bytes.Load(addr)
	if err != nil {
		return 0, faultf(KindDataSpaceExhausted, err)
	}
	return v, nil
}

// CStore writes one byte at addr.
func (m *Memory) CStore(addr uint, v byte) error {
	if err := m.bytes.Stor(addr, v); err != nil {
		return faultf(KindDataSpaceExhausted, err)
	}
	return nil
}

// Fetch reads one cell at addr; addr must be cell-aligned.
func (m *Memory) Fetch(addr uint) (Cell, error) {
	if addr%cellSize != 0 {
		return 0, fault(KindAlignmentFault)
	}
	buf := make([]byte, cellSize)
	if err := m.bytes.LoadInto(addr, buf); err != nil {
		return 0, faultf(KindDataSpaceExhausted, err)
	}
	return Cell(binary.LittleEndian.Uint64(buf)), nil
}

// Store writes one cell at addr; addr must be cell-aligned.
func (m *Memory) Store(addr uint, v Cell) error {
	if addr%cellSize != 0 {
		return fault(KindAlignmentFault)
	}
	var buf [cellSize]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	if err := m.bytes.Stor(addr, buf[:]...); err != nil {
		return faultf(KindDataSpaceExhausted, err)
	}
	return nil
}

// Comma compiles one cell at HERE, cell-aligning first, and advances HERE.
func (m *Memory) Comma(v Cell) error {
	m.Align()
	if err := m.Store(m.here, v); err != nil {
		return err
	}
	m.here += cellSize
	return nil
}

// CComma compiles one byte at HERE and advances HERE.
func (m *Memory) CComma(v byte) error {
	if err := m.CStore(m.here, v); err != nil {
		return err
	}
	m.here++
	return nil
}

// Move copies n bytes from src to dst; ranges may overlap.
func (m *Memory) Move(src, dst uint, n int) error {
	if n <= 0 {
		return nil
	}
	buf := make([]byte, n)
	if err := m.bytes.LoadInto(src, buf); err != nil {
		return faultf(KindDataSpaceExhausted, err)
	}
	if err := m.bytes.Stor(dst, buf...); err != nil {
		return faultf(KindDataSpaceExhausted, err)
	}
	return nil
}

// Fill stores n copies of b starting at addr.
func (m *Memory) Fill(addr uint, n int, b byte) error {
	if n <= 0 {
		return nil
	}
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = b
	}
	if err := m.bytes.Stor(addr, buf...); err != nil {
		return faultf(KindDataSpaceExhausted, err)
	}
	return nil
}

// LoadBytes reads n raw bytes starting at addr, e.g. for TYPE or counted
// strings; it never fails on unallocated pages (they read as zero).
func (m *Memory) LoadBytes(addr uint, n int) []byte {
	buf := make([]byte, n)
	_ = m.bytes.LoadInto(addr, buf)
	return buf
}

// StoreBytes writes raw bytes starting at addr, as used by SLURP-FILE and
// string literal compilation.
func (m *Memory) StoreBytes(addr uint, b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if err := m.bytes.Stor(addr, b...); err != nil {
		return faultf(KindDataSpaceExhausted, err)
	}
	return nil
}

// reserve bump-allocates n bytes at the current HERE and returns the
// starting address, without writing to it (CREATE's storage reservation,
// VARIABLE's one cell, SLURP-FILE's destination buffer).
func (m *Memory) reserve(n int) uint {
	addr := m.here
	m.here += uint(n)
	return addr
}
