package forth

import "strings"

// code selects one of the five closed handler kinds spec §3/§9 calls for.
// A tagged variant (rather than an open function-pointer table) since the
// set is closed and every call site can exhaustively switch on it.
type code int

const (
	codePrimitive code = iota
	codeDocol
	codeDovar
	codeDocon
	codeDodoes
)

const maxNameLen = 31

const (
	flagImmediate = 1 << 6
	flagHidden    = 1 << 7
	flagLenMask   = 0x3f
)

// XT is a stable execution token: an index into the VM's dictionary.
type XT int

// notFound is the sentinel XT returned by Find on a lookup miss.
const notFound XT = -1

// entry is one dictionary record (spec §3's link/flags/name/code/param).
type entry struct {
	link  XT // previous entry, or notFound for the root
	flags byte
	name  string
	kind  code
	param Cell // meaning depends on kind; see spec §3
	does  Cell // dodoes DOES> action offset, -1 if unused
	prim  func(vm *VM) error
}

func (e *entry) immediate() bool { return e.flags&flagImmediate != 0 }
func (e *entry) hidden() bool    { return e.flags&flagHidden != 0 }

// Dictionary is the ordered sequence of named entries. Entries are never
// destroyed (FORGET is out of scope, spec §1); redefinition shadows by
// prepending a new entry that the old XT remains independently valid.
type Dictionary struct {
	entries []entry
	last    XT
}

func newDictionary() *Dictionary {
	return &Dictionary{last: notFound}
}

// Find scans from most-recent, skipping hidden entries, case-insensitively
// (spec §4.2).
func (d *Dictionary) Find(name string) XT {
	folded := strings.ToLower(name)
	for xt := d.last; xt != notFound; xt = d.entries[xt].link {
		e := &d.entries[xt]
		if e.hidden() {
			continue
		}
		if strings.ToLower(e.name) == folded {
			return xt
		}
	}
	return notFound
}

// Latest returns the most recently created XT, or notFound if the
// dictionary is empty.
func (d *Dictionary) Latest() XT { return d.last }

// Entry returns a pointer to the entry for xt. Callers within the package
// only; the VM's public surface exposes XT-indexed helpers instead so the
// entry slice never needs to be exported.
func (d *Dictionary) entry(xt XT) *entry {
	return &d.entries[xt]
}

func (d *Dictionary) create(name string, kind code, param Cell) (XT, error) {
	if len(name) > maxNameLen {
		return notFound, fault(KindNameTooLong)
	}
	xt := XT(len(d.entries))
	d.entries = append(d.entries, entry{
		link:  d.last,
		flags: byte(len(name)) & flagLenMask,
		name:  name,
		kind:  kind,
		param: param,
		does:  -1,
	})
	d.last = xt
	return xt, nil
}

// addPrimitive registers a Go-backed primitive word.
func (d *Dictionary) addPrimitive(name string, immediate bool, fn func(vm *VM) error) XT {
	xt, err := d.create(name, codePrimitive, 0)
	if err != nil {
		// primitive names are all engine-chosen and known short; a
		// failure here is a programming error, not a runtime fault.
		panic(err)
	}
	d.entries[xt].prim = fn
	if immediate {
		d.MakeImmediate(xt)
	}
	return xt
}

// MakeImmediate flags the given entry IMMEDIATE.
func (d *Dictionary) MakeImmediate(xt XT) { d.entries[xt].flags |= flagImmediate }

// Hide flags the given entry HIDDEN, used while a colon definition is
// being compiled so that it cannot recursively resolve itself except via
// RECURSE (spec §3 invariant 4).
func (d *Dictionary) Hide(xt XT) { d.entries[xt].flags |= flagHidden }

// Reveal clears the HIDDEN flag, done by ';'.
func (d *Dictionary) Reveal(xt XT) { d.entries[xt].flags &^= flagHidden }

// clone returns an independent copy whose entries slice shares no backing
// array with d, used by SPAWN to fork a child VM that may go on to define
// new words without the parent observing them.
func (d *Dictionary) clone() *Dictionary {
	c := &Dictionary{last: d.last, entries: make([]entry, len(d.entries))}
	copy(c.entries, d.entries)
	return c
}

// MarkDoes attaches a DOES> action offset to the most recently CREATEd
// entry, switching its handler kind to dodoes (spec §9's "Cyclic
// references in the dictionary": a one-shot mutation, not a pointer
// cycle).
func (d *Dictionary) MarkDoes(xt XT, doesOffset Cell) {
	e := &d.entries[xt]
	e.kind = codeDodoes
	e.does = doesOffset
}
