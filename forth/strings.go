package forth

import "github.com/fifth-forth/fifth/internal/runeio"

// registerStrings installs S" ." C" CHAR [CHAR], the string-literal and
// character-literal words spec §4.6 groups together since both compile
// fixed data that the inner interpreter's (SLIT) dispatch reads back out
// of the instruction stream.
func registerStrings(d *Dictionary) {
	d.addPrimitive(`S"`, true, func(vm *VM) error {
		s, err := vm.in.parse('"')
		if err != nil {
			return err
		}
		if !vm.state {
			addr := vm.mem.reserve(len(s))
			if err := vm.mem.StoreBytes(addr, []byte(s)); err != nil {
				return err
			}
			if err := vm.ds.push(Cell(addr)); err != nil {
				return err
			}
			return vm.ds.push(Cell(len(s)))
		}
		return vm.compileInlineString(s)
	})

	d.addPrimitive(`."`, true, func(vm *VM) error {
		s, err := vm.in.parse('"')
		if err != nil {
			return err
		}
		if !vm.state {
			return vm.emit(s)
		}
		if err := vm.compileInlineString(s); err != nil {
			return err
		}
		return vm.mem.Comma(Cell(vm.dict.Find("TYPE")))
	})

	// ( skips a comment up to the closing paren, across line ends if the
	// comment spans several lines.
	d.addPrimitive("(", true, func(vm *VM) error {
		for {
			for vm.in.toIn < len(vm.in.line) {
				c := vm.in.line[vm.in.toIn]
				vm.in.toIn++
				if c == ')' {
					return nil
				}
			}
			ok, err := vm.in.refill()
			if err != nil || !ok {
				return err
			}
		}
	})

	d.addPrimitive("CHAR", false, func(vm *VM) error {
		r, err := vm.readCharWord()
		if err != nil {
			return err
		}
		return vm.ds.push(Cell(r))
	})

	d.addPrimitive("[CHAR]", true, func(vm *VM) error {
		r, err := vm.readCharWord()
		if err != nil {
			return err
		}
		return vm.compileLiteral(Cell(r))
	})

	d.addPrimitive(`C"`, true, func(vm *VM) error {
		s, err := vm.in.parse('"')
		if err != nil {
			return err
		}
		if len(s) > 255 {
			s = s[:255]
		}
		if !vm.state {
			addr := vm.mem.reserve(1 + len(s))
			if err := vm.mem.CStore(addr, byte(len(s))); err != nil {
				return err
			}
			if err := vm.mem.StoreBytes(addr+1, []byte(s)); err != nil {
				return err
			}
			return vm.ds.push(Cell(addr))
		}
		return vm.compileCountedString(s)
	})

	d.addPrimitive("COUNT", false, func(vm *VM) error {
		addr, err := vm.ds.pop()
		if err != nil {
			return err
		}
		b, err := vm.mem.CFetch(uint(addr))
		if err != nil {
			return err
		}
		if err := vm.ds.push(addr + 1); err != nil {
			return err
		}
		return vm.ds.push(Cell(b))
	})
}

// readCharWord parses the next blank-delimited token as a character:
// a control mnemonic ("<ESC>"), caret escape ("^C"), or quoted literal
// ("'A'") via runeio.UnquoteRune, falling back to the token's first raw
// byte for a plain one-character word like CHAR A.
func (vm *VM) readCharWord() (rune, error) {
	w, ok, err := vm.in.word()
	if err != nil {
		return 0, err
	}
	if !ok || w == "" {
		return 0, fault(KindCompileMismatch)
	}
	if r, uerr := runeio.UnquoteRune(w); uerr == nil {
		return r, nil
	}
	return rune(w[0]), nil
}

// compileCountedString writes s as a length-prefixed counted string into
// data space at compile time, behind a (BRANCH) that jumps over it, and
// compiles a literal of its address: unlike S"'s (SLIT), which pushes the
// address and length of bytes it finds in the instruction stream, the
// compiled code only pushes the one address.
func (vm *VM) compileCountedString(s string) error {
	skip, err := vm.compileBranch(false)
	if err != nil {
		return err
	}
	addr := vm.mem.reserve(1 + len(s))
	if err := vm.mem.CStore(addr, byte(len(s))); err != nil {
		return err
	}
	if err := vm.mem.StoreBytes(addr+1, []byte(s)); err != nil {
		return err
	}
	vm.mem.Align()
	if err := vm.patchBranch(skip); err != nil {
		return err
	}
	return vm.compileLiteral(Cell(addr))
}

// compileInlineString compiles (SLIT) n <bytes...> into the definition
// under construction, consumed at run time by the inner interpreter's
// xtSLit case.
func (vm *VM) compileInlineString(s string) error {
	if err := vm.mem.Comma(Cell(vm.xtSLit)); err != nil {
		return err
	}
	if err := vm.mem.Comma(Cell(len(s))); err != nil {
		return err
	}
	addr := vm.mem.reserve(len(s))
	if err := vm.mem.StoreBytes(addr, []byte(s)); err != nil {
		return err
	}
	vm.mem.Align()
	return nil
}
