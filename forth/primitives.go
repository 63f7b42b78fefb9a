package forth

// registerPrimitives installs every native word: the control-opcode
// family the inner interpreter dispatches on directly ((LIT), (SLIT),
// (BRANCH), (0BRANCH), EXIT, (DO), (?DO), (LOOP), (+LOOP)), core
// stack/arithmetic/memory words (spec §6), and the compiler/numeric/IO
// word families defined in their own files. Order matters only in that
// the control-opcode primitives must exist before resolveControlXTs runs.
func (vm *VM) registerPrimitives() {
	d := vm.dict

	d.addPrimitive("(LIT)", false, compileOnly)
	d.addPrimitive("(SLIT)", false, compileOnly)
	d.addPrimitive("(BRANCH)", false, compileOnly)
	d.addPrimitive("(0BRANCH)", false, compileOnly)
	d.addPrimitive("(DO)", false, compileOnly)
	d.addPrimitive("(?DO)", false, compileOnly)
	d.addPrimitive("(LOOP)", false, compileOnly)
	d.addPrimitive("(+LOOP)", false, compileOnly)

	d.addPrimitive("EXIT", false, func(vm *VM) error {
		// only reached via direct execute() on a bare interpreted
		// EXIT, which has no caller frame to unwind into.
		return fault(KindCompileMismatch)
	})

	vm.registerStackWords()
	vm.registerArithWords()
	vm.registerMemWords()
	vm.registerCompiler()
	vm.registerNumeric()
	vm.registerIO()
	vm.registerSpawn()
	vm.registerRequire()
	vm.registerSystem()
}

// compileOnly is the shared primitive body for the opcode words the
// inner interpreter intercepts by XT before ever calling this function;
// it only runs if one is mistakenly interpreted directly.
func compileOnly(vm *VM) error { return fault(KindCompileMismatch) }

func (vm *VM) registerStackWords() {
	d := vm.dict

	d.addPrimitive("DUP", false, func(vm *VM) error {
		v, err := vm.ds.peek(0)
		if err != nil {
			return err
		}
		return vm.ds.push(v)
	})
	d.addPrimitive("DROP", false, func(vm *VM) error {
		_, err := vm.ds.pop()
		return err
	})
	d.addPrimitive("SWAP", false, func(vm *VM) error {
		a, err := vm.ds.pop()
		if err != nil {
			return err
		}
		b, err := vm.ds.pop()
		if err != nil {
			return err
		}
		if err := vm.ds.push(a); err != nil {
			return err
		}
		return vm.ds.push(b)
	})
	d.addPrimitive("OVER", false, func(vm *VM) error {
		v, err := vm.ds.peek(1)
		if err != nil {
			return err
		}
		return vm.ds.push(v)
	})
	d.addPrimitive("ROT", false, func(vm *VM) error {
		c, err := vm.ds.pop()
		if err != nil {
			return err
		}
		b, err := vm.ds.pop()
		if err != nil {
			return err
		}
		a, err := vm.ds.pop()
		if err != nil {
			return err
		}
		if err := vm.ds.push(b); err != nil {
			return err
		}
		if err := vm.ds.push(c); err != nil {
			return err
		}
		return vm.ds.push(a)
	})
	d.addPrimitive("-ROT", false, func(vm *VM) error {
		c, err := vm.ds.pop()
		if err != nil {
			return err
		}
		b, err := vm.ds.pop()
		if err != nil {
			return err
		}
		a, err := vm.ds.pop()
		if err != nil {
			return err
		}
		if err := vm.ds.push(c); err != nil {
			return err
		}
		if err := vm.ds.push(a); err != nil {
			return err
		}
		return vm.ds.push(b)
	})
	d.addPrimitive("NIP", false, func(vm *VM) error {
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		if _, err := vm.ds.pop(); err != nil {
			return err
		}
		return vm.ds.push(v)
	})
	d.addPrimitive("TUCK", false, func(vm *VM) error {
		b, err := vm.ds.pop()
		if err != nil {
			return err
		}
		a, err := vm.ds.pop()
		if err != nil {
			return err
		}
		if err := vm.ds.push(b); err != nil {
			return err
		}
		if err := vm.ds.push(a); err != nil {
			return err
		}
		return vm.ds.push(b)
	})
	d.addPrimitive("2DROP", false, func(vm *VM) error {
		if _, err := vm.ds.pop(); err != nil {
			return err
		}
		_, err := vm.ds.pop()
		return err
	})
	d.addPrimitive("2DUP", false, func(vm *VM) error {
		b, err := vm.ds.peek(0)
		if err != nil {
			return err
		}
		a, err := vm.ds.peek(1)
		if err != nil {
			return err
		}
		if err := vm.ds.push(a); err != nil {
			return err
		}
		return vm.ds.push(b)
	})
	d.addPrimitive("2OVER", false, func(vm *VM) error {
		a, err := vm.ds.peek(3)
		if err != nil {
			return err
		}
		b, err := vm.ds.peek(2)
		if err != nil {
			return err
		}
		if err := vm.ds.push(a); err != nil {
			return err
		}
		return vm.ds.push(b)
	})
	d.addPrimitive("2SWAP", false, func(vm *VM) error {
		d_, err := vm.ds.pop()
		if err != nil {
			return err
		}
		c, err := vm.ds.pop()
		if err != nil {
			return err
		}
		b, err := vm.ds.pop()
		if err != nil {
			return err
		}
		a, err := vm.ds.pop()
		if err != nil {
			return err
		}
		for _, v := range []Cell{c, d_, a, b} {
			if err := vm.ds.push(v); err != nil {
				return err
			}
		}
		return nil
	})
	d.addPrimitive("?DUP", false, func(vm *VM) error {
		v, err := vm.ds.peek(0)
		if err != nil {
			return err
		}
		if v == 0 {
			return nil
		}
		return vm.ds.push(v)
	})
	d.addPrimitive("DEPTH", false, func(vm *VM) error {
		return vm.ds.push(Cell(vm.ds.depth()))
	})
	d.addPrimitive("PICK", false, func(vm *VM) error {
		n, err := vm.ds.pop()
		if err != nil {
			return err
		}
		v, err := vm.ds.peek(int(n))
		if err != nil {
			return err
		}
		return vm.ds.push(v)
	})
	d.addPrimitive(">R", false, func(vm *VM) error {
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		return vm.rs.push(v)
	})
	d.addPrimitive("R>", false, func(vm *VM) error {
		v, err := vm.rs.pop()
		if err != nil {
			return fault(KindCompileMismatch)
		}
		return vm.ds.push(v)
	})
	d.addPrimitive("R@", false, func(vm *VM) error {
		v, err := vm.rs.peek(0)
		if err != nil {
			return fault(KindCompileMismatch)
		}
		return vm.ds.push(v)
	})
	d.addPrimitive("2>R", false, func(vm *VM) error {
		b, err := vm.ds.pop()
		if err != nil {
			return err
		}
		a, err := vm.ds.pop()
		if err != nil {
			return err
		}
		if err := vm.rs.push(a); err != nil {
			return err
		}
		return vm.rs.push(b)
	})
	d.addPrimitive("2R>", false, func(vm *VM) error {
		b, err := vm.rs.pop()
		if err != nil {
			return fault(KindCompileMismatch)
		}
		a, err := vm.rs.pop()
		if err != nil {
			return fault(KindCompileMismatch)
		}
		if err := vm.ds.push(a); err != nil {
			return err
		}
		return vm.ds.push(b)
	})
	d.addPrimitive("2R@", false, func(vm *VM) error {
		b, err := vm.rs.peek(0)
		if err != nil {
			return fault(KindCompileMismatch)
		}
		a, err := vm.rs.peek(1)
		if err != nil {
			return fault(KindCompileMismatch)
		}
		if err := vm.ds.push(a); err != nil {
			return err
		}
		return vm.ds.push(b)
	})
}

func (vm *VM) registerArithWords() {
	d := vm.dict

	binop := func(name string, fn func(a, b Cell) (Cell, error)) {
		d.addPrimitive(name, false, func(vm *VM) error {
			b, err := vm.ds.pop()
			if err != nil {
				return err
			}
			a, err := vm.ds.pop()
			if err != nil {
				return err
			}
			v, err := fn(a, b)
			if err != nil {
				return err
			}
			return vm.ds.push(v)
		})
	}

	binop("+", func(a, b Cell) (Cell, error) { return a + b, nil })
	binop("-", func(a, b Cell) (Cell, error) { return a - b, nil })
	binop("*", func(a, b Cell) (Cell, error) { return a * b, nil })
	binop("/", func(a, b Cell) (Cell, error) {
		if b == 0 {
			return 0, fault(KindDataSpaceExhausted)
		}
		return a / b, nil
	})
	binop("MOD", func(a, b Cell) (Cell, error) {
		if b == 0 {
			return 0, fault(KindDataSpaceExhausted)
		}
		return a % b, nil
	})
	d.addPrimitive("/MOD", false, func(vm *VM) error {
		b, err := vm.ds.pop()
		if err != nil {
			return err
		}
		a, err := vm.ds.pop()
		if err != nil {
			return err
		}
		if b == 0 {
			return fault(KindDataSpaceExhausted)
		}
		if err := vm.ds.push(a % b); err != nil {
			return err
		}
		return vm.ds.push(a / b)
	})
	binop("AND", func(a, b Cell) (Cell, error) { return a & b, nil })
	binop("OR", func(a, b Cell) (Cell, error) { return a | b, nil })
	binop("XOR", func(a, b Cell) (Cell, error) { return a ^ b, nil })
	binop("LSHIFT", func(a, b Cell) (Cell, error) { return a << uint(b), nil })
	binop("RSHIFT", func(a, b Cell) (Cell, error) { return Cell(uint64(a) >> uint(b)), nil })

	bincmp := func(name string, fn func(a, b Cell) bool) {
		d.addPrimitive(name, false, func(vm *VM) error {
			b, err := vm.ds.pop()
			if err != nil {
				return err
			}
			a, err := vm.ds.pop()
			if err != nil {
				return err
			}
			return vm.ds.push(boolCell(fn(a, b)))
		})
	}
	bincmp("=", func(a, b Cell) bool { return a == b })
	bincmp("<>", func(a, b Cell) bool { return a != b })
	bincmp("<", func(a, b Cell) bool { return a < b })
	bincmp(">", func(a, b Cell) bool { return a > b })
	bincmp("<=", func(a, b Cell) bool { return a <= b })
	bincmp(">=", func(a, b Cell) bool { return a >= b })
	bincmp("U<", func(a, b Cell) bool { return uint64(a) < uint64(b) })
	bincmp("U>", func(a, b Cell) bool { return uint64(a) > uint64(b) })

	d.addPrimitive("NEGATE", false, func(vm *VM) error {
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		return vm.ds.push(-v)
	})
	d.addPrimitive("INVERT", false, func(vm *VM) error {
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		return vm.ds.push(^v)
	})
	d.addPrimitive("ABS", false, func(vm *VM) error {
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		if v < 0 {
			v = -v
		}
		return vm.ds.push(v)
	})
	d.addPrimitive("0=", false, func(vm *VM) error {
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		return vm.ds.push(boolCell(v == 0))
	})
	d.addPrimitive("0<", false, func(vm *VM) error {
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		return vm.ds.push(boolCell(v < 0))
	})
	d.addPrimitive("0>", false, func(vm *VM) error {
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		return vm.ds.push(boolCell(v > 0))
	})
	d.addPrimitive("1+", false, func(vm *VM) error {
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		return vm.ds.push(v + 1)
	})
	d.addPrimitive("1-", false, func(vm *VM) error {
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		return vm.ds.push(v - 1)
	})
}

func boolCell(b bool) Cell {
	if b {
		return -1 // ANS Forth TRUE is all-bits-set
	}
	return 0
}

func (vm *VM) registerMemWords() {
	d := vm.dict

	d.addPrimitive("@", false, func(vm *VM) error {
		addr, err := vm.ds.pop()
		if err != nil {
			return err
		}
		v, err := vm.mem.Fetch(uint(addr))
		if err != nil {
			return err
		}
		return vm.ds.push(v)
	})
	d.addPrimitive("!", false, func(vm *VM) error {
		addr, err := vm.ds.pop()
		if err != nil {
			return err
		}
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		return vm.mem.Store(uint(addr), v)
	})
	d.addPrimitive("C@", false, func(vm *VM) error {
		addr, err := vm.ds.pop()
		if err != nil {
			return err
		}
		v, err := vm.mem.CFetch(uint(addr))
		if err != nil {
			return err
		}
		return vm.ds.push(Cell(v))
	})
	d.addPrimitive("C!", false, func(vm *VM) error {
		addr, err := vm.ds.pop()
		if err != nil {
			return err
		}
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		return vm.mem.CStore(uint(addr), byte(v))
	})
	d.addPrimitive("+!", false, func(vm *VM) error {
		addr, err := vm.ds.pop()
		if err != nil {
			return err
		}
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		cur, err := vm.mem.Fetch(uint(addr))
		if err != nil {
			return err
		}
		return vm.mem.Store(uint(addr), cur+v)
	})
	d.addPrimitive("HERE", false, func(vm *VM) error {
		return vm.ds.push(Cell(vm.mem.Here()))
	})
	d.addPrimitive("ALLOT", false, func(vm *VM) error {
		n, err := vm.ds.pop()
		if err != nil {
			return err
		}
		return vm.mem.Allot(int(n))
	})
	d.addPrimitive(",", false, func(vm *VM) error {
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		return vm.mem.Comma(v)
	})
	d.addPrimitive("C,", false, func(vm *VM) error {
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		return vm.mem.CComma(byte(v))
	})
	d.addPrimitive("ALIGN", false, func(vm *VM) error {
		vm.mem.Align()
		return nil
	})
	d.addPrimitive("ALIGNED", false, func(vm *VM) error {
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		return vm.ds.push(Cell(Aligned(uint(v))))
	})
	d.addPrimitive("CELLS", false, func(vm *VM) error {
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		return vm.ds.push(v * cellSize)
	})
	d.addPrimitive("CELL+", false, func(vm *VM) error {
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		return vm.ds.push(v + cellSize)
	})
	d.addPrimitive("MOVE", false, func(vm *VM) error {
		n, err := vm.ds.pop()
		if err != nil {
			return err
		}
		dst, err := vm.ds.pop()
		if err != nil {
			return err
		}
		src, err := vm.ds.pop()
		if err != nil {
			return err
		}
		return vm.mem.Move(uint(src), uint(dst), int(n))
	})
	d.addPrimitive("FILL", false, func(vm *VM) error {
		b, err := vm.ds.pop()
		if err != nil {
			return err
		}
		n, err := vm.ds.pop()
		if err != nil {
			return err
		}
		addr, err := vm.ds.pop()
		if err != nil {
			return err
		}
		return vm.mem.Fill(uint(addr), int(n), byte(b))
	})
	d.addPrimitive("ERASE", false, func(vm *VM) error {
		n, err := vm.ds.pop()
		if err != nil {
			return err
		}
		addr, err := vm.ds.pop()
		if err != nil {
			return err
		}
		return vm.mem.Fill(uint(addr), int(n), 0)
	})

	d.addPrimitive("ABORT", false, func(vm *VM) error { return fault(KindAbort) })
	d.addPrimitive(`ABORT"`, true, func(vm *VM) error {
		s, err := vm.in.parse('"')
		if err != nil {
			return err
		}
		if !vm.state {
			flag, err := vm.ds.pop()
			if err != nil {
				return err
			}
			if flag != 0 {
				return &VMError{Kind: KindAbort, Detail: errString(s)}
			}
			return nil
		}
		if err := vm.compileInlineString(s); err != nil {
			return err
		}
		return vm.mem.Comma(Cell(vm.dict.Find("(ABORT\")")))
	})
	d.addPrimitive(`(ABORT")`, false, func(vm *VM) error {
		n, err := vm.ds.pop()
		if err != nil {
			return err
		}
		addr, err := vm.ds.pop()
		if err != nil {
			return err
		}
		flag, err := vm.ds.pop()
		if err != nil {
			return err
		}
		if flag == 0 {
			return nil
		}
		s := string(vm.mem.LoadBytes(uint(addr), int(n)))
		return &VMError{Kind: KindAbort, Detail: errString(s)}
	})
}

type errString string

func (e errString) Error() string { return string(e) }
