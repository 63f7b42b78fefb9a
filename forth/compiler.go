package forth

// compileCall compiles a call to xt into the definition under
// construction: for most words this is simply comma'ing the XT itself,
// since the inner interpreter treats a threaded cell's value as an XT
// uniformly whether it names a primitive, a colon word, or DOES> word.
func (vm *VM) compileCall(xt XT) error {
	return vm.mem.Comma(Cell(xt))
}

// compileLiteral compiles (LIT) n, the way numbers embed into a colon
// definition's thread.
func (vm *VM) compileLiteral(n Cell) error {
	if err := vm.mem.Comma(Cell(vm.xtLit)); err != nil {
		return err
	}
	return vm.mem.Comma(n)
}

// compileBranch compiles (BRANCH)/(0BRANCH) followed by a placeholder
// operand cell, returning the operand's address for later patching —
// control-flow words use the data stack itself as their compile-time
// stack (spec §9), since the VM is not executing while compiling, the
// same trick the teacher's third.go bootstrap source relies on.
func (vm *VM) compileBranch(conditional bool) (uint, error) {
	xt := vm.xtBranch
	if conditional {
		xt = vm.xt0Branch
	}
	if err := vm.mem.Comma(Cell(xt)); err != nil {
		return 0, err
	}
	addr := vm.mem.Here()
	if err := vm.mem.Comma(0); err != nil {
		return 0, err
	}
	return addr, nil
}

// patchBranch fills in the operand at addr with the current HERE (a
// forward reference resolved by THEN/ELSE/REPEAT/ENDOF).
func (vm *VM) patchBranch(addr uint) error {
	return vm.mem.Store(addr, Cell(vm.mem.Here()))
}

func (vm *VM) registerCompiler() {
	d := vm.dict

	d.addPrimitive(":", false, func(vm *VM) error {
		if vm.state {
			return fault(KindCompileMismatch)
		}
		name, ok, err := vm.in.word()
		if err != nil {
			return err
		}
		if !ok || name == "" {
			return fault(KindCompileMismatch)
		}
		vm.hereAtColon = vm.mem.Here()
		vm.mem.Align()
		xt, err := d.create(name, codeDocol, Cell(vm.mem.Here()))
		if err != nil {
			return err
		}
		d.Hide(xt)
		vm.handle = xt
		vm.state = true
		return nil
	})

	d.addPrimitive(";", true, func(vm *VM) error {
		if !vm.state || vm.handle == notFound {
			return fault(KindCompileMismatch)
		}
		if err := vm.mem.Comma(Cell(vm.xtExit)); err != nil {
			return err
		}
		d.Reveal(vm.handle)
		vm.handle = notFound
		vm.state = false
		return nil
	})

	d.addPrimitive("IMMEDIATE", false, func(vm *VM) error {
		if vm.handle == notFound {
			return fault(KindCompileMismatch)
		}
		d.MakeImmediate(vm.handle)
		return nil
	})

	d.addPrimitive("RECURSE", true, func(vm *VM) error {
		if vm.handle == notFound {
			return fault(KindCompileMismatch)
		}
		return vm.compileCall(vm.handle)
	})

	d.addPrimitive("CREATE", false, func(vm *VM) error {
		name, ok, err := vm.in.word()
		if err != nil {
			return err
		}
		if !ok || name == "" {
			return fault(KindCompileMismatch)
		}
		vm.mem.Align()
		_, err = d.create(name, codeDovar, Cell(vm.mem.Here()))
		return err
	})

	d.addPrimitive("VARIABLE", false, func(vm *VM) error {
		name, ok, err := vm.in.word()
		if err != nil {
			return err
		}
		if !ok || name == "" {
			return fault(KindCompileMismatch)
		}
		vm.mem.Align()
		addr := vm.mem.reserve(cellSize)
		if err := vm.mem.Store(addr, 0); err != nil {
			return err
		}
		_, err = d.create(name, codeDovar, Cell(addr))
		return err
	})

	d.addPrimitive("CONSTANT", false, func(vm *VM) error {
		name, ok, err := vm.in.word()
		if err != nil {
			return err
		}
		if !ok || name == "" {
			return fault(KindCompileMismatch)
		}
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		_, err = d.create(name, codeDocon, v)
		return err
	})

	d.addPrimitive("DOES>", true, func(vm *VM) error {
		if vm.handle == notFound {
			return fault(KindCompileMismatch)
		}
		// the colon definition in progress becomes the DOES> action
		// body for the most recently CREATEd word; (DOES>) itself
		// marks the latest CREATEd word at runtime each time the defining
		// word executes, the way the teacher's third.go bootstraps DOES>
		// entirely in Forth out of simpler primitives -- here it's a
		// native primitive instead since SPEC_FULL calls for the
		// control-flow compiler living in Go.
		if err := vm.mem.Comma(Cell(vm.xtDoesAction)); err != nil {
			return err
		}
		return vm.mem.Comma(Cell(vm.mem.Here()) + cellSize)
	})

	d.addPrimitive("(DOES>)", false, func(vm *VM) error {
		// only ever reached via execute() direct-call fallback; the
		// inner loop special-cases this xt to splice the action in.
		return fault(KindCompileMismatch)
	})

	d.addPrimitive("[", true, func(vm *VM) error {
		vm.state = false
		return nil
	})
	d.addPrimitive("]", false, func(vm *VM) error {
		vm.state = true
		return nil
	})

	d.addPrimitive("LITERAL", true, func(vm *VM) error {
		v, err := vm.ds.pop()
		if err != nil {
			return fault(KindCompileMismatch)
		}
		return vm.compileLiteral(v)
	})

	tickWord := func(vm *VM) (XT, error) {
		name, ok, err := vm.in.word()
		if err != nil {
			return notFound, err
		}
		if !ok || name == "" {
			return notFound, fault(KindCompileMismatch)
		}
		xt := d.Find(name)
		if xt == notFound {
			return notFound, &VMError{Kind: KindUnknownWord, Word: name}
		}
		return xt, nil
	}
	d.addPrimitive("'", false, func(vm *VM) error {
		xt, err := tickWord(vm)
		if err != nil {
			return err
		}
		return vm.ds.push(Cell(xt))
	})
	d.addPrimitive("[']", true, func(vm *VM) error {
		xt, err := tickWord(vm)
		if err != nil {
			return err
		}
		return vm.compileLiteral(Cell(xt))
	})

	// POSTPONE compiles a call to name's own xt rather than running
	// name now the way an IMMEDIATE word ordinarily would while
	// compiling; since our IMMEDIATE primitives branch on vm.state
	// themselves (S", .", ABORT", ...), deferring the call this way
	// reproduces their run-time behavior correctly for the common case
	// of postponing one of those rather than a control-flow word.
	d.addPrimitive("POSTPONE", true, func(vm *VM) error {
		xt, err := tickWord(vm)
		if err != nil {
			return err
		}
		return vm.compileCall(xt)
	})

	registerControlFlow(d)
}

// registerControlFlow installs the IF/ELSE/THEN, BEGIN/.../UNTIL/AGAIN,
// WHILE/REPEAT, DO/LOOP, and CASE families as native IMMEDIATE
// primitives, per SPEC_FULL's decision to keep the control-flow compiler
// in Go rather than bootstrapping it from a Forth source file the way the
// teacher's third.go does.
func registerControlFlow(d *Dictionary) {
	d.addPrimitive("IF", true, func(vm *VM) error {
		addr, err := vm.compileBranch(true)
		if err != nil {
			return err
		}
		return vm.ds.push(Cell(addr))
	})
	d.addPrimitive("ELSE", true, func(vm *VM) error {
		ifAddr, err := vm.ds.pop()
		if err != nil {
			return fault(KindCompileMismatch)
		}
		elseAddr, err := vm.compileBranch(false)
		if err != nil {
			return err
		}
		if err := vm.patchBranch(uint(ifAddr)); err != nil {
			return err
		}
		return vm.ds.push(Cell(elseAddr))
	})
	d.addPrimitive("THEN", true, func(vm *VM) error {
		addr, err := vm.ds.pop()
		if err != nil {
			return fault(KindCompileMismatch)
		}
		return vm.patchBranch(uint(addr))
	})

	d.addPrimitive("BEGIN", true, func(vm *VM) error {
		return vm.ds.push(Cell(vm.mem.Here()))
	})
	d.addPrimitive("UNTIL", true, func(vm *VM) error {
		dest, err := vm.ds.pop()
		if err != nil {
			return fault(KindCompileMismatch)
		}
		if err := vm.mem.Comma(Cell(vm.xt0Branch)); err != nil {
			return err
		}
		return vm.mem.Comma(dest)
	})
	d.addPrimitive("AGAIN", true, func(vm *VM) error {
		dest, err := vm.ds.pop()
		if err != nil {
			return fault(KindCompileMismatch)
		}
		if err := vm.mem.Comma(Cell(vm.xtBranch)); err != nil {
			return err
		}
		return vm.mem.Comma(dest)
	})
	d.addPrimitive("WHILE", true, func(vm *VM) error {
		dest, err := vm.ds.pop()
		if err != nil {
			return fault(KindCompileMismatch)
		}
		addr, err := vm.compileBranch(true)
		if err != nil {
			return err
		}
		if err := vm.ds.push(Cell(addr)); err != nil {
			return err
		}
		return vm.ds.push(dest)
	})
	d.addPrimitive("REPEAT", true, func(vm *VM) error {
		dest, err := vm.ds.pop()
		if err != nil {
			return fault(KindCompileMismatch)
		}
		whileAddr, err := vm.ds.pop()
		if err != nil {
			return fault(KindCompileMismatch)
		}
		if err := vm.mem.Comma(Cell(vm.xtBranch)); err != nil {
			return err
		}
		if err := vm.mem.Comma(dest); err != nil {
			return err
		}
		return vm.patchBranch(uint(whileAddr))
	})

	d.addPrimitive("DO", true, func(vm *VM) error {
		if err := vm.mem.Comma(Cell(vm.xtDo)); err != nil {
			return err
		}
		return vm.ds.push(Cell(vm.mem.Here()))
	})
	d.addPrimitive("?DO", true, func(vm *VM) error {
		if err := vm.mem.Comma(Cell(vm.xtQDo)); err != nil {
			return err
		}
		addr := vm.mem.Here()
		if err := vm.mem.Comma(0); err != nil {
			return err
		}
		if err := vm.ds.push(Cell(-int64(addr) - 1)); err != nil {
			return err
		}
		return vm.ds.push(Cell(vm.mem.Here()))
	})
	compileLoopEnd := func(vm *VM, xt XT) error {
		bodyAddr, err := vm.ds.pop()
		if err != nil {
			return fault(KindCompileMismatch)
		}
		if err := vm.mem.Comma(Cell(xt)); err != nil {
			return err
		}
		if err := vm.mem.Comma(bodyAddr); err != nil {
			return err
		}
		// patch any ?DO empty-range branch and LEAVE branches that
		// target "just past the loop", which is here.
		for {
			v, err := vm.ds.peek(0)
			if err != nil || v == 0 {
				break
			}
			// a pending leave/qdo patch address was tagged by
			// pushing it negated-minus-one so it can't be confused
			// with a live bodyAddr already consumed above.
			if v >= 0 {
				break
			}
			addr, _ := vm.ds.pop()
			if err := vm.patchBranch(uint(-addr - 1)); err != nil {
				return err
			}
		}
		return nil
	}
	d.addPrimitive("LOOP", true, func(vm *VM) error {
		return compileLoopEnd(vm, vm.xtLoop)
	})
	d.addPrimitive("+LOOP", true, func(vm *VM) error {
		return compileLoopEnd(vm, vm.xtPlusLoop)
	})
	d.addPrimitive("LEAVE", true, func(vm *VM) error {
		if err := vm.mem.Comma(Cell(vm.xtUnloop)); err != nil {
			return err
		}
		if err := vm.mem.Comma(Cell(vm.xtBranch)); err != nil {
			return err
		}
		addr := vm.mem.Here()
		if err := vm.mem.Comma(0); err != nil {
			return err
		}
		// tag this pending patch so the LOOP/+LOOP compiler above can
		// find it underneath the live bodyAddr.
		return vm.ds.push(Cell(-int64(addr) - 1))
	})

	d.addPrimitive("UNLOOP", false, func(vm *VM) error { return vm.doUnloop() })
	d.addPrimitive("I", false, func(vm *VM) error {
		idx, err := vm.rs.peek(0)
		if err != nil {
			return fault(KindCompileMismatch)
		}
		return vm.ds.push(idx)
	})
	d.addPrimitive("J", false, func(vm *VM) error {
		idx, err := vm.rs.peek(2)
		if err != nil {
			return fault(KindCompileMismatch)
		}
		return vm.ds.push(idx)
	})

	registerCase(d)
	registerStrings(d)
}
