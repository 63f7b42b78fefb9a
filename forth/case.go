package forth

// caseSentinel marks the bottom of a CASE frame on the compile-time
// (data) stack; ENDCASE pops ENDOF patch addresses until it sees this,
// rather than threading an explicit count through OF/ENDOF.
const caseSentinel Cell = -(1 << 62)

// registerCase installs CASE/OF/ENDOF/ENDCASE.
func registerCase(d *Dictionary) {
	d.addPrimitive("CASE", true, func(vm *VM) error {
		return vm.ds.push(caseSentinel)
	})

	d.addPrimitive("OF", true, func(vm *VM) error {
		// duplicate the case selector, compare, and branch past this
		// arm's body (to the next OF/ENDCASE) when it doesn't match.
		if err := vm.mem.Comma(Cell(vm.dict.Find("OVER"))); err != nil {
			return err
		}
		if err := vm.mem.Comma(Cell(vm.dict.Find("="))); err != nil {
			return err
		}
		notAddr, err := vm.compileBranch(true)
		if err != nil {
			return err
		}
		if err := vm.mem.Comma(Cell(vm.dict.Find("DROP"))); err != nil {
			return err
		}
		return vm.ds.push(Cell(notAddr))
	})

	d.addPrimitive("ENDOF", true, func(vm *VM) error {
		notAddr, err := vm.ds.pop()
		if err != nil {
			return fault(KindCompileMismatch)
		}
		endAddr, err := vm.compileBranch(false)
		if err != nil {
			return err
		}
		if err := vm.patchBranch(uint(notAddr)); err != nil {
			return err
		}
		return vm.ds.push(Cell(endAddr))
	})

	d.addPrimitive("ENDCASE", true, func(vm *VM) error {
		if err := vm.mem.Comma(Cell(vm.dict.Find("DROP"))); err != nil {
			return err
		}
		for {
			v, err := vm.ds.pop()
			if err != nil {
				return fault(KindCompileMismatch)
			}
			if v == caseSentinel {
				return nil
			}
			if err := vm.patchBranch(uint(v)); err != nil {
				return err
			}
		}
	})
}
