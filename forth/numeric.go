package forth

import "strconv"

// formatCell renders v in the given base (2-36), matching the digit
// alphabet parseNumber accepts (0-9 then a-z).
func formatCell(v Cell, base int) string {
	return strconv.FormatInt(int64(v), base)
}

func (vm *VM) registerNumeric() {
	vm.dict.addPrimitive("BASE", false, func(vm *VM) error {
		return vm.ds.push(Cell(vm.base))
	})
	vm.dict.addPrimitive("SET-BASE", false, func(vm *VM) error {
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		if v < 2 || v > 36 {
			return fault(KindNumberFormat)
		}
		vm.base = int(v)
		return nil
	})
	vm.dict.addPrimitive("DECIMAL", false, func(vm *VM) error {
		vm.base = 10
		return nil
	})
	vm.dict.addPrimitive("HEX", false, func(vm *VM) error {
		vm.base = 16
		return nil
	})

	vm.dict.addPrimitive("<#", false, func(vm *VM) error {
		vm.pic.start()
		return nil
	})
	vm.dict.addPrimitive("#", false, func(vm *VM) error {
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		digit := byte(v % Cell(vm.base))
		rest := v / Cell(vm.base)
		vm.pic.holdByte(digitChar(digit))
		return vm.ds.push(rest)
	})
	vm.dict.addPrimitive("#S", false, func(vm *VM) error {
		for {
			v, err := vm.ds.pop()
			if err != nil {
				return err
			}
			digit := byte(v % Cell(vm.base))
			rest := v / Cell(vm.base)
			vm.pic.holdByte(digitChar(digit))
			if err := vm.ds.push(rest); err != nil {
				return err
			}
			if rest == 0 {
				return nil
			}
		}
	})
	vm.dict.addPrimitive("HOLD", false, func(vm *VM) error {
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		vm.pic.holdByte(byte(v))
		return nil
	})
	vm.dict.addPrimitive("SIGN", false, func(vm *VM) error {
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		if v < 0 {
			vm.pic.holdByte('-')
		}
		return nil
	})
	vm.dict.addPrimitive("#>", false, func(vm *VM) error {
		if _, err := vm.ds.pop(); err != nil {
			return err
		}
		b := vm.pic.bytes()
		addr := vm.mem.reserve(len(b))
		if err := vm.mem.StoreBytes(addr, b); err != nil {
			return err
		}
		if err := vm.ds.push(Cell(addr)); err != nil {
			return err
		}
		return vm.ds.push(Cell(len(b)))
	})

	vm.dict.addPrimitive(".", false, func(vm *VM) error {
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		return vm.emitf("%s ", formatCell(v, vm.base))
	})
	vm.dict.addPrimitive("U.", false, func(vm *VM) error {
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		return vm.emitf("%s ", strconv.FormatUint(uint64(v), vm.base))
	})
	vm.dict.addPrimitive(".S", false, func(vm *VM) error {
		return vm.emit(vm.formatStack())
	})
}

func digitChar(d byte) byte {
	if d < 10 {
		return '0' + d
	}
	return 'a' + (d - 10)
}
