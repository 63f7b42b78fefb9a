package forth

import "os"

// registerSystem installs BYE and the host-environment words (spec §6):
// ARGC/ARGV expose the command-line arguments passed to forth.WithArgs,
// GETENV reads a process environment variable, all three returning
// freshly-staged (addr, len) string pairs the way S" does at interpret
// time, since the host strings they read have no fixed address in the
// VM's own data space.
func (vm *VM) registerSystem() {
	d := vm.dict

	d.addPrimitive("BYE", false, func(vm *VM) error {
		code := Cell(0)
		if vm.ds.depth() > 0 {
			code, _ = vm.ds.pop()
		}
		return &ByeError{Code: code}
	})

	d.addPrimitive("ARGC", false, func(vm *VM) error {
		return vm.ds.push(Cell(len(vm.argv)))
	})
	d.addPrimitive("ARGV", false, func(vm *VM) error {
		n, err := vm.ds.pop()
		if err != nil {
			return err
		}
		if n < 0 || int(n) >= len(vm.argv) {
			return vm.pushHostString("")
		}
		return vm.pushHostString(vm.argv[n])
	})
	d.addPrimitive("GETENV", false, func(vm *VM) error {
		n, err := vm.ds.pop()
		if err != nil {
			return err
		}
		addr, err := vm.ds.pop()
		if err != nil {
			return err
		}
		name := string(vm.mem.LoadBytes(uint(addr), int(n)))
		return vm.pushHostString(os.Getenv(name))
	})
}

// pushHostString stages s into data space and pushes it as an
// (addr, len) pair, the same string representation S" pushes at
// interpret time, for strings that originate on the host (ARGV,
// GETENV) rather than from the source text being parsed.
func (vm *VM) pushHostString(s string) error {
	addr := vm.mem.reserve(len(s))
	if err := vm.mem.StoreBytes(addr, []byte(s)); err != nil {
		return err
	}
	if err := vm.ds.push(Cell(addr)); err != nil {
		return err
	}
	return vm.ds.push(Cell(len(s)))
}
