package forth

import (
	"os"
	"path/filepath"
)

const maxRequiredPaths = 256

// registerRequire installs REQUIRE and INCLUDE: REQUIRE loads a file's
// contents into the input stack at most once (tracked by canonicalized
// path), INCLUDE always loads it, matching the distinction ANS Forth's
// REQUIRED/INCLUDED words make. Grounded on the teacher's fileinput.Input
// push-a-new-reader pattern, generalized here into the true LIFO stack
// Input implements so a required file can itself REQUIRE another.
func (vm *VM) registerRequire() {
	d := vm.dict

	d.addPrimitive("INCLUDE", false, func(vm *VM) error {
		name, ok, err := vm.in.word()
		if err != nil {
			return err
		}
		if !ok || name == "" {
			return fault(KindCompileMismatch)
		}
		return vm.include(name)
	})

	d.addPrimitive("REQUIRE", false, func(vm *VM) error {
		name, ok, err := vm.in.word()
		if err != nil {
			return err
		}
		if !ok || name == "" {
			return fault(KindCompileMismatch)
		}
		canon, err := filepath.Abs(name)
		if err != nil {
			canon = name
		}
		if vm.required == nil {
			vm.required = make(map[string]bool, maxRequiredPaths)
		}
		if vm.required[canon] {
			return nil
		}
		if len(vm.required) >= maxRequiredPaths {
			return fault(KindIOError)
		}
		vm.required[canon] = true
		return vm.include(name)
	})
}

func (vm *VM) include(name string) error {
	f, err := os.Open(name)
	if err != nil {
		return wrapIOError("include "+name, err)
	}
	return vm.in.pushNested(name, f)
}
