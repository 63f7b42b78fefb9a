package forth

// DO-loop runtime state lives on the return stack as a (limit, index)
// pair, index on top, so I is simply "peek the top of the return stack"
// and J (the enclosing loop's index) is "peek two cells further down",
// the classical threaded-Forth encoding spec §9 calls for.

// doEnter implements (DO)/(?DO): pop start (the top) and then limit off
// the data stack and push them (limit, index) onto the return stack. ?DO additionally
// branches past the loop body (operand follows in the instruction stream,
// exactly like 0BRANCH) when start == limit, i.e. an empty range.
func (vm *VM) doEnter(isQDo bool) error {
	start, err := vm.ds.pop()
	if err != nil {
		return err
	}
	limit, err := vm.ds.pop()
	if err != nil {
		return err
	}
	if isQDo && start == limit {
		off, err := vm.mem.Fetch(uint(vm.ip))
		if err != nil {
			return err
		}
		vm.ip = off
		return nil
	}
	if err := vm.rs.push(limit); err != nil {
		return err
	}
	if err := vm.rs.push(start); err != nil {
		return err
	}
	if isQDo {
		// consume the branch-target operand ?DO compiled for the
		// empty-range case above, since we are taking the loop.
		vm.ip += cellSize
	}
	return nil
}

// doIterate implements (LOOP)/(+LOOP): bump the return stack's index by 1
// (LOOP) or by the popped data-stack increment (+LOOP), then either loop
// back (branch operand follows in the instruction stream) or fall through
// past the loop, discarding the (limit, index) pair.
func (vm *VM) doIterate(isPlusLoop bool) error {
	index, err := vm.rs.pop()
	if err != nil {
		return fault(KindCompileMismatch)
	}
	limit, err := vm.rs.pop()
	if err != nil {
		return fault(KindCompileMismatch)
	}

	step := Cell(1)
	if isPlusLoop {
		step, err = vm.ds.pop()
		if err != nil {
			return err
		}
	}

	prev := index
	next := index + step
	// crossed iterates when the boundary between prev and next brackets
	// limit, matching ANS Forth's signed +LOOP wraparound semantics
	// rather than a plain next>=limit test (which breaks for negative
	// steps or steps that overshoot the limit).
	crossed := (step >= 0 && prev < limit && next >= limit) ||
		(step < 0 && prev >= limit && next < limit) ||
		(!isPlusLoop && next >= limit)

	if crossed {
		vm.ip += cellSize // skip the branch-back operand
		return nil
	}

	if err := vm.rs.push(limit); err != nil {
		return err
	}
	if err := vm.rs.push(next); err != nil {
		return err
	}
	off, err := vm.mem.Fetch(uint(vm.ip))
	if err != nil {
		return err
	}
	vm.ip = off
	return nil
}

// doUnloop discards the active loop's (limit, index) pair without
// running its LOOP/+LOOP terminator, used by EXIT/LEAVE from inside a
// DO...LOOP.
func (vm *VM) doUnloop() error {
	if _, err := vm.rs.pop(); err != nil {
		return fault(KindCompileMismatch)
	}
	if _, err := vm.rs.pop(); err != nil {
		return fault(KindCompileMismatch)
	}
	return nil
}
