package forth

import "context"

// returnSentinel is pushed onto the return stack ahead of the outermost
// thread so EXIT knows when to stop driving the loop, rather than popping
// into unrelated caller state. Real code addresses are always >= 0 since
// they index into Memory, so -1 can never collide with one.
const returnSentinel Cell = -1

// execute runs the word named by xt to completion: a direct Go call for
// codePrimitive/codeDocon/codeDovar, or a full pass through the threaded
// inner interpreter for codeDocol/codeDodoes. This is the entry point the
// outer interpreter uses to run one interpreted word; nested colon calls
// within a thread never recurse back through here (see run's dispatch of
// codeDocol inline), matching the classical non-recursive threaded-code
// inner interpreter the teacher's exec/step pair also implements, just
// expressed as one explicit loop instead of the teacher's token-by-token
// step() called repeatedly from run(ctx).
func (vm *VM) execute(ctx context.Context, xt XT) error {
	e := vm.dict.entry(xt)
	switch e.kind {
	case codePrimitive:
		return e.prim(vm)
	case codeDocon, codeDovar:
		return vm.ds.push(e.param)
	case codeDocol:
		return vm.run(ctx, e.param)
	case codeDodoes:
		if err := vm.ds.push(e.param); err != nil {
			return err
		}
		return vm.run(ctx, e.does)
	default:
		return fault(KindCompileMismatch)
	}
}

// run drives the inner interpreter over the threaded code starting at
// entryAddr until its matching EXIT unwinds the return stack back past
// returnSentinel. A single explicit loop serves both the outermost call
// (from execute) and every nested colon-word call it encounters: a nested
// codeDocol/codeDodoes cell just pushes the resume IP and redirects vm.ip,
// the same as the classical "NEXT" threaded-code dispatch.
func (vm *VM) run(ctx context.Context, entryAddr Cell) error {
	if err := vm.rs.push(returnSentinel); err != nil {
		return err
	}
	vm.ip = entryAddr
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		cell, err := vm.mem.Fetch(uint(vm.ip))
		if err != nil {
			return err
		}
		xt := XT(cell)
		vm.ip += cellSize

		if vm.trace != nil {
			vm.trace("xt=%d ip=%d ds=%v", xt, vm.ip, vm.ds.cells)
		}

		switch xt {
		case vm.xtExit:
			ret, err := vm.rs.pop()
			if err != nil {
				return err
			}
			if ret == returnSentinel {
				return nil
			}
			vm.ip = ret
			continue

		case vm.xtDoesAction:
			// reached only while a defining word (one that itself
			// used DOES>) is running: splice the action address into
			// the word CREATE most recently made, then return from
			// the defining word exactly as EXIT would -- the rest of
			// its thread is the action body, meant to run later when
			// the defined word itself is invoked, not now.
			actionAddr, err := vm.mem.Fetch(uint(vm.ip))
			if err != nil {
				return err
			}
			vm.dict.MarkDoes(vm.dict.Latest(), actionAddr)
			ret, err := vm.rs.pop()
			if err != nil {
				return err
			}
			if ret == returnSentinel {
				return nil
			}
			vm.ip = ret
			continue

		case vm.xtLit:
			v, err := vm.mem.Fetch(uint(vm.ip))
			if err != nil {
				return err
			}
			vm.ip += cellSize
			if err := vm.ds.push(v); err != nil {
				return err
			}
			continue

		case vm.xtSLit:
			n, err := vm.mem.Fetch(uint(vm.ip))
			if err != nil {
				return err
			}
			addr := vm.ip + cellSize
			if err := vm.ds.push(Cell(addr)); err != nil {
				return err
			}
			if err := vm.ds.push(n); err != nil {
				return err
			}
			vm.ip = addr + Cell(Aligned(uint(n)))
			continue

		case vm.xtBranch:
			off, err := vm.mem.Fetch(uint(vm.ip))
			if err != nil {
				return err
			}
			vm.ip = off
			continue

		case vm.xt0Branch:
			off, err := vm.mem.Fetch(uint(vm.ip))
			if err != nil {
				return err
			}
			vm.ip += cellSize
			flag, err := vm.ds.pop()
			if err != nil {
				return err
			}
			if flag == 0 {
				vm.ip = off
			}
			continue

		case vm.xtDo, vm.xtQDo:
			if err := vm.doEnter(xt == vm.xtQDo); err != nil {
				return err
			}
			continue

		case vm.xtLoop, vm.xtPlusLoop:
			if err := vm.doIterate(xt == vm.xtPlusLoop); err != nil {
				return err
			}
			continue

		case vm.xtUnloop:
			if err := vm.doUnloop(); err != nil {
				return err
			}
			continue

		case vm.xtI:
			idx, perr := vm.rs.peek(0)
			if perr != nil {
				return fault(KindCompileMismatch)
			}
			if err := vm.ds.push(idx); err != nil {
				return err
			}
			continue

		case vm.xtJ:
			idx, perr := vm.rs.peek(2)
			if perr != nil {
				return fault(KindCompileMismatch)
			}
			if err := vm.ds.push(idx); err != nil {
				return err
			}
			continue
		}

		e := vm.dict.entry(xt)
		switch e.kind {
		case codePrimitive:
			if err := e.prim(vm); err != nil {
				return err
			}
		case codeDocon, codeDovar:
			if err := vm.ds.push(e.param); err != nil {
				return err
			}
		case codeDocol:
			if err := vm.rs.push(vm.ip); err != nil {
				return err
			}
			vm.ip = e.param
		case codeDodoes:
			if err := vm.ds.push(e.param); err != nil {
				return err
			}
			if err := vm.rs.push(vm.ip); err != nil {
				return err
			}
			vm.ip = e.does
		default:
			return fault(KindCompileMismatch)
		}
	}
}
