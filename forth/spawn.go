package forth

import (
	"context"
	"sync"

	"github.com/fifth-forth/fifth/internal/flushio"
	"github.com/fifth-forth/fifth/internal/panicerr"
	"golang.org/x/sync/errgroup"
)

// child is a forked VM and the goroutine driving it, the multi-VM
// extension spec §9's "Open Question: does this system need concurrency"
// resolves in favor of: SPAWN deep-copies the dictionary and data space
// so the child cannot observe or corrupt the parent's state, then runs it
// on its own goroutine via internal/panicerr.Recover exactly as (*VM).Run
// isolates the top-level interpreter, the same pattern the teacher's
// isolate.go/internal/panicerr package already establishes for a single
// VM; scripts/gen_vm_expects.go's use of golang.org/x/sync/errgroup to
// fan out several VM runs concurrently is what WAITALL generalizes.
type child struct {
	vm   *VM
	done chan error
}

func (vm *VM) registerSpawn() {
	d := vm.dict

	d.addPrimitive("SPAWN", false, func(vm *VM) error {
		xt, err := vm.ds.pop()
		if err != nil {
			return err
		}
		c := vm.fork()
		h := vm.children.add(c)
		go func() {
			c.done <- panicerr.Recover("spawn", func() error {
				return c.vm.execute(context.Background(), XT(xt))
			})
		}()
		return vm.ds.push(Cell(h))
	})

	d.addPrimitive("WAIT", false, func(vm *VM) error {
		h, err := vm.ds.pop()
		if err != nil {
			return err
		}
		c, ok := vm.children.take(int(h))
		if !ok {
			return fault(KindIOError)
		}
		runErr := <-c.done
		return vm.ds.push(statusOf(runErr))
	})

	d.addPrimitive("WAITALL", false, func(vm *VM) error {
		handles := vm.children.drain()
		var g errgroup.Group
		results := make([]error, len(handles))
		for i, c := range handles {
			i, c := i, c
			g.Go(func() error {
				results[i] = <-c.done
				return nil
			})
		}
		_ = g.Wait()
		ok := Cell(0)
		for _, e := range results {
			if e == nil {
				ok++
			}
		}
		return vm.ds.push(ok)
	})
}

// fork builds an independent child VM sharing nothing mutable with the
// parent: the dictionary (append-only, so a shallow copy of the entries
// slice is safe) and the data space (deep-copied byte-for-byte) are
// cloned, and fresh, empty stacks are given to the child. The output
// sink is the one mutable thing parent and child genuinely must share
// (both write to the same stdout/file), so it's wrapped in
// flushio.Sync the first time a VM forks, serializing EMIT/TYPE across
// whatever children pile up from here on.
func (vm *VM) fork() *child {
	if !vm.outSynced {
		vm.out = flushio.Sync(vm.out)
		vm.outSynced = true
	}
	childVM := &VM{
		dict:      vm.dict.clone(),
		mem:       vm.mem.clone(),
		ds:        newStack(minStackDepth),
		rs:        newStack(minStackDepth),
		in:        newInput(),
		out:       vm.out,
		outSynced: true,
		files:     newFileTable(),
		base:      vm.base,
		handle:    notFound,
		argv:      vm.argv,
		diag:      vm.diag,
	}
	childVM.xtLit, childVM.xtSLit = vm.xtLit, vm.xtSLit
	childVM.xtBranch, childVM.xt0Branch, childVM.xtExit = vm.xtBranch, vm.xt0Branch, vm.xtExit
	childVM.xtDo, childVM.xtQDo = vm.xtDo, vm.xtQDo
	childVM.xtLoop, childVM.xtPlusLoop = vm.xtLoop, vm.xtPlusLoop
	childVM.xtDoesAction = vm.xtDoesAction
	childVM.xtUnloop, childVM.xtI, childVM.xtJ = vm.xtUnloop, vm.xtI, vm.xtJ
	return &child{vm: childVM, done: make(chan error, 1)}
}

// childSet tracks in-flight SPAWNed children by a small integer handle.
type childSet struct {
	mu   sync.Mutex
	next int
	m    map[int]*child
}

func (cs *childSet) add(c *child) int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.m == nil {
		cs.m = make(map[int]*child)
	}
	h := cs.next
	cs.next++
	cs.m[h] = c
	return h
}

func (cs *childSet) take(h int) (*child, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	c, ok := cs.m[h]
	if ok {
		delete(cs.m, h)
	}
	return c, ok
}

func (cs *childSet) drain() []*child {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]*child, 0, len(cs.m))
	for h, c := range cs.m {
		out = append(out, c)
		delete(cs.m, h)
	}
	return out
}
