package forth

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/fifth-forth/fifth/internal/flushio"
	"github.com/fifth-forth/fifth/internal/logio"
	"github.com/fifth-forth/fifth/internal/runeio"
)

const maxOpenHandles = 16

// fileHandle is one open file, addressable from Forth by a small integer
// handle (spec §6's file-access word set), grounded on db47h-ngaro's
// handle-table approach to FILE-ACCESS words rather than the teacher's
// single always-open ioCore, since the teacher never models more than one
// file at a time.
type fileHandle struct {
	f      *os.File
	r      *bufio.Reader
	name   string
	inUse  bool
}

type fileTable struct {
	handles [maxOpenHandles]fileHandle
}

func newFileTable() *fileTable { return &fileTable{} }

func (ft *fileTable) open(name string, flag int, perm os.FileMode) (Cell, error) {
	for i := range ft.handles {
		if !ft.handles[i].inUse {
			f, err := os.OpenFile(name, flag, perm)
			if err != nil {
				return 0, wrapIOError("open "+name, err)
			}
			ft.handles[i] = fileHandle{f: f, r: bufio.NewReader(f), name: name, inUse: true}
			return Cell(i), nil
		}
	}
	return 0, wrapIOError("open "+name, errTooManyFiles)
}

var errTooManyFiles = &maxFilesError{}

type maxFilesError struct{}

func (*maxFilesError) Error() string { return "too many open files" }

func (ft *fileTable) get(h Cell) (*fileHandle, error) {
	if h < 0 || int(h) >= len(ft.handles) || !ft.handles[h].inUse {
		return nil, fault(KindIOError)
	}
	return &ft.handles[h], nil
}

func (ft *fileTable) close(h Cell) error {
	fh, err := ft.get(h)
	if err != nil {
		return err
	}
	err = fh.f.Close()
	*fh = fileHandle{}
	if err != nil {
		return wrapIOError("close", err)
	}
	return nil
}

// closeAll closes every still-open handle, used by (*VM).Close to release
// files a script opened but never closed itself.
func (ft *fileTable) closeAll() error {
	var first error
	for i := range ft.handles {
		if ft.handles[i].inUse {
			if err := ft.handles[i].f.Close(); err != nil && first == nil {
				first = err
			}
			ft.handles[i] = fileHandle{}
		}
	}
	return first
}

func (vm *VM) registerIO() {
	d := vm.dict

	d.addPrimitive("EMIT", false, func(vm *VM) error {
		v, err := vm.ds.pop()
		if err != nil {
			return err
		}
		_, werr := runeio.WriteANSIRune(vm.out, rune(v))
		return wrapIOError("emit", werr)
	})
	d.addPrimitive("TYPE", false, func(vm *VM) error {
		n, err := vm.ds.pop()
		if err != nil {
			return err
		}
		addr, err := vm.ds.pop()
		if err != nil {
			return err
		}
		b := vm.mem.LoadBytes(uint(addr), int(n))
		_, werr := runeio.WriteANSIString(vm.out, string(b))
		return wrapIOError("type", werr)
	})
	d.addPrimitive("CR", false, func(vm *VM) error { return vm.emit("\n") })
	d.addPrimitive("SPACE", false, func(vm *VM) error { return vm.emit(" ") })
	d.addPrimitive("SPACES", false, func(vm *VM) error {
		n, err := vm.ds.pop()
		if err != nil {
			return err
		}
		for i := Cell(0); i < n; i++ {
			if err := vm.emit(" "); err != nil {
				return err
			}
		}
		return nil
	})
	d.addPrimitive("KEY", false, func(vm *VM) error {
		r, err := vm.in.readRune()
		if err == io.EOF {
			return vm.ds.push(-1)
		}
		if err != nil {
			return wrapIOError("key", err)
		}
		return vm.ds.push(Cell(r))
	})

	const (
		rRO = os.O_RDONLY
		rWO = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		rRW = os.O_RDWR
	)
	d.addPrimitive("R/O", false, constPush(Cell(rRO)))
	d.addPrimitive("W/O", false, constPush(Cell(rWO)))
	d.addPrimitive("R/W", false, constPush(Cell(rRW)))

	d.addPrimitive("OPEN-FILE", false, func(vm *VM) error {
		return vm.doOpenFile(os.O_RDWR, 0)
	})
	d.addPrimitive("CREATE-FILE", false, func(vm *VM) error {
		return vm.doOpenFile(os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	})
	d.addPrimitive("CLOSE-FILE", false, func(vm *VM) error {
		h, err := vm.ds.pop()
		if err != nil {
			return err
		}
		err = vm.files.close(h)
		return vm.ds.push(statusOf(err))
	})
	d.addPrimitive("READ-LINE", false, func(vm *VM) error {
		h, err := vm.ds.pop()
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
		fh, ferr := vm.files.get(h)
		if ferr != nil {
			return ferr
		}
		line, rerr := fh.r.ReadString('\n')
		eof := Cell(0)
		if rerr == io.EOF {
			eof = -1
			rerr = nil
		}
		for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
			line = line[:len(line)-1]
		}
		if Cell(len(line)) > n {
			line = line[:n]
		}
		if werr := vm.mem.StoreBytes(uint(addr), []byte(line)); werr != nil {
			return werr
		}
		if err := vm.ds.push(Cell(len(line))); err != nil {
			return err
		}
		if err := vm.ds.push(eof); err != nil {
			return err
		}
		return vm.ds.push(statusOf(rerr))
	})
	d.addPrimitive("READ-FILE", false, func(vm *VM) error {
		h, err := vm.ds.pop()
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
		fh, ferr := vm.files.get(h)
		if ferr != nil {
			return ferr
		}
		buf := make([]byte, n)
		got, rerr := io.ReadFull(fh.r, buf)
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			rerr = nil
		}
		if werr := vm.mem.StoreBytes(uint(addr), buf[:got]); werr != nil {
			return werr
		}
		if err := vm.ds.push(Cell(got)); err != nil {
			return err
		}
		return vm.ds.push(statusOf(rerr))
	})
	d.addPrimitive("WRITE-FILE", false, func(vm *VM) error {
		return vm.doWriteFile(false)
	})
	d.addPrimitive("WRITE-LINE", false, func(vm *VM) error {
		return vm.doWriteFile(true)
	})

	d.addPrimitive("SYSTEM", false, func(vm *VM) error {
		n, err := vm.ds.pop()
		if err != nil {
			return err
		}
		addr, err := vm.ds.pop()
		if err != nil {
			return err
		}
		cmdline := string(vm.mem.LoadBytes(uint(addr), int(n)))
		cmd := exec.Command("/bin/sh", "-c", cmdline)
		cmd.Stdout = vm.out
		// the child's stderr is kept separate from the Forth program's
		// own output stream, tagged and routed to the VM's diagnostic
		// sink instead, so a failing SYSTEM command doesn't silently
		// interleave into TYPE/EMIT's output.
		stderrLog := &logio.Writer{Logf: func(format string, args ...interface{}) {
			if vm.diag != nil {
				fmt.Fprintf(vm.diag, "SYSTEM: "+format+"\n", args...)
			}
		}}
		cmd.Stderr = stderrLog
		runErr := cmd.Run()
		stderrLog.Sync()
		status := Cell(0)
		if ee, ok := runErr.(*exec.ExitError); ok {
			status = Cell(ee.ExitCode())
		} else if runErr != nil {
			status = -1
		}
		return vm.ds.push(status)
	})

	d.addPrimitive("SLURP-FILE", false, func(vm *VM) error {
		n, err := vm.ds.pop()
		if err != nil {
			return err
		}
		addr, err := vm.ds.pop()
		if err != nil {
			return err
		}
		name := string(vm.mem.LoadBytes(uint(addr), int(n)))
		data, rerr := os.ReadFile(name)
		if rerr != nil {
			return wrapIOError("slurp "+name, rerr)
		}
		dst := vm.mem.reserve(len(data))
		if werr := vm.mem.StoreBytes(dst, data); werr != nil {
			return werr
		}
		if err := vm.ds.push(Cell(dst)); err != nil {
			return err
		}
		return vm.ds.push(Cell(len(data)))
	})

	d.addPrimitive(">FILE", false, func(vm *VM) error {
		h, err := vm.ds.pop()
		if err != nil {
			return err
		}
		fh, ferr := vm.files.get(h)
		if ferr != nil {
			return ferr
		}
		vm.out = flushio.NewWriteFlusher(fh.f)
		return nil
	})
	d.addPrimitive(">STDOUT", false, func(vm *VM) error {
		vm.out = flushio.NewWriteFlusher(os.Stdout)
		return nil
	})
}

func constPush(v Cell) func(vm *VM) error {
	return func(vm *VM) error { return vm.ds.push(v) }
}

func statusOf(err error) Cell {
	if err == nil {
		return 0
	}
	return -1
}

func (vm *VM) doOpenFile(flag int, perm os.FileMode) error {
	n, err := vm.ds.pop()
	if err != nil {
		return err
	}
	addr, err := vm.ds.pop()
	if err != nil {
		return err
	}
	name := string(vm.mem.LoadBytes(uint(addr), int(n)))
	h, operr := vm.files.open(name, flag, perm)
	if err := vm.ds.push(h); err != nil {
		return err
	}
	return vm.ds.push(statusOf(operr))
}

func (vm *VM) doWriteFile(newline bool) error {
	h, err := vm.ds.pop()
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
	fh, ferr := vm.files.get(h)
	if ferr != nil {
		return ferr
	}
	b := vm.mem.LoadBytes(uint(addr), int(n))
	_, werr := fh.f.Write(b)
	if werr == nil && newline {
		_, werr = fh.f.Write([]byte{'\n'})
	}
	return vm.ds.push(statusOf(werr))
}
