package main

import (
	"os"
	"syscall"

	"github.com/pkg/term/termios"
)

func isTerminal(f *os.File) bool {
	var tios syscall.Termios
	return termios.Tcgetattr(f.Fd(), &tios) == nil
}

// setRawIO switches f (expected to be os.Stdin) to raw mode for the
// interactive REPL, grounded on db47h-ngaro's cmd/retro/term_linux.go,
// and returns a restore func to put the terminal back the way it was.
func setRawIO(f *os.File) (func(), error) {
	var tios syscall.Termios
	if err := termios.Tcgetattr(f.Fd(), &tios); err != nil {
		return nil, err
	}
	raw := tios
	raw.Iflag &^= syscall.BRKINT | syscall.ISTRIP | syscall.IXON | syscall.IXOFF
	raw.Iflag |= syscall.IGNBRK | syscall.IGNPAR
	raw.Lflag &^= syscall.ICANON | syscall.ISIG | syscall.IEXTEN | syscall.ECHO
	raw.Cc[syscall.VMIN] = 1
	raw.Cc[syscall.VTIME] = 0
	if err := termios.Tcsetattr(f.Fd(), termios.TCSANOW, &raw); err != nil {
		termios.Tcsetattr(f.Fd(), termios.TCSANOW, &tios)
		return nil, err
	}
	return func() {
		termios.Tcsetattr(f.Fd(), termios.TCSANOW, &tios)
	}, nil
}
