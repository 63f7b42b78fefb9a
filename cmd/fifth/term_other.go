//go:build !linux

package main

import "os"

func isTerminal(f *os.File) bool { return false }

func setRawIO(f *os.File) (func(), error) { return nil, nil }
