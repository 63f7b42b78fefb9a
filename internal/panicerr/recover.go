package panicerr

// Recover runs f in a new goroutine wrapped in a defer logic to recover any
// abnormal exits or panics as non-nil error returns. (*VM).Run uses this to
// isolate the outer interpreter's top-level goroutine; SPAWN uses it again
// per child so one runaway Forth process can't take the others down with it.
func Recover(name string, f func() error) error {
	errch := make(chan error, 1)
	go func() {
		defer close(errch)
		defer recoverExitError(name, errch)
		defer recoverPanicError(name, errch)
		errch <- f()
	}()
	return <-errch
}
