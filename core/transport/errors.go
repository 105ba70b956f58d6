package transport

import "errors"

// SysError is a failed socket syscall together with the errno it produced.
type SysError struct {
	Op  string
	Err error
}

func (e *SysError) Error() string {
	if e.Err != nil {
		return "transport: " + e.Op + ": " + e.Err.Error()
	}
	return "transport: " + e.Op
}

func (e *SysError) Unwrap() error {
	return e.Err
}

func sysError(op string, err error) error {
	return &SysError{Op: op, Err: err}
}

var (
	// ErrClosed is returned by operations on a closed Listener or Connection.
	ErrClosed = errors.New("transport: use of closed socket")
)
