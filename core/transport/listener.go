package transport

import (
	"strconv"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/searchktools/dory/core/pools"
)

// IPVersion selects the address family of a Listener.
type IPVersion int

const (
	IPv4 IPVersion = iota
	IPv6
)

func (v IPVersion) String() string {
	if v == IPv6 {
		return "ipv6"
	}
	return "ipv4"
}

const (
	// DefaultBacklog matches the queue length the server has always used.
	DefaultBacklog = 8

	// DefaultWriteBufferSize is the output buffer bound of each accepted Connection.
	DefaultWriteBufferSize = 16 * 1024
)

// Listener owns a listening TCP socket.
type Listener struct {
	fd      int
	port    int
	version IPVersion
	closed  atomic.Bool

	// WriteBufferSize bounds the output buffer of accepted connections.
	WriteBufferSize int
}

// Listen binds the wildcard address on port and starts listening.
// SO_REUSEADDR is set before bind so a restarted server can rebind immediately.
// A port of 0 picks an ephemeral port, readable through Port.
func Listen(port, backlog int, version IPVersion) (*Listener, error) {
	family := unix.AF_INET
	var addr unix.Sockaddr = &unix.SockaddrInet4{Port: port}
	if version == IPv6 {
		family = unix.AF_INET6
		addr = &unix.SockaddrInet6{Port: port}
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, sysError("socket", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, sysError("setsockopt", err)
	}

	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, sysError("bind :"+strconv.Itoa(port), err)
	}

	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, sysError("listen", err)
	}

	bound, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return nil, sysError("getsockname", err)
	}
	switch a := bound.(type) {
	case *unix.SockaddrInet4:
		port = a.Port
	case *unix.SockaddrInet6:
		port = a.Port
	}

	return &Listener{
		fd:              fd,
		port:            port,
		version:         version,
		WriteBufferSize: DefaultWriteBufferSize,
	}, nil
}

// Port returns the bound port.
func (l *Listener) Port() int {
	return l.port
}

// Version returns the address family the listener was created with.
func (l *Listener) Version() IPVersion {
	return l.version
}

// Accept blocks until a client connects.
// After Close it returns ErrClosed; callers loop on every other error.
func (l *Listener) Accept() (*Connection, error) {
	for {
		if l.closed.Load() {
			return nil, ErrClosed
		}

		nfd, sa, err := unix.Accept4(l.fd, unix.SOCK_CLOEXEC)
		if err == unix.EINTR || err == unix.ECONNABORTED {
			continue
		}
		if err != nil {
			if l.closed.Load() {
				return nil, ErrClosed
			}
			return nil, sysError("accept", err)
		}

		size := l.WriteBufferSize
		if size <= 0 {
			size = DefaultWriteBufferSize
		}
		return newConnection(nfd, sa, pools.GetBytes(size)[:0]), nil
	}
}

// Close shuts the socket down, waking any goroutine blocked in Accept, and
// closes it. Closing twice is a no-op.
func (l *Listener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	unix.Shutdown(l.fd, unix.SHUT_RDWR)
	if err := unix.Close(l.fd); err != nil {
		return sysError("close", err)
	}
	return nil
}
