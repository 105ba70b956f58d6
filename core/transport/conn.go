package transport

import (
	"net"
	"net/netip"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/searchktools/dory/core/pools"
)

// ChunkSize is the size of a single read from a connection socket.
const ChunkSize = 1024

// Connection is the exclusive owner of one connected socket and its bounded
// output buffer. It is not safe for concurrent use.
type Connection struct {
	fd     int
	addr   unix.Sockaddr
	out    []byte
	closed bool
}

func newConnection(fd int, addr unix.Sockaddr, out []byte) *Connection {
	return &Connection{
		fd:   fd,
		addr: addr,
		out:  out,
	}
}

// Dial connects to host:port and returns the client side as a Connection.
func Dial(host string, port int) (*Connection, error) {
	raddr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}

	family := unix.AF_INET
	var sa unix.Sockaddr
	if ip4 := raddr.IP.To4(); ip4 != nil {
		a := &unix.SockaddrInet4{Port: raddr.Port}
		copy(a.Addr[:], ip4)
		sa = a
	} else {
		family = unix.AF_INET6
		a := &unix.SockaddrInet6{Port: raddr.Port}
		copy(a.Addr[:], raddr.IP.To16())
		sa = a
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, sysError("socket", err)
	}
	for {
		err = unix.Connect(fd, sa)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		unix.Close(fd)
		return nil, sysError("connect", err)
	}

	return newConnection(fd, sa, pools.GetBytes(DefaultWriteBufferSize)[:0]), nil
}

// RemoteAddr returns the printable peer address.
func (c *Connection) RemoteAddr() string {
	switch a := c.addr.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(a.Addr), uint16(a.Port)).String()
	case *unix.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(a.Addr), uint16(a.Port)).String()
	}
	return "unknown"
}

// Read reads ChunkSize chunks until a short read or end of stream.
// A peer that closes without sending anything yields an empty result.
func (c *Connection) Read() ([]byte, error) {
	if c.closed {
		return nil, ErrClosed
	}

	chunk := pools.GetBytes(ChunkSize)
	defer pools.PutBytes(chunk)

	var result []byte
	for {
		n, err := unix.Read(c.fd, chunk)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, sysError("read", err)
		}
		result = append(result, chunk[:n]...)
		if n < len(chunk) {
			// Short read, or zero bytes when the peer closed.
			break
		}
	}

	return result, nil
}

// Write appends p to the output buffer. When the buffer lacks room it is
// flushed first; data larger than the whole buffer is then sent directly.
func (c *Connection) Write(p []byte) (int, error) {
	if c.closed {
		return 0, ErrClosed
	}

	if cap(c.out)-len(c.out) < len(p) {
		if err := c.Flush(); err != nil {
			return 0, err
		}
	}

	if len(p) > cap(c.out) {
		return c.send(p)
	}

	c.out = append(c.out, p...)
	return len(p), nil
}

// Buffered returns the number of bytes waiting to be flushed.
func (c *Connection) Buffered() int {
	return len(c.out)
}

// Flush sends every buffered byte, handling partial sends, and clears the buffer.
func (c *Connection) Flush() error {
	if len(c.out) == 0 {
		return nil
	}
	if _, err := c.send(c.out); err != nil {
		return err
	}
	c.out = c.out[:0]
	return nil
}

// send writes all of p. MSG_NOSIGNAL keeps a vanished peer from raising SIGPIPE;
// the failure surfaces as EPIPE instead.
func (c *Connection) send(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		n, err := unix.SendmsgN(c.fd, p[written:], nil, nil, unix.MSG_NOSIGNAL)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return written, sysError("send", err)
		}
		written += n
	}
	return written, nil
}

// Close flushes pending output and closes the socket. A flush failure here is
// ignored. Closing twice is a no-op.
func (c *Connection) Close() error {
	if c.closed {
		return nil
	}

	c.Flush()
	c.closed = true

	pools.PutBytes(c.out)
	c.out = nil

	if err := unix.Close(c.fd); err != nil {
		return sysError("close", err)
	}
	return nil
}
