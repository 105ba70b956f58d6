package static

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// eventBufferSize bounds how much of the notification queue one read consumes.
const eventBufferSize = 64 * (unix.SizeofInotifyEvent + unix.NAME_MAX + 1)

// Event is a single change notification.
type Event struct {
	WD   int
	Mask uint32
}

// Overflowed reports whether the kernel dropped events.
func (e Event) Overflowed() bool {
	return e.Mask&unix.IN_Q_OVERFLOW != 0
}

// Ignored reports whether the watch was removed, e.g. because the file was deleted.
func (e Event) Ignored() bool {
	return e.Mask&unix.IN_IGNORED != 0
}

// Watcher is a non-blocking inotify instance.
type Watcher struct {
	fd int
}

// NewWatcher creates a non-blocking inotify instance.
func NewWatcher() (*Watcher, error) {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("static: inotify_init1: %w", err)
	}
	return &Watcher{fd: fd}, nil
}

// Add watches path for modification and returns the watch descriptor.
func (w *Watcher) Add(path string) (int, error) {
	wd, err := unix.InotifyAddWatch(w.fd, path, unix.IN_MODIFY)
	if err != nil {
		return -1, fmt.Errorf("static: watch %s: %w", path, err)
	}
	return wd, nil
}

// Poll returns the events currently queued, reading at most one buffer's
// worth. An empty queue is not an error: it yields no events.
func (w *Watcher) Poll() ([]Event, error) {
	var buf [eventBufferSize]byte

	var n int
	var err error
	for {
		n, err = unix.Read(w.fd, buf[:])
		if err != unix.EINTR {
			break
		}
	}
	if err == unix.EAGAIN {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("static: read inotify: %w", err)
	}

	var events []Event
	for offset := 0; offset+unix.SizeofInotifyEvent <= n; {
		raw := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
		events = append(events, Event{WD: int(raw.Wd), Mask: raw.Mask})
		offset += unix.SizeofInotifyEvent + int(raw.Len)
	}
	return events, nil
}

// Close closes the inotify instance.
func (w *Watcher) Close() error {
	return unix.Close(w.fd)
}
