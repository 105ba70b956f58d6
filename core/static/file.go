package static

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/searchktools/dory/core/http"
)

// mapping is one read-only mmap of a file. It is unmapped when the last
// reference is released.
type mapping struct {
	data []byte
	refs atomic.Int32
}

func mapFile(path string) (*mapping, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("static: open %s: %w", path, err)
	}
	defer unix.Close(fd)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, fmt.Errorf("static: stat %s: %w", path, err)
	}

	m := &mapping{}
	m.refs.Store(1)

	// mmap rejects a zero length; an empty file is an empty view.
	if st.Size == 0 {
		return m, nil
	}

	data, err := unix.Mmap(fd, 0, int(st.Size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("static: mmap %s: %w", path, err)
	}
	m.data = data
	return m, nil
}

func (m *mapping) acquire() {
	m.refs.Add(1)
}

func (m *mapping) release() {
	if m.refs.Add(-1) == 0 && m.data != nil {
		unix.Munmap(m.data)
		m.data = nil
	}
}

// File is a cached, memory-mapped file together with the path used to
// (re)open it.
type File struct {
	path    string
	mime    http.MimeType
	mu      sync.Mutex
	current *mapping
}

// OpenFile maps path read-only.
func OpenFile(path string) (*File, error) {
	m, err := mapFile(path)
	if err != nil {
		return nil, err
	}
	return &File{
		path:    path,
		mime:    MimeTypeOf(path),
		current: m,
	}, nil
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// MimeType is derived from the path suffix.
func (f *File) MimeType() http.MimeType {
	return f.mime
}

// Charset is utf-8 for text-like files and empty otherwise.
func (f *File) Charset() string {
	return CharsetOf(f.mime)
}

// Acquire returns a view of the current mapping. The mapping stays in place,
// even across Reload, until the view is released. It is not a snapshot:
// writes made to the same file in place show through it.
func (f *File) Acquire() *View {
	f.mu.Lock()
	m := f.current
	m.acquire()
	f.mu.Unlock()
	return &View{m: m}
}

// Reload remaps the file from disk. On failure the previous contents stay in
// place.
func (f *File) Reload() error {
	m, err := mapFile(f.path)
	if err != nil {
		return err
	}

	f.mu.Lock()
	old := f.current
	f.current = m
	f.mu.Unlock()

	old.release()
	return nil
}

// Close drops the file's own reference. Outstanding views keep their mapping
// alive until they are released.
func (f *File) Close() {
	empty := &mapping{}
	empty.refs.Store(1)

	f.mu.Lock()
	old := f.current
	f.current = empty
	f.mu.Unlock()

	old.release()
}

// View is a borrowed, read-only window onto a file's contents.
type View struct {
	m        *mapping
	released bool
}

// Bytes returns the mapped contents. The slice must not be used after Release.
func (v *View) Bytes() []byte {
	if v.released {
		return nil
	}
	return v.m.data
}

// Len returns the number of mapped bytes.
func (v *View) Len() int {
	return len(v.Bytes())
}

// Release gives the view's reference back. Releasing twice is a no-op.
func (v *View) Release() {
	if v.released {
		return
	}
	v.released = true
	v.m.release()
}
