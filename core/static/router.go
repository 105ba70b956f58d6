package static

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var (
	// ErrUnknownWatch means a notification arrived for a watch that was never
	// registered. It points at a registration bug, not a runtime condition.
	ErrUnknownWatch = errors.New("static: could not find name of watched file")

	// ErrDuplicateRoute is returned when a slug is registered twice.
	ErrDuplicateRoute = errors.New("static: route already registered")

	// ErrFrozen is returned when a route is added after the router was frozen.
	ErrFrozen = errors.New("static: routes are frozen")
)

// FileRouter maps slugs to memory-mapped files and remaps them when they
// change on disk. Routes are registered up front; once frozen the tables are
// only read.
type FileRouter struct {
	watcher *Watcher
	routes  map[string]string // slug -> path
	files   map[string]*File  // path -> file
	watches map[int]string    // watch descriptor -> path
	frozen  atomic.Bool

	// reloadMu spans a whole drain, from reading the queue to the last remap.
	reloadMu sync.Mutex
}

// NewFileRouter creates an empty router with its own change watcher.
func NewFileRouter() (*FileRouter, error) {
	w, err := NewWatcher()
	if err != nil {
		return nil, err
	}
	return &FileRouter{
		watcher: w,
		routes:  make(map[string]string),
		files:   make(map[string]*File),
		watches: make(map[int]string),
	}, nil
}

// AddRoute serves the file at path under slug. The file is mapped and watched
// immediately; failing to do either fails the registration.
func (r *FileRouter) AddRoute(slug, path string) error {
	if r.frozen.Load() {
		return ErrFrozen
	}
	if _, ok := r.routes[slug]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRoute, slug)
	}

	if _, ok := r.files[path]; !ok {
		f, err := OpenFile(path)
		if err != nil {
			return err
		}

		wd, err := r.watcher.Add(path)
		if err != nil {
			f.Close()
			return err
		}

		r.files[path] = f
		r.watches[wd] = path
	}

	r.routes[slug] = path
	return nil
}

// Freeze makes the route tables read-only.
func (r *FileRouter) Freeze() {
	r.frozen.Store(true)
}

// Find resolves slug to its cached file, or nil when either the route or the
// file is unknown.
func (r *FileRouter) Find(slug string) *File {
	path, ok := r.routes[slug]
	if !ok {
		return nil
	}
	return r.files[path]
}

// Len returns the number of registered routes.
func (r *FileRouter) Len() int {
	return len(r.routes)
}

// ReloadIfNeeded drains pending change notifications without blocking and
// remaps each file they name once. Concurrent callers are serialized, so when
// it returns every notification read before the call has been applied.
func (r *FileRouter) ReloadIfNeeded(log zerolog.Logger) error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	_, err := r.drain(log)
	return err
}

// drain empties the notification queue, then remaps every file it named.
// It returns the number of files remapped. Callers hold reloadMu.
func (r *FileRouter) drain(log zerolog.Logger) (int, error) {
	changed := make(map[string]struct{})
	overflowed := false

	for {
		events, err := r.watcher.Poll()
		if err != nil {
			return 0, err
		}
		if len(events) == 0 {
			break
		}

		for _, ev := range events {
			if ev.Overflowed() {
				overflowed = true
				continue
			}

			path, ok := r.watches[ev.WD]
			if !ok {
				return 0, fmt.Errorf("%w (wd %d)", ErrUnknownWatch, ev.WD)
			}
			if ev.Ignored() {
				log.Warn().Str("path", path).Msg("watch removed, keeping last contents")
				continue
			}
			changed[path] = struct{}{}
		}
	}

	if overflowed {
		log.Warn().Msg("change queue overflowed, reloading every file")
		for path := range r.files {
			changed[path] = struct{}{}
		}
	}

	for path := range changed {
		log.Info().Str("path", path).Msg("reloading")
		if err := r.reloadFile(path); err != nil {
			return 0, err
		}
	}
	return len(changed), nil
}

func (r *FileRouter) reloadFile(path string) error {
	f, ok := r.files[path]
	if !ok {
		return fmt.Errorf("static: invalid file reload: %s", path)
	}
	return f.Reload()
}

// Close stops watching and drops the router's references to every file.
func (r *FileRouter) Close() error {
	for _, f := range r.files {
		f.Close()
	}
	return r.watcher.Close()
}
