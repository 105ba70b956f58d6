package core

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/searchktools/dory/core/observability"
	"github.com/searchktools/dory/core/router"
	"github.com/searchktools/dory/core/static"
	"github.com/searchktools/dory/core/transport"
)

// EngineConfig carries what the engine needs beyond its route tables.
type EngineConfig struct {
	// StaticDir is the static asset root; the 404 page lives under it.
	StaticDir string

	Backlog         int
	IPVersion       transport.IPVersion
	WriteBufferSize int

	Logger      zerolog.Logger
	Observatory *observability.Observatory
}

// Engine answers connections from a static file router and a dynamic
// dispatcher, one goroutine per connection.
type Engine struct {
	files    *static.FileRouter
	dynamic  *router.Dispatcher
	notFound string

	backlog         int
	version         transport.IPVersion
	writeBufferSize int

	log zerolog.Logger
	obs *observability.Observatory

	exits      chan exitEvent
	reaperOnce sync.Once
	active     atomic.Int64
	accepted   atomic.Uint64
	failed     atomic.Uint64
	started    time.Time
}

// NewEngine creates an engine over the given route tables. The tables are
// frozen when the engine starts serving.
func NewEngine(files *static.FileRouter, dynamic *router.Dispatcher, cfg EngineConfig) *Engine {
	if cfg.Backlog <= 0 {
		cfg.Backlog = transport.DefaultBacklog
	}
	if cfg.WriteBufferSize <= 0 {
		cfg.WriteBufferSize = transport.DefaultWriteBufferSize
	}
	if cfg.Observatory == nil {
		cfg.Observatory = observability.NewObservatory()
	}

	return &Engine{
		files:           files,
		dynamic:         dynamic,
		notFound:        filepath.Join(cfg.StaticDir, NotFoundPage),
		backlog:         cfg.Backlog,
		version:         cfg.IPVersion,
		writeBufferSize: cfg.WriteBufferSize,
		log:             cfg.Logger,
		obs:             cfg.Observatory,
		exits:           make(chan exitEvent, 64),
		started:         time.Now(),
	}
}

// Files returns the static router
func (e *Engine) Files() *static.FileRouter {
	return e.files
}

// Dynamic returns the dynamic dispatcher
func (e *Engine) Dynamic() *router.Dispatcher {
	return e.dynamic
}

// Observatory returns the metrics and tracing hub
func (e *Engine) Observatory() *observability.Observatory {
	return e.obs
}
