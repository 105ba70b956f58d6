package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/searchktools/dory/config"
	"github.com/searchktools/dory/core"
	"github.com/searchktools/dory/core/observability"
	"github.com/searchktools/dory/core/router"
	"github.com/searchktools/dory/core/static"
	"github.com/searchktools/dory/core/transport"
)

// App is one server process: its route tables, engine and restart policy.
type App struct {
	cfg    *config.Config
	log    zerolog.Logger
	obs    *observability.Observatory
	files  *static.FileRouter
	engine *core.Engine
}

// New creates an application instance with the built-in dynamic routes and
// the configured static routes. Every static file must exist.
func New(cfg *config.Config, log zerolog.Logger) (*App, error) {
	files, err := static.NewFileRouter()
	if err != nil {
		return nil, err
	}

	slugs := make([]string, 0, len(cfg.Routes))
	for slug := range cfg.Routes {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	for _, slug := range slugs {
		path := filepath.Join(cfg.StaticDir, cfg.Routes[slug])
		if err := files.AddRoute(slug, path); err != nil {
			files.Close()
			return nil, fmt.Errorf("static route %s: %w", slug, err)
		}
	}

	a := &App{
		cfg:   cfg,
		log:   log,
		obs:   observability.NewObservatory(),
		files: files,
	}

	version := transport.IPv4
	if cfg.IPv6 {
		version = transport.IPv6
	}

	a.engine = core.NewEngine(files, router.NewDispatcher(), core.EngineConfig{
		StaticDir:       cfg.StaticDir,
		Backlog:         cfg.Backlog,
		IPVersion:       version,
		WriteBufferSize: cfg.WriteBuffer,
		Logger:          log,
		Observatory:     a.obs,
	})

	if err := a.registerBuiltins(a.engine.Dynamic()); err != nil {
		files.Close()
		return nil, err
	}

	return a, nil
}

// Engine returns the underlying engine
func (a *App) Engine() *core.Engine {
	return a.engine
}

// Observatory returns the app's metrics and tracing
func (a *App) Observatory() *observability.Observatory {
	return a.obs
}

// Run serves until ctx is cancelled. Whenever the server fails it is torn
// down, and after RestartDelay it binds again from scratch.
func (a *App) Run(ctx context.Context) error {
	a.log.Info().
		Int("port", a.cfg.Port).
		Str("env", a.cfg.Env).
		Str("static", a.cfg.StaticDir).
		Msg("starting")

	for {
		err := a.engine.Run(ctx, a.cfg.Port)
		if ctx.Err() != nil {
			a.log.Info().Msg("stopped")
			return nil
		}

		a.log.Error().Err(err).Dur("delay", a.cfg.RestartDelay).Msg("server failed, restarting")
		a.obs.Monitor.Restarted()

		timer := time.NewTimer(a.cfg.RestartDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			a.log.Info().Msg("stopped")
			return nil
		case <-timer.C:
		}
	}
}

// ListenAndServe runs until SIGINT or SIGTERM.
func (a *App) ListenAndServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.Run(ctx)
}

// Close releases the mapped files and the change watcher.
func (a *App) Close() error {
	return a.files.Close()
}
