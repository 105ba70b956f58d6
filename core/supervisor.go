package core

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/searchktools/dory/core/transport"
)

type exitEvent struct {
	peer string
	err  error
}

// Run binds port and serves until ctx is cancelled or accepting fails.
// A failed accept is returned rather than retried; the caller decides
// whether to restart.
func (e *Engine) Run(ctx context.Context, port int) error {
	ln, err := transport.Listen(port, e.backlog, e.version)
	if err != nil {
		return err
	}
	return e.Serve(ctx, ln)
}

// Serve accepts on ln until ctx is cancelled, handing every connection to its
// own worker goroutine. ln is closed on return. Workers still blocked on a
// silent client are not waited for.
func (e *Engine) Serve(ctx context.Context, ln *transport.Listener) error {
	defer ln.Close()

	e.files.Freeze()
	e.dynamic.Freeze()
	e.reaperOnce.Do(func() { go e.reap() })

	ln.WriteBufferSize = e.writeBufferSize
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	e.log.Info().Int("port", ln.Port()).Str("family", ln.Version().String()).Msg("serving")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, transport.ErrClosed) && ctx.Err() != nil {
				return nil
			}
			return err
		}

		e.accepted.Add(1)
		e.active.Add(1)
		e.obs.Monitor.WorkerStarted()

		go func() {
			peer := conn.RemoteAddr()
			e.exits <- exitEvent{peer: peer, err: e.work(ctx, conn)}
		}()
	}
}

// work runs one connection to completion. Memory faults (a mapped file
// truncated under a reader) and panics end only this worker.
func (e *Engine) work(ctx context.Context, conn *transport.Connection) (err error) {
	debug.SetPanicOnFault(true)
	defer func() {
		if p := recover(); p != nil {
			conn.Close()
			err = fmt.Errorf("%w: %v", ErrWorkerPanic, p)
		}
	}()
	return e.HandleConnection(ctx, conn)
}

// reap collects worker exits so the accept loop never waits on them.
func (e *Engine) reap() {
	for ev := range e.exits {
		failed := ev.err != nil
		if failed {
			e.failed.Add(1)
			e.log.Error().Err(ev.err).Str("peer", ev.peer).Msg("worker failed")
		}
		e.active.Add(-1)
		e.obs.Monitor.WorkerExited(failed)
	}
}
