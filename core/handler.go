package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/searchktools/dory/core/http"
	"github.com/searchktools/dory/core/observability"
	"github.com/searchktools/dory/core/router"
	"github.com/searchktools/dory/core/static"
	"github.com/searchktools/dory/core/transport"
)

// HandleConnection reads one request from conn, routes it and writes the
// response. conn is flushed and closed before it returns, on every path.
//
// POST slugs go to the dynamic dispatcher only. GET slugs try the static
// router first, then the dispatcher. Anything unmatched gets the 404 page.
func (e *Engine) HandleConnection(ctx context.Context, conn *transport.Connection) (err error) {
	defer conn.Close()

	peer := conn.RemoteAddr()
	log := e.log.With().Str("peer", peer).Logger()
	log.Info().Msg("connected")
	defer log.Info().Msg("dropped")

	_, tr := e.obs.StartConnection(ctx, peer)
	defer func() { tr.End(err) }()

	raw, err := conn.Read()
	if err != nil {
		return err
	}
	log.Debug().Bytes("request", raw).Msg("request")

	// A client that connects and sends nothing is told to go ahead.
	if len(raw) == 0 {
		tr.Routed("", "", observability.RouteContinue, int(http.StatusContinue))
		return e.write(conn, http.Response{
			Charset:      http.CharsetUTF8,
			ExtraHeaders: HeaderAcceptAny,
			MimeType:     http.MimeTextPlain,
			Status:       http.StatusContinue,
		})
	}

	headers := http.ParseHeaders(raw)

	post, err := headers.Post()
	if err != nil {
		return err
	}
	if post != nil {
		return e.servePost(conn, headers, post, tr, log)
	}

	get, err := headers.Get()
	if err != nil {
		return err
	}
	if get == nil {
		tr.Routed("", "", observability.RouteNotFound, int(http.StatusNotFound))
		return e.write(conn, http.TextResponse(http.StatusNotFound, "not found"))
	}
	log.Debug().Stringer("get", get).Msg("parsed")

	return e.serveGet(conn, headers, get, tr, log)
}

func (e *Engine) servePost(conn *transport.Connection, headers http.Headers, post *http.Post, tr *observability.Trace, log zerolog.Logger) error {
	if renderer := e.dynamic.Find(post.Slug); renderer != nil {
		resp, failure := router.Dispatch(renderer, headers, http.CORSHeaders)
		if failure != nil {
			log.Error().Err(failure).Str("slug", post.Slug).Msg("route failed")
		}
		tr.Routed(http.MethodPost.String(), post.Slug, observability.RouteDynamic, int(resp.Status))
		return e.write(conn, resp)
	}

	tr.Routed(http.MethodPost.String(), post.Slug, observability.RouteNotFound, int(http.StatusNotFound))
	return e.serveNotFound(conn, log)
}

func (e *Engine) serveGet(conn *transport.Connection, headers http.Headers, get *http.Get, tr *observability.Trace, log zerolog.Logger) error {
	if file := e.files.Find(get.Slug); file != nil {
		e.obs.Monitor.FileReloadPass()
		if err := e.files.ReloadIfNeeded(log); err != nil {
			return err
		}
		tr.Routed(http.MethodGet.String(), get.Slug, observability.RouteStatic, int(http.StatusOK))
		return e.serveFile(conn, file, http.StatusOK)
	}

	if renderer := e.dynamic.Find(get.Slug); renderer != nil {
		resp, failure := router.Dispatch(renderer, headers, "")
		if failure != nil {
			log.Error().Err(failure).Str("slug", get.Slug).Msg("route failed")
		}
		tr.Routed(http.MethodGet.String(), get.Slug, observability.RouteDynamic, int(resp.Status))
		return e.write(conn, resp)
	}

	tr.Routed(http.MethodGet.String(), get.Slug, observability.RouteNotFound, int(http.StatusNotFound))
	return e.serveNotFound(conn, log)
}

// serveFile writes file's current contents. The view is held until the
// response has been flushed.
func (e *Engine) serveFile(conn *transport.Connection, file *static.File, status http.Status) error {
	view := file.Acquire()
	defer view.Release()

	resp := http.Response{
		Body:     view.Bytes(),
		Charset:  file.Charset(),
		MimeType: file.MimeType(),
		Status:   status,
	}
	if err := e.write(conn, resp); err != nil {
		return err
	}
	return conn.Flush()
}

// serveNotFound serves the 404 page verbatim. It is opened per request so it
// always reflects the file on disk.
func (e *Engine) serveNotFound(conn *transport.Connection, log zerolog.Logger) error {
	page, err := static.OpenFile(e.notFound)
	if err != nil {
		log.Warn().Err(err).Str("path", e.notFound).Msg("404 page unavailable")
		return e.write(conn, http.TextResponse(http.StatusNotFound, "not found"))
	}
	defer page.Close()

	return e.serveFile(conn, page, http.StatusNotFound)
}

func (e *Engine) write(conn *transport.Connection, resp http.Response) error {
	_, err := resp.WriteTo(conn)
	return err
}
