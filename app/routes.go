package app

import (
	"bytes"
	"errors"

	"github.com/searchktools/dory/core/http"
	"github.com/searchktools/dory/core/jsondoc"
	"github.com/searchktools/dory/core/observability"
	"github.com/searchktools/dory/core/router"
)

// Built-in dynamic routes.
const (
	RoutePanic   = "/panic"
	RouteStatus  = "/status"
	RouteMetrics = "/metrics"
	RouteEcho    = "/echo"
)

var errPanicRoute = errors.New("panic!")

func (a *App) registerBuiltins(d *router.Dispatcher) error {
	routes := []struct {
		slug     string
		renderer router.Renderer
	}{
		{RoutePanic, a.renderPanic},
		{RouteStatus, a.renderStatus},
		{RouteMetrics, a.renderMetrics},
		{RouteEcho, a.renderEcho},
	}

	for _, r := range routes {
		if err := d.Add(r.slug, r.renderer); err != nil {
			return err
		}
	}
	return nil
}

// renderPanic always fails, to show how failures are reported.
func (a *App) renderPanic(http.Headers) (http.Response, error) {
	return http.Response{}, errPanicRoute
}

func (a *App) renderStatus(http.Headers) (http.Response, error) {
	st := a.engine.Stats()
	rt := observability.ReadRuntimeStats()

	slugs := a.engine.Dynamic().Slugs()
	dynamic := make([]any, len(slugs))
	for i, s := range slugs {
		dynamic[i] = s
	}

	fields := []struct {
		key   string
		value any
	}{
		{"server", http.ServerName},
		{"env", a.cfg.Env},
		{"uptime_seconds", st.Uptime.Seconds()},
		{"active_workers", st.ActiveWorkers},
		{"accepted", st.Accepted},
		{"failed", st.Failed},
		{"static_routes", a.files.Len()},
		{"dynamic_routes", dynamic},
		{"runtime", map[string]any{
			"goroutines":    rt.Goroutines,
			"num_gc":        rt.NumGC,
			"last_pause_ms": float64(rt.LastPause) / 1e6,
			"heap_alloc":    rt.HeapAlloc,
		}},
		{"byte_pool", map[string]any{
			"gets":   st.BytePool.TotalGets,
			"puts":   st.BytePool.TotalPuts,
			"misses": st.BytePool.TotalMisses,
		}},
	}

	doc := jsondoc.New()
	for _, f := range fields {
		if err := doc.Set(f.key, f.value); err != nil {
			return http.Response{}, err
		}
	}

	// Indented for people reading it in development.
	marshal := doc.MarshalIndent
	if a.cfg.IsProduction() {
		marshal = doc.Marshal
	}
	body, err := marshal()
	if err != nil {
		return http.Response{}, err
	}

	resp := http.NewResponse(http.StatusOK, body)
	resp.MimeType = http.MimeApplicationJSON
	return resp, nil
}

func (a *App) renderMetrics(http.Headers) (http.Response, error) {
	var buf bytes.Buffer
	if err := a.obs.Monitor.WriteText(&buf); err != nil {
		return http.Response{}, err
	}

	resp := http.NewResponse(http.StatusOK, buf.Bytes())
	resp.MimeType = observability.TextContentType
	return resp, nil
}

// renderEcho answers with the request body.
func (a *App) renderEcho(h http.Headers) (http.Response, error) {
	body, _ := h.Body()
	return http.NewResponse(http.StatusOK, body), nil
}
