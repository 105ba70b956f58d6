package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/searchktools/dory/core/http"
	"github.com/searchktools/dory/core/router"
	"github.com/searchktools/dory/core/static"
	"github.com/searchktools/dory/core/transport"
)

type testServer struct {
	engine *Engine
	dir    string
	port   int
}

type reply struct {
	code    int
	headers []string
	body    string
}

func (r reply) header(name string) string {
	prefix := name + ": "
	for _, h := range r.headers {
		if strings.HasPrefix(h, prefix) {
			return strings.TrimPrefix(h, prefix)
		}
	}
	return ""
}

func writeSite(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func startServer(t *testing.T, withNotFoundPage bool) *testServer {
	t.Helper()
	dir := t.TempDir()
	index := writeSite(t, dir, "index.html", "<h1>index</h1>")
	script := writeSite(t, dir, "script.js", "console.log('dory')")
	if withNotFoundPage {
		writeSite(t, dir, "error/404.html", "<h1>404</h1>")
	}

	files, err := static.NewFileRouter()
	if err != nil {
		t.Fatalf("NewFileRouter error: %v", err)
	}
	t.Cleanup(func() { files.Close() })
	if err := files.AddRoute("/", index); err != nil {
		t.Fatalf("AddRoute error: %v", err)
	}
	if err := files.AddRoute("/script.js", script); err != nil {
		t.Fatalf("AddRoute error: %v", err)
	}

	dynamic := router.NewDispatcher()
	dynamic.Add("/panic", func(http.Headers) (http.Response, error) {
		return http.Response{}, errors.New("panic!")
	})
	dynamic.Add("/hello", func(http.Headers) (http.Response, error) {
		return http.TextResponse(http.StatusOK, "hello"), nil
	})
	dynamic.Add("/echo", func(h http.Headers) (http.Response, error) {
		body, _ := h.Body()
		return http.NewResponse(http.StatusOK, body), nil
	})
	// Shadowed by the static route of the same slug on GET.
	dynamic.Add("/script.js", func(http.Headers) (http.Response, error) {
		return http.TextResponse(http.StatusOK, "dynamic script"), nil
	})

	engine := NewEngine(files, dynamic, EngineConfig{
		StaticDir: dir,
		Logger:    zerolog.Nop(),
	})

	ln, err := transport.Listen(0, transport.DefaultBacklog, transport.IPv4)
	if err != nil {
		t.Fatalf("Listen error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- engine.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve returned %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Serve did not stop")
		}
	})

	return &testServer{engine: engine, dir: dir, port: ln.Port()}
}

func (s *testServer) send(t *testing.T, raw string) []byte {
	t.Helper()
	c, err := net.Dial("tcp", "127.0.0.1:"+strconv.Itoa(s.port))
	if err != nil {
		t.Fatalf("Dial error: %v", err)
	}
	defer c.Close()
	c.SetDeadline(time.Now().Add(5 * time.Second))

	if raw != "" {
		if _, err := io.WriteString(c, raw); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	c.(*net.TCPConn).CloseWrite()

	out, err := io.ReadAll(c)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return out
}

func (s *testServer) do(t *testing.T, raw string) reply {
	t.Helper()
	out := s.send(t, raw)

	idx := bytes.Index(out, []byte("\r\n\r\n"))
	if idx == -1 {
		t.Fatalf("Malformed response %q", out)
	}
	lines := strings.Split(string(out[:idx]), "\r\n")
	fields := strings.SplitN(lines[0], " ", 3)
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		t.Fatalf("Malformed status line %q", lines[0])
	}

	r := reply{code: code, headers: lines[1:], body: string(out[idx+4:])}
	if want := strconv.Itoa(len(r.body)); r.header("Content-Length") != want {
		t.Errorf("Expected Content-Length %s, got %s", want, r.header("Content-Length"))
	}
	return r
}

func (s *testServer) waitIdle(t *testing.T) Stats {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if st := s.engine.Stats(); st.ActiveWorkers == 0 {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("workers did not finish")
	return Stats{}
}

func TestServeStaticFile(t *testing.T) {
	s := startServer(t, true)

	r := s.do(t, "GET / HTTP/1.1\r\nHost: localhost\r\n\r\n")
	if r.code != 200 {
		t.Errorf("Expected 200, got %d", r.code)
	}
	if r.body != "<h1>index</h1>" {
		t.Errorf("Expected index body, got %q", r.body)
	}
	if ct := r.header("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Expected text/html; charset=utf-8, got %q", ct)
	}
	if r.header("Server") != "Dory" || r.header("Connection") != "closed" {
		t.Errorf("Unexpected fixed headers %v", r.headers)
	}
}

func TestStaticShadowsDynamicOnGet(t *testing.T) {
	s := startServer(t, true)

	r := s.do(t, "GET /script.js HTTP/1.1\r\n\r\n")
	if r.body != "console.log('dory')" {
		t.Errorf("Expected static script, got %q", r.body)
	}
	if ct := r.header("Content-Type"); ct != "text/javascript; charset=utf-8" {
		t.Errorf("Expected text/javascript, got %q", ct)
	}

	r = s.do(t, "POST /script.js HTTP/1.1\r\n\r\n")
	if r.body != "dynamic script" {
		t.Errorf("Expected POST to reach the dynamic route, got %q", r.body)
	}
}

func TestServeReloadedFile(t *testing.T) {
	s := startServer(t, true)

	if r := s.do(t, "GET / HTTP/1.1\r\n\r\n"); r.body != "<h1>index</h1>" {
		t.Fatalf("Expected initial index, got %q", r.body)
	}

	writeSite(t, s.dir, "index.html", "<h1>edited on disk</h1>")

	if r := s.do(t, "GET / HTTP/1.1\r\n\r\n"); r.body != "<h1>edited on disk</h1>" {
		t.Errorf("Expected edited index, got %q", r.body)
	}
}

func TestServeDynamicFailure(t *testing.T) {
	s := startServer(t, true)

	r := s.do(t, "GET /panic HTTP/1.1\r\n\r\n")
	if r.code != 500 {
		t.Errorf("Expected 500, got %d", r.code)
	}
	if !strings.Contains(r.body, "panic!") {
		t.Errorf("Expected body to contain panic!, got %q", r.body)
	}
	if r.header("Access-Control-Allow-Origin") != "" {
		t.Error("GET failures must not carry CORS headers")
	}

	r = s.do(t, "POST /panic HTTP/1.1\r\n\r\n")
	if r.code != 500 || r.body != "panic!" {
		t.Errorf("Expected 500 panic!, got %d %q", r.code, r.body)
	}
	for _, h := range []string{"Access-Control-Allow-Origin", "Access-Control-Allow-Methods", "Access-Control-Allow-Headers"} {
		if r.header(h) != "*" {
			t.Errorf("Expected %s: *, got %q", h, r.header(h))
		}
	}

	if st := s.waitIdle(t); st.Failed != 0 {
		t.Errorf("Route failures must not fail the worker, got %d failures", st.Failed)
	}
}

func TestServeDynamic(t *testing.T) {
	s := startServer(t, true)

	if r := s.do(t, "GET /hello HTTP/1.1\r\n\r\n"); r.code != 200 || r.body != "hello" {
		t.Errorf("Expected 200 hello, got %d %q", r.code, r.body)
	}

	r := s.do(t, "POST /echo HTTP/1.1\r\nContent-Length: 4\r\n\r\nping")
	if r.code != 200 || r.body != "ping" {
		t.Errorf("Expected 200 ping, got %d %q", r.code, r.body)
	}
}

func TestServeNotFound(t *testing.T) {
	s := startServer(t, true)

	for _, raw := range []string{
		"GET /missing-route HTTP/1.1\r\n\r\n",
		"POST /missing-route HTTP/1.1\r\n\r\n",
	} {
		r := s.do(t, raw)
		if r.code != 404 {
			t.Errorf("%q: expected 404, got %d", raw, r.code)
		}
		if r.body != "<h1>404</h1>" {
			t.Errorf("%q: expected 404 page, got %q", raw, r.body)
		}
		if ct := r.header("Content-Type"); ct != "text/html; charset=utf-8" {
			t.Errorf("%q: expected text/html, got %q", raw, ct)
		}
	}
}

func TestServeNotFoundWithoutPage(t *testing.T) {
	s := startServer(t, false)

	r := s.do(t, "GET /missing-route HTTP/1.1\r\n\r\n")
	if r.code != 404 || r.body != "not found" {
		t.Errorf("Expected plain 404, got %d %q", r.code, r.body)
	}
}

func TestServeNoRequestLine(t *testing.T) {
	s := startServer(t, true)

	r := s.do(t, "PUT / HTTP/1.1\r\n\r\n")
	if r.code != 404 || r.body != "not found" {
		t.Errorf("Expected plain 404, got %d %q", r.code, r.body)
	}
	if ct := r.header("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Errorf("Expected text/plain, got %q", ct)
	}
}

func TestServeEmptyRequest(t *testing.T) {
	s := startServer(t, true)

	r := s.do(t, "")
	if r.code != 100 {
		t.Errorf("Expected 100, got %d", r.code)
	}
	if r.header("Accept") != "*/*" {
		t.Errorf("Expected Accept: */*, got %v", r.headers)
	}
	if st := s.waitIdle(t); st.Failed != 0 {
		t.Errorf("Empty request must not be an error, got %d failures", st.Failed)
	}
}

func TestServeMalformedGet(t *testing.T) {
	s := startServer(t, true)

	if out := s.send(t, "GET \r\n"); len(out) != 0 {
		t.Errorf("Expected the connection to be dropped, got %q", out)
	}

	st := s.waitIdle(t)
	if st.Failed != 1 {
		t.Errorf("Expected 1 failed worker, got %d", st.Failed)
	}

	// The server keeps serving.
	if r := s.do(t, "GET / HTTP/1.1\r\n\r\n"); r.code != 200 {
		t.Errorf("Expected 200 after a failed worker, got %d", r.code)
	}
}

func TestServeConcurrent(t *testing.T) {
	s := startServer(t, true)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			slug := "/"
			want := "<h1>index</h1>"
			if i%2 == 1 {
				slug, want = "/hello", "hello"
			}
			if r := s.do(t, "GET "+slug+" HTTP/1.1\r\n\r\n"); r.body != want {
				t.Errorf("%s: expected %q, got %q", slug, want, r.body)
			}
		}(i)
	}
	wg.Wait()

	st := s.waitIdle(t)
	if st.Accepted != 16 {
		t.Errorf("Expected 16 accepted, got %d", st.Accepted)
	}
}

func TestServeFreezesRoutes(t *testing.T) {
	s := startServer(t, true)
	s.do(t, "GET / HTTP/1.1\r\n\r\n")

	if err := s.engine.Dynamic().Add("/late", nil); !errors.Is(err, router.ErrFrozen) {
		t.Errorf("Expected router.ErrFrozen, got %v", err)
	}
	if err := s.engine.Files().AddRoute("/late", filepath.Join(s.dir, "index.html")); !errors.Is(err, static.ErrFrozen) {
		t.Errorf("Expected static.ErrFrozen, got %v", err)
	}
}

func TestRunBindFailure(t *testing.T) {
	ln, err := transport.Listen(0, transport.DefaultBacklog, transport.IPv4)
	if err != nil {
		t.Fatalf("Listen error: %v", err)
	}
	defer ln.Close()

	files, err := static.NewFileRouter()
	if err != nil {
		t.Fatalf("NewFileRouter error: %v", err)
	}
	defer files.Close()

	e := NewEngine(files, router.NewDispatcher(), EngineConfig{Logger: zerolog.Nop()})
	err = e.Run(context.Background(), ln.Port())
	var sysErr *transport.SysError
	if !errors.As(err, &sysErr) {
		t.Errorf("Expected *transport.SysError, got %v", err)
	}
}
