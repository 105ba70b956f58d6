package http

import (
	"errors"
	"testing"
)

func TestHeadersGet(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantSlug string
		wantNil  bool
	}{
		{"simple", "GET / HTTP/1.1\r\nHost: x\r\n\r\n", "/", false},
		{"nested", "GET /script.js HTTP/1.1\r\n\r\n", "/script.js", false},
		{"percent kept", "GET /a%20b HTTP/1.1\r\n\r\n", "/a%20b", false},
		{"no version", "GET /bare\r\n\r\n", "/bare", false},
		{"no trailing newline", "GET /eof HTTP/1.1", "/eof", false},
		{"later line", "Host: x\r\nGET /late HTTP/1.1\r\n\r\n", "/late", false},
		{"first wins", "GET /one HTTP/1.1\nGET /two HTTP/1.1\n", "/one", false},
		{"post only", "POST /api HTTP/1.1\r\n\r\n", "", true},
		{"lowercase", "get / HTTP/1.1\r\n\r\n", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			get, err := ParseHeaders([]byte(tt.raw)).Get()
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tt.wantNil {
				if get != nil {
					t.Errorf("Expected no GET line, got %v", get)
				}
				return
			}
			if get == nil {
				t.Fatal("Expected GET line, got nil")
			}
			if get.Slug != tt.wantSlug {
				t.Errorf("Expected slug %q, got %q", tt.wantSlug, get.Slug)
			}
		})
	}
}

func TestHeadersGetMissingTarget(t *testing.T) {
	for _, raw := range []string{"GET \r\n", "GET  \r\n\r\n", "GET "} {
		_, err := ParseHeaders([]byte(raw)).Get()
		var protoErr *ProtocolError
		if !errors.As(err, &protoErr) {
			t.Errorf("%q: expected *ProtocolError, got %v", raw, err)
			continue
		}
		if protoErr.Method != MethodGet {
			t.Errorf("%q: expected GET in error, got %s", raw, protoErr.Method)
		}
	}
}

func TestHeadersPost(t *testing.T) {
	raw := []byte("POST /echo HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello")
	h := ParseHeaders(raw)

	post, err := h.Post()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if post == nil || post.Slug != "/echo" {
		t.Fatalf("Expected slug /echo, got %v", post)
	}

	get, err := h.Get()
	if err != nil || get != nil {
		t.Errorf("Expected no GET line, got %v, %v", get, err)
	}

	if _, err := ParseHeaders([]byte("POST \r\n")).Post(); err == nil {
		t.Error("Expected protocol error for POST without target")
	}
}

func TestHeadersBody(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		present bool
	}{
		{"POST / HTTP/1.1\r\n\r\nabc", "abc", true},
		{"POST / HTTP/1.1\r\n\r\n", "", true},
		{"POST / HTTP/1.1\r\n\r\nfirst\r\n\r\nsecond", "first\r\n\r\nsecond", true},
		{"GET / HTTP/1.1\r\nHost: x\r\n", "", false},
		{"GET / HTTP/1.1\n\nabc", "", false},
	}

	for _, tt := range tests {
		body, ok := ParseHeaders([]byte(tt.raw)).Body()
		if ok != tt.present {
			t.Errorf("%q: expected present=%v, got %v", tt.raw, tt.present, ok)
			continue
		}
		if string(body) != tt.want {
			t.Errorf("%q: expected body %q, got %q", tt.raw, tt.want, body)
		}
	}
}

func TestGetString(t *testing.T) {
	if got := (Get{Slug: "/"}).String(); got != `http.Get("/")` {
		t.Errorf("Expected http.Get(\"/\"), got %s", got)
	}
	if got := (Post{Slug: "/x"}).String(); got != `http.Post("/x")` {
		t.Errorf("Expected http.Post(\"/x\"), got %s", got)
	}
}

func BenchmarkHeadersGet(b *testing.B) {
	raw := []byte("GET /hello/world HTTP/1.1\r\nHost: localhost\r\nUser-Agent: bench\r\n\r\n")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		ParseHeaders(raw).Get()
	}
}
