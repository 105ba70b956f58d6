package jsondoc

import (
	"strings"
	"testing"
)

func TestDocumentSetGet(t *testing.T) {
	d := New()
	if err := d.Set("server", "Dory"); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := d.Set("workers", 3); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := d.Set("bad", make(chan int)); err == nil {
		t.Error("Expected error for unsupported value")
	}

	m := d.AsMap()
	if m["server"] != "Dory" {
		t.Errorf("Expected Dory, got %v", m["server"])
	}
	if m["workers"] != float64(3) {
		t.Errorf("Expected 3, got %v", m["workers"])
	}
	if len(m) != 2 {
		t.Errorf("Expected 2 keys, got %d", len(m))
	}
}

func TestDocumentMarshalIndent(t *testing.T) {
	d := New()
	d.Set("server", "Dory")

	compact, err := d.Marshal()
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	indented, err := d.MarshalIndent()
	if err != nil {
		t.Fatalf("MarshalIndent error: %v", err)
	}
	if strings.Contains(string(compact), "\n") {
		t.Errorf("Expected compact output on one line, got %q", compact)
	}
	if !strings.Contains(string(indented), "\n  \"server\"") {
		t.Errorf("Expected indented output, got %q", indented)
	}

	parsed, err := Parse(indented)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if parsed.AsMap()["server"] != "Dory" {
		t.Errorf("Expected indented output to round-trip, got %v", parsed.AsMap())
	}
}

func TestDocumentMarshalParse(t *testing.T) {
	d, err := FromMap(map[string]any{
		"name":   "dory",
		"routes": []any{"/", "/script.js"},
		"nested": map[string]any{"port": 8080},
	})
	if err != nil {
		t.Fatalf("FromMap error: %v", err)
	}

	data, err := d.Marshal()
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	parsed, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	m := parsed.AsMap()
	if m["name"] != "dory" {
		t.Errorf("Expected name dory, got %v", m["name"])
	}
	routes, ok := m["routes"].([]any)
	if !ok || len(routes) != 2 || routes[1] != "/script.js" {
		t.Errorf("Expected two routes, got %v", m["routes"])
	}
	nested, ok := m["nested"].(map[string]any)
	if !ok || nested["port"] != float64(8080) {
		t.Errorf("Expected nested port 8080, got %v", m["nested"])
	}
}

func TestParseRejectsNonObject(t *testing.T) {
	for _, in := range []string{"[1,2]", "nope", `{"a":`} {
		if _, err := Parse([]byte(in)); err == nil {
			t.Errorf("%q: expected parse error", in)
		}
	}
}
