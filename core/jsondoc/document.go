// Package jsondoc is a small JSON document model backed by protobuf's
// well-known Struct type.
package jsondoc

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Document is a JSON object.
type Document struct {
	s *structpb.Struct
}

// New returns an empty object.
func New() *Document {
	return &Document{s: &structpb.Struct{Fields: map[string]*structpb.Value{}}}
}

// FromMap builds a document from Go values (nil, bool, numbers, string,
// []any, map[string]any).
func FromMap(m map[string]any) (*Document, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("jsondoc: %w", err)
	}
	return &Document{s: s}, nil
}

// Parse decodes a JSON object.
func Parse(data []byte) (*Document, error) {
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("jsondoc: parse: %w", err)
	}
	return &Document{s: s}, nil
}

// Set stores v under key.
func (d *Document) Set(key string, v any) error {
	val, err := structpb.NewValue(v)
	if err != nil {
		return fmt.Errorf("jsondoc: set %s: %w", key, err)
	}
	d.s.Fields[key] = val
	return nil
}

// AsMap converts the document to plain Go values.
func (d *Document) AsMap() map[string]any {
	return d.s.AsMap()
}

// Marshal encodes the document as compact JSON.
func (d *Document) Marshal() ([]byte, error) {
	return protojson.Marshal(d.s)
}

// MarshalIndent encodes the document as indented JSON.
func (d *Document) MarshalIndent() ([]byte, error) {
	return protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(d.s)
}
