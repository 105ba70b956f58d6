package http

import (
	"bytes"
)

var blankLine = []byte("\r\n\r\n")

// ProtocolError reports a request line that names a method but not a target.
type ProtocolError struct {
	Method Method
	Line   string
}

func (e *ProtocolError) Error() string {
	return "http: not enough arguments in " + e.Method.String()
}

// Headers wraps a raw request buffer. Nothing is parsed until asked for, and
// every value returned borrows from the raw buffer's contents.
type Headers struct {
	raw []byte
}

// ParseHeaders wraps raw without parsing it.
func ParseHeaders(raw []byte) Headers {
	return Headers{raw: raw}
}

// Raw returns the wrapped request bytes.
func (h Headers) Raw() []byte {
	return h.raw
}

// Get returns the first GET line's target, or nil if the request has none.
func (h Headers) Get() (*Get, error) {
	slug, ok, err := h.requestLine(MethodGet)
	if err != nil || !ok {
		return nil, err
	}
	return &Get{Slug: slug}, nil
}

// Post returns the first POST line's target, or nil if the request has none.
func (h Headers) Post() (*Post, error) {
	slug, ok, err := h.requestLine(MethodPost)
	if err != nil || !ok {
		return nil, err
	}
	return &Post{Slug: slug}, nil
}

// Body returns everything after the first blank line. Later blank lines stay
// part of the body.
func (h Headers) Body() ([]byte, bool) {
	idx := bytes.Index(h.raw, blankLine)
	if idx == -1 {
		return nil, false
	}
	return h.raw[idx+len(blankLine):], true
}

// requestLine scans for the first line starting with "<METHOD> " and returns
// its second space-separated token verbatim. The HTTP version is not checked.
func (h Headers) requestLine(m Method) (string, bool, error) {
	prefix := []byte(m.String() + " ")

	data := h.raw
	for len(data) > 0 {
		line := data
		if lineEnd := bytes.IndexByte(data, '\n'); lineEnd != -1 {
			line = data[:lineEnd]
			data = data[lineEnd+1:]
		} else {
			data = nil
		}

		if !bytes.HasPrefix(line, prefix) {
			continue
		}

		line = bytes.TrimSuffix(line, []byte{'\r'})
		tokens := splitTokens(line)
		if len(tokens) < 2 {
			return "", false, &ProtocolError{Method: m, Line: string(line)}
		}
		return string(tokens[1]), true, nil
	}

	return "", false, nil
}

// splitTokens splits on single spaces and drops empty tokens.
func splitTokens(line []byte) [][]byte {
	tokens := make([][]byte, 0, 3)
	for len(line) > 0 {
		sp := bytes.IndexByte(line, ' ')
		if sp == -1 {
			tokens = append(tokens, line)
			break
		}
		if sp > 0 {
			tokens = append(tokens, line[:sp])
		}
		line = line[sp+1:]
	}
	return tokens
}
