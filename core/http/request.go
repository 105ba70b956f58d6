package http

import "strconv"

// Method is a request method recognised by the parser.
type Method uint8

const (
	MethodGet Method = iota
	MethodPost
)

func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodPost:
		return "POST"
	}
	return "UNKNOWN"
}

// Get is a parsed GET request line.
type Get struct {
	Slug string
}

func (g Get) String() string {
	return "http.Get(" + strconv.Quote(g.Slug) + ")"
}

// Post is a parsed POST request line.
type Post struct {
	Slug string
}

func (p Post) String() string {
	return "http.Post(" + strconv.Quote(p.Slug) + ")"
}
