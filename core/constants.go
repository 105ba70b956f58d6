package core

import "errors"

// Header lines the handler attaches to particular responses.
const (
	HeaderAcceptAny = "Accept: */*\r\n"
)

// NotFoundPage is the page served for unknown slugs, relative to the static root.
const NotFoundPage = "error/404.html"

// Error definitions
var (
	ErrWorkerPanic = errors.New("worker panicked")
)
