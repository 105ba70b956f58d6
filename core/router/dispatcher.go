package router

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/searchktools/dory/core/http"
)

// Renderer produces the response for a dynamic route.
type Renderer func(h http.Headers) (http.Response, error)

// FallbackErrorBody is sent when a renderer's error cannot be described.
const FallbackErrorBody = "Could not report error"

var (
	// ErrDuplicateRoute is returned when a slug is registered twice.
	ErrDuplicateRoute = errors.New("router: route already registered")

	// ErrFrozen is returned when a route is added after the dispatcher was frozen.
	ErrFrozen = errors.New("router: routes are frozen")
)

type route struct {
	slug     string
	renderer Renderer
}

// Dispatcher maps slugs to renderers. Lookup is a linear scan in registration
// order.
type Dispatcher struct {
	routes []route
	frozen atomic.Bool
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		routes: make([]route, 0, 8),
	}
}

// Add registers renderer under slug
func (d *Dispatcher) Add(slug string, renderer Renderer) error {
	if d.frozen.Load() {
		return ErrFrozen
	}
	if renderer == nil {
		return fmt.Errorf("router: nil renderer for %s", slug)
	}
	if d.Find(slug) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateRoute, slug)
	}
	d.routes = append(d.routes, route{slug: slug, renderer: renderer})
	return nil
}

// Freeze makes the route table read-only
func (d *Dispatcher) Freeze() {
	d.frozen.Store(true)
}

// Find returns the renderer for slug, or nil
func (d *Dispatcher) Find(slug string) Renderer {
	for i := range d.routes {
		if d.routes[i].slug == slug {
			return d.routes[i].renderer
		}
	}
	return nil
}

// Slugs lists registered slugs in registration order
func (d *Dispatcher) Slugs() []string {
	slugs := make([]string, len(d.routes))
	for i := range d.routes {
		slugs[i] = d.routes[i].slug
	}
	return slugs
}

// Dispatch invokes renderer and never fails: a returned error or a panic
// becomes a 500 whose body is the error text, carrying extraHeaders. If the
// error text itself cannot be produced, the body is FallbackErrorBody.
func Dispatch(renderer Renderer, h http.Headers, extraHeaders string) (resp http.Response, failure error) {
	resp, failure = invoke(renderer, h)
	if failure == nil {
		return resp, nil
	}

	desc, ok := describe(failure)
	if !ok {
		desc = FallbackErrorBody
	}

	resp = http.TextResponse(http.StatusInternalServerError, desc)
	resp.ExtraHeaders = extraHeaders
	return resp, failure
}

func invoke(renderer Renderer, h http.Headers) (resp http.Response, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("renderer panicked: %v", p)
		}
	}()
	return renderer(h)
}

// describe renders err's text, reporting false if Error itself panics.
func describe(err error) (desc string, ok bool) {
	defer func() {
		if recover() != nil {
			desc, ok = "", false
		}
	}()
	return err.Error(), true
}
