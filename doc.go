/*
Package dory is a small HTTP server that answers every connection in
isolation, serving static files from memory maps and a handful of
computed routes.

Features

  - Raw sockets: no net/http, one request per connection
  - Static files are mapped once at startup and remapped when inotify
    reports them modified
  - Dynamic routes are plain functions from request to response; a failing
    or panicking route becomes a 500
  - A failing connection only ends its own worker; a failing server is torn
    down and restarted after a delay
  - Prometheus metrics and OpenTelemetry spans per connection

Quick Start

	package main

	import (
	    "os"

	    "github.com/searchktools/dory/app"
	    "github.com/searchktools/dory/config"
	    "github.com/searchktools/dory/core/http"
	)

	func main() {
	    cfg := config.Default()
	    cfg.StaticDir = "./static"

	    a, err := app.New(cfg, app.NewLogger(cfg, os.Stderr))
	    if err != nil {
	        panic(err)
	    }
	    defer a.Close()

	    a.Engine().Dynamic().Add("/hello", func(http.Headers) (http.Response, error) {
	        return http.TextResponse(http.StatusOK, "Hello, World!"), nil
	    })

	    a.ListenAndServe()
	}

Modules

  - app: Application lifecycle, built-in routes and the restart loop
  - config: Configuration from flags, DORY_* variables and JSON files
  - core: Connection handler and supervisor
  - core/transport: Listening and connected sockets
  - core/http: Request line parsing and response serialization
  - core/static: Memory-mapped files, change watching and the static routes
  - core/router: Dynamic routes
  - core/pools: Byte buffers shared by reads and writes
  - core/jsondoc: JSON documents
  - core/observability: Metrics and tracing
*/
package dory
