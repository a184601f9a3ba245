// Package server exposes a Coordinator over JSON/HTTP.
//
// Every failure is returned as {"error": "..."} with a status derived from
// the error kind. Every response carries permissive CORS headers and an
// X-Request-ID.
//
// Usage:
//
//	srv, err := server.New(server.Options{Port: 9565}, coordinator, logger)
//	go srv.Start()
//	defer srv.Stop(ctx)
package server
