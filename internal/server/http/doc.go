// Package httpserver exposes the Flow service over HTTP/JSON. Handlers are
// thin: decode, call the service facade, map sentinel errors to statuses.
package httpserver
