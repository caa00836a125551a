// Package observability builds the process logger and the Prometheus
// registry for the orders API.
//
// The registry is private to the service; nothing is registered on the
// Prometheus default registerer, so tests can build as many as they need.
package observability
