// Package observe provides observability primitives for cache operations.
//
// It wires OpenTelemetry tracing and metrics plus a JSON line logger, and a
// Middleware that wraps any operation with all three. It performs no cache
// work itself; the cache package wraps its tracked operations with it.
package observe
