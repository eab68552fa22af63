// Package kv defines the backing-store primitives the cache is built on and
// provides Redis, SQLite, and in-memory implementations.
//
// The primitives mirror a small subset of Redis: get/set with an optional
// expiration, integer increment, list append and range read, and a
// namespace flush. Expiration, durability, and per-key atomicity belong to
// the backend; callers hold no state of their own between calls.
//
// # Backends
//
//   - [NewRedis] wraps a caller-owned go-redis client. Expiry uses native
//     Redis TTLs. An optional prefix namespaces all keys, and FlushDB then
//     only removes keys under that prefix.
//   - [NewSQLite] persists values and lists in two tables through the pure-Go
//     modernc.org/sqlite driver. Expiry is checked lazily against a clock.
//   - [NewMemory] keeps everything in process memory. It is meant for tests
//     and local runs; a fake clockwork.Clock makes TTL behavior deterministic.
package kv
