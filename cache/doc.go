// Package cache records how often an operation was called and with what,
// and caches upstream fetches with a time-to-live.
//
// Everything is kept in a kv.Store so that counts, histories and cached
// content are shared by every process pointed at the same backend. The
// package offers:
//
//   - Cache: stores values under generated keys; every Store is counted and
//     its arguments and result are appended to a history.
//   - Tracker: the counting and history wrappers used by Cache, usable
//     around any Operation.
//   - Replay: reads a counter and its histories back into a Report.
//   - FetchCache: counts every fetch of an identifier and serves repeated
//     fetches from the store until the cached copy expires.
//
// Counter and history writes are separate round-trips to the store.
// Concurrent callers may interleave them, and a Replay taken during a
// concurrent Store can see an input without its output.
package cache
