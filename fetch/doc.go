// Package fetch retrieves page content over HTTP for cache.FetchCache.
//
// HTTP.Fetch has the cache.Fetcher signature. Non-2xx responses are
// returned as *StatusError. An optional resilience.Executor retries
// transient failures (5xx, 429, timeouts and transport errors); other
// failures are returned on the first attempt.
package fetch
