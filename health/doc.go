// Package health reports whether the backing store is reachable.
//
// A Checker reports a Result with a Status: Healthy, Degraded, or
// Unhealthy. StoreChecker pings a kv.Store and degrades when the round-trip
// is slow. An Aggregator runs registered checkers concurrently under a
// shared deadline, and RegisterHandlers exposes them over HTTP:
//
//	agg := health.NewAggregator()
//	agg.Register("store", health.NewStoreChecker("redis", store, health.StoreCheckerConfig{}))
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg) // /healthz, /readyz, /health
package health
