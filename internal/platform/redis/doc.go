// Package redis implements cache.Backend on top of go-redis.
//
// Keys are namespaced with an optional prefix so several deployments can
// share one Redis instance. Prefix deletes use SCAN with a MATCH pattern and
// remove keys in batches with UNLINK, so they never block the server the way
// KEYS would.
package redis
