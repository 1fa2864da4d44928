// Package cache implements the task query cache and the open-task counter
// store on top of a pluggable key/value Backend.
//
// Only queries whose parameter set is exactly {projectId, dueDate} are
// cached, keyed by (namespace, project, fingerprint). Mutations invalidate
// every entry under a project's prefix. Both caches fail open: a broken
// backend costs latency, never correctness.
package cache
