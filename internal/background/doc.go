// Package background runs fire-and-forget jobs, such as cache write-backs,
// outside the request that produced them. Jobs are buffered in a bounded
// queue and executed by a fixed pool of workers; when the queue is full new
// jobs are rejected instead of blocking the caller.
package background
