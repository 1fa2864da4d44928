package background

import "context"

// Job is a unit of background work.
type Job interface {
	// Name identifies the job kind in logs.
	Name() string

	// Run executes the job. The context is owned by the worker pool, not by
	// the request that enqueued the job.
	Run(ctx context.Context) error
}

type funcJob struct {
	name string
	fn   func(ctx context.Context) error
}

func (j funcJob) Name() string { return j.name }

func (j funcJob) Run(ctx context.Context) error { return j.fn(ctx) }

// NewJob wraps fn as a Job.
func NewJob(name string, fn func(ctx context.Context) error) Job {
	return funcJob{name: name, fn: fn}
}

// QueueReader provides read-only access to queued jobs, allowing workers to
// consume them without the ability to enqueue.
type QueueReader interface {
	// Channel returns the channel jobs are delivered on. It is closed when
	// the queue is closed.
	Channel() <-chan Job
}

// QueueWriter accepts jobs for processing.
type QueueWriter interface {
	// Enqueue adds a job without blocking. It returns ErrQueueFull or
	// ErrQueueClosed when the job cannot be accepted.
	Enqueue(job Job) error
}
