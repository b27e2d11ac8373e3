// Package monitor implements a worker pool, created per Domain on first
// submission, that accepts task submissions tagged with resource requirements and returns
// a future. A semaphore.Weighted per Domain bounds overall concurrency,
// and a second weight-1 semaphore per Domain serializes EXCLUSIVE tasks
// against each other.
package monitor

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Domain is the execution domain a task requires.
type Domain int

const (
	DomainCPU Domain = iota
	DomainAccelerator
)

// Access describes how a task shares its domain's resources.
type Access int

const (
	AccessShared Access = iota
	AccessExclusive
)

// Requirements describes what a submitted task needs.
type Requirements struct {
	Domain          Domain
	Access          Access
	StartingThreads int // concurrency hint; 0 = runtime.NumCPU()
}

// Future is the handle returned by Submit. Get blocks until the task
// completes, returning its result or its error.
type Future struct {
	done chan struct{}
	val  interface{}
	err  error
}

// Get blocks until the task completes.
func (f *Future) Get() (interface{}, error) {
	<-f.done
	return f.val, f.err
}

type domainPool struct {
	sem       *semaphore.Weighted
	exclusive *semaphore.Weighted
}

// Monitor is the worker pool. One Monitor lives for the process.
type Monitor struct {
	pools map[Domain]*domainPool
}

// New creates a Monitor with per-domain concurrency sized from
// requirements supplied at submission time; pools are created lazily on
// first use so a Domain that's never submitted to costs nothing.
func New() *Monitor {
	return &Monitor{pools: make(map[Domain]*domainPool)}
}

func (m *Monitor) poolFor(d Domain, hint int) *domainPool {
	if p, ok := m.pools[d]; ok {
		return p
	}
	n := hint
	if n <= 0 {
		n = runtime.NumCPU()
	}
	p := &domainPool{
		sem:       semaphore.NewWeighted(int64(n)),
		exclusive: semaphore.NewWeighted(1),
	}
	m.pools[d] = p
	return p
}

// Submit runs task in a new goroutine once the domain's concurrency
// budget (and, for EXCLUSIVE tasks, the domain's exclusive slot) is
// available, and returns a Future for its result. A submitted task
// eventually runs exactly once; panics are recovered and surfaced as the
// future's error rather than crashing the pool.
func (m *Monitor) Submit(ctx context.Context, req Requirements, label string, task func(ctx context.Context) (interface{}, error)) *Future {
	fut := &Future{done: make(chan struct{})}
	pool := m.poolFor(req.Domain, req.StartingThreads)

	go func() {
		defer close(fut.done)

		if err := pool.sem.Acquire(ctx, 1); err != nil {
			fut.err = err
			return
		}
		defer pool.sem.Release(1)

		if req.Access == AccessExclusive {
			if err := pool.exclusive.Acquire(ctx, 1); err != nil {
				fut.err = err
				return
			}
			defer pool.exclusive.Release(1)
		}

		fut.val, fut.err = runTask(ctx, task)
	}()

	return fut
}

// runTask converts a panicking task into an error result so one failing
// resource never brings down the pool or the caller awaiting it.
func runTask(ctx context.Context, task func(ctx context.Context) (interface{}, error)) (val interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{r}
		}
	}()
	return task(ctx)
}

type panicError struct{ v interface{} }

func (p panicError) Error() string { return "task panicked: " + toString(p.v) }

func toString(v interface{}) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "unknown panic"
}
