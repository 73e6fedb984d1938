// Package taskpool implements a supervised fire-and-forget background-task
// pool: the catch-all for work a request handler wants done but cannot wait
// on — session-memory writes, event-log relays — with errors swallowed (and
// logged) rather than surfaced to the caller.
package taskpool

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Pool runs submitted funcs on a bounded worker set. Submit never blocks the
// caller on the func's completion; DrainOnShutdown waits for everything already queued
// to finish.
type Pool struct {
	jobs chan func(context.Context)
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New starts a Pool with workers goroutines draining a queue of depth
// queueDepth. Jobs submitted once the queue is full block the submitter
// until a slot frees up — Submit is fire-and-forget with respect to the
// job's outcome, not with respect to backpressure.
func New(workers, queueDepth int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueDepth < 1 {
		queueDepth = 1
	}
	p := &Pool{jobs: make(chan func(context.Context), queueDepth)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		p.run(job)
	}
}

func (p *Pool) run(job func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("taskpool: recovered panic in background task")
		}
	}()
	job(context.Background())
}

// Submit enqueues fn for asynchronous execution. fn receives a fresh
// background context decoupled from whatever request triggered it, since
// the whole point is to outlive that request. Submit is a no-op once the
// pool has started draining.
func (p *Pool) Submit(fn func(context.Context)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		log.Warn().Msg("taskpool: submit after drain, dropping task")
		return
	}
	p.jobs <- fn
}

// DrainOnShutdown closes the submission queue and blocks until every queued
// and in-flight task has finished, or ctx is done first.
func (p *Pool) DrainOnShutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	close(p.jobs)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
