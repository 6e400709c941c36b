package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	ErrClosed        = errors.New("worker pool closed")
	ErrGraceExceeded = errors.New("grace period exceeded")
)

// Job receives a context that is cancelled once the pool's grace period
// runs out.
type Job func(ctx context.Context)

// Pool runs submitted jobs on a fixed number of goroutines.
type Pool struct {
	mu     sync.RWMutex
	closed bool
	jobs   chan Job
	g      errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
}

func New(size, queue int) *Pool {
	if size < 1 {
		size = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		jobs:   make(chan Job, queue),
		ctx:    ctx,
		cancel: cancel,
	}

	for range size {
		p.g.Go(func() error {
			for job := range p.jobs {
				job(p.ctx)
			}
			return nil
		})
	}

	return p
}

// Submit queues job, blocking while the queue is full.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}

	select {
	case p.jobs <- job:
		return nil
	case <-p.ctx.Done():
		return ErrClosed
	}
}

// Abort cancels the job context. Submit calls blocked on a full queue return
// ErrClosed.
func (p *Pool) Abort() {
	p.cancel()
}

// Close stops accepting jobs and waits for queued and running ones. When
// grace elapses first the job context is cancelled and ErrGraceExceeded is
// returned without waiting further.
func (p *Pool) Close(grace time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = p.g.Wait()
		close(done)
	}()

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-timer.C:
		p.cancel()
		return ErrGraceExceeded
	}
}
