// Package performance provides the worker pool used for batch analysis and
// the rate limiter that paces broker API calls.
package performance

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// WorkerPool runs submitted tasks on a fixed set of goroutines.
type WorkerPool struct {
	workers int
	queue   chan func()
	wg      sync.WaitGroup

	// mu guards queue against a send racing with Stop's close.
	mu      sync.RWMutex
	started bool
	stopped bool

	submitted atomic.Uint64
	completed atomic.Uint64
}

// NewWorkerPool creates a pool with the given number of workers; zero or
// less means one per CPU.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &WorkerPool{
		workers: workers,
		queue:   make(chan func(), workers*16),
	}
}

// Start launches the workers. Calling it again, or after Stop, does nothing.
func (p *WorkerPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true

	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go func() {
			defer p.wg.Done()
			for task := range p.queue {
				task()
				p.completed.Add(1)
			}
		}()
	}
}

// Submit queues a task without blocking. It returns false when the pool is
// not running or the queue is full.
func (p *WorkerPool) Submit(task func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.started || p.stopped {
		return false
	}

	select {
	case p.queue <- task:
		p.submitted.Add(1)
		return true
	default:
		return false
	}
}

// Run calls fn(i) for every i in [0, n) on the pool and waits for all of
// them. Tasks the pool cannot accept run on the calling goroutine, and
// tasks not yet started when ctx is done are skipped.
func (p *WorkerPool) Run(ctx context.Context, n int, fn func(i int)) error {
	var wg sync.WaitGroup
	for i := 0; i < n && ctx.Err() == nil; i++ {
		i := i
		wg.Add(1)
		task := func() {
			defer wg.Done()
			if ctx.Err() == nil {
				fn(i)
			}
		}
		if !p.Submit(task) {
			task()
		}
	}
	wg.Wait()
	return ctx.Err()
}

// Stop closes the queue and waits for queued tasks to finish.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

// Stats returns pool counters.
func (p *WorkerPool) Stats() PoolStats {
	p.mu.RLock()
	running := p.started && !p.stopped
	p.mu.RUnlock()
	return PoolStats{
		Workers:   p.workers,
		Running:   running,
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Queued:    len(p.queue),
	}
}

// PoolStats contains worker pool counters.
type PoolStats struct {
	Workers   int
	Running   bool
	Submitted uint64
	Completed uint64
	Queued    int
}

// RateLimiter is a token bucket: it holds up to burst tokens and refills
// at rate tokens per second.
type RateLimiter struct {
	rate  float64
	burst float64
	now   func() time.Time

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewRateLimiter creates a full bucket.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	r := &RateLimiter{
		rate:   rate,
		burst:  float64(burst),
		now:    time.Now,
		tokens: float64(burst),
	}
	r.last = r.now()
	return r
}

// Allow takes a token if one is available.
func (r *RateLimiter) Allow() bool {
	return r.reserve() == 0
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		delay := r.reserve()
		if delay == 0 {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve takes a token and returns zero, or returns how long until the
// next token is due.
func (r *RateLimiter) reserve() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.tokens += now.Sub(r.last).Seconds() * r.rate
	if r.tokens > r.burst {
		r.tokens = r.burst
	}
	r.last = now

	if r.tokens >= 1 {
		r.tokens--
		return 0
	}
	if r.rate <= 0 {
		return time.Hour
	}
	delay := time.Duration((1 - r.tokens) / r.rate * float64(time.Second))
	if delay < time.Millisecond {
		delay = time.Millisecond
	}
	return delay
}
