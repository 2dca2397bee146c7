package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

type indexedJob struct {
	index int
	job   Job
}

// Pool manages a pool of workers that execute jobs concurrently.
// Results are returned in submission order.
type Pool struct {
	workers    int
	jobQueue   chan indexedJob
	collector  *ResultCollector
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once

	mu        sync.Mutex
	submitted int
}

// NewPool creates a new worker pool bound to ctx
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan indexedJob, workers*2),
		collector:  NewResultCollector(),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start starts the worker pool
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case ij, ok := <-p.jobQueue:
			if !ok {
				return
			}
			if p.ctx.Err() != nil {
				return
			}
			p.collector.Set(ij.index, ij.job.Execute(p.ctx))
		}
	}
}

// Submit queues a job. It returns false once the pool has been canceled.
// Submit must not be called after Wait.
func (p *Pool) Submit(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}

	p.mu.Lock()
	index := p.submitted
	p.submitted++
	p.mu.Unlock()

	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- indexedJob{index: index, job: job}:
		return true
	}
}

// Wait waits for all submitted jobs and returns one slot per Submit call.
// A slot is nil when its job never ran because the pool was canceled.
func (p *Pool) Wait() []Result {
	p.closeQueue()
	p.wg.Wait()
	p.cancelFunc()

	p.mu.Lock()
	n := p.submitted
	p.mu.Unlock()
	return p.collector.Results(n)
}

// Shutdown stops the pool; queued jobs that have not started are dropped
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
}

func (p *Pool) closeQueue() {
	p.closeOnce.Do(func() {
		close(p.jobQueue)
	})
}

// ResultCollector stores results by submission index (thread-safe)
type ResultCollector struct {
	results map[int]Result
	mu      sync.Mutex
}

// NewResultCollector creates a new result collector
func NewResultCollector() *ResultCollector {
	return &ResultCollector{
		results: make(map[int]Result),
	}
}

// Set records the result for a job index
func (c *ResultCollector) Set(index int, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[index] = result
}

// Results returns n ordered slots; missing results are nil
func (c *ResultCollector) Results(n int) []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Result, n)
	for i := range out {
		out[i] = c.results[i]
	}
	return out
}
