package async

import (
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/decksmith/deck-api/internal/pkg/metrics"
)

const (
	// DefaultCPUMultiplier assumes jobs spend most of their time waiting on
	// storage round trips rather than burning CPU.
	DefaultCPUMultiplier = 50
	defaultQueuePerWorker = 4
)

// ErrPoolClosed is returned for work submitted after Close.
var ErrPoolClosed = errors.New("async: pool closed")

// Options sizes a Pool.
type Options struct {
	// Workers is the exact worker count. When zero it is derived from
	// runtime.NumCPU() * CPUMultiplier.
	Workers int
	// CPUMultiplier scales the CPU count when Workers is zero.
	CPUMultiplier int
	// QueueSize bounds pending jobs. Submit blocks when the queue is full.
	QueueSize int
}

// Pool is a fixed set of goroutines shared by every repository operation.
type Pool struct {
	jobs    chan func()
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	workers int
	log     zerolog.Logger
}

// NewPool starts the workers immediately.
func NewPool(opts Options, log zerolog.Logger) *Pool {
	workers := opts.Workers
	if workers <= 0 {
		mult := opts.CPUMultiplier
		if mult <= 0 {
			mult = DefaultCPUMultiplier
		}
		workers = runtime.NumCPU() * mult
	}
	queue := opts.QueueSize
	if queue <= 0 {
		queue = workers * defaultQueuePerWorker
	}

	p := &Pool{
		jobs:    make(chan func(), queue),
		workers: workers,
		log:     log,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.runWorker()
	}
	metrics.WorkerPoolSize.Set(float64(workers))
	log.Debug().Int("workers", workers).Int("queue", queue).Msg("worker pool started")
	return p
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int { return p.workers }

// Close stops accepting work, drains the queue and waits for the workers.
// Calling it twice is harmless.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

// Submit schedules fn on the pool and returns its future.
func Submit[T any](p *Pool, fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	job := func() {
		val, err := call(fn)
		if errors.Is(err, ErrPanic) {
			p.log.Error().Err(err).Msg("pool job panicked")
		}
		f.resolve(val, err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return Failed[T](ErrPoolClosed)
	}
	p.jobs <- job
	metrics.WorkerPoolQueueDepth.Set(float64(len(p.jobs)))
	return f
}

func (p *Pool) runWorker() {
	defer p.wg.Done()
	for job := range p.jobs {
		metrics.WorkerPoolQueueDepth.Set(float64(len(p.jobs)))
		job()
	}
}
