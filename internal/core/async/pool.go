// Package async runs work on a fixed number of goroutines fed by a bounded queue.
package async

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("pool is shutting down")

// Handler processes one submitted item.
type Handler[T, R any] func(ctx context.Context, item T) (R, error)

// Result is a completed item. Err is set when the handler failed or panicked.
type Result[T, R any] struct {
	Item  T
	Value R
	Err   error
}

type Pool[T, R any] struct {
	handler Handler[T, R]
	logger  *slog.Logger
	workers int
	size    int

	in   chan T
	out  chan Result[T, R]
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type options struct {
	workers int
	size    int
}

type Option func(*options)

func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.size = n
		}
	}
}

// NewPool starts the workers immediately. Results must be drained by the caller.
func NewPool[T, R any](ctx context.Context, handler func(ctx context.Context, item T) (R, error), logger *slog.Logger, opts ...Option) *Pool[T, R] {
	if logger == nil {
		logger = slog.Default()
	}
	o := options{workers: 5, size: 64}
	for _, fn := range opts {
		fn(&o)
	}
	p := &Pool[T, R]{
		handler: handler,
		logger:  logger,
		workers: o.workers,
		size:    o.size,
		in:      make(chan T, o.size),
		out:     make(chan Result[T, R], o.workers),
	}
	p.start(ctx)
	return p
}

// Workers is the number of worker goroutines.
func (p *Pool[T, R]) Workers() int { return p.workers }

func (p *Pool[T, R]) start(ctx context.Context) {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go func(workerID int) {
				defer p.wg.Done()
				p.logger.Debug("pool.worker.started", "worker_id", workerID)
				for item := range p.in {
					p.out <- p.run(ctx, workerID, item)
				}
				p.logger.Debug("pool.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
		go func() {
			p.wg.Wait()
			close(p.out)
		}()
	})
}

func (p *Pool[T, R]) run(ctx context.Context, workerID int, item T) (res Result[T, R]) {
	res.Item = item
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("pool.worker.panic", "worker_id", workerID, "panic", rec)
			res.Err = fmt.Errorf("worker %d panicked: %v", workerID, rec)
		}
	}()
	res.Value, res.Err = p.handler(ctx, item)
	return res
}

// Submit queues item, blocking while the queue is full.
func (p *Pool[T, R]) Submit(ctx context.Context, item T) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.in <- item:
		return nil
	default:
	}
	p.logger.Debug("pool.queue.full", "size", p.size)
	select {
	case p.in <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Results yields one Result per submitted item, in completion order. It is
// closed once Close has been called and every queued item has finished.
func (p *Pool[T, R]) Results() <-chan Result[T, R] { return p.out }

// Close stops accepting items. Queued items still run.
func (p *Pool[T, R]) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.in)
}
