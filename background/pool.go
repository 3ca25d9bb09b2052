// Package background runs units of work on a bounded, process-wide pool of
// workers and hands back futures for their results.
//
// A Pool is built once at startup and passed to reqdep.NewProviders as a
// plain value, so handlers can ask for a *Pool like any other dependency.
package background

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrClosed is returned when work is submitted to a pool that is shutting down.
var ErrClosed = errors.New("background pool closed")

// Config sizes a pool.
type Config struct {
	// Workers is the maximum number of tasks running at once.
	Workers int `yaml:"workers"`
	// Queue is how many submitted tasks may wait for a worker before Submit
	// blocks.
	Queue int `yaml:"queue"`
}

// DefaultConfig matches a small pool suitable for fire-and-check tasks.
func DefaultConfig() Config {
	return Config{Workers: 4, Queue: 64}
}

// Task is a unit of work.
type Task func(ctx context.Context) (any, error)

type job struct {
	ctx    context.Context
	task   Task
	future *Future
}

// Pool is a fixed set of workers fed from a bounded queue.
type Pool struct {
	logger *zap.Logger
	queue  chan job
	group  *errgroup.Group

	mu     sync.RWMutex
	closed bool
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger used to report task panics.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pool) {
		p.logger = logger
	}
}

// New starts a pool with cfg.Workers workers.
func New(cfg Config, opts ...Option) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.Queue < 0 {
		cfg.Queue = 0
	}
	p := &Pool{
		logger: zap.NewNop(),
		queue:  make(chan job, cfg.Queue),
		group:  &errgroup.Group{},
	}
	for _, opt := range opts {
		opt(p)
	}
	for i := 0; i < cfg.Workers; i++ {
		p.group.Go(p.work)
	}
	return p
}

func (p *Pool) work() error {
	for j := range p.queue {
		p.run(j)
	}
	return nil
}

func (p *Pool) run(j job) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("background task panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			j.future.complete(nil, fmt.Errorf("background task panicked: %v", r))
		}
	}()
	if err := j.ctx.Err(); err != nil {
		j.future.complete(nil, err)
		return
	}
	v, err := j.task(j.ctx)
	j.future.complete(v, err)
}

// Submit queues task and returns its future. It blocks only while the queue
// is full, and gives up when ctx is done. The task receives a context that
// keeps ctx's values but not its cancellation, since the work usually
// outlives the request that submitted it.
func (p *Pool) Submit(ctx context.Context, task Task) (*Future, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrClosed
	}

	f := newFuture()
	select {
	case p.queue <- job{ctx: context.WithoutCancel(ctx), task: task, future: f}:
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown stops accepting work and waits for queued and running tasks to
// finish, or for ctx to be done.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- p.group.Wait()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
