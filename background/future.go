package background

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned by Future.Result when the task does not finish in time.
var ErrTimeout = errors.New("background task timed out")

// Future is the pending result of a submitted task.
type Future struct {
	done  chan struct{}
	value any
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) complete(v any, err error) {
	select {
	case <-f.done:
		return
	default:
	}
	f.value, f.err = v, err
	close(f.done)
}

// Done is closed when the task has finished.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result waits up to timeout for the task's result. A zero or negative
// timeout waits indefinitely. Timing out does not cancel the task.
func (f *Future) Result(timeout time.Duration) (any, error) {
	if timeout <= 0 {
		<-f.done
		return f.value, f.err
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-f.done:
		return f.value, f.err
	case <-timer.C:
		return nil, ErrTimeout
	}
}

// Await waits for the task's result or for ctx to be done.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Typed is a Future whose result has a known type.
type Typed[T any] struct {
	*Future
}

// Run submits fn to the pool and returns a typed future.
func Run[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (*Typed[T], error) {
	f, err := p.Submit(ctx, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &Typed[T]{Future: f}, nil
}

// Result waits up to timeout for the task's result, like Future.Result.
func (t *Typed[T]) Result(timeout time.Duration) (T, error) {
	return typed[T](t.Future.Result(timeout))
}

// Await waits for the task's result or for ctx to be done.
func (t *Typed[T]) Await(ctx context.Context) (T, error) {
	return typed[T](t.Future.Await(ctx))
}

func typed[T any](v any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	tv, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("background task returned %T", v)
	}
	return tv, nil
}
