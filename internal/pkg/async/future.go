package async

import (
	"context"
	"errors"
	"fmt"
)

// Future is the eventual result of a unit of work. It resolves exactly once.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(val T, err error) {
	f.val = val
	f.err = err
	close(f.done)
}

// Resolved returns a future that is already complete.
func Resolved[T any](val T, err error) *Future[T] {
	f := newFuture[T]()
	f.resolve(val, err)
	return f
}

// Failed returns a completed future carrying err.
func Failed[T any](err error) *Future[T] {
	var zero T
	return Resolved(zero, err)
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await blocks until the future resolves or ctx ends. Ending ctx only stops
// the wait; the underlying work keeps running.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then runs fn with the result of f once it succeeds. A failed f short-circuits:
// fn is never called and the error is passed through.
func Then[A, B any](f *Future[A], fn func(A) (B, error)) *Future[B] {
	out := newFuture[B]()
	go func() {
		<-f.done
		if f.err != nil {
			var zero B
			out.resolve(zero, f.err)
			return
		}
		out.resolve(call(func() (B, error) { return fn(f.val) }))
	}()
	return out
}

// Compose is Then for steps that are themselves asynchronous.
func Compose[A, B any](f *Future[A], fn func(A) *Future[B]) *Future[B] {
	out := newFuture[B]()
	go func() {
		<-f.done
		if f.err != nil {
			var zero B
			out.resolve(zero, f.err)
			return
		}
		next, err := call(func() (*Future[B], error) { return fn(f.val), nil })
		if err != nil {
			var zero B
			out.resolve(zero, err)
			return
		}
		<-next.done
		out.resolve(next.val, next.err)
	}()
	return out
}

// All resolves with every value in order, or with the first error observed.
func All[T any](fs ...*Future[T]) *Future[[]T] {
	out := newFuture[[]T]()
	go func() {
		vals := make([]T, len(fs))
		var errs []error
		for i, f := range fs {
			<-f.done
			if f.err != nil {
				errs = append(errs, f.err)
				continue
			}
			vals[i] = f.val
		}
		if len(errs) > 0 {
			out.resolve(nil, errs[0])
			return
		}
		out.resolve(vals, nil)
	}()
	return out
}

// call runs fn and turns a panic into an error.
func call[T any](fn func() (T, error)) (val T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn()
}

// ErrPanic wraps a panic recovered from a job.
var ErrPanic = errors.New("async: job panicked")
