package ocr

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Lazy holds a value that is built on first use. Concurrent first callers
// share one initialization; afterwards every caller sees the same value.
// A failed initialization is not cached and the next caller retries.
type Lazy[T any] struct {
	init func(context.Context) (T, error)

	mu    sync.Mutex
	ready bool
	val   T
	group singleflight.Group
}

// NewLazy returns a cell that calls init at most once successfully.
func NewLazy[T any](init func(context.Context) (T, error)) *Lazy[T] {
	return &Lazy[T]{init: init}
}

// Get returns the value, initializing it if needed. Initialization runs
// detached from ctx so that one caller giving up does not fail the others;
// ctx only bounds how long this caller waits.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	var zero T
	if v, ok := l.Peek(); ok {
		return v, nil
	}
	ch := l.group.DoChan("init", func() (any, error) {
		if v, ok := l.Peek(); ok {
			return v, nil
		}
		v, err := l.init(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.val = v
		l.ready = true
		l.mu.Unlock()
		return v, nil
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		t, _ := res.Val.(T)
		return t, nil
	}
}

// Peek returns the value if it has been initialized.
func (l *Lazy[T]) Peek() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.val, l.ready
}
