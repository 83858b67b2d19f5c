// Package guard serializes access to a shared value.
//
// A Guard holds a value and a single-slot lock. Every read and write goes
// through WithLock or Do, so no two goroutines ever observe or mutate the
// value at the same time. Waiting for the lock can be abandoned through the
// caller's context; once acquired, the lock is held until the operation
// returns or panics.
package guard

import "context"

type Guard[T any] struct {
	sem   chan struct{}
	value T
}

func New[T any](value T) *Guard[T] {
	return &Guard[T]{
		sem:   make(chan struct{}, 1),
		value: value,
	}
}

// WithLock runs op against the guarded value while holding the lock and
// returns whatever op returns. It returns ctx.Err() without running op if
// ctx ends before the lock is acquired. Calling WithLock from inside op
// deadlocks.
func (g *Guard[T]) WithLock(ctx context.Context, op func(v *T) error) error {
	if err := g.acquire(ctx); err != nil {
		return err
	}
	defer g.release()
	return op(&g.value)
}

// Do is the value-returning form of WithLock.
func Do[T, R any](ctx context.Context, g *Guard[T], op func(v *T) (R, error)) (R, error) {
	var out R
	err := g.WithLock(ctx, func(v *T) error {
		var err error
		out, err = op(v)
		return err
	})
	return out, err
}

func (g *Guard[T]) acquire(ctx context.Context) error {
	// uncontended
	select {
	case g.sem <- struct{}{}:
		return nil
	default:
	}
	select {
	case g.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Guard[T]) release() {
	<-g.sem
}
