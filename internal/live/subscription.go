// Package live provides cancellable push subscriptions over changing data.
//
// A Subscription delivers the full current value every time the underlying
// data changes. The owner must call Close when it loses interest; Close is
// idempotent and also happens when the context passed to Start is cancelled.
package live

import (
	"context"
	"sync"
)

// Snapshot is one delivery. A non-nil Err is terminal: no further snapshots follow it.
type Snapshot[T any] struct {
	Value T
	Err   error
}

// Producer pushes values through emit until ctx is cancelled or an error occurs.
// emit returns false once the subscription is closed; the producer should then return.
type Producer[T any] func(ctx context.Context, emit func(T) bool) error

// Subscription is a standing stream of snapshots.
type Subscription[T any] struct {
	updates chan Snapshot[T]
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

// Start runs produce in its own goroutine and returns the subscription fed by it.
func Start[T any](parent context.Context, produce Producer[T]) *Subscription[T] {
	ctx, cancel := context.WithCancel(parent)
	s := &Subscription[T]{
		updates: make(chan Snapshot[T]),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer close(s.updates)

		emit := func(v T) bool {
			select {
			case s.updates <- Snapshot[T]{Value: v}:
				return true
			case <-ctx.Done():
				return false
			}
		}

		err := produce(ctx, emit)
		if err == nil || ctx.Err() != nil {
			return
		}
		select {
		case s.updates <- Snapshot[T]{Err: err}:
		case <-ctx.Done():
		}
	}()

	return s
}

// Updates returns the delivery channel. It is closed after Close or a terminal error.
func (s *Subscription[T]) Updates() <-chan Snapshot[T] {
	return s.updates
}

// Done is closed once the producer has fully stopped.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Close deregisters the subscription and waits for the producer to stop.
func (s *Subscription[T]) Close() {
	s.once.Do(s.cancel)
	<-s.done
}

// Map derives a subscription whose values are fn applied to each value of src.
// Closing the derived subscription closes src.
func Map[T, U any](src *Subscription[T], fn func(T) U) *Subscription[U] {
	out := Start(context.Background(), func(ctx context.Context, emit func(U) bool) error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case snap, ok := <-src.Updates():
				if !ok {
					return nil
				}
				if snap.Err != nil {
					return snap.Err
				}
				if !emit(fn(snap.Value)) {
					return nil
				}
			}
		}
	})
	go func() {
		<-out.Done()
		src.Close()
	}()
	return out
}
