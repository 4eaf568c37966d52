// Package listener runs a handler over a channel on one goroutine, giving the
// inputs a strict FIFO order.
package listener

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var (
	ErrStopped = errors.New("listener stopped")
)

type Job interface {
	Start(ctx context.Context)
	Stop()
}

// Listener owns a bounded input queue drained by a single goroutine. Inputs
// accepted by Send are always handled, including the ones still queued when
// Stop is called.
type Listener[T any] struct {
	name        string
	handler     func(input T) error
	stopHandler func()

	in   chan T
	quit chan struct{}

	mu      sync.RWMutex
	stopped bool

	wg       sync.WaitGroup
	stopOnce sync.Once
	doneOnce sync.Once
}

func New[T any](
	name string,
	capacity int,
	handler func(T) error,
	stopHandler ...func(),
) *Listener[T] {
	if len(stopHandler) == 0 {
		stopHandler = []func(){func() {}}
	}
	if capacity < 0 {
		capacity = 0
	}

	return &Listener[T]{
		name:        name,
		in:          make(chan T, capacity),
		quit:        make(chan struct{}),
		handler:     handler,
		stopHandler: stopHandler[0],
	}
}

// Start launches the draining goroutine. Cancelling ctx has the same effect
// as Stop minus the wait.
func (l *Listener[T]) Start(ctx context.Context) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for inp := range l.in {
			if err := l.handler(inp); err != nil {
				slog.Error("listener failed to handle input", "listener", l.name, "error", err)
			}
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
			l.closeInput()
		case <-l.quit:
		}
	}()
}

// Send queues inp. It fails with ErrStopped once Stop has begun.
func (l *Listener[T]) Send(ctx context.Context, inp T) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.stopped {
		return ErrStopped
	}

	select {
	case l.in <- inp:
		return nil
	case <-l.quit:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of queued inputs.
func (l *Listener[T]) Len() int {
	return len(l.in)
}

// Stop rejects new inputs, waits until every queued input is handled and
// runs the stop handler.
func (l *Listener[T]) Stop() {
	l.closeInput()
	l.wg.Wait()
	l.doneOnce.Do(l.stopHandler)
}

func (l *Listener[T]) closeInput() {
	l.stopOnce.Do(func() {
		close(l.quit)

		l.mu.Lock()
		l.stopped = true
		close(l.in)
		l.mu.Unlock()
	})
}
