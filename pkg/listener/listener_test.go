package listener

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListener_FIFO(t *testing.T) {
	var (
		mu  sync.Mutex
		got []int
	)
	l := New("fifo", 16, func(v int) error {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
		return nil
	})
	l.Start(context.Background())

	for i := 0; i < 100; i++ {
		require.NoError(t, l.Send(context.Background(), i))
	}
	l.Stop()

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestListener_StopDrainsQueue(t *testing.T) {
	release := make(chan struct{})
	var handled int
	l := New("drain", 8, func(int) error {
		<-release
		handled++
		return nil
	})
	l.Start(context.Background())

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Send(context.Background(), i))
	}

	stopped := make(chan struct{})
	go func() {
		l.Stop()
		close(stopped)
	}()
	close(release)

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("stop did not return")
	}
	assert.Equal(t, 5, handled)
}

func TestListener_SendAfterStop(t *testing.T) {
	stopCalled := false
	l := New("stopped", 1, func(int) error { return nil }, func() { stopCalled = true })
	l.Start(context.Background())
	l.Stop()
	l.Stop()

	err := l.Send(context.Background(), 1)
	assert.ErrorIs(t, err, ErrStopped)
	assert.True(t, stopCalled)
}

func TestListener_HandlerErrorKeepsRunning(t *testing.T) {
	var calls int
	l := New("errors", 4, func(int) error {
		calls++
		return errors.New("boom")
	})
	l.Start(context.Background())
	require.NoError(t, l.Send(context.Background(), 1))
	require.NoError(t, l.Send(context.Background(), 2))
	l.Stop()

	assert.Equal(t, 2, calls)
}

func TestListener_SendHonoursContext(t *testing.T) {
	block := make(chan struct{})
	l := New("full", 0, func(int) error {
		<-block
		return nil
	})
	l.Start(context.Background())
	defer func() {
		close(block)
		l.Stop()
	}()

	// first input occupies the handler, the unbuffered queue has no room for the second
	require.NoError(t, l.Send(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Send(ctx, 2)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
