package notification

import (
	"context"
	"errors"
)

// ErrQueueFull is returned by the in-memory queue when its buffer is exhausted
// and the caller's context expires first.
var ErrQueueFull = errors.New("notification queue full")

// Queue carries intents from producers to the dispatcher workers.
type Queue interface {
	Publish(ctx context.Context, intent Intent) error
	// Consume streams intents until ctx is cancelled, then closes the channel.
	Consume(ctx context.Context) (<-chan Intent, error)
}

// MemoryQueue is a bounded channel-backed queue for single-process
// deployments and tests.
type MemoryQueue struct {
	ch chan Intent
}

// NewMemoryQueue creates a queue buffering up to size intents.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 256
	}
	return &MemoryQueue{ch: make(chan Intent, size)}
}

// Publish enqueues an intent, waiting for buffer space until ctx expires.
func (q *MemoryQueue) Publish(ctx context.Context, intent Intent) error {
	select {
	case q.ch <- intent:
		return nil
	case <-ctx.Done():
		return ErrQueueFull
	}
}

// Consume returns a channel fed from the buffer.
func (q *MemoryQueue) Consume(ctx context.Context) (<-chan Intent, error) {
	out := make(chan Intent)
	go func() {
		defer close(out)
		for {
			select {
			case intent := <-q.ch:
				select {
				case out <- intent:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Len reports buffered intents.
func (q *MemoryQueue) Len() int {
	return len(q.ch)
}
