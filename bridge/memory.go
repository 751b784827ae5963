package bridge

import (
	"context"
	"sync"

	"restaurant-hub/domain/event"
	"restaurant-hub/errors"
)

const memoryBufferSize = 256

// MemoryBridge links nodes living in the same process. Every subscriber
// receives every envelope, its own included, like on a real broker.
type MemoryBridge struct {
	mu          sync.RWMutex
	subscribers map[int]chan event.Envelope
	next        int
	closed      bool
}

func NewMemoryBridge() *MemoryBridge {
	return &MemoryBridge{subscribers: make(map[int]chan event.Envelope)}
}

// Publish never blocks: a subscriber that is behind loses the envelope.
func (b *MemoryBridge) Publish(_ context.Context, env event.Envelope) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return errors.ErrBridgeClosed
	}
	for _, ch := range b.subscribers {
		select {
		case ch <- env:
		default:
		}
	}
	return nil
}

func (b *MemoryBridge) Subscribe(ctx context.Context, handler func(event.Envelope)) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.ErrBridgeClosed
	}
	id := b.next
	b.next++
	ch := make(chan event.Envelope, memoryBufferSize)
	b.subscribers[id] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case env, ok := <-ch:
			if !ok {
				return errors.ErrBridgeClosed
			}
			handler(env)
		}
	}
}

func (b *MemoryBridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
	return nil
}
