package redis

import (
	"context"
	"sync"

	"github.com/gwent-leaderboard/internal/domain"
)

// LocalNotifier delivers change events within a single process. It stands in
// for Notifier when Redis is disabled.
type LocalNotifier struct {
	mu        sync.RWMutex
	listeners []chan domain.ChangeEvent
}

// NewLocalNotifier creates an in-process notifier
func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{}
}

// Publish hands the event to every listener. A listener that is not keeping
// up misses the event rather than blocking the write path.
func (n *LocalNotifier) Publish(_ context.Context, event domain.ChangeEvent) error {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, ch := range n.listeners {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

// Listen delivers published events to fn until ctx is done
func (n *LocalNotifier) Listen(ctx context.Context, fn func(domain.ChangeEvent)) error {
	ch := make(chan domain.ChangeEvent, 64)

	n.mu.Lock()
	n.listeners = append(n.listeners, ch)
	n.mu.Unlock()

	defer func() {
		n.mu.Lock()
		for i, l := range n.listeners {
			if l == ch {
				n.listeners = append(n.listeners[:i], n.listeners[i+1:]...)
				break
			}
		}
		n.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-ch:
			fn(event)
		}
	}
}
