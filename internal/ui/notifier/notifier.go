// Package notifier fans reload signals out to connected browsers.
package notifier

import (
	"context"
	"sync"
)

// Notifier broadcasts pings to every subscriber. A ping carries no payload;
// subscribers decide what to do with it (the dev reload endpoint reloads the page).
type Notifier struct {
	mu        sync.Mutex
	listeners map[chan struct{}]struct{}
	closed    bool
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan struct{}]struct{}),
	}
}

// Subscribe registers a listener for as long as ctx is alive. The returned
// channel is closed once ctx is done or the notifier is closed.
func (n *Notifier) Subscribe(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		close(ch)
		return ch
	}
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()

	go func() {
		<-ctx.Done()
		n.remove(ch)
	}()

	return ch
}

// Broadcast pings all listeners and reports how many there were.
// A listener with a pending ping is not pinged twice.
func (n *Notifier) Broadcast() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	for ch := range n.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return len(n.listeners)
}

// Len returns the number of active listeners.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}

// Close drops every listener. Later subscriptions get an already closed channel.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.closed = true
	for ch := range n.listeners {
		delete(n.listeners, ch)
		close(ch)
	}
}

func (n *Notifier) remove(ch chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.listeners[ch]; !ok {
		return
	}
	delete(n.listeners, ch)
	close(ch)
}
