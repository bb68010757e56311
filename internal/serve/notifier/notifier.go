// Package notifier fans reload events out to server-sent event streams.
package notifier

import (
	"sync"
	"time"

	"github.com/autocitation/autocite/pkg/core"
)

// Event describes a completed project reload.
type Event struct {
	Reason  string           `json:"reason"`
	Records int              `json:"records"`
	Issues  core.IssueCounts `json:"issues"`
	At      time.Time        `json:"at"`
	Error   string           `json:"error,omitempty"`
}

// Notifier delivers the latest Event to every subscriber. A slow subscriber
// only ever sees the most recent event.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan Event]struct{}
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan Event]struct{}),
	}
}

// Subscribe returns a channel receiving reload events.
// The caller must call Unsubscribe when done.
func (n *Notifier) Subscribe() chan Event {
	ch := make(chan Event, 1)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan Event) {
	n.mu.Lock()
	if _, ok := n.listeners[ch]; ok {
		delete(n.listeners, ch)
		close(ch)
	}
	n.mu.Unlock()
}

// Len returns the number of subscribers.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}

// Broadcast sends ev to all listeners without blocking, replacing any
// event a listener has not consumed yet.
func (n *Notifier) Broadcast(ev Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.listeners {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}
