package sse

import "sync"

// client is one registered connection. mu serializes send against close so
// a send never hits a closed channel.
type client struct {
	id     string
	events chan Event
	mu     sync.Mutex
	closed bool
}

func newClient(id string, bufferSize int) *client {
	return &client{id: id, events: make(chan Event, bufferSize)}
}

// send enqueues event without blocking. It returns false only when the
// buffer is full; sends to a closed client are dropped and report true.
func (c *client) send(event Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return true
	}

	select {
	case c.events <- event:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.events)
}
