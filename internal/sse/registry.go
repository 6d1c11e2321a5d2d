package sse

import (
	"errors"
	"sync"
	"time"

	infralogger "github.com/jonesrussell/north-cloud/exchange-search/infrastructure/logger"
)

var (
	// ErrDuplicateConnection is returned when the id is already registered.
	ErrDuplicateConnection = errors.New("connection id already registered")
	// ErrTooManyConnections is returned when MaxClients is reached.
	ErrTooManyConnections = errors.New("too many connections")
	// ErrRegistryClosed is returned by Register after Close.
	ErrRegistryClosed = errors.New("registry closed")
)

// Registry maps connection ids to event channels. It is safe for concurrent
// use by many runs and stream handlers.
type Registry struct {
	logger  infralogger.Logger
	mu      sync.RWMutex
	clients map[string]*client
	closed  bool

	clientBufferSize  int
	heartbeatInterval time.Duration
	maxClients        int
	onEvict           func(id string)
	onCount           func(n int)
}

// NewRegistry creates an empty registry.
func NewRegistry(logger infralogger.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		logger:            logger,
		clients:           make(map[string]*client),
		clientBufferSize:  DefaultClientBufferSize,
		heartbeatInterval: DefaultHeartbeatInterval,
		maxClients:        DefaultMaxClients,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register creates the channel for id. The channel is closed on Unregister,
// on slow-client eviction and on Close.
func (r *Registry) Register(id string, opts ...ClientOption) (<-chan Event, error) {
	c, err := r.register(id, opts...)
	if err != nil {
		return nil, err
	}
	r.notifyCount()
	return c.events, nil
}

func (r *Registry) register(id string, opts ...ClientOption) (*client, error) {
	clientOpts := ClientOptions{BufferSize: r.clientBufferSize}
	for _, opt := range opts {
		opt(&clientOpts)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	if _, exists := r.clients[id]; exists {
		return nil, ErrDuplicateConnection
	}
	if r.maxClients > 0 && len(r.clients) >= r.maxClients {
		r.logger.Warn("Max SSE clients reached, rejecting connection",
			infralogger.Int("max_clients", r.maxClients),
		)
		return nil, ErrTooManyConnections
	}

	c := newClient(id, clientOpts.BufferSize)
	r.clients[id] = c

	r.logger.Debug("Client registered",
		infralogger.String("connection_id", id),
		infralogger.Int("total_clients", len(r.clients)),
	)
	return c, nil
}

// Publish delivers event to the single client registered under id. Unknown
// ids are ignored. A client whose buffer is full is evicted.
func (r *Registry) Publish(id string, event Event) {
	if id == "" {
		return
	}

	r.mu.RLock()
	c, ok := r.clients[id]
	r.mu.RUnlock()
	if !ok {
		return
	}

	if c.send(event) {
		return
	}

	r.logger.Warn("Client buffer full, closing slow connection",
		infralogger.String("connection_id", id),
		infralogger.String("event_type", event.Type),
	)
	if r.remove(c) && r.onEvict != nil {
		r.onEvict(id)
	}
}

// Unregister closes and forgets id. Unknown ids are ignored.
func (r *Registry) Unregister(id string) {
	r.mu.RLock()
	c, ok := r.clients[id]
	r.mu.RUnlock()
	if ok {
		r.remove(c)
	}
}

// remove drops c if it is still the client registered under its id.
func (r *Registry) remove(c *client) bool {
	r.mu.Lock()
	current, ok := r.clients[c.id]
	if ok && current == c {
		delete(r.clients, c.id)
	}
	remaining := len(r.clients)
	r.mu.Unlock()

	if !ok || current != c {
		return false
	}

	c.close()
	r.notifyCount()
	r.logger.Debug("Client unregistered",
		infralogger.String("connection_id", c.id),
		infralogger.Int("total_clients", remaining),
	)
	return true
}

// ConnectionCount returns the number of live connections.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

func (r *Registry) notifyCount() {
	if r.onCount != nil {
		r.onCount(r.ConnectionCount())
	}
}

// HeartbeatInterval returns the keep-alive interval for stream handlers.
func (r *Registry) HeartbeatInterval() time.Duration {
	return r.heartbeatInterval
}

// Close disconnects every client and rejects further registrations.
func (r *Registry) Close() {
	r.mu.Lock()
	clients := make([]*client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	r.clients = make(map[string]*client)
	r.closed = true
	r.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	r.notifyCount()

	r.logger.Info("All SSE clients disconnected", infralogger.Int("count", len(clients)))
}
