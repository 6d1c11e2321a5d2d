package sse

import "time"

const (
	DefaultClientBufferSize  = 64
	DefaultHeartbeatInterval = 15 * time.Second
	DefaultMaxClients        = 1000
	DefaultRetryMillis       = 3000
)

// Config holds registry settings.
type Config struct {
	ClientBufferSize  int           `env:"SSE_CLIENT_BUFFER_SIZE"  yaml:"client_buffer_size"`
	HeartbeatInterval time.Duration `env:"SSE_HEARTBEAT_INTERVAL"  yaml:"heartbeat_interval"`
	// MaxClients caps live connections; 0 means unlimited.
	MaxClients int `env:"SSE_MAX_CLIENTS" yaml:"max_clients"`
}

// SetDefaults fills zero fields except MaxClients.
func (c *Config) SetDefaults() {
	if c.ClientBufferSize == 0 {
		c.ClientBufferSize = DefaultClientBufferSize
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithConfig applies cfg, ignoring zero sizes.
func WithConfig(cfg Config) RegistryOption {
	return func(r *Registry) {
		if cfg.ClientBufferSize > 0 {
			r.clientBufferSize = cfg.ClientBufferSize
		}
		if cfg.HeartbeatInterval > 0 {
			r.heartbeatInterval = cfg.HeartbeatInterval
		}
		r.maxClients = cfg.MaxClients
	}
}

// WithMaxClients caps live connections.
func WithMaxClients(n int) RegistryOption {
	return func(r *Registry) { r.maxClients = n }
}

// WithHeartbeatInterval sets how often streams write a keep-alive comment.
func WithHeartbeatInterval(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.heartbeatInterval = d
		}
	}
}

// WithEvictHook is called with the id of every slow client that gets evicted.
func WithEvictHook(fn func(id string)) RegistryOption {
	return func(r *Registry) { r.onEvict = fn }
}

// WithCountHook is called with the live connection count after every
// registration and removal.
func WithCountHook(fn func(n int)) RegistryOption {
	return func(r *Registry) { r.onCount = fn }
}

// ClientOptions configures a single registration.
type ClientOptions struct {
	BufferSize int
}

// ClientOption configures a registration.
type ClientOption func(*ClientOptions)

// WithBufferSize sets the client's event buffer size.
func WithBufferSize(size int) ClientOption {
	return func(opts *ClientOptions) {
		if size > 0 {
			opts.BufferSize = size
		}
	}
}
