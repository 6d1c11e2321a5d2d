// Package circuitbreaker stops calling a failing dependency until it has had
// time to recover.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without calling the operation while the circuit is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config configures a Breaker.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int
	// SuccessThreshold is the number of half-open successes that closes it again.
	SuccessThreshold int
	// Timeout is how long the circuit stays open before a probe is allowed.
	Timeout time.Duration
	// OnStateChange is called with the lock released.
	OnStateChange func(from, to State)
}

// DefaultConfig returns the default breaker configuration.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

// Breaker implements the circuit breaker pattern.
type Breaker struct {
	mu           sync.Mutex
	config       Config
	state        State
	failureCount int
	successCount int
	openedAt     time.Time
	now          func() time.Time
}

// New creates a breaker, filling zero config fields with defaults.
func New(config Config) *Breaker {
	def := DefaultConfig()
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = def.FailureThreshold
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = def.SuccessThreshold
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	return &Breaker{config: config, state: StateClosed, now: time.Now}
}

// Execute runs fn unless the circuit is open. Context cancellation is not
// counted as a dependency failure.
func (b *Breaker) Execute(ctx context.Context, fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}

	err := fn()
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return err
	}
	b.record(err)
	return err
}

// State returns the current state, moving open to half-open once the timeout elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.config.Timeout {
		return StateHalfOpen
	}
	return b.state
}

// Reset closes the circuit and clears counters.
func (b *Breaker) Reset() {
	b.transition(StateClosed)
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	if b.state != StateOpen {
		b.mu.Unlock()
		return nil
	}
	if b.now().Sub(b.openedAt) < b.config.Timeout {
		b.mu.Unlock()
		return ErrCircuitOpen
	}
	b.mu.Unlock()
	b.transition(StateHalfOpen)
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	var next State
	changed := false

	if err == nil {
		b.failureCount = 0
		if b.state == StateHalfOpen {
			b.successCount++
			if b.successCount >= b.config.SuccessThreshold {
				next, changed = StateClosed, true
			}
		}
	} else {
		b.successCount = 0
		b.failureCount++
		if b.state == StateHalfOpen || b.failureCount >= b.config.FailureThreshold {
			next, changed = StateOpen, b.state != StateOpen
		}
	}
	b.mu.Unlock()

	if changed {
		b.transition(next)
	}
}

func (b *Breaker) transition(to State) {
	b.mu.Lock()
	from := b.state
	b.state = to
	b.failureCount = 0
	b.successCount = 0
	if to == StateOpen {
		b.openedAt = b.now()
	}
	callback := b.config.OnStateChange
	b.mu.Unlock()

	if callback != nil && from != to {
		callback(from, to)
	}
}
