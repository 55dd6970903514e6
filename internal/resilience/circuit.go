package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed is the normal operating state.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects calls immediately after repeated failures; the
	// collector answers from the synthetic generator while open.
	CircuitOpen
	// CircuitHalfOpen allows a single probe call to test provider recovery.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when a call is rejected because the circuit is open.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// CircuitBreaker guards one provider endpoint. After FailureThreshold
// consecutive failures it opens for ResetTimeout, then half-opens for a
// single probe.
type CircuitBreaker struct {
	name             string
	failureThreshold int
	resetTimeout     time.Duration

	mu            sync.Mutex
	state         CircuitState
	failures      int
	openedAt      time.Time
	probeInFlight bool
}

// NewCircuitBreaker creates a closed breaker. Zero values get defaults
// (5 failures, 30s reset).
func NewCircuitBreaker(name string, failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		name:             name,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
	}
}

// State returns the current state, accounting for reset timeout expiry.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stateLocked()
}

func (cb *CircuitBreaker) stateLocked() CircuitState {
	if cb.state == CircuitOpen && time.Since(cb.openedAt) >= cb.resetTimeout {
		cb.state = CircuitHalfOpen
		cb.probeInFlight = false
	}
	return cb.state
}

// Execute runs fn if the circuit allows it. In half-open state only one
// probe call is admitted at a time.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	cb.mu.Lock()
	switch cb.stateLocked() {
	case CircuitOpen:
		cb.mu.Unlock()
		return eris.Wrap(ErrCircuitOpen, cb.name)
	case CircuitHalfOpen:
		if cb.probeInFlight {
			cb.mu.Unlock()
			return eris.Wrap(ErrCircuitOpen, cb.name)
		}
		cb.probeInFlight = true
	}
	cb.mu.Unlock()

	err := fn(ctx)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probeInFlight = false

	if err != nil {
		cb.failures++
		if cb.state == CircuitHalfOpen || cb.failures >= cb.failureThreshold {
			if cb.state != CircuitOpen {
				zap.L().Warn("circuit breaker opened",
					zap.String("breaker", cb.name),
					zap.Int("failures", cb.failures),
				)
			}
			cb.state = CircuitOpen
			cb.openedAt = time.Now()
		}
		return err
	}

	if cb.state != CircuitClosed {
		zap.L().Info("circuit breaker closed", zap.String("breaker", cb.name))
	}
	cb.state = CircuitClosed
	cb.failures = 0
	return nil
}
