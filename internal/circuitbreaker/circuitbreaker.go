// Package circuitbreaker shields the flow from a misbehaving web API.
// The HTTP invoker keeps one breaker per catalog API id; while a breaker
// is open, invocations fail fast and the flow takes its failure edge
// instead of stalling every caller on a dead endpoint.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/automax/ivrflow/internal/clock"
)

// State is the breaker's position. The zero value is Closed; the integer
// values are exported as a gauge, so their order is part of the contract.
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
	}
	return "unknown"
}

var (
	// ErrCircuitOpen is returned while the breaker rejects all traffic.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests is returned when the half-open probe quota is
	// already in flight.
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// Config tunes a breaker.
type Config struct {
	// FailureThreshold opens the breaker after this many consecutive
	// failures.
	FailureThreshold int
	// SuccessThreshold closes a half-open breaker after this many
	// consecutive successes.
	SuccessThreshold int
	// OpenTimeout is how long the breaker rejects before probing.
	OpenTimeout time.Duration
	// HalfOpenMaxRequests caps concurrent half-open probes.
	HalfOpenMaxRequests int
	// Clock defaults to the wall clock; tests inject a mock.
	Clock clock.Clock
}

// DefaultConfig suits a per-API breaker on caller-facing timeouts: five
// straight transport failures open it, and probing starts after 30s.
func DefaultConfig() *Config {
	return &Config{
		FailureThreshold:    5,
		SuccessThreshold:    3,
		OpenTimeout:         30 * time.Second,
		HalfOpenMaxRequests: 3,
	}
}

// CircuitBreaker tracks consecutive outcomes for one API endpoint.
type CircuitBreaker struct {
	name   string
	cfg    *Config
	clk    clock.Clock
	logger *zap.Logger

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	probes    int
	openedAt  time.Time
}

// New creates a closed breaker. A nil cfg gets DefaultConfig.
func New(name string, cfg *Config, logger *zap.Logger) *CircuitBreaker {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		clk:    clk,
		logger: logger,
	}
}

// Execute runs fn under the breaker. It returns ErrCircuitOpen or
// ErrTooManyRequests without calling fn when traffic is rejected;
// otherwise it returns fn's error and records the outcome.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.record(err)
	return err
}

// State returns the breaker's current position, advancing an expired
// open state to half-open first.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.maybeProbe()
	return cb.state
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.maybeProbe()

	switch cb.state {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.probes >= cb.cfg.HalfOpenMaxRequests {
			return ErrTooManyRequests
		}
		cb.probes++
	}
	return nil
}

// maybeProbe moves an open breaker whose timeout elapsed into half-open.
// Callers hold cb.mu.
func (cb *CircuitBreaker) maybeProbe() {
	if cb.state == StateOpen && cb.clk.Since(cb.openedAt) >= cb.cfg.OpenTimeout {
		cb.transition(StateHalfOpen)
		cb.logger.Info("circuit breaker half-open",
			zap.String("breaker", cb.name),
		)
	}
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	// The caller giving up is not the endpoint's fault.
	if errors.Is(err, context.Canceled) {
		return
	}

	if err != nil {
		cb.successes = 0
		cb.failures++
		switch cb.state {
		case StateClosed:
			if cb.failures >= cb.cfg.FailureThreshold {
				cb.transition(StateOpen)
				cb.logger.Warn("circuit breaker opened",
					zap.String("breaker", cb.name),
					zap.Int("consecutive_failures", cb.cfg.FailureThreshold),
					zap.Error(err),
				)
			}
		case StateHalfOpen:
			// One failed probe reopens.
			cb.transition(StateOpen)
			cb.logger.Warn("circuit breaker reopened",
				zap.String("breaker", cb.name),
				zap.Error(err),
			)
		}
		return
	}

	cb.failures = 0
	cb.successes++
	if cb.state == StateHalfOpen && cb.successes >= cb.cfg.SuccessThreshold {
		cb.transition(StateClosed)
		cb.logger.Info("circuit breaker closed",
			zap.String("breaker", cb.name),
		)
	}
}

// transition resets counters for the new state. Callers hold cb.mu.
func (cb *CircuitBreaker) transition(s State) {
	cb.state = s
	cb.failures = 0
	cb.successes = 0
	cb.probes = 0
	if s == StateOpen {
		cb.openedAt = cb.clk.Now()
	}
}
