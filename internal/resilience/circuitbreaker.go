// Package resilience guards calls to flaky backends.
//
// [CircuitBreaker] stops calling a backend after repeated failures and probes
// it again after a cool-down. [FallbackGroup] orders several backends of one
// kind, each behind its own breaker, and [RecognizerFallback] applies that to
// text recognizers.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] while the breaker
// rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

const (
	defaultMaxFailures  = 5
	defaultResetTimeout = 30 * time.Second
	defaultHalfOpenMax  = 3
)

// State is the operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards every call.
	StateClosed State = iota

	// StateOpen rejects calls until the reset timeout has passed.
	StateOpen

	// StateHalfOpen admits a limited number of probe calls.
	StateHalfOpen
)

// String returns "closed", "open" or "half-open".
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

// CircuitBreakerConfig tunes a [CircuitBreaker]. Zero values select the
// defaults.
type CircuitBreakerConfig struct {
	// Name labels log lines and state change callbacks.
	Name string

	// MaxFailures is the number of consecutive failures that opens the
	// breaker. Default: 5.
	MaxFailures int

	// ResetTimeout is how long an open breaker waits before probing.
	// Default: 30s.
	ResetTimeout time.Duration

	// HalfOpenMax is the number of successful probes that close the breaker
	// again, and the most probes admitted while half-open. Default: 3.
	HalfOpenMax int

	// OnStateChange is called after every transition, outside the lock.
	OnStateChange func(name string, from, to State)

	// Now overrides the clock. Default: time.Now.
	Now func() time.Time
}

// CircuitBreaker is a three-state breaker: closed, open and half-open. A
// failure while half-open re-opens it immediately.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu        sync.Mutex
	state     State
	failures  int       // consecutive failures while closed
	openedAt  time.Time // last transition to open
	probes    int       // probes admitted while half-open
	successes int       // successful probes while half-open
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = defaultMaxFailures
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = defaultResetTimeout
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = defaultHalfOpenMax
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CircuitBreaker{cfg: cfg, state: StateClosed}
}

// Name returns the configured name.
func (cb *CircuitBreaker) Name() string {
	return cb.cfg.Name
}

// Execute runs fn unless the breaker rejects the call, in which case it
// returns [ErrCircuitOpen] without calling fn. fn's error is returned as-is
// and counted as a failure.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	probe, err := cb.admit()
	if err != nil {
		return err
	}
	err = fn()
	cb.record(probe, err == nil)
	return err
}

// admit decides whether a call may proceed and whether it is a probe.
func (cb *CircuitBreaker) admit() (probe bool, err error) {
	cb.mu.Lock()
	var change func()
	defer func() {
		cb.mu.Unlock()
		if change != nil {
			change()
		}
	}()

	if cb.state == StateOpen {
		if cb.cfg.Now().Sub(cb.openedAt) < cb.cfg.ResetTimeout {
			return false, ErrCircuitOpen
		}
		change = cb.transition(StateHalfOpen)
	}
	if cb.state == StateHalfOpen {
		if cb.probes >= cb.cfg.HalfOpenMax {
			return false, ErrCircuitOpen
		}
		cb.probes++
		return true, nil
	}
	return false, nil
}

// record books the outcome of an admitted call.
func (cb *CircuitBreaker) record(probe, ok bool) {
	cb.mu.Lock()
	var change func()
	defer func() {
		cb.mu.Unlock()
		if change != nil {
			change()
		}
	}()

	switch {
	case probe && !ok:
		change = cb.transition(StateOpen)
	case probe && ok:
		cb.successes++
		if cb.successes >= cb.cfg.HalfOpenMax {
			change = cb.transition(StateClosed)
		}
	case !ok && cb.state == StateClosed:
		cb.failures++
		if cb.failures >= cb.cfg.MaxFailures {
			change = cb.transition(StateOpen)
		}
	case ok && cb.state == StateClosed:
		cb.failures = 0
	}
}

// transition moves to state and resets the counters of the new state. It must
// be called with cb.mu held and returns the callback to run after unlocking.
func (cb *CircuitBreaker) transition(to State) func() {
	from := cb.state
	if from == to {
		return nil
	}
	cb.state = to
	cb.probes, cb.successes = 0, 0
	switch to {
	case StateOpen:
		cb.openedAt = cb.cfg.Now()
		slog.Warn("circuit breaker opened", "name", cb.cfg.Name, "from", from.String(), "consecutive_failures", cb.failures)
	case StateClosed:
		cb.failures = 0
		slog.Info("circuit breaker closed", "name", cb.cfg.Name, "from", from.String())
	case StateHalfOpen:
		slog.Info("circuit breaker probing", "name", cb.cfg.Name)
	}

	if cb.cfg.OnStateChange == nil {
		return nil
	}
	name, notify := cb.cfg.Name, cb.cfg.OnStateChange
	return func() { notify(name, from, to) }
}

// State returns the current state. An open breaker whose reset timeout has
// passed reports [StateHalfOpen]; the transition itself happens on the next
// call.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen && cb.cfg.Now().Sub(cb.openedAt) >= cb.cfg.ResetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	change := cb.transition(StateClosed)
	cb.failures = 0
	cb.mu.Unlock()
	if change != nil {
		change()
	}
}
