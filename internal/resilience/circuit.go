// Package resilience provides the retry, backoff and circuit-breaker
// primitives used for outbound device calls such as the receipt printer.
package resilience

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrOpenCircuit is returned when the circuit breaker refuses a request.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State represents the current breaker state.
type State int

const (
	// Closed accepts all requests and tracks failures.
	Closed State = iota
	// Open rejects requests until the cool-off period expires.
	Open
	// HalfOpen allows a single probe to determine recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker implements a consecutive-failure circuit breaker. After the
// threshold of consecutive failures it opens for the cool-off period, then
// half-opens to sample the downstream device.
type Breaker struct {
	mu        sync.Mutex
	state     State
	failures  int
	threshold int
	openedAt  time.Time
	openFor   time.Duration
	target    string
	logger    *zerolog.Logger
}

// NewBreaker constructs a breaker that opens after threshold consecutive
// failures and stays open for openFor.
func NewBreaker(threshold int, openFor time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 3
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &Breaker{state: Closed, threshold: threshold, openFor: openFor}
}

// WithTarget sets the logical dependency identifier used in state-change logs.
func (b *Breaker) WithTarget(target string, logger *zerolog.Logger) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.target = target
	b.logger = logger
	return b
}

// Allow reports whether a request is permitted in the current state. When the
// breaker is open it only permits a request after the cool-off period and
// moves into half-open to probe the device.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open {
		if time.Since(b.openedAt) >= b.openFor {
			b.transitionLocked(HalfOpen)
			return true
		}
		return false
	}
	return true
}

// Report records the outcome of a request and transitions the state machine
// when the failure threshold is crossed.
func (b *Breaker) Report(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Open:
		return
	case HalfOpen:
		if success {
			b.failures = 0
			b.transitionLocked(Closed)
		} else {
			b.transitionLocked(Open)
		}
		return
	}
	if success {
		b.failures = 0
		return
	}
	b.failures++
	if b.failures >= b.threshold {
		b.transitionLocked(Open)
	}
}

// CurrentState returns the breaker state for health reporting.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) transitionLocked(next State) {
	if next == Open {
		b.openedAt = time.Now()
	}
	prev := b.state
	b.state = next
	if b.logger != nil && prev != next {
		b.logger.Warn().
			Str("target", b.target).
			Str("from", prev.String()).
			Str("to", next.String()).
			Msg("circuit state change")
	}
}

// Backoff returns the exponential delay for the given attempt with optional
// proportional jitter.
func Backoff(base time.Duration, attempt int, jitterPct float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base * time.Duration(1<<uint(attempt-1))
	if jitterPct <= 0 {
		return d
	}
	jitter := float64(d) * jitterPct
	delta := (rand.Float64()*2 - 1) * jitter
	return d + time.Duration(delta)
}
