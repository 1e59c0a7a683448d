package resilience

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
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

// Breaker is a consecutive-failure circuit breaker guarding calls to an
// external payment or text-generation provider. It opens after maxFailures
// consecutive failures, rejects requests for the cool-off window, then lets a
// single half-open probe decide whether to close again.
type Breaker struct {
	mu          sync.Mutex
	state       State
	consecutive int
	maxFailures int
	openedAt    time.Time
	openFor     time.Duration
	target      string
}

// NewBreaker constructs a breaker that opens after maxFailures consecutive
// failures and stays open for the given cool-off duration.
func NewBreaker(maxFailures int, openFor time.Duration) *Breaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &Breaker{state: Closed, maxFailures: maxFailures, openFor: openFor}
}

// WithTarget sets the logical dependency identifier used for telemetry labels.
func (b *Breaker) WithTarget(target string) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.target = strings.TrimSpace(target)
	b.gaugeLocked()
	return b
}

// Allow reports whether a request is permitted in the current state. When the
// breaker is open it only permits a request after the cool-off period and
// moves into half-open to sample the downstream dependency.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Open {
		return true
	}
	if time.Since(b.openedAt) >= b.openFor {
		b.transitionLocked(ctx, HalfOpen)
		return true
	}
	return false
}

// Report records the outcome of a request and drives the state machine.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		if success {
			b.transitionLocked(ctx, Closed)
		} else {
			b.transitionLocked(ctx, Open)
		}
		return
	}

	if success {
		b.consecutive = 0
		return
	}
	b.consecutive++
	if b.consecutive >= b.maxFailures {
		b.transitionLocked(ctx, Open)
	}
}

func (b *Breaker) transitionLocked(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		return
	}
	b.state = next
	b.consecutive = 0
	if next == Open {
		b.openedAt = time.Now()
	}
	b.gaugeLocked()

	label := b.labelLocked()
	if BreakerTransitions != nil {
		BreakerTransitions.WithLabelValues(label, prev.String(), next.String()).Inc()
	}
	if next == Open && BreakerOpenedTotal != nil {
		BreakerOpenedTotal.WithLabelValues(label).Inc()
	}
	evt := zerolog.Ctx(ctx).Info().
		Str("target", label).
		Str("from_state", prev.String()).
		Str("to_state", next.String())
	if span := trace.SpanContextFromContext(ctx); span.IsValid() {
		evt = evt.Str("trace_id", span.TraceID().String())
	}
	evt.Msg("breaker_transition")
}

func (b *Breaker) gaugeLocked() {
	if BreakerState == nil {
		return
	}
	var v float64
	switch b.state {
	case Open:
		v = 1
	case HalfOpen:
		v = 2
	}
	BreakerState.WithLabelValues(b.labelLocked()).Set(v)
}

func (b *Breaker) labelLocked() string {
	if b.target == "" {
		return "default"
	}
	return b.target
}

// Backoff returns an exponential backoff duration for the provided attempt.
// Jitter is expressed as a fraction (e.g. 0.2 == 20%).
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
	delta := (rand.Float64()*2 - 1) * float64(d) * jitterPct
	return d + time.Duration(delta)
}
