package breaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned when the breaker rejects a call without attempting it.
var ErrOpen = errors.New("circuit breaker is open")

// State represents the breaker state
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// Config contains circuit breaker configuration
type Config struct {
	// FailureRateThreshold opens the breaker when the failure rate over the
	// current window exceeds this fraction (default: 0.5)
	FailureRateThreshold float64
	// MinRequests is the minimum number of calls in a window before the
	// failure rate is evaluated (default: 5)
	MinRequests int
	// Window is the length of the rolling counting window (default: 10s)
	Window time.Duration
	// CoolDown is how long the breaker stays open before allowing a
	// half-open probe (default: 5s)
	CoolDown time.Duration
	// Now is the clock; defaults to time.Now. Injected so tests can drive
	// state transitions without real timers.
	Now func() time.Time
}

// DefaultConfig returns default breaker configuration
func DefaultConfig() *Config {
	return &Config{
		FailureRateThreshold: 0.5,
		MinRequests:          5,
		Window:               10 * time.Second,
		CoolDown:             5 * time.Second,
		Now:                  time.Now,
	}
}

// Breaker is a closed/open/half-open circuit breaker with a rolling
// failure-rate window.
type Breaker struct {
	cfg *Config

	mu          sync.Mutex
	state       State
	windowStart time.Time
	successes   int
	failures    int
	openedAt    time.Time
	probing     bool
}

// New creates a breaker with the given configuration
func New(cfg *Config) *Breaker {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.FailureRateThreshold <= 0 || cfg.FailureRateThreshold > 1 {
		cfg.FailureRateThreshold = 0.5
	}
	if cfg.MinRequests <= 0 {
		cfg.MinRequests = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = 10 * time.Second
	}
	if cfg.CoolDown <= 0 {
		cfg.CoolDown = 5 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	b := &Breaker{cfg: cfg, state: StateClosed}
	b.windowStart = cfg.Now()
	return b
}

// State returns the current state, applying any due cool-down transition.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()
	return b.state
}

// Allow reports whether a call may proceed. In half-open state only one
// probe call is admitted at a time.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()

	switch b.state {
	case StateClosed:
		return nil
	case StateHalfOpen:
		if b.probing {
			return ErrOpen
		}
		b.probing = true
		return nil
	default:
		return ErrOpen
	}
}

// Success records a successful call.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()

	if b.state == StateHalfOpen {
		// Probe succeeded, resume normal operation
		b.toClosed()
		return
	}
	b.successes++
}

// Failure records a failed call and trips the breaker when the failure rate
// over the window crosses the threshold.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()

	if b.state == StateHalfOpen {
		// Probe failed, back to open for another cool-down
		b.toOpen()
		return
	}
	b.failures++

	total := b.successes + b.failures
	if total < b.cfg.MinRequests {
		return
	}
	if float64(b.failures)/float64(total) > b.cfg.FailureRateThreshold {
		b.toOpen()
	}
}

// refresh applies time-driven transitions: window rollover while closed and
// the open → half-open transition after the cool-down. Callers hold b.mu.
func (b *Breaker) refresh() {
	now := b.cfg.Now()

	switch b.state {
	case StateClosed:
		if now.Sub(b.windowStart) >= b.cfg.Window {
			b.windowStart = now
			b.successes = 0
			b.failures = 0
		}
	case StateOpen:
		if now.Sub(b.openedAt) >= b.cfg.CoolDown {
			b.state = StateHalfOpen
			b.probing = false
		}
	}
}

func (b *Breaker) toOpen() {
	b.state = StateOpen
	b.openedAt = b.cfg.Now()
	b.probing = false
	b.successes = 0
	b.failures = 0
}

func (b *Breaker) toClosed() {
	b.state = StateClosed
	b.windowStart = b.cfg.Now()
	b.probing = false
	b.successes = 0
	b.failures = 0
}
