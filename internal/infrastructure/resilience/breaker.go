package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrOpen is returned when the breaker rejects a call outright.
	ErrOpen = errors.New("circuit breaker is open")
	// ErrThrottled is returned when the half-open probe quota is spent.
	ErrThrottled = errors.New("too many requests")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the circuit breaker behavior
type Settings struct {
	// FailureThreshold is how many consecutive failures trip the breaker
	FailureThreshold uint32
	// Cooldown is how long the breaker stays open before probing again
	Cooldown time.Duration
	// ProbeQuota is the number of trial calls allowed while half-open
	ProbeQuota uint32
	// Interval is the cyclic period of the closed state to clear counts
	Interval time.Duration
	// OnStateChange is called whenever the state changes
	OnStateChange func(name string, from State, to State)
}

// Counts holds the call statistics for the current window
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// Breaker guards an upstream dependency against cascading failure.
// Calls flow freely while closed; a run of failures opens the breaker
// and callers fail fast until a cooldown expires and probes succeed.
type Breaker struct {
	name     string
	settings Settings

	mu     sync.Mutex
	state  State
	counts Counts
	expiry time.Time
}

// New creates a new circuit breaker with the given settings
func New(name string, settings Settings) *Breaker {
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = 5
	}
	if settings.ProbeQuota == 0 {
		settings.ProbeQuota = 1
	}
	if settings.Cooldown == 0 {
		settings.Cooldown = 30 * time.Second
	}
	if settings.Interval == 0 {
		settings.Interval = 60 * time.Second
	}

	return &Breaker{
		name:     name,
		settings: settings,
		state:    StateClosed,
		expiry:   time.Now().Add(settings.Interval),
	}
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, _ := b.currentState(time.Now())
	return state
}

// Counts returns a copy of the internal counts
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.counts
}

// Do runs fn if the breaker accepts the call and records the outcome
func (b *Breaker) Do(fn func() error) error {
	generation, err := b.beforeCall()
	if err != nil {
		return err
	}

	defer func() {
		if e := recover(); e != nil {
			b.afterCall(generation, false)
			panic(e)
		}
	}()

	err = fn()
	b.afterCall(generation, err == nil)
	return err
}

func (b *Breaker) beforeCall() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state, generation := b.currentState(now)

	if state == StateOpen {
		return generation, ErrOpen
	}

	if state == StateHalfOpen && b.counts.Requests >= b.settings.ProbeQuota {
		return generation, ErrThrottled
	}

	b.counts.Requests++
	return generation, nil
}

func (b *Breaker) afterCall(before uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state, generation := b.currentState(now)

	// Outcome belongs to a window that has already rolled over.
	if generation != before {
		return
	}

	if success {
		b.onSuccess(state, now)
	} else {
		b.onFailure(state, now)
	}
}

func (b *Breaker) onSuccess(state State, now time.Time) {
	switch state {
	case StateClosed:
		b.counts.TotalSuccesses++
		b.counts.ConsecutiveSuccesses++
		b.counts.ConsecutiveFailures = 0
	case StateHalfOpen:
		b.counts.TotalSuccesses++
		b.counts.ConsecutiveSuccesses++
		b.counts.ConsecutiveFailures = 0
		if b.counts.ConsecutiveSuccesses >= b.settings.ProbeQuota {
			b.setState(StateClosed, now)
		}
	}
}

func (b *Breaker) onFailure(state State, now time.Time) {
	switch state {
	case StateClosed:
		b.counts.TotalFailures++
		b.counts.ConsecutiveFailures++
		b.counts.ConsecutiveSuccesses = 0
		if b.counts.ConsecutiveFailures >= b.settings.FailureThreshold {
			b.setState(StateOpen, now)
		}
	case StateHalfOpen:
		b.setState(StateOpen, now)
	}
}

func (b *Breaker) currentState(now time.Time) (State, uint64) {
	switch b.state {
	case StateClosed:
		if !b.expiry.IsZero() && b.expiry.Before(now) {
			b.counts = Counts{}
			b.expiry = now.Add(b.settings.Interval)
		}
	case StateOpen:
		if b.expiry.Before(now) {
			b.setState(StateHalfOpen, now)
		}
	}

	return b.state, uint64(b.expiry.UnixNano())
}

func (b *Breaker) setState(state State, now time.Time) {
	if b.state == state {
		return
	}

	prev := b.state
	b.state = state
	b.counts = Counts{}

	switch state {
	case StateClosed:
		b.expiry = now.Add(b.settings.Interval)
	case StateOpen:
		b.expiry = now.Add(b.settings.Cooldown)
	case StateHalfOpen:
		b.expiry = time.Time{}
	}

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, prev, state)
	}
}
