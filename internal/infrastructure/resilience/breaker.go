package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without calling the guarded function while the
// breaker is open or its half-open probe budget is spent.
var ErrCircuitOpen = errors.New("circuit breaker is open")

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
	// Threshold is the number of consecutive failures that opens the breaker.
	Threshold uint32
	// Cooldown is how long the breaker stays open before allowing a probe.
	Cooldown time.Duration
	// Probes is how many calls may run while half-open; that many consecutive
	// successes close the breaker.
	Probes uint32
	// Counts reports whether err is the guarded resource's fault. Errors it
	// rejects pass through without affecting state. Nil counts every error.
	Counts func(err error) bool
	// OnStateChange is called with the lock released.
	OnStateChange func(name string, from, to State)
	// Now replaces time.Now.
	Now func() time.Time
}

// Breaker stops calling a resource after it fails repeatedly.
type Breaker struct {
	name     string
	settings Settings

	mu        sync.Mutex
	state     State
	failures  uint32
	successes uint32
	inFlight  uint32
	openedAt  time.Time
}

// New creates a new circuit breaker with the given settings
func New(name string, settings Settings) *Breaker {
	if settings.Threshold == 0 {
		settings.Threshold = 5
	}
	if settings.Cooldown == 0 {
		settings.Cooldown = 30 * time.Second
	}
	if settings.Probes == 0 {
		settings.Probes = 1
	}
	if settings.Counts == nil {
		settings.Counts = func(error) bool { return true }
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}
	return &Breaker{name: name, settings: settings}
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state, moving open to half-open once the
// cooldown has passed.
func (b *Breaker) State() State {
	b.mu.Lock()
	state, change := b.refresh()
	b.mu.Unlock()
	b.notify(change)
	return state
}

// Do runs fn if the breaker admits it
func (b *Breaker) Do(fn func() error) error {
	_, err := Execute(b, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Execute runs fn through b and returns its result
func Execute[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if err := b.admit(); err != nil {
		return zero, err
	}

	ok := false
	defer func() {
		if !ok {
			// fn panicked
			b.record(errors.New("panic"))
		}
	}()

	result, err := fn()
	ok = true
	b.record(err)
	return result, err
}

type transition struct {
	from, to State
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	state, change := b.refresh()
	var err error
	switch state {
	case StateOpen:
		err = ErrCircuitOpen
	case StateHalfOpen:
		if b.inFlight >= b.settings.Probes {
			err = ErrCircuitOpen
		} else {
			b.inFlight++
		}
	}
	b.mu.Unlock()
	b.notify(change)
	return err
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	var change *transition
	failed := err != nil && b.settings.Counts(err)

	switch b.state {
	case StateClosed:
		if failed {
			b.failures++
			if b.failures >= b.settings.Threshold {
				change = b.setState(StateOpen)
			}
		} else {
			b.failures = 0
		}
	case StateHalfOpen:
		if b.inFlight > 0 {
			b.inFlight--
		}
		if failed {
			change = b.setState(StateOpen)
		} else {
			b.successes++
			if b.successes >= b.settings.Probes {
				change = b.setState(StateClosed)
			}
		}
	}
	b.mu.Unlock()
	b.notify(change)
}

// refresh must be called with mu held.
func (b *Breaker) refresh() (State, *transition) {
	if b.state == StateOpen && !b.settings.Now().Before(b.openedAt.Add(b.settings.Cooldown)) {
		return StateHalfOpen, b.setState(StateHalfOpen)
	}
	return b.state, nil
}

// setState must be called with mu held.
func (b *Breaker) setState(state State) *transition {
	if b.state == state {
		return nil
	}
	prev := b.state
	b.state = state
	b.failures, b.successes, b.inFlight = 0, 0, 0
	if state == StateOpen {
		b.openedAt = b.settings.Now()
	}
	return &transition{from: prev, to: state}
}

func (b *Breaker) notify(change *transition) {
	if change != nil && b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, change.from, change.to)
	}
}
