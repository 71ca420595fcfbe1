package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrCircuitOpen is returned while the breaker is rejecting calls.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests is returned when the half-open probe budget is
	// exhausted.
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// State is the breaker position.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the state name.
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

// Counts holds rolling call statistics for one generation.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// Settings configures breaker behavior.
type Settings struct {
	// MaxProbes is the number of trial calls allowed in half-open state.
	MaxProbes uint32
	// Interval is the closed-state period after which counts reset.
	Interval time.Duration
	// OpenFor is how long the breaker stays open before probing.
	OpenFor time.Duration
	// TripAfter decides, from the counts, whether a closed breaker opens.
	TripAfter func(Counts) bool
	// OnStateChange observes transitions.
	OnStateChange func(name string, from, to State)
}

// RemoteStageSettings returns the breaker tuning used for the remote
// capture/reasoning stages: no retries happen at this layer, so the
// breaker trips only on sustained failure.
func RemoteStageSettings() Settings {
	return Settings{
		MaxProbes: 2,
		Interval:  60 * time.Second,
		OpenFor:   30 * time.Second,
		TripAfter: func(c Counts) bool {
			return c.ConsecutiveFailures >= 5 ||
				(c.Requests >= 10 && float64(c.TotalFailures)/float64(c.Requests) > 0.7)
		},
	}
}

// Breaker is a three-state circuit breaker. Calls run through Do; when the
// failure policy trips, subsequent calls fail fast with ErrCircuitOpen
// until the open window elapses and probes are allowed through.
type Breaker struct {
	name     string
	settings Settings

	mu         sync.Mutex
	state      State
	counts     Counts
	expiry     time.Time
	generation uint64
}

// New creates a breaker. Zero settings get conservative defaults.
func New(name string, settings Settings) *Breaker {
	if settings.MaxProbes == 0 {
		settings.MaxProbes = 1
	}
	if settings.Interval <= 0 {
		settings.Interval = 60 * time.Second
	}
	if settings.OpenFor <= 0 {
		settings.OpenFor = 60 * time.Second
	}
	if settings.TripAfter == nil {
		settings.TripAfter = func(c Counts) bool { return c.ConsecutiveFailures > 5 }
	}
	return &Breaker{
		name:     name,
		settings: settings,
		state:    StateClosed,
		expiry:   time.Now().Add(settings.Interval),
	}
}

// Name returns the breaker name.
func (b *Breaker) Name() string { return b.name }

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, _ := b.currentState(time.Now())
	return state
}

// Counts returns a copy of the current generation's statistics.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Do runs fn through the breaker. The error from fn passes through
// unchanged; rejection errors are ErrCircuitOpen or ErrTooManyRequests.
func (b *Breaker) Do(fn func() error) error {
	gen, err := b.before()
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			b.after(gen, false)
			panic(r)
		}
	}()

	callErr := fn()
	b.after(gen, callErr == nil)
	return callErr
}

func (b *Breaker) before() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state, gen := b.currentState(now)

	switch {
	case state == StateOpen:
		return gen, ErrCircuitOpen
	case state == StateHalfOpen && b.counts.Requests >= b.settings.MaxProbes:
		return gen, ErrTooManyRequests
	}
	b.counts.Requests++
	return gen, nil
}

func (b *Breaker) after(gen uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state, current := b.currentState(now)
	if current != gen {
		// The generation rolled over mid-call; the outcome belongs to a
		// window that no longer exists.
		return
	}

	if success {
		b.onSuccess(state, now)
	} else {
		b.onFailure(state, now)
	}
}

func (b *Breaker) onSuccess(state State, now time.Time) {
	b.counts.TotalSuccesses++
	b.counts.ConsecutiveSuccesses++
	b.counts.ConsecutiveFailures = 0
	if state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.settings.MaxProbes {
		b.transition(StateClosed, now)
	}
}

func (b *Breaker) onFailure(state State, now time.Time) {
	switch state {
	case StateClosed:
		b.counts.TotalFailures++
		b.counts.ConsecutiveFailures++
		b.counts.ConsecutiveSuccesses = 0
		if b.settings.TripAfter(b.counts) {
			b.transition(StateOpen, now)
		}
	case StateHalfOpen:
		b.transition(StateOpen, now)
	}
}

func (b *Breaker) currentState(now time.Time) (State, uint64) {
	switch b.state {
	case StateClosed:
		if !b.expiry.IsZero() && b.expiry.Before(now) {
			b.newGeneration(now)
		}
	case StateOpen:
		if b.expiry.Before(now) {
			b.transition(StateHalfOpen, now)
		}
	}
	return b.state, b.generation
}

func (b *Breaker) transition(state State, now time.Time) {
	if b.state == state {
		return
	}
	prev := b.state
	b.state = state
	b.newGeneration(now)

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, prev, state)
	}
}

func (b *Breaker) newGeneration(now time.Time) {
	b.generation++
	b.counts = Counts{}
	switch b.state {
	case StateClosed:
		b.expiry = now.Add(b.settings.Interval)
	case StateOpen:
		b.expiry = now.Add(b.settings.OpenFor)
	default:
		b.expiry = time.Time{}
	}
}
