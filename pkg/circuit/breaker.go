package circuit

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State of a breaker
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
		return "half_open"
	default:
		return "unknown"
	}
}

var (
	ErrOpen          = errors.New("circuit breaker is open")
	ErrProbeInFlight = errors.New("circuit breaker probe already in flight")
)

// Config for a breaker. Zero values fall back to DefaultConfig.
type Config struct {
	Threshold        int
	Cooldown         time.Duration
	SuccessThreshold int
	// IsFailure decides whether an error counts against the upstream.
	// Errors it rejects are returned to the caller but leave the breaker alone.
	IsFailure func(error) bool
}

func DefaultConfig() Config {
	return Config{
		Threshold:        5,
		Cooldown:         30 * time.Second,
		SuccessThreshold: 1,
	}
}

// Snapshot is a point-in-time view used by health reporting.
type Snapshot struct {
	Name        string    `json:"name"`
	State       string    `json:"state"`
	Failures    int       `json:"failures"`
	LastFailure time.Time `json:"last_failure,omitzero"`
	OpenUntil   time.Time `json:"open_until,omitzero"`
}

// Breaker guards calls to a flaky upstream. While open it fails fast; after
// the cooldown a single probe is let through to decide whether to close.
type Breaker struct {
	mu          sync.Mutex
	name        string
	cfg         Config
	log         *zap.Logger
	now         func() time.Time
	state       State
	failures    int
	successes   int
	probing     bool
	lastFailure time.Time
	openedAt    time.Time
}

func NewBreaker(name string, cfg Config, log *zap.Logger) *Breaker {
	def := DefaultConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = countsAsFailure
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Breaker{name: name, cfg: cfg, log: log, now: time.Now}
}

// countsAsFailure ignores cancellations by the caller.
func countsAsFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// Execute runs fn when the breaker admits the call and records its outcome.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	b.record(err)
	return err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
			return ErrOpen
		}
		b.setState(StateHalfOpen)
		b.probing = true
		return nil
	case StateHalfOpen:
		if b.probing {
			return ErrProbeInFlight
		}
		b.probing = true
		return nil
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	if err != nil && b.cfg.IsFailure(err) {
		b.failures++
		b.successes = 0
		b.lastFailure = b.now()
		if b.state == StateHalfOpen || b.failures >= b.cfg.Threshold {
			b.openedAt = b.lastFailure
			b.setState(StateOpen)
		}
		return
	}

	switch b.state {
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.failures = 0
			b.setState(StateClosed)
		}
	case StateClosed:
		b.failures = 0
	}
}

// setState must be called with mu held.
func (b *Breaker) setState(next State) {
	if b.state == next {
		return
	}
	prev := b.state
	b.state = next
	b.successes = 0
	b.log.Info("Circuit breaker state changed",
		zap.String("breaker", b.name),
		zap.String("from", prev.String()),
		zap.String("to", next.String()),
		zap.Int("failures", b.failures),
	)
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Snapshot{
		Name:        b.name,
		State:       b.state.String(),
		Failures:    b.failures,
		LastFailure: b.lastFailure,
	}
	if b.state == StateOpen {
		s.OpenUntil = b.openedAt.Add(b.cfg.Cooldown)
	}
	return s
}

// Reset forces the breaker closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.probing = false
	b.setState(StateClosed)
}
