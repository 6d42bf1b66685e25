package circuit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream 502")

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(cfg Config) (*Breaker, *clock) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := NewBreaker("geocoder", cfg, nil)
	b.now = c.now
	return b, c
}

func fail(context.Context) error { return errUpstream }
func ok(context.Context) error   { return nil }

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 3, Cooldown: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Execute(ctx, fail), errUpstream)
	}
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 2, Cooldown: time.Minute})
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	require.NoError(t, b.Execute(ctx, ok))
	_ = b.Execute(ctx, fail)

	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerProbeAfterCooldown(t *testing.T) {
	b, c := newTestBreaker(Config{Threshold: 1, Cooldown: time.Minute})
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	require.Equal(t, StateOpen, b.State())

	c.advance(time.Minute)
	require.NoError(t, b.Execute(ctx, ok))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	b, c := newTestBreaker(Config{Threshold: 1, Cooldown: time.Minute})
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	c.advance(time.Minute)
	_ = b.Execute(ctx, fail)

	assert.Equal(t, StateOpen, b.State())
	snap := b.Snapshot()
	assert.Equal(t, "open", snap.State)
	assert.Equal(t, c.t.Add(time.Minute), snap.OpenUntil)
}

func TestBreakerSingleProbe(t *testing.T) {
	b, c := newTestBreaker(Config{Threshold: 1, Cooldown: time.Minute})
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	c.advance(time.Minute)

	err := b.Execute(ctx, func(ctx context.Context) error {
		assert.ErrorIs(t, b.Execute(ctx, ok), ErrProbeInFlight)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerIgnoresRejectedErrors(t *testing.T) {
	notFound := errors.New("no match")
	b, _ := newTestBreaker(Config{
		Threshold: 1,
		IsFailure: func(err error) bool { return !errors.Is(err, notFound) },
	})

	err := b.Execute(context.Background(), func(context.Context) error { return notFound })

	assert.ErrorIs(t, err, notFound)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerCancelledContext(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, b.Execute(ctx, ok), context.Canceled)

	err := b.Execute(context.Background(), func(context.Context) error { return context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerReset(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 1, Cooldown: time.Hour})
	_ = b.Execute(context.Background(), fail)
	require.Equal(t, StateOpen, b.State())

	b.Reset()

	assert.Equal(t, StateClosed, b.State())
	assert.Zero(t, b.Snapshot().Failures)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half_open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
