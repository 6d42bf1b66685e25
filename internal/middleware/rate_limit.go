package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/Payphone-Digital/devcamper/internal/constants"
	"github.com/Payphone-Digital/devcamper/pkg/logger"
)

// Quota is the outcome of one request against a client's allowance.
type Quota struct {
	Limit     int
	Remaining int
	Allowed   bool
	// ResetIn is how long until the allowance is whole again.
	ResetIn time.Duration
	// RetryIn is how long a rejected client has to wait.
	RetryIn time.Duration
}

// Limiter takes one request from the allowance of key.
type Limiter interface {
	Take(ctx context.Context, key string) (Quota, error)
}

// WindowStore counts hits for a key within a window. pkg/redis.Client
// implements it for deployments with several instances.
type WindowStore interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// WindowLimiter allows max requests per fixed window, counted in a shared store.
type WindowLimiter struct {
	store  WindowStore
	max    int
	window time.Duration
}

func NewWindowLimiter(store WindowStore, max int, window time.Duration) *WindowLimiter {
	return &WindowLimiter{store: store, max: max, window: window}
}

func (l *WindowLimiter) Take(ctx context.Context, key string) (Quota, error) {
	count, left, err := l.store.IncrWindow(ctx, key, l.window)
	if err != nil {
		return Quota{}, err
	}
	q := Quota{
		Limit:     l.max,
		Remaining: max(l.max-int(count), 0),
		Allowed:   count <= int64(l.max),
		ResetIn:   left,
	}
	if !q.Allowed {
		q.RetryIn = left
	}
	return q, nil
}

const sweepEvery = 1000

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter keeps a token bucket per key in process: max requests of
// burst, refilled at max per window. Rejected requests cost nothing.
type MemoryLimiter struct {
	mu       sync.Mutex
	entries  map[string]*limiterEntry
	max      int
	window   time.Duration
	interval time.Duration
	now      func() time.Time
	takes    int
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	if max < 1 {
		max = 1
	}
	return &MemoryLimiter{
		entries:  make(map[string]*limiterEntry),
		max:      max,
		window:   window,
		interval: window / time.Duration(max),
		now:      time.Now,
	}
}

func (l *MemoryLimiter) Take(_ context.Context, key string) (Quota, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.takes++
	if l.takes%sweepEvery == 0 {
		l.sweep(now)
	}

	e, ok := l.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Every(l.interval), l.max)}
		l.entries[key] = e
	}
	e.lastSeen = now

	allowed := e.limiter.AllowN(now, 1)
	tokens := e.limiter.TokensAt(now)

	q := Quota{
		Limit:     l.max,
		Remaining: max(int(math.Floor(tokens)), 0),
		Allowed:   allowed,
		ResetIn:   time.Duration((float64(l.max) - tokens) * float64(l.interval)),
	}
	if !allowed {
		q.RetryIn = time.Duration((1 - tokens) * float64(l.interval))
	}
	return q, nil
}

// sweep drops keys idle for a whole window; their buckets are full again.
func (l *MemoryLimiter) sweep(now time.Time) {
	for key, e := range l.entries {
		if now.Sub(e.lastSeen) >= l.window {
			delete(l.entries, key)
		}
	}
}

// RateLimit takes one request per call from the client IP's allowance.
// Limiter failures let the request through.
func RateLimit(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ip := c.ClientIP()

		q, err := limiter.Take(ctx, constants.CacheKeyRateLimit+ip)
		if err != nil {
			logger.ErrorWithContext(ctx, "Rate limit store unavailable").
				String("client_ip", ip).
				Err(err).
				Log()
			c.Next()
			return
		}

		c.Header(constants.HeaderRateLimitLimit, strconv.Itoa(q.Limit))
		c.Header(constants.HeaderRateLimitRemaining, strconv.Itoa(q.Remaining))
		c.Header(constants.HeaderRateLimitReset, strconv.FormatInt(time.Now().Add(q.ResetIn).Unix(), 10))

		if !q.Allowed {
			logger.WarnWithContext(ctx, "Rate limit exceeded").
				String("client_ip", ip).
				String("method", c.Request.Method).
				String("path", c.Request.URL.Path).
				Int("max_requests", q.Limit).
				Duration(q.RetryIn).
				Log()

			c.Header(constants.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(q.RetryIn.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				constants.BuildErrorResponse(constants.MsgTooManyRequests, nil))
			return
		}

		c.Next()
	}
}
