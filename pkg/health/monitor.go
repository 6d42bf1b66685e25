package health

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status of a single dependency or of the whole service.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
	StatusDisabled  Status = "disabled"
)

// ErrDisabled is returned by a check whose dependency is switched off.
var ErrDisabled = errors.New("disabled")

// CheckFunc probes one dependency. A nil error means healthy.
type CheckFunc func(ctx context.Context) error

// CheckResult is the latest outcome of one check.
type CheckResult struct {
	Status       Status    `json:"status"`
	Message      string    `json:"message,omitempty"`
	LatencyMs    int64     `json:"latency_ms"`
	LastCheck    time.Time `json:"last_check"`
	CheckCount   int       `json:"check_count"`
	FailureCount int       `json:"failure_count"`
}

// Report aggregates every registered check.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

type check struct {
	fn       CheckFunc
	critical bool
}

// Monitor runs dependency checks on demand and periodically in the
// background. A failing critical check makes the service unhealthy; any
// other failure only degrades it.
type Monitor struct {
	mu       sync.RWMutex
	checks   map[string]check
	results  map[string]*CheckResult
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewMonitor(interval time.Duration, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		checks:   make(map[string]check),
		results:  make(map[string]*CheckResult),
		interval: interval,
		timeout:  5 * time.Second,
		logger:   logger,
	}
}

// Register adds a named check. Registering a name twice replaces the check.
func (m *Monitor) Register(name string, critical bool, fn CheckFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.checks[name] = check{fn: fn, critical: critical}
	m.logger.Info("Registered health check",
		zap.String("name", name),
		zap.Bool("critical", critical),
	)
}

// Start runs CheckAll every interval until Stop or ctx is done.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.cancel != nil || m.interval <= 0 {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go m.run(ctx)
}

// Stop ends the background loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.CheckAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckAll(ctx)
		}
	}
}

// CheckAll runs every check concurrently and returns the aggregated report.
func (m *Monitor) CheckAll(ctx context.Context) Report {
	m.mu.RLock()
	checks := make(map[string]check, len(m.checks))
	for name, c := range m.checks {
		checks[name] = c
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for name, c := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.record(name, m.runOne(ctx, c.fn))
		}()
	}
	wg.Wait()

	return m.Report()
}

func (m *Monitor) runOne(ctx context.Context, fn CheckFunc) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	result := CheckResult{
		Status:    StatusHealthy,
		LatencyMs: time.Since(start).Milliseconds(),
		LastCheck: start,
	}
	switch {
	case errors.Is(err, ErrDisabled):
		result.Status = StatusDisabled
	case err != nil:
		result.Status = StatusUnhealthy
		result.Message = err.Error()
	}
	return result
}

func (m *Monitor) record(name string, result CheckResult) {
	m.mu.Lock()
	if existing, ok := m.results[name]; ok {
		result.CheckCount = existing.CheckCount
		result.FailureCount = existing.FailureCount
	}
	result.CheckCount++
	if result.Status == StatusUnhealthy {
		result.FailureCount++
	}
	m.results[name] = &result
	m.mu.Unlock()

	if result.Status == StatusUnhealthy {
		m.logger.Warn("Health check failed",
			zap.String("name", name),
			zap.String("message", result.Message),
			zap.Int64("latency_ms", result.LatencyMs),
		)
	}
}

// Report returns the latest results without running any check. Checks that
// have not run yet are omitted.
func (m *Monitor) Report() Report {
	m.mu.RLock()
	defer m.mu.RUnlock()

	report := Report{Status: StatusHealthy, Checks: make(map[string]CheckResult, len(m.results))}
	for name, result := range m.results {
		report.Checks[name] = *result
		if result.Status != StatusUnhealthy {
			continue
		}
		if m.checks[name].critical {
			report.Status = StatusUnhealthy
		} else if report.Status == StatusHealthy {
			report.Status = StatusDegraded
		}
	}
	return report
}
