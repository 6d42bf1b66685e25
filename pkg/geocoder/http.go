package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/evergreen-ci/utility"
	"go.uber.org/zap"

	"github.com/Payphone-Digital/devcamper/pkg/circuit"
	"github.com/Payphone-Digital/devcamper/pkg/logger"
)

type HTTPConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Breaker    circuit.Config
}

// HTTPGeocoder queries a Nominatim compatible search endpoint.
type HTTPGeocoder struct {
	cfg     HTTPConfig
	client  *http.Client
	breaker *circuit.Breaker
	log     *zap.Logger
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("geocoder returned status %d", e.code)
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	return !errors.Is(err, ErrNoMatch) && !errors.Is(err, context.Canceled)
}

func NewHTTPGeocoder(cfg HTTPConfig, log *zap.Logger) *HTTPGeocoder {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	if log == nil {
		log = logger.GetLogger()
	}
	// Client errors and unmatched addresses say nothing about upstream health.
	cfg.Breaker.IsFailure = retryable
	return &HTTPGeocoder{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: circuit.NewBreaker("geocoder", cfg.Breaker, log),
		log:     log,
	}
}

func (g *HTTPGeocoder) Breaker() *circuit.Breaker {
	return g.breaker
}

func (g *HTTPGeocoder) Geocode(ctx context.Context, address string) (*Location, error) {
	if strings.TrimSpace(address) == "" {
		return nil, ErrNoMatch
	}

	var loc *Location
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		loc, err = g.geocodeWithRetry(ctx, address)
		return err
	})
	if err != nil {
		return nil, err
	}
	return loc, nil
}

func (g *HTTPGeocoder) geocodeWithRetry(ctx context.Context, address string) (*Location, error) {
	var loc *Location
	attempt := 0
	err := utility.Retry(ctx, func() (bool, error) {
		attempt++
		var err error
		loc, err = g.search(ctx, address)
		if err == nil {
			return false, nil
		}
		if !retryable(err) {
			return false, err
		}
		if attempt <= g.cfg.MaxRetries {
			logger.WarnWithContext(ctx, "Geocoder request failed, retrying").
				Int("attempt", attempt).
				Err(err).
				Log()
		}
		return true, err
	}, utility.RetryOptions{
		MaxAttempts: g.cfg.MaxRetries + 1,
		MinDelay:    g.cfg.RetryDelay,
		MaxDelay:    g.cfg.RetryDelay << g.cfg.MaxRetries,
	})
	if err != nil {
		return nil, err
	}
	return loc, nil
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (g *HTTPGeocoder) search(ctx context.Context, address string) (*Location, error) {
	u, err := url.Parse(strings.TrimRight(g.cfg.BaseURL, "/") + "/search")
	if err != nil {
		return nil, fmt.Errorf("invalid geocoder URL: %w", err)
	}
	q := u.Query()
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")
	if g.cfg.APIKey != "" {
		q.Set("key", g.cfg.APIKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoder request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read geocoder response: %w", err)
	}

	logger.DebugWithContext(ctx, "Geocoder response").
		Int("status_code", resp.StatusCode).
		Duration(time.Since(start)).
		Log()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode}
	}

	var results []searchResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("failed to decode geocoder response: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNoMatch
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q: %w", results[0].Lat, err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q: %w", results[0].Lon, err)
	}

	return &Location{
		Latitude:         lat,
		Longitude:        lng,
		FormattedAddress: results[0].DisplayName,
	}, nil
}
