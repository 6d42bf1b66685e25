package geocoder

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Payphone-Digital/devcamper/pkg/circuit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPGeocoderResolvesAddress(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "233 Bay State Rd Boston MA 02215", r.URL.Query().Get("q"))
		assert.Equal(t, "k3y", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"42.3505","lon":"-71.1054","display_name":"233 Bay State Rd, Boston, MA 02215"}]`))
	})

	g := NewHTTPGeocoder(HTTPConfig{BaseURL: srv.URL, APIKey: "k3y"}, zap.NewNop())
	loc, err := g.Geocode(context.Background(), "233 Bay State Rd Boston MA 02215")

	require.NoError(t, err)
	assert.InDelta(t, 42.3505, loc.Latitude, 1e-9)
	assert.InDelta(t, -71.1054, loc.Longitude, 1e-9)
	assert.Equal(t, "233 Bay State Rd, Boston, MA 02215", loc.FormattedAddress)
}

func TestHTTPGeocoderNoMatchDoesNotTrip(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	g := NewHTTPGeocoder(HTTPConfig{BaseURL: srv.URL, Breaker: circuit.Config{Threshold: 1}}, zap.NewNop())
	for i := 0; i < 3; i++ {
		_, err := g.Geocode(context.Background(), "nowhere")
		assert.ErrorIs(t, err, ErrNoMatch)
	}
	assert.Equal(t, circuit.StateClosed, g.Breaker().State())
}

func TestHTTPGeocoderRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[{"lat":"1.5","lon":"2.5","display_name":"x"}]`))
	})

	g := NewHTTPGeocoder(HTTPConfig{BaseURL: srv.URL, MaxRetries: 2, RetryDelay: time.Millisecond}, zap.NewNop())
	loc, err := g.Geocode(context.Background(), "somewhere")

	require.NoError(t, err)
	assert.Equal(t, 1.5, loc.Latitude)
	assert.EqualValues(t, 3, calls.Load())
}

func TestHTTPGeocoderGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	g := NewHTTPGeocoder(HTTPConfig{BaseURL: srv.URL, MaxRetries: 2, RetryDelay: time.Millisecond}, zap.NewNop())
	_, err := g.Geocode(context.Background(), "somewhere")

	var se *statusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.code)
	assert.EqualValues(t, 3, calls.Load())
}

func TestHTTPGeocoderStopsRetryingOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		cancel()
		w.WriteHeader(http.StatusBadGateway)
	})

	g := NewHTTPGeocoder(HTTPConfig{BaseURL: srv.URL, MaxRetries: 5, RetryDelay: time.Hour}, zap.NewNop())
	_, err := g.Geocode(ctx, "somewhere")

	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 1, calls.Load())
}

func TestHTTPGeocoderOpensBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	g := NewHTTPGeocoder(HTTPConfig{
		BaseURL: srv.URL,
		Breaker: circuit.Config{Threshold: 2, Cooldown: time.Hour},
	}, zap.NewNop())

	for i := 0; i < 2; i++ {
		_, err := g.Geocode(context.Background(), "somewhere")
		require.Error(t, err)
	}
	_, err := g.Geocode(context.Background(), "somewhere")

	assert.ErrorIs(t, err, circuit.ErrOpen)
	assert.EqualValues(t, 2, calls.Load())
}

func TestHTTPGeocoderClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	g := NewHTTPGeocoder(HTTPConfig{BaseURL: srv.URL, MaxRetries: 3, RetryDelay: time.Millisecond}, zap.NewNop())
	_, err := g.Geocode(context.Background(), "somewhere")

	var se *statusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.code)
	assert.EqualValues(t, 1, calls.Load())
}

type countingGeocoder struct {
	calls int
	err   error
}

func (c *countingGeocoder) Geocode(_ context.Context, address string) (*Location, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &Location{Latitude: 1, Longitude: 2, FormattedAddress: address}, nil
}

func TestCachedServesRepeatedLookups(t *testing.T) {
	inner := &countingGeocoder{}
	mem := NewMemoryCache(0)
	defer mem.Close()
	g := NewCached(inner, mem, time.Hour)

	first, err := g.Geocode(context.Background(), "1 Main St  Boston")
	require.NoError(t, err)
	second, err := g.Geocode(context.Background(), "1 main st boston")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, first, second)
}

func TestCachedDoesNotCacheFailures(t *testing.T) {
	inner := &countingGeocoder{err: errors.New("geocoder timeout")}
	mem := NewMemoryCache(0)
	defer mem.Close()
	g := NewCached(inner, mem, time.Hour)

	_, err1 := g.Geocode(context.Background(), "x")
	_, err2 := g.Geocode(context.Background(), "x")

	assert.Error(t, err1)
	assert.Error(t, err2)
	assert.Equal(t, 2, inner.calls)
}

type mapStore struct {
	data map[string]Location
	err  error
}

func (m *mapStore) GetJSON(_ context.Context, key string, dst interface{}) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	loc, ok := m.data[key]
	if !ok {
		return false, nil
	}
	*(dst.(*Location)) = loc
	return true, nil
}

func (m *mapStore) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.data[key] = *(value.(*Location))
	return nil
}

func TestRedisCachePrefixesKeys(t *testing.T) {
	store := &mapStore{data: map[string]Location{}}
	c := NewRedisCache(store)

	c.Set(context.Background(), "boston", &Location{Latitude: 3}, time.Minute)
	loc, ok := c.Get(context.Background(), "boston")

	require.True(t, ok)
	assert.Equal(t, 3.0, loc.Latitude)
	assert.Len(t, store.data, 1)
	for k := range store.data {
		assert.NotEqual(t, "boston", k)
	}
}

func TestRedisCacheErrorsAreMisses(t *testing.T) {
	c := NewRedisCache(&mapStore{err: errors.New("connection refused")})

	c.Set(context.Background(), "boston", &Location{}, time.Minute)
	_, ok := c.Get(context.Background(), "boston")

	assert.False(t, ok)
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.Geocode(context.Background(), "x")
	assert.ErrorIs(t, err, ErrDisabled)
}
