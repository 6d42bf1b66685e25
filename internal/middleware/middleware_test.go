package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Payphone-Digital/devcamper/config"
	"github.com/Payphone-Digital/devcamper/internal/constants"
	apperrors "github.com/Payphone-Digital/devcamper/internal/errors"
	"github.com/Payphone-Digital/devcamper/internal/model"
	"github.com/Payphone-Digital/devcamper/internal/service"
	ctxutil "github.com/Payphone-Digital/devcamper/pkg/context"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type usersByID map[uint]*model.User

func (u usersByID) GetByID(_ context.Context, id uint) (*model.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, apperrors.ErrUserNotFound
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func protectedEngine(jwt *service.JWTService, users UserLookup, roles ...string) *gin.Engine {
	r := gin.New()
	handlers := []gin.HandlerFunc{NewJWTMiddleware(jwt, users).Protect()}
	if len(roles) > 0 {
		handlers = append(handlers, Authorize(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		actor := CurrentActor(c)
		ctxID, _ := ctxutil.GetUserID(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"id": actor.ID, "role": actor.Role, "ctx_id": ctxID, "name": CurrentUser(c).Name})
	})
	r.GET("/private", handlers...)
	return r
}

func TestProtect(t *testing.T) {
	jwt := service.NewJWTService("secret", time.Hour)
	user := &model.User{ID: 4, Name: "Jane", Role: constants.RolePublisher, TokenVersion: 2}
	users := usersByID{4: user}
	token, err := jwt.GenerateToken(user)
	require.NoError(t, err)
	r := protectedEngine(jwt, users)

	t.Run("bearer header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		req.Header.Set("Authorization", "Bearer "+token.Token)
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, float64(4), body["id"])
		assert.Equal(t, float64(4), body["ctx_id"])
		assert.Equal(t, "publisher", body["role"])
		assert.Equal(t, "Jane", body["name"])
	})

	t.Run("cookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		req.AddCookie(&http.Cookie{Name: constants.TokenCookieName, Value: token.Token})
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		body := decode(t, w)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Not authorized to access this route", body["error"])
	})

	t.Run("garbage token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("revoked token", func(t *testing.T) {
		bumped := *user
		bumped.TokenVersion = 3
		revoked := protectedEngine(jwt, usersByID{4: &bumped})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		req.Header.Set("Authorization", "Bearer "+token.Token)
		revoked.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("deleted user", func(t *testing.T) {
		gone := protectedEngine(jwt, usersByID{})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		req.Header.Set("Authorization", "Bearer "+token.Token)
		gone.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthorize(t *testing.T) {
	jwt := service.NewJWTService("secret", time.Hour)
	user := &model.User{ID: 1, Name: "Joe", Role: constants.RoleUser, TokenVersion: 1}
	token, err := jwt.GenerateToken(user)
	require.NoError(t, err)

	r := protectedEngine(jwt, usersByID{1: user}, constants.RolePublisher, constants.RoleAdmin)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+token.Token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "User role user is not authorized to access this route", decode(t, w)["error"])
}

func rateLimitedEngine(limiter Limiter) *gin.Engine {
	r := gin.New()
	r.Use(RateLimit(limiter))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestRateLimit(t *testing.T) {
	r := rateLimitedEngine(NewMemoryLimiter(2, time.Minute))

	var codes []int
	var remaining []string
	for range 3 {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		remaining = append(remaining, w.Header().Get(constants.HeaderRateLimitRemaining))
	}

	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
	assert.Equal(t, []string{"1", "0", "0"}, remaining)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code, "other clients have their own allowance")
}

func fixedClock(l *MemoryLimiter) *time.Time {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return &now
}

func TestMemoryLimiterRefills(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(2, time.Minute)
	now := fixedClock(l)

	q, err := l.Take(ctx, "k")
	require.NoError(t, err)
	assert.True(t, q.Allowed)
	assert.Equal(t, 1, q.Remaining)

	q, _ = l.Take(ctx, "k")
	assert.True(t, q.Allowed)
	assert.Equal(t, 0, q.Remaining)
	assert.Equal(t, time.Minute, q.ResetIn)

	q, _ = l.Take(ctx, "k")
	assert.False(t, q.Allowed)
	assert.Equal(t, 30*time.Second, q.RetryIn)

	*now = now.Add(31 * time.Second)
	q, _ = l.Take(ctx, "k")
	assert.True(t, q.Allowed, "one request refills every window/max")
	assert.Equal(t, 0, q.Remaining)
}

func TestMemoryLimiterRejectedRequestsCostNothing(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(2, time.Minute)
	now := fixedClock(l)

	for range 2 {
		_, _ = l.Take(ctx, "flood")
	}
	start := time.Now()
	for range 100000 {
		q, err := l.Take(ctx, "flood")
		require.NoError(t, err)
		require.False(t, q.Allowed)
	}
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Len(t, l.entries, 1)

	*now = now.Add(31 * time.Second)
	q, _ := l.Take(ctx, "flood")
	assert.True(t, q.Allowed, "a flood does not extend the wait")
}

func TestMemoryLimiterEvictsIdleClients(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(5, time.Minute)
	now := fixedClock(l)

	for i := range sweepEvery - 1 {
		_, _ = l.Take(ctx, "client-"+strconv.Itoa(i))
	}
	assert.Len(t, l.entries, sweepEvery-1)

	*now = now.Add(time.Minute)
	for range sweepEvery {
		_, _ = l.Take(ctx, "active")
	}
	assert.Len(t, l.entries, 1)
	assert.Contains(t, l.entries, "active")
}

type countingStore struct{ hits map[string]int64 }

func (s *countingStore) IncrWindow(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.hits[key]++
	return s.hits[key], window / 2, nil
}

func TestWindowLimiter(t *testing.T) {
	l := NewWindowLimiter(&countingStore{hits: map[string]int64{}}, 1, time.Minute)

	q, err := l.Take(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, Quota{Limit: 1, Remaining: 0, Allowed: true, ResetIn: 30 * time.Second}, q)

	q, _ = l.Take(context.Background(), "k")
	assert.False(t, q.Allowed)
	assert.Equal(t, 30*time.Second, q.RetryIn)
}

type failingStore struct{}

func (failingStore) IncrWindow(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("redis down")
}

func TestRateLimitFailsOpen(t *testing.T) {
	w := httptest.NewRecorder()
	rateLimitedEngine(NewWindowLimiter(failingStore{}, 1, time.Minute)).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get(constants.HeaderRateLimitLimit))
}

func TestCleanQuery(t *testing.T) {
	q, err := url.ParseQuery("price[$gt]=1&$where=x&name[a.b]=y&sort=a&sort=b&careers=x&careers=y&averageCost[lte]=10000")
	require.NoError(t, err)

	cleanQuery(q, []string{"careers"})

	assert.Equal(t, url.Values{
		"sort":             {"b"},
		"careers":          {"x", "y"},
		"averageCost[lte]": {"10000"},
	}, q)
}

func TestSanitizeQueryRewritesRequest(t *testing.T) {
	r := gin.New()
	r.Use(SanitizeQuery(nil))
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"query": c.Request.URL.Query()})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?limit=1&limit=5&$ne=1", nil))

	assert.JSONEq(t, `{"query":{"limit":["5"]}}`, w.Body.String())
}

func TestXSSClean(t *testing.T) {
	r := gin.New()
	r.Use(XSSClean())
	r.POST("/", func(c *gin.Context) {
		raw, _ := io.ReadAll(c.Request.Body)
		c.Data(http.StatusOK, constants.ContentTypeJSON, raw)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/",
		strings.NewReader(`{"name":"<script>alert(1)</script>","weeks":12,"tuition":10000.5,"careers":["<b>UI</b>"],"nested":{"x":"a>b"}}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`{"name":"&lt;script&gt;alert(1)&lt;/script&gt;","weeks":12,"tuition":10000.5,"careers":["&lt;b&gt;UI&lt;/b&gt;"],"nested":{"x":"a&gt;b"}}`,
		w.Body.String())
}

func TestXSSCleanLeavesInvalidJSON(t *testing.T) {
	r := gin.New()
	r.Use(XSSClean())
	r.PUT("/", func(c *gin.Context) {
		raw, _ := io.ReadAll(c.Request.Body)
		c.String(http.StatusOK, string(raw))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"name":"<b>`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, `{"name":"<b>`, w.Body.String())
}

func TestSecurityHeaders(t *testing.T) {
	for _, production := range []bool{false, true} {
		r := gin.New()
		r.Use(SecurityHeaders(production))
		r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "SAMEORIGIN", w.Header().Get("X-Frame-Options"))
		assert.Equal(t, production, w.Header().Get("Strict-Transport-Security") != "")
	}
}

func TestRequestContext(t *testing.T) {
	r := gin.New()
	r.Use(RequestContext())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, ctxutil.GetRequestID(c.Request.Context()))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(w.Body.String())
	assert.NoError(t, err)
	assert.Equal(t, w.Body.String(), w.Header().Get(constants.HeaderXRequestID))

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(constants.HeaderXRequestID, "req-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Body.String())
}

func TestRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RecoveryMiddleware())
	r.GET("/", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Server Error", decode(t, w)["error"])
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS(config.CORSConfig{AllowedOrigins: []string{"https://devcamper.io"}, MaxAge: time.Hour}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://devcamper.io")
	req.Header.Set("Access-Control-Request-Method", "PUT")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://devcamper.io", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", "PUT")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
