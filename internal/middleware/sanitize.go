package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Payphone-Digital/devcamper/internal/constants"
	"github.com/Payphone-Digital/devcamper/pkg/logger"
)

// unsafeQueryKey reports keys that could smuggle store operators: a leading
// "$", or a "$" or "." inside the bracketed operator.
func unsafeQueryKey(key string) bool {
	if strings.HasPrefix(key, "$") {
		return true
	}
	_, op, ok := strings.Cut(key, "[")
	return ok && strings.ContainsAny(op, "$.")
}

// cleanQuery drops unsafe keys and collapses repeated keys to their last
// value, except for multiValue keys. It returns the number of keys changed.
func cleanQuery(q url.Values, multiValue []string) int {
	changed := 0
	for key, values := range q {
		if unsafeQueryKey(key) {
			delete(q, key)
			changed++
			continue
		}
		field, _, _ := strings.Cut(key, "[")
		if len(values) > 1 && !slices.Contains(multiValue, field) {
			q[key] = values[len(values)-1:]
			changed++
		}
	}
	return changed
}

// SanitizeQuery strips operator injection and parameter pollution from the
// query string before any handler reads it.
func SanitizeQuery(multiValueKeys []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.RawQuery == "" {
			c.Next()
			return
		}
		q := c.Request.URL.Query()
		if n := cleanQuery(q, multiValueKeys); n > 0 {
			logger.DebugWithContext(c.Request.Context(), "Query sanitized").
				Int("keys", n).
				String("path", c.Request.URL.Path).
				Log()
			c.Request.URL.RawQuery = q.Encode()
		}
		c.Next()
	}
}

var htmlTags = strings.NewReplacer("<", "&lt;", ">", "&gt;")

func escapeStrings(v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		return htmlTags.Replace(t)
	case map[string]interface{}:
		for k, val := range t {
			t[k] = escapeStrings(val)
		}
		return t
	case []interface{}:
		for i, val := range t {
			t[i] = escapeStrings(val)
		}
		return t
	}
	return v
}

// XSSClean escapes markup in every string of a JSON request body.
// Bodies that are not valid JSON are left for the binder to reject.
func XSSClean() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			c.Next()
			return
		}
		if c.Request.Body == nil || !strings.HasPrefix(c.ContentType(), constants.ContentTypeJSON) {
			c.Next()
			return
		}

		raw, err := io.ReadAll(c.Request.Body)
		c.Request.Body.Close()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, constants.BuildErrorResponse(constants.MsgBadRequest, nil))
			return
		}

		body := raw
		if bytes.ContainsAny(raw, "<>") {
			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.UseNumber()
			var payload interface{}
			if dec.Decode(&payload) == nil {
				if cleaned, err := json.Marshal(escapeStrings(payload)); err == nil {
					body = cleaned
				}
			}
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Request.ContentLength = int64(len(body))
		c.Next()
	}
}

// SecurityHeaders sets the conservative browser headers. HSTS is only sent
// in production where TLS is terminated in front of the service.
func SecurityHeaders(production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("X-DNS-Prefetch-Control", "off")
		h.Set("Referrer-Policy", "no-referrer")
		if production {
			h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		}
		c.Next()
	}
}
