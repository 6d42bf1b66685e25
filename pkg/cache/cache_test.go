package cache

import (
	"testing"
	"time"
)

func TestCacheExpiry(t *testing.T) {
	c := New[string](0)
	defer c.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("boston", "42.35,-71.06", time.Minute)
	if v, ok := c.Get("boston"); !ok || v != "42.35,-71.06" {
		t.Fatalf("Get() = %q, %v", v, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("boston"); ok {
		t.Error("expected entry to be expired")
	}
	if c.Len() != 1 {
		t.Errorf("expired entry should stay until swept, Len() = %d", c.Len())
	}

	c.sweep()
	if c.Len() != 0 {
		t.Errorf("Len() after sweep = %d", c.Len())
	}
}

func TestCacheDeleteAndClose(t *testing.T) {
	c := New[int](time.Millisecond)
	c.Set("a", 1, time.Hour)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("deleted key still present")
	}
	c.Close()
	c.Close()
}
