package cache

import (
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := New()
	c.Set("flags:user-1", map[string]bool{"beta": true}, time.Minute)

	v, ok := c.Get("flags:user-1")
	if !ok {
		t.Fatalf("expected cache hit")
	}
	flags, ok := v.(map[string]bool)
	if !ok || !flags["beta"] {
		t.Fatalf("unexpected cached value: %v", v)
	}
}

func TestExpiry(t *testing.T) {
	c := New()
	c.Set("k", "v", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected expired entry to miss")
	}
}

func TestInvalidatePrefix(t *testing.T) {
	c := New()
	c.Set("flags:user-1", 1, time.Minute)
	c.Set("flags:user-2", 2, time.Minute)
	c.Set("scopes:user-1", 3, time.Minute)

	c.Invalidate("flags:")

	if _, ok := c.Get("flags:user-1"); ok {
		t.Fatalf("expected flags:user-1 invalidated")
	}
	if _, ok := c.Get("flags:user-2"); ok {
		t.Fatalf("expected flags:user-2 invalidated")
	}
	if _, ok := c.Get("scopes:user-1"); !ok {
		t.Fatalf("expected scopes:user-1 to remain")
	}
}
