package cache

import (
	"context"
	"testing"
	"time"
)

func TestCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := New[string, int](0)
	defer c.Close()

	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	c.Set(ctx, "short", 1, time.Second)
	c.Set(ctx, "forever", 2, 0)

	if v, ok := c.Get(ctx, "short"); !ok || v != 1 {
		t.Fatalf("short = %v, %v", v, ok)
	}

	now = now.Add(2 * time.Second)

	if _, ok := c.Get(ctx, "short"); ok {
		t.Error("short should have expired")
	}
	if v, ok := c.Get(ctx, "forever"); !ok || v != 2 {
		t.Errorf("forever = %v, %v", v, ok)
	}

	c.evictExpired()
	if c.Len() != 1 {
		t.Errorf("len = %d after eviction, want 1", c.Len())
	}
}

func TestCache_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	c := New[int, string](time.Minute)
	defer c.Close()

	c.Set(ctx, 1, "a", time.Minute)
	c.Set(ctx, 2, "b", time.Minute)
	c.Delete(ctx, 1)

	if _, ok := c.Get(ctx, 1); ok {
		t.Error("key 1 should be deleted")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("len = %d after clear", c.Len())
	}
	c.Close()
	c.Close()
}
