package utils

import (
	"testing"
	"time"
)

func TestCacheJSONLocalFallback(t *testing.T) {
	type page struct {
		Items []string `json:"items"`
		Total int      `json:"total"`
	}
	CacheSetJSON("test:cache:a", page{Items: []string{"x", "y"}, Total: 2}, time.Minute)

	var got page
	if !CacheGetJSON("test:cache:a", &got) {
		t.Fatal("cached value missing")
	}
	if got.Total != 2 || len(got.Items) != 2 {
		t.Fatalf("got %+v", got)
	}
	if CacheGetJSON("test:cache:missing", &got) {
		t.Fatal("missing key reported as hit")
	}
}

func TestCacheExpiry(t *testing.T) {
	CacheSetBytes("test:cache:short", []byte("v"), 10*time.Millisecond)
	if _, ok := CacheGetBytes("test:cache:short"); !ok {
		t.Fatal("value missing before expiry")
	}
	time.Sleep(30 * time.Millisecond)
	if _, ok := CacheGetBytes("test:cache:short"); ok {
		t.Fatal("value still present after expiry")
	}
}

func TestInvalidateByPrefix(t *testing.T) {
	CacheSetBytes("test:inv:1", []byte("1"), time.Minute)
	CacheSetBytes("test:inv:2", []byte("2"), time.Minute)
	CacheSetBytes("test:keep:1", []byte("3"), time.Minute)

	InvalidateByPrefix("test:inv:")

	for _, k := range []string{"test:inv:1", "test:inv:2"} {
		if _, ok := CacheGetBytes(k); ok {
			t.Errorf("%s survived invalidation", k)
		}
	}
	if _, ok := CacheGetBytes("test:keep:1"); !ok {
		t.Error("unrelated key was invalidated")
	}
}

func TestOAuthStateSingleUse(t *testing.T) {
	SaveState("state-123", time.Minute)
	if !ConsumeState("state-123") {
		t.Fatal("saved state rejected")
	}
	if ConsumeState("state-123") {
		t.Fatal("state accepted twice")
	}
	if ConsumeState("") {
		t.Fatal("empty state accepted")
	}
}
