package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/phishguard/config"
)

func TestRateLimitPerIP(t *testing.T) {
	useConfig(func(c *config.AppConfig) { c.App.RateLimitPerMinute = 2 })
	defer useConfig(func(*config.AppConfig) {})

	r := gin.New()
	r.Use(RateLimitMiddleware())
	r.GET("/", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

	hit := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	// burst is half the per-minute budget
	if w := hit("198.51.100.7:1000"); w.Code != http.StatusOK {
		t.Fatalf("first request = %d", w.Code)
	}
	w := hit("198.51.100.7:1001")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", w.Header().Get("Retry-After"))
	}
	if w := hit("198.51.100.8:1000"); w.Code != http.StatusOK {
		t.Fatalf("other ip = %d", w.Code)
	}
}

func TestAtLeastOne(t *testing.T) {
	for in, want := range map[int]int{-3: 1, 0: 1, 1: 1, 7: 7} {
		if got := atLeastOne(in); got != want {
			t.Errorf("atLeastOne(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestIPBucketsSweepIdleVisitors(t *testing.T) {
	b := newIPBuckets(60)
	b.allow("192.0.2.1")
	b.visitors["192.0.2.1"].lastSeen = time.Now().Add(-2 * visitorIdle)
	b.lastSweep = time.Now().Add(-2 * visitorIdle)

	b.allow("192.0.2.2")
	if _, ok := b.visitors["192.0.2.1"]; ok {
		t.Error("idle visitor survived the sweep")
	}
	if len(b.visitors) != 1 {
		t.Errorf("visitors = %d, want 1", len(b.visitors))
	}
}
