package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/cppla/phishguard/config"
	"github.com/cppla/phishguard/utils"
)

const visitorIdle = 5 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipBuckets keeps one token bucket per client IP. Buckets idle for longer
// than visitorIdle are dropped on the next sweep.
type ipBuckets struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	every     rate.Limit
	burst     int
	lastSweep time.Time
}

func newIPBuckets(perMinute int) *ipBuckets {
	return &ipBuckets{
		visitors:  make(map[string]*visitor),
		every:     rate.Every(time.Minute / time.Duration(atLeastOne(perMinute))),
		burst:     atLeastOne(perMinute / 2),
		lastSweep: time.Now(),
	}
}

func (b *ipBuckets) allow(ip string) bool {
	now := time.Now()
	b.mu.Lock()
	if now.Sub(b.lastSweep) > visitorIdle {
		for k, v := range b.visitors {
			if now.Sub(v.lastSeen) > visitorIdle {
				delete(b.visitors, k)
			}
		}
		b.lastSweep = now
	}
	v, ok := b.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(b.every, b.burst)}
		b.visitors[ip] = v
	}
	v.lastSeen = now
	b.mu.Unlock()
	return v.limiter.AllowN(now, 1)
}

// RateLimitMiddleware throttles each client IP to app.rate_limit_per_minute
// with a burst of half that.
func RateLimitMiddleware() gin.HandlerFunc {
	buckets := newIPBuckets(config.Get().App.RateLimitPerMinute)
	return func(ctx *gin.Context) {
		if !buckets.allow(ctx.ClientIP()) {
			ctx.Header("Retry-After", "60")
			utils.Error(ctx, http.StatusTooManyRequests, 42901, "rate limit exceeded")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
