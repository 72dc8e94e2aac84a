package utils

import (
	"context"
	"time"
)

const consumeScript = `local v=redis.call('GET', KEYS[1]); if v then redis.call('DEL', KEYS[1]); end; return v`

// getDel reads and deletes key in Redis, falling back to a Lua script before GETDEL existed.
func getDel(key string) (string, bool) {
	rc := GetRedis()
	if rc == nil {
		b, ok := localGetDel(key)
		return string(b), ok
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if v, err := rc.GetDel(ctx, key).Result(); err == nil {
		return v, true
	}
	res, err := rc.Eval(ctx, consumeScript, []string{key}).Result()
	if err != nil || res == nil {
		return "", false
	}
	s, ok := res.(string)
	return s, ok
}

// SaveState stores an OAuth state token with TTL to mitigate CSRF.
func SaveState(state string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	key := "oauth:state:" + state
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, key, "1", ttl).Err(); err == nil {
			return
		}
	}
	localSet(key, []byte("1"), ttl)
}

// ConsumeState validates and removes a state token.
func ConsumeState(state string) bool {
	if state == "" {
		return false
	}
	v, ok := getDel("oauth:state:" + state)
	return ok && v != ""
}
