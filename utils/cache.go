package utils

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultCacheTTL = time.Hour
	localCacheSize  = 4096
)

// localEntry is a value held by the in-process fallback cache.
type localEntry struct {
	data      []byte
	expiresAt time.Time
}

var (
	localCache     *lru.Cache[string, localEntry]
	localCacheOnce sync.Once
	// localMu makes check-and-set sequences on the LRU atomic.
	localMu sync.Mutex
)

func local() *lru.Cache[string, localEntry] {
	localCacheOnce.Do(func() {
		c, err := lru.New[string, localEntry](localCacheSize)
		if err != nil {
			panic(err)
		}
		localCache = c
	})
	return localCache
}

func localGet(key string) ([]byte, bool) {
	v, ok := local().Get(key)
	if !ok {
		return nil, false
	}
	if time.Now().After(v.expiresAt) {
		local().Remove(key)
		return nil, false
	}
	return v.data, true
}

func localSet(key string, b []byte, ttl time.Duration) {
	local().Add(key, localEntry{data: b, expiresAt: time.Now().Add(ttl)})
}

// localGetDel returns and removes key atomically.
func localGetDel(key string) ([]byte, bool) {
	localMu.Lock()
	defer localMu.Unlock()
	b, ok := localGet(key)
	if ok {
		local().Remove(key)
	}
	return b, ok
}

// localSetNX stores key only when absent and reports whether it did.
func localSetNX(key string, b []byte, ttl time.Duration) bool {
	localMu.Lock()
	defer localMu.Unlock()
	if _, ok := localGet(key); ok {
		return false
	}
	localSet(key, b, ttl)
	return true
}

// CacheGetBytes returns cached bytes for a key from Redis, or from the local LRU without Redis.
func CacheGetBytes(key string) ([]byte, bool) {
	rc := GetRedis()
	if rc == nil {
		return localGet(key)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, err := rc.Get(ctx, key).Bytes()
	if err != nil {
		Sugar.Debugf("cache get miss key=%s err=%v", key, err)
		return nil, false
	}
	return b, true
}

// CacheSetBytes stores bytes; ttl <= 0 means the default TTL.
func CacheSetBytes(key string, b []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	rc := GetRedis()
	if rc == nil {
		localSet(key, b, ttl)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Set(ctx, key, b, ttl).Err(); err != nil {
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

// CacheSetJSON marshals v and stores JSON bytes.
func CacheSetJSON(key string, v interface{}, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	CacheSetBytes(key, b, ttl)
}

// CacheGetJSON decodes a cached JSON value into out.
func CacheGetJSON(key string, out interface{}) bool {
	b, ok := CacheGetBytes(key)
	if !ok {
		return false
	}
	return json.Unmarshal(b, out) == nil
}

// InvalidateByPrefix deletes keys that match the given prefix.
func InvalidateByPrefix(prefix string) {
	rc := GetRedis()
	if rc == nil {
		for _, k := range local().Keys() {
			if strings.HasPrefix(k, prefix) {
				local().Remove(k)
			}
		}
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var cursor uint64
	for i := 0; i < 10; i++ { // limit rounds to avoid long loops
		keys, cur, err := rc.Scan(ctx, cursor, prefix+"*", 1000).Result()
		if err != nil {
			break
		}
		cursor = cur
		if len(keys) > 0 {
			pipe := rc.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			_, _ = pipe.Exec(ctx)
		}
		if cursor == 0 {
			break
		}
	}
}
