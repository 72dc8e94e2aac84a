package utils

import (
	"context"
	"time"

	"github.com/mojocn/base64Captcha"
)

// sharedCaptchaStore implements base64Captcha.Store on Redis so captcha works behind
// load balancers. Without Redis answers live in the local cache.
type sharedCaptchaStore struct {
	ttl time.Duration
}

func NewCaptchaStore(ttl time.Duration) base64Captcha.Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &sharedCaptchaStore{ttl: ttl}
}

func (s *sharedCaptchaStore) key(id string) string {
	return "captcha:" + id
}

func (s *sharedCaptchaStore) Set(id string, value string) error {
	rc := GetRedis()
	if rc == nil {
		localSet(s.key(id), []byte(value), s.ttl)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return rc.Set(ctx, s.key(id), value, s.ttl).Err()
}

func (s *sharedCaptchaStore) Get(id string, clear bool) string {
	if clear {
		v, _ := getDel(s.key(id))
		return v
	}
	rc := GetRedis()
	if rc == nil {
		b, _ := localGet(s.key(id))
		return string(b)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := rc.Get(ctx, s.key(id)).Result()
	if err != nil {
		return ""
	}
	return v
}

func (s *sharedCaptchaStore) Verify(id, answer string, clear bool) bool {
	v := s.Get(id, clear)
	return v != "" && v == answer
}
