package utils

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"strings"
	"time"
)

// GenerateVerificationCode creates a numeric code with given length.
func GenerateVerificationCode(n int) string {
	if n <= 0 {
		n = 6
	}
	digits := make([]byte, n)
	for i := 0; i < n; i++ {
		v, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			v = big.NewInt(time.Now().UnixNano() % 10)
		}
		digits[i] = byte('0' + v.Int64())
	}
	return string(digits)
}

func resetCodeKey(email string) string {
	return "reset:email:" + strings.ToLower(strings.TrimSpace(email))
}

// SaveResetCode stores a password reset code for an email with TTL.
func SaveResetCode(email, code string, ttl time.Duration) {
	key := resetCodeKey(email)
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, key, code, ttl).Err(); err == nil {
			return
		}
	}
	localSet(key, []byte(code), ttl)
}

// VerifyAndConsumeResetCode checks a code and consumes it whatever the outcome,
// so a code cannot be brute-forced.
func VerifyAndConsumeResetCode(email, code string) bool {
	if code == "" {
		return false
	}
	stored, ok := getDel(resetCodeKey(email))
	if !ok || stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(code)) == 1
}

// EmailCooldownTrySet sets a cooldown key for sending mail. Returns false while cooling down.
func EmailCooldownTrySet(email string, cooldown time.Duration) bool {
	key := "cooldown:email:" + strings.ToLower(strings.TrimSpace(email))
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		ok, err := rc.SetNX(ctx, key, "1", cooldown).Result()
		if err == nil {
			return ok
		}
	}
	return localSetNX(key, []byte("1"), cooldown)
}
