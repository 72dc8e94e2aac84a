package utils

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/phishguard/config"
)

// RegistrationBlock says why a registration attempt was refused.
type RegistrationBlock int

const (
	RegistrationOpen RegistrationBlock = iota
	RegistrationBanned
	RegistrationCoolingDown
	RegistrationDailyCap
)

const regTimeout = 500 * time.Millisecond

func regKey(parts ...string) string {
	return "reg:" + strings.Join(parts, ":")
}

// withRegRedis runs fn against Redis. Registration counters need shared
// state, so without Redis nothing runs and every check passes.
func withRegRedis(fn func(ctx context.Context, cli *redis.Client)) {
	cli := GetRedis()
	if cli == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), regTimeout)
	defer cancel()
	fn(ctx, cli)
}

// CheckRegistration applies the temp ban, the per-IP cooldown and the daily
// cap in that order. Redis errors fail open.
func CheckRegistration(ip string) RegistrationBlock {
	rc := config.Get().Register
	block := RegistrationOpen
	withRegRedis(func(ctx context.Context, cli *redis.Client) {
		if n, err := cli.Exists(ctx, regKey("ban", ip)).Result(); err == nil && n > 0 {
			block = RegistrationBanned
			return
		}
		if rc.AttemptCooldownSec > 0 {
			ttl := time.Duration(rc.AttemptCooldownSec) * time.Second
			if ok, err := cli.SetNX(ctx, regKey("cooldown", ip), "1", ttl).Result(); err == nil && !ok {
				block = RegistrationCoolingDown
				return
			}
		}
		if rc.MaxPerIPPerDay > 0 {
			n, err := cli.Get(ctx, dailyKey(ip)).Int()
			if errors.Is(err, redis.Nil) {
				n = 0
			} else if err != nil {
				return
			}
			if n >= rc.MaxPerIPPerDay {
				block = RegistrationDailyCap
			}
		}
	})
	return block
}

// RegistrationSucceeded counts a successful registration against today's cap.
func RegistrationSucceeded(ip string) {
	withRegRedis(func(ctx context.Context, cli *redis.Client) {
		key := dailyKey(ip)
		if err := cli.Incr(ctx, key).Err(); err != nil {
			return
		}
		midnight := time.Now().Truncate(24 * time.Hour).Add(24 * time.Hour)
		_ = cli.Expire(ctx, key, time.Until(midnight)).Err()
	})
}

// RegistrationFailed counts a failed attempt in the current hour and bans
// the IP once failed_max_per_ip_per_hour is reached. It returns the count.
func RegistrationFailed(ip string) int {
	rc := config.Get().Register
	count := 0
	withRegRedis(func(ctx context.Context, cli *redis.Client) {
		key := regKey("failhour", ip, time.Now().Format("2006010215"))
		n, err := cli.Incr(ctx, key).Result()
		if err != nil {
			return
		}
		_ = cli.Expire(ctx, key, time.Hour).Err()
		count = int(n)
		if rc.FailedMaxPerIPPerHour > 0 && count >= rc.FailedMaxPerIPPerHour {
			minutes := rc.TempBanMinutes
			if minutes <= 0 {
				minutes = 60
			}
			_ = cli.Set(ctx, regKey("ban", ip), "1", time.Duration(minutes)*time.Minute).Err()
		}
	})
	return count
}

func dailyKey(ip string) string {
	return regKey("succday", ip, time.Now().Format("20060102"))
}
