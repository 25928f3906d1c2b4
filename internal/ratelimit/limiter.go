package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis_rate/v9"
	log "github.com/sirupsen/logrus"
)

// RedisLimiter is implemented by *redis_rate.Limiter.
type RedisLimiter interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error)
}

type Result struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter applies a per-minute sliding window per (action, user) pair,
// so one user hammering createPlan does not starve their reads.
type Limiter struct {
	limiter       RedisLimiter
	allowedPerMin int
}

func NewLimiter(limiter RedisLimiter, allowedPerMin int) *Limiter {
	return &Limiter{
		limiter:       limiter,
		allowedPerMin: allowedPerMin,
	}
}

// Allow checks the limit for the given action and user. It must fail
// fast: a redis error is returned to the caller, never retried here.
func (l *Limiter) Allow(ctx context.Context, action string, userID int64) (Result, error) {
	key := fmt.Sprintf("%s:%d", action, userID)
	res, err := l.limiter.Allow(ctx, key, redis_rate.PerMinute(l.allowedPerMin))
	if err != nil {
		return Result{}, fmt.Errorf("rate limiter allow [%s]: %w", key, err)
	}

	if res.Allowed > 0 {
		return Result{Allowed: true}, nil
	}

	log.Debugf("rate limited [%s], retry after %s", key, res.RetryAfter)
	return Result{Allowed: false, RetryAfter: res.RetryAfter}, nil
}
