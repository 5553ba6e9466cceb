package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter counts failed logins per identifier in Redis. A nil limiter
// allows everything.
type LoginLimiter struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
}

func NewLoginLimiter(client *redis.Client, maxAttempts int, window time.Duration) *LoginLimiter {
	if client == nil || maxAttempts <= 0 {
		return nil
	}
	return &LoginLimiter{
		client:      client,
		maxAttempts: maxAttempts,
		window:      window,
	}
}

func (l *LoginLimiter) key(identifier string) string {
	return fmt.Sprintf("login:failures:%s", strings.ToLower(identifier))
}

func (l *LoginLimiter) Allow(ctx context.Context, identifier string) (bool, error) {
	if l == nil {
		return true, nil
	}

	count, err := l.client.Get(ctx, l.key(identifier)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return true, nil
		}
		return false, err
	}
	return count < l.maxAttempts, nil
}

// Fail records a failed attempt. The window starts at the first failure.
func (l *LoginLimiter) Fail(ctx context.Context, identifier string) error {
	if l == nil {
		return nil
	}

	key := l.key(identifier)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if count == 1 {
		return l.client.Expire(ctx, key, l.window).Err()
	}
	return nil
}

func (l *LoginLimiter) Reset(ctx context.Context, identifier string) error {
	if l == nil {
		return nil
	}
	return l.client.Del(ctx, l.key(identifier)).Err()
}
