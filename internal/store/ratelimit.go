package store

import (
	"context"
	"errors"
	"strconv"

	"github.com/KingInYellow18/medianest-sub013/pkg/kv"
)

func rateLimitKey(key string) string { return KeyRateLimit + ":" + key }

// RateLimit counts one attempt against key's fixed window and reports the
// decision. The first attempt of a window arms the window's expiry; every
// later attempt inherits it, so the counter resets only when the window
// lapses. Rewriting the expiry on each attempt would stretch the window
// under sustained traffic and never let it reset (see the rate-limiting
// note in DESIGN.md). Attempts past the limit are still counted.
func (f *Fixtures) RateLimit(ctx context.Context, key string) (RateLimitStatus, error) {
	k := rateLimitKey(key)

	count, err := f.kv.Incr(ctx, k)
	if err != nil {
		return RateLimitStatus{}, err
	}
	if count == 1 {
		if _, err := f.kv.Expire(ctx, k, f.limits.Window); err != nil {
			return RateLimitStatus{}, err
		}
	}

	retryAfter, err := f.kv.TTL(ctx, k)
	if err != nil {
		return RateLimitStatus{}, err
	}
	if retryAfter < 0 {
		retryAfter = int64(f.limits.Window.Seconds())
	}

	status := RateLimitStatus{
		Allowed:    count <= f.limits.MaxAttempts,
		Count:      count,
		Limit:      f.limits.MaxAttempts,
		Remaining:  max(0, f.limits.MaxAttempts-count),
		RetryAfter: retryAfter,
	}
	if f.metrics != nil {
		f.metrics.RecordRateLimitDecision(ctx, status.Allowed)
	}
	if !status.Allowed {
		f.logger.Debugw("rate limit exceeded", "key", key, "count", count, "retryAfter", retryAfter)
	}
	return status, nil
}

// RateLimitPeek reports the current window without counting an attempt.
func (f *Fixtures) RateLimitPeek(ctx context.Context, key string) (RateLimitStatus, error) {
	k := rateLimitKey(key)

	raw, err := f.kv.Get(ctx, k)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return RateLimitStatus{
				Allowed:   true,
				Count:     0,
				Limit:     f.limits.MaxAttempts,
				Remaining: f.limits.MaxAttempts,
			}, nil
		}
		return RateLimitStatus{}, err
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return RateLimitStatus{}, err
	}

	retryAfter, err := f.kv.TTL(ctx, k)
	if err != nil {
		return RateLimitStatus{}, err
	}
	if retryAfter < 0 {
		retryAfter = 0
	}

	return RateLimitStatus{
		Allowed:    count < f.limits.MaxAttempts,
		Count:      count,
		Limit:      f.limits.MaxAttempts,
		Remaining:  max(0, f.limits.MaxAttempts-count),
		RetryAfter: retryAfter,
	}, nil
}

// RateLimitReset clears key's window immediately.
func (f *Fixtures) RateLimitReset(ctx context.Context, key string) error {
	_, err := f.kv.Del(ctx, rateLimitKey(key))
	return err
}
