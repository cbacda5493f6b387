package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/KingInYellow18/medianest-sub013/internal/config"
	"github.com/KingInYellow18/medianest-sub013/internal/metrics"
	"github.com/KingInYellow18/medianest-sub013/pkg/kv"
	"github.com/KingInYellow18/medianest-sub013/pkg/kv/clock"
	"go.uber.org/zap"
)

// ErrCacheMiss marks an absent or expired cache entry.
var ErrCacheMiss = fmt.Errorf("cache miss")

// Fixtures stores the portal's service records (OAuth states, 2FA
// challenges, reset tokens, sessions, cache entries, rate-limit counters)
// as JSON documents on a kv.Store. It owns the key layout and the TTL
// policy; callers never touch raw keys.
type Fixtures struct {
	kv      kv.Store
	clock   clock.Clock
	records config.RecordConfig
	limits  config.LimitConfig

	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

// NewFixtures wraps store. A nil logger disables logging, a nil clk falls
// back to the wall clock, a nil m disables metrics.
func NewFixtures(store kv.Store, clk clock.Clock, records config.RecordConfig, limits config.LimitConfig, logger *zap.SugaredLogger, m *metrics.Metrics) *Fixtures {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Fixtures{
		kv:      store,
		clock:   clk,
		records: records,
		limits:  limits,
		logger:  logger,
		metrics: m,
	}
}

func (f *Fixtures) putJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := f.kv.SetEx(ctx, key, ttl, string(data)); err != nil {
		f.logger.Errorw("record write failed", "key", key, "error", err)
		return err
	}
	return nil
}

// getJSON reports found=false when the key is absent or expired.
func (f *Fixtures) getJSON(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := f.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

// rewriteKeepTTL writes v back under key without extending its lifetime.
// It reports found=false when the record vanished (or is inside its final
// second, which SetEx cannot represent) between read and write.
func (f *Fixtures) rewriteKeepTTL(ctx context.Context, key string, v any) (bool, error) {
	ttl, err := f.kv.TTL(ctx, key)
	if err != nil {
		return false, err
	}
	switch {
	case ttl == kv.TTLKeyMissing:
		return false, nil
	case ttl == kv.TTLNoExpiry:
		data, err := json.Marshal(v)
		if err != nil {
			return false, fmt.Errorf("marshal %s: %w", key, err)
		}
		return true, f.kv.Set(ctx, key, string(data))
	case ttl <= 0:
		_, _ = f.kv.Del(ctx, key)
		return false, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("marshal %s: %w", key, err)
	}
	return true, f.kv.SetEx(ctx, key, time.Duration(ttl)*time.Second, string(data))
}

// --- OAuth state ---

func oauthKey(state string) string { return KeyOAuthState + ":" + state }

// PutOAuthState stores rec until the OAuth state TTL runs out.
func (f *Fixtures) PutOAuthState(ctx context.Context, rec OAuthState) error {
	if rec.State == "" {
		return fmt.Errorf("oauth state: empty state value")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = f.clock.Now().UTC()
	}
	return f.putJSON(ctx, oauthKey(rec.State), rec, f.records.OAuthStateTTL)
}

// GetOAuthState returns (nil, nil) for an absent or expired state.
func (f *Fixtures) GetOAuthState(ctx context.Context, state string) (*OAuthState, error) {
	var rec OAuthState
	found, err := f.getJSON(ctx, oauthKey(state), &rec)
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

// ConsumeOAuthState returns the record and deletes it in the same call, so
// a replayed state value comes back (nil, nil).
func (f *Fixtures) ConsumeOAuthState(ctx context.Context, state string) (*OAuthState, error) {
	rec, err := f.GetOAuthState(ctx, state)
	if err != nil || rec == nil {
		return nil, err
	}
	if _, err := f.kv.Del(ctx, oauthKey(state)); err != nil {
		return nil, err
	}
	return rec, nil
}

// --- Two-factor challenges ---

func twoFactorKey(id string) string { return KeyTwoFactor + ":" + id }

func (f *Fixtures) PutTwoFactorChallenge(ctx context.Context, rec TwoFactorChallenge) error {
	if rec.ChallengeID == "" {
		return fmt.Errorf("2fa challenge: empty challenge id")
	}
	if rec.MaxAttempts <= 0 {
		rec.MaxAttempts = f.records.TwoFactorMaxTries
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = f.clock.Now().UTC()
	}
	return f.putJSON(ctx, twoFactorKey(rec.ChallengeID), rec, f.records.TwoFactorTTL)
}

func (f *Fixtures) GetTwoFactorChallenge(ctx context.Context, id string) (*TwoFactorChallenge, error) {
	var rec TwoFactorChallenge
	found, err := f.getJSON(ctx, twoFactorKey(id), &rec)
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

// RecordTwoFactorAttempt bumps the attempt counter without extending the
// challenge's lifetime and returns the updated record. A challenge that
// reaches its attempt budget is deleted; the returned record still shows
// the final count so the caller can tell exhaustion from expiry.
func (f *Fixtures) RecordTwoFactorAttempt(ctx context.Context, id string) (*TwoFactorChallenge, error) {
	rec, err := f.GetTwoFactorChallenge(ctx, id)
	if err != nil || rec == nil {
		return nil, err
	}
	rec.Attempts++

	if rec.Attempts >= rec.MaxAttempts {
		if _, err := f.kv.Del(ctx, twoFactorKey(id)); err != nil {
			return nil, err
		}
		f.logger.Debugw("2fa challenge exhausted", "challengeId", id, "attempts", rec.Attempts)
		return rec, nil
	}

	found, err := f.rewriteKeepTTL(ctx, twoFactorKey(id), rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return rec, nil
}

// CompleteTwoFactorChallenge removes a verified challenge.
func (f *Fixtures) CompleteTwoFactorChallenge(ctx context.Context, id string) error {
	_, err := f.kv.Del(ctx, twoFactorKey(id))
	return err
}

// --- Password reset tokens ---

func resetKey(token string) string { return KeyResetToken + ":" + token }

func (f *Fixtures) PutPasswordResetToken(ctx context.Context, rec PasswordResetToken) error {
	if rec.Token == "" {
		return fmt.Errorf("reset token: empty token value")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = f.clock.Now().UTC()
	}
	return f.putJSON(ctx, resetKey(rec.Token), rec, f.records.ResetTokenTTL)
}

func (f *Fixtures) GetPasswordResetToken(ctx context.Context, token string) (*PasswordResetToken, error) {
	var rec PasswordResetToken
	found, err := f.getJSON(ctx, resetKey(token), &rec)
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

// ConsumePasswordResetToken marks the token used, preserving its remaining
// lifetime so the record stays visible (as used) until it expires. An
// absent, expired or already-used token returns (nil, nil).
func (f *Fixtures) ConsumePasswordResetToken(ctx context.Context, token string) (*PasswordResetToken, error) {
	rec, err := f.GetPasswordResetToken(ctx, token)
	if err != nil || rec == nil {
		return nil, err
	}
	if rec.Used {
		return nil, nil
	}
	rec.Used = true

	found, err := f.rewriteKeepTTL(ctx, resetKey(token), rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return rec, nil
}

// --- Sessions ---

func sessionKey(id string) string { return KeySession + ":" + id }

func (f *Fixtures) PutSession(ctx context.Context, rec Session) error {
	if rec.SessionID == "" {
		return fmt.Errorf("session: empty session id")
	}
	now := f.clock.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.LastSeenAt.IsZero() {
		rec.LastSeenAt = now
	}
	return f.putJSON(ctx, sessionKey(rec.SessionID), rec, f.records.SessionTTL)
}

func (f *Fixtures) GetSession(ctx context.Context, id string) (*Session, error) {
	var rec Session
	found, err := f.getJSON(ctx, sessionKey(id), &rec)
	if err != nil || !found {
		return nil, err
	}
	return &rec, nil
}

// TouchSession slides the session's expiry back to the full session TTL
// and stamps LastSeenAt. It returns (nil, nil) for a dead session.
func (f *Fixtures) TouchSession(ctx context.Context, id string) (*Session, error) {
	rec, err := f.GetSession(ctx, id)
	if err != nil || rec == nil {
		return nil, err
	}
	rec.LastSeenAt = f.clock.Now().UTC()
	if err := f.putJSON(ctx, sessionKey(id), rec, f.records.SessionTTL); err != nil {
		return nil, err
	}
	return rec, nil
}

// DeleteSession reports whether a live session was removed.
func (f *Fixtures) DeleteSession(ctx context.Context, id string) (bool, error) {
	n, err := f.kv.Del(ctx, sessionKey(id))
	return n > 0, err
}

// --- Generic cache entries ---

func cacheKey(key string) string { return KeyCache + ":" + key }

// CacheSet stores value as JSON. A non-positive ttl falls back to the
// configured cache TTL.
func (f *Fixtures) CacheSet(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = f.records.CacheTTL
	}
	return f.putJSON(ctx, cacheKey(key), value, ttl)
}

// CacheGet unmarshals the entry into dest, returning ErrCacheMiss when the
// entry is absent or expired.
func (f *Fixtures) CacheGet(ctx context.Context, key string, dest any) error {
	found, err := f.getJSON(ctx, cacheKey(key), dest)
	if err != nil {
		return err
	}
	if !found {
		if f.metrics != nil {
			f.metrics.RecordCacheMiss(ctx, key)
		}
		return ErrCacheMiss
	}
	if f.metrics != nil {
		f.metrics.RecordCacheHit(ctx, key)
	}
	return nil
}

func (f *Fixtures) CacheDelete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = cacheKey(k)
	}
	_, err := f.kv.Del(ctx, prefixed...)
	return err
}

// Ping reports whether the underlying store answers.
func (f *Fixtures) Ping(ctx context.Context) error {
	return f.kv.Ping(ctx)
}

// Close releases the underlying store.
func (f *Fixtures) Close() error {
	return f.kv.Close()
}
