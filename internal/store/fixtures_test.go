package store

import (
	"context"
	"testing"
	"time"

	"github.com/KingInYellow18/medianest-sub013/internal/config"
	"github.com/KingInYellow18/medianest-sub013/pkg/kv/clock"
	"github.com/KingInYellow18/medianest-sub013/pkg/kv/memory"
	"github.com/stretchr/testify/require"
)

func newTestFixtures(t *testing.T) (*Fixtures, *clock.Simulated) {
	t.Helper()

	clk := clock.NewSimulated()
	engine := memory.New(memory.Config{Name: "fixtures-test", Clock: clk})
	t.Cleanup(func() { engine.Close() })

	records := config.RecordConfig{
		OAuthStateTTL:     600 * time.Second,
		TwoFactorTTL:      300 * time.Second,
		ResetTokenTTL:     900 * time.Second,
		SessionTTL:        86400 * time.Second,
		CacheTTL:          300 * time.Second,
		TwoFactorMaxTries: 3,
	}
	limits := config.LimitConfig{
		Window:      60 * time.Second,
		MaxAttempts: 5,
	}
	return NewFixtures(engine, clk, records, limits, nil, nil), clk
}

func TestOAuthStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	f, clk := newTestFixtures(t)

	rec := OAuthState{
		State:        "st-abc123",
		Provider:     "plex",
		RedirectURI:  "https://portal.example/auth/callback",
		CodeVerifier: "ver-xyz",
	}
	require.NoError(t, f.PutOAuthState(ctx, rec))

	got, err := f.GetOAuthState(ctx, "st-abc123")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "plex", got.Provider)
	require.Equal(t, "ver-xyz", got.CodeVerifier)
	require.False(t, got.CreatedAt.IsZero())

	clk.Advance(601 * time.Second)
	got, err = f.GetOAuthState(ctx, "st-abc123")
	require.NoError(t, err)
	require.Nil(t, got, "state must be gone after its TTL")
}

func TestConsumeOAuthStateIsOneShot(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFixtures(t)

	require.NoError(t, f.PutOAuthState(ctx, OAuthState{State: "st-once", Provider: "plex"}))

	got, err := f.ConsumeOAuthState(ctx, "st-once")
	require.NoError(t, err)
	require.NotNil(t, got)

	replay, err := f.ConsumeOAuthState(ctx, "st-once")
	require.NoError(t, err)
	require.Nil(t, replay, "a consumed state must not be consumable again")
}

func TestTwoFactorAttemptsPreserveLifetime(t *testing.T) {
	ctx := context.Background()
	f, clk := newTestFixtures(t)

	require.NoError(t, f.PutTwoFactorChallenge(ctx, TwoFactorChallenge{
		ChallengeID: "ch-1",
		UserID:      "u-1",
		Method:      "totp",
		Code:        "123456",
	}))

	clk.Advance(100 * time.Second)
	got, err := f.RecordTwoFactorAttempt(ctx, "ch-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, 1, got.Attempts)
	require.Equal(t, 3, got.MaxAttempts)

	// The attempt must not have refreshed the 300s lifetime: 201 more
	// seconds put the challenge past its original deadline.
	clk.Advance(201 * time.Second)
	got, err = f.GetTwoFactorChallenge(ctx, "ch-1")
	require.NoError(t, err)
	require.Nil(t, got, "attempt must not extend the challenge lifetime")
}

func TestTwoFactorExhaustionDeletes(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFixtures(t)

	require.NoError(t, f.PutTwoFactorChallenge(ctx, TwoFactorChallenge{
		ChallengeID: "ch-2",
		UserID:      "u-1",
		Code:        "654321",
	}))

	for i := 1; i < 3; i++ {
		got, err := f.RecordTwoFactorAttempt(ctx, "ch-2")
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, i, got.Attempts)
	}

	final, err := f.RecordTwoFactorAttempt(ctx, "ch-2")
	require.NoError(t, err)
	require.NotNil(t, final)
	require.Equal(t, 3, final.Attempts)

	gone, err := f.GetTwoFactorChallenge(ctx, "ch-2")
	require.NoError(t, err)
	require.Nil(t, gone, "exhausted challenge must be deleted")
}

func TestPasswordResetTokenSingleUse(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFixtures(t)

	require.NoError(t, f.PutPasswordResetToken(ctx, PasswordResetToken{
		Token:  "tok-1",
		UserID: "u-9",
		Email:  "user@example.com",
	}))

	used, err := f.ConsumePasswordResetToken(ctx, "tok-1")
	require.NoError(t, err)
	require.NotNil(t, used)
	require.True(t, used.Used)

	again, err := f.ConsumePasswordResetToken(ctx, "tok-1")
	require.NoError(t, err)
	require.Nil(t, again, "a reset token is single use")

	// The used record stays visible until expiry.
	rec, err := f.GetPasswordResetToken(ctx, "tok-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.True(t, rec.Used)
}

func TestSessionTouchSlidesExpiry(t *testing.T) {
	ctx := context.Background()
	f, clk := newTestFixtures(t)

	require.NoError(t, f.PutSession(ctx, Session{SessionID: "sess-1", UserID: "u-1", Role: "member"}))

	clk.Advance(86000 * time.Second)
	touched, err := f.TouchSession(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, touched)

	// A second near-full interval would have killed an untouched session.
	clk.Advance(86000 * time.Second)
	alive, err := f.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, alive, "touch must restart the session TTL")
	require.True(t, alive.LastSeenAt.After(alive.CreatedAt))
}

func TestSessionDelete(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFixtures(t)

	require.NoError(t, f.PutSession(ctx, Session{SessionID: "sess-2", UserID: "u-2"}))

	removed, err := f.DeleteSession(ctx, "sess-2")
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = f.DeleteSession(ctx, "sess-2")
	require.NoError(t, err)
	require.False(t, removed)
}

func TestCacheRoundTripAndMiss(t *testing.T) {
	ctx := context.Background()
	f, clk := newTestFixtures(t)

	type mediaItem struct {
		Title string `json:"title"`
		Year  int    `json:"year"`
	}

	require.NoError(t, f.CacheSet(ctx, "media:42", mediaItem{Title: "Arrival", Year: 2016}, 0))

	var got mediaItem
	require.NoError(t, f.CacheGet(ctx, "media:42", &got))
	require.Equal(t, mediaItem{Title: "Arrival", Year: 2016}, got)

	require.ErrorIs(t, f.CacheGet(ctx, "media:absent", &got), ErrCacheMiss)

	// Default cache TTL is 300s.
	clk.Advance(301 * time.Second)
	require.ErrorIs(t, f.CacheGet(ctx, "media:42", &got), ErrCacheMiss)
}

func TestCacheDelete(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFixtures(t)

	require.NoError(t, f.CacheSet(ctx, "a", "1", time.Minute))
	require.NoError(t, f.CacheSet(ctx, "b", "2", time.Minute))
	require.NoError(t, f.CacheDelete(ctx, "a", "b"))

	var dest string
	require.ErrorIs(t, f.CacheGet(ctx, "a", &dest), ErrCacheMiss)
	require.ErrorIs(t, f.CacheGet(ctx, "b", &dest), ErrCacheMiss)
}

func TestRateLimitFixedWindow(t *testing.T) {
	ctx := context.Background()
	f, clk := newTestFixtures(t)

	for i := int64(1); i <= 5; i++ {
		status, err := f.RateLimit(ctx, "login:u-1")
		require.NoError(t, err)
		require.True(t, status.Allowed, "attempt %d should pass", i)
		require.Equal(t, i, status.Count)
		require.Equal(t, int64(5), status.Limit)
		require.Equal(t, 5-i, status.Remaining)
	}

	// Denied attempts keep counting even though Remaining floors at 0.
	denied, err := f.RateLimit(ctx, "login:u-1")
	require.NoError(t, err)
	require.False(t, denied.Allowed)
	require.Equal(t, int64(6), denied.Count)
	require.Equal(t, int64(0), denied.Remaining)
	require.Greater(t, denied.RetryAfter, int64(0))

	// The window opens again after it lapses.
	clk.Advance(61 * time.Second)
	fresh, err := f.RateLimit(ctx, "login:u-1")
	require.NoError(t, err)
	require.True(t, fresh.Allowed)
	require.Equal(t, int64(1), fresh.Count)
	require.Equal(t, int64(4), fresh.Remaining)
}

func TestRateLimitPeekDoesNotConsume(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFixtures(t)

	peek, err := f.RateLimitPeek(ctx, "login:u-2")
	require.NoError(t, err)
	require.True(t, peek.Allowed)
	require.Equal(t, int64(0), peek.Count)
	require.Equal(t, int64(5), peek.Remaining)

	_, err = f.RateLimit(ctx, "login:u-2")
	require.NoError(t, err)

	peek, err = f.RateLimitPeek(ctx, "login:u-2")
	require.NoError(t, err)
	require.Equal(t, int64(1), peek.Count)
	require.Equal(t, int64(4), peek.Remaining)

	// Peeking twice reports the same window.
	again, err := f.RateLimitPeek(ctx, "login:u-2")
	require.NoError(t, err)
	require.Equal(t, peek.Remaining, again.Remaining)
}

func TestRateLimitReset(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFixtures(t)

	for i := 0; i < 6; i++ {
		_, err := f.RateLimit(ctx, "login:u-3")
		require.NoError(t, err)
	}
	require.NoError(t, f.RateLimitReset(ctx, "login:u-3"))

	status, err := f.RateLimit(ctx, "login:u-3")
	require.NoError(t, err)
	require.True(t, status.Allowed)
	require.Equal(t, int64(4), status.Remaining)
}
