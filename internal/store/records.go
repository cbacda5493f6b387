package store

import "time"

// Key prefixes for the service records. Every record is stored as a JSON
// document in a string key under its prefix.
const (
	KeyOAuthState = "oauth:state"
	KeyTwoFactor  = "2fa:challenge"
	KeyResetToken = "reset:token"
	KeySession    = "session"
	KeyCache      = "cache"
	KeyRateLimit  = "ratelimit"
)

// OAuthState is the one-time CSRF state handed out at the start of an
// OAuth authorization flow.
type OAuthState struct {
	State        string    `json:"state"`
	Provider     string    `json:"provider"`
	RedirectURI  string    `json:"redirectUri"`
	CodeVerifier string    `json:"codeVerifier,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TwoFactorChallenge is a pending second-factor verification. Attempts is
// bumped by RecordTwoFactorAttempt without extending the challenge's
// lifetime.
type TwoFactorChallenge struct {
	ChallengeID string    `json:"challengeId"`
	UserID      string    `json:"userId"`
	Method      string    `json:"method"`
	Code        string    `json:"code"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"maxAttempts"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PasswordResetToken is a single-use reset credential. Used flips to true
// on consumption; the record stays put until its TTL runs out so repeated
// consumption is detectable.
type PasswordResetToken struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is an authenticated user session.
type Session struct {
	SessionID  string    `json:"sessionId"`
	UserID     string    `json:"userId"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"createdAt"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// RateLimitStatus is the outcome of a single rate-limited attempt. Count
// keeps rising past the limit while Remaining floors at 0, so callers can
// tell a freshly exceeded window from a hammered one.
type RateLimitStatus struct {
	Allowed    bool  `json:"allowed"`
	Count      int64 `json:"count"`
	Limit      int64 `json:"limit"`
	Remaining  int64 `json:"remaining"`
	RetryAfter int64 `json:"retryAfter"`
}
