package kv

import (
	"context"
	"time"
)

// ValueKind identifies the data type held at a key.
type ValueKind string

const (
	KindString ValueKind = "string"
	KindHash   ValueKind = "hash"
	KindSet    ValueKind = "set"
	KindList   ValueKind = "list"
	KindZSet   ValueKind = "zset"
	KindNone   ValueKind = "none"
)

// Z is a sorted-set member with its score.
type Z struct {
	Member string
	Score  float64
}

// FaultMode selects which operation class a store instance fails on purpose.
type FaultMode string

const (
	// FaultNone is fully transparent.
	FaultNone FaultMode = "none"
	// FaultConnectionFailure fails connection-class commands immediately.
	FaultConnectionFailure FaultMode = "connection-failure"
	// FaultTimeout fails data commands immediately with a timeout flavor.
	FaultTimeout FaultMode = "timeout"
)

// EvalScenario selects the canned response shape for rate-limit scripts.
type EvalScenario string

const (
	// EvalAllowed makes Eval report the request as within budget.
	EvalAllowed EvalScenario = "allowed"
	// EvalExceeded makes Eval report the request as over budget.
	EvalExceeded EvalScenario = "exceeded"
)

// TTL return values for absent and persistent keys, matching Redis.
const (
	TTLKeyMissing int64 = -2
	TTLNoExpiry   int64 = -1
)

// Store defines the Redis-like command surface consumed by business logic
// and exercised by the test harness. Implementations serialize execution so
// that individual commands are atomic; ordering across concurrent callers is
// not promised beyond that.
type Store interface {
	// String commands
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	SetEx(ctx context.Context, key string, ttl time.Duration, value string) error
	Append(ctx context.Context, key, value string) (int64, error)
	StrLen(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
	IncrBy(ctx context.Context, key string, n int64) (int64, error)
	Decr(ctx context.Context, key string) (int64, error)
	DecrBy(ctx context.Context, key string, n int64) (int64, error)

	// Key commands
	Del(ctx context.Context, keys ...string) (int64, error)
	Exists(ctx context.Context, keys ...string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// TTL reports -2 for absent or expired keys, -1 for keys without an
	// expiry, otherwise the whole seconds remaining (floor of the remaining
	// milliseconds, never negative while the key is live).
	TTL(ctx context.Context, key string) (int64, error)
	// Keys matches the anchored glob pattern: '*' any sequence, '?' any
	// single character, everything else literal. Expired keys are purged
	// before matching.
	Keys(ctx context.Context, pattern string) ([]string, error)
	Type(ctx context.Context, key string) (ValueKind, error)
	DBSize(ctx context.Context) (int64, error)
	FlushDB(ctx context.Context) error
	FlushAll(ctx context.Context) error

	// Hash commands
	HGet(ctx context.Context, key, field string) (string, error)
	// HSet returns 1 when the field is new, 0 when it overwrote.
	HSet(ctx context.Context, key, field, value string) (int64, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) (int64, error)
	HExists(ctx context.Context, key, field string) (bool, error)
	HKeys(ctx context.Context, key string) ([]string, error)
	HVals(ctx context.Context, key string) ([]string, error)
	HLen(ctx context.Context, key string) (int64, error)

	// Set commands
	SAdd(ctx context.Context, key string, members ...string) (int64, error)
	SRem(ctx context.Context, key string, members ...string) (int64, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	SIsMember(ctx context.Context, key, member string) (bool, error)
	SCard(ctx context.Context, key string) (int64, error)

	// List commands
	LPush(ctx context.Context, key string, values ...string) (int64, error)
	RPush(ctx context.Context, key string, values ...string) (int64, error)
	LPop(ctx context.Context, key string) (string, error)
	RPop(ctx context.Context, key string) (string, error)
	LLen(ctx context.Context, key string) (int64, error)
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// Sorted-set commands
	ZAdd(ctx context.Context, key string, members ...Z) (int64, error)
	ZRem(ctx context.Context, key string, members ...string) (int64, error)
	// ZRange returns members ascending by score (member name breaks ties)
	// over an inclusive index range; negative indices count from the end.
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ZCard(ctx context.Context, key string) (int64, error)
	ZScore(ctx context.Context, key, member string) (float64, error)

	// Multi returns a pipeline that records commands for later replay.
	Multi() Pipeline

	// Eval does not interpret the script. It returns the canned rate-limit
	// 4-tuple [allowed 0|1, limit, remaining, resetEpochSeconds] so both
	// branches of dependent rate-limit logic can be exercised.
	Eval(ctx context.Context, script string, keys []string, args ...string) ([]int64, error)

	// Connection-class commands. These emit lifecycle events and are the
	// ones gated by FaultConnectionFailure.
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Quit(ctx context.Context) error
	Ping(ctx context.Context) error

	Close() error
}

// Pipeline records commands and replays them sequentially on Exec. Each
// replayed command is individually atomic; commands applied before a failure
// are not rolled back.
type Pipeline interface {
	Set(key, value string) Pipeline
	SetEx(key string, ttl time.Duration, value string) Pipeline
	Del(keys ...string) Pipeline
	Expire(key string, ttl time.Duration) Pipeline
	Incr(key string) Pipeline
	IncrBy(key string, n int64) Pipeline
	HSet(key, field, value string) Pipeline
	SAdd(key string, members ...string) Pipeline
	LPush(key string, values ...string) Pipeline

	// Exec replays the recorded commands in order and returns one result
	// per applied command. Replay stops at the first failing command.
	Exec(ctx context.Context) ([]any, error)
	// Discard drops recorded-but-unexecuted commands.
	Discard()
}

// Resettable is implemented by stores that can restore their pristine state
// (empty keyspace, zeroed clock, no fault mode, no listeners). The registry
// prefers it over a plain flush when resetting instances.
type Resettable interface {
	ResetState() error
}

// Faultable is implemented by stores supporting deterministic fault
// injection.
type Faultable interface {
	SetFaultMode(mode FaultMode)
	FaultMode() FaultMode
}
