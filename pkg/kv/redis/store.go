// Package redis adapts a real Redis server to the kv.Store interface. It is
// the production path of the store abstraction; the deterministic test
// engine lives in pkg/kv/memory. Clock, fault and event concerns are not
// simulated here because a real server supplies its own.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/KingInYellow18/medianest-sub013/pkg/kv"
)

// Store is a Redis-backed implementation of the kv.Store interface.
type Store struct {
	name   string
	client *redis.Client
}

var _ kv.Store = (*Store)(nil)

// New connects to the server described by url (redis://...).
func New(name, url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("store %q: parse url: %w", name, err)
	}
	return NewWithClient(name, redis.NewClient(opts)), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(name string, client *redis.Client) *Store {
	if name == "" {
		name = "redis"
	}
	return &Store{name: name, client: client}
}

func (s *Store) wrap(cmd, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("store %q: %s %q: %w", s.name, cmd, key, kv.ErrNotFound)
	}
	// The server reports type mismatches as a WRONGTYPE reply string.
	if strings.HasPrefix(err.Error(), "WRONGTYPE") {
		return fmt.Errorf("store %q: %s %q: %w", s.name, cmd, key, kv.ErrWrongType)
	}
	return fmt.Errorf("store %q: %s %q: %w", s.name, cmd, key, err)
}

// String commands

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	return value, s.wrap("GET", key, err)
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.wrap("SET", key, s.client.Set(ctx, key, value, 0).Err())
}

func (s *Store) SetEx(ctx context.Context, key string, ttl time.Duration, value string) error {
	return s.wrap("SETEX", key, s.client.SetEx(ctx, key, value, ttl).Err())
}

func (s *Store) Append(ctx context.Context, key, value string) (int64, error) {
	n, err := s.client.Append(ctx, key, value).Result()
	return n, s.wrap("APPEND", key, err)
}

func (s *Store) StrLen(ctx context.Context, key string) (int64, error) {
	n, err := s.client.StrLen(ctx, key).Result()
	return n, s.wrap("STRLEN", key, err)
}

func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Incr(ctx, key).Result()
	return n, s.wrap("INCR", key, err)
}

func (s *Store) IncrBy(ctx context.Context, key string, n int64) (int64, error) {
	v, err := s.client.IncrBy(ctx, key, n).Result()
	return v, s.wrap("INCRBY", key, err)
}

func (s *Store) Decr(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Decr(ctx, key).Result()
	return n, s.wrap("DECR", key, err)
}

func (s *Store) DecrBy(ctx context.Context, key string, n int64) (int64, error) {
	v, err := s.client.DecrBy(ctx, key, n).Result()
	return v, s.wrap("DECRBY", key, err)
}

// Key commands

func (s *Store) Del(ctx context.Context, keys ...string) (int64, error) {
	n, err := s.client.Del(ctx, keys...).Result()
	return n, s.wrap("DEL", "", err)
}

func (s *Store) Exists(ctx context.Context, keys ...string) (int64, error) {
	n, err := s.client.Exists(ctx, keys...).Result()
	return n, s.wrap("EXISTS", "", err)
}

func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.Expire(ctx, key, ttl).Result()
	return ok, s.wrap("EXPIRE", key, err)
}

func (s *Store) TTL(ctx context.Context, key string) (int64, error) {
	d, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, s.wrap("TTL", key, err)
	}
	// go-redis reports the sentinels as -1s/-2s; integer division keeps
	// them intact and floors live remainders.
	return int64(d / time.Second), nil
}

// Keys sorts the server's reply so callers see the same deterministic
// ordering the memory engine produces.
func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys, err := s.client.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, s.wrap("KEYS", pattern, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Type(ctx context.Context, key string) (kv.ValueKind, error) {
	t, err := s.client.Type(ctx, key).Result()
	if err != nil {
		return kv.KindNone, s.wrap("TYPE", key, err)
	}
	return kv.ValueKind(t), nil
}

func (s *Store) DBSize(ctx context.Context) (int64, error) {
	n, err := s.client.DBSize(ctx).Result()
	return n, s.wrap("DBSIZE", "", err)
}

func (s *Store) FlushDB(ctx context.Context) error {
	return s.wrap("FLUSHDB", "", s.client.FlushDB(ctx).Err())
}

func (s *Store) FlushAll(ctx context.Context) error {
	return s.wrap("FLUSHALL", "", s.client.FlushAll(ctx).Err())
}

// Hash commands

func (s *Store) HGet(ctx context.Context, key, field string) (string, error) {
	value, err := s.client.HGet(ctx, key, field).Result()
	return value, s.wrap("HGET", key, err)
}

func (s *Store) HSet(ctx context.Context, key, field, value string) (int64, error) {
	n, err := s.client.HSet(ctx, key, field, value).Result()
	return n, s.wrap("HSET", key, err)
}

func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.client.HGetAll(ctx, key).Result()
	return m, s.wrap("HGETALL", key, err)
}

func (s *Store) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	n, err := s.client.HDel(ctx, key, fields...).Result()
	return n, s.wrap("HDEL", key, err)
}

func (s *Store) HExists(ctx context.Context, key, field string) (bool, error) {
	ok, err := s.client.HExists(ctx, key, field).Result()
	return ok, s.wrap("HEXISTS", key, err)
}

func (s *Store) HKeys(ctx context.Context, key string) ([]string, error) {
	fields, err := s.client.HKeys(ctx, key).Result()
	return fields, s.wrap("HKEYS", key, err)
}

func (s *Store) HVals(ctx context.Context, key string) ([]string, error) {
	values, err := s.client.HVals(ctx, key).Result()
	return values, s.wrap("HVALS", key, err)
}

func (s *Store) HLen(ctx context.Context, key string) (int64, error) {
	n, err := s.client.HLen(ctx, key).Result()
	return n, s.wrap("HLEN", key, err)
}

// Set commands

func toAny(members []string) []any {
	out := make([]any, len(members))
	for i, m := range members {
		out[i] = m
	}
	return out
}

func (s *Store) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	n, err := s.client.SAdd(ctx, key, toAny(members)...).Result()
	return n, s.wrap("SADD", key, err)
}

func (s *Store) SRem(ctx context.Context, key string, members ...string) (int64, error) {
	n, err := s.client.SRem(ctx, key, toAny(members)...).Result()
	return n, s.wrap("SREM", key, err)
}

func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.SMembers(ctx, key).Result()
	return members, s.wrap("SMEMBERS", key, err)
}

func (s *Store) SIsMember(ctx context.Context, key, member string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, key, member).Result()
	return ok, s.wrap("SISMEMBER", key, err)
}

func (s *Store) SCard(ctx context.Context, key string) (int64, error) {
	n, err := s.client.SCard(ctx, key).Result()
	return n, s.wrap("SCARD", key, err)
}

// List commands

func (s *Store) LPush(ctx context.Context, key string, values ...string) (int64, error) {
	n, err := s.client.LPush(ctx, key, toAny(values)...).Result()
	return n, s.wrap("LPUSH", key, err)
}

func (s *Store) RPush(ctx context.Context, key string, values ...string) (int64, error) {
	n, err := s.client.RPush(ctx, key, toAny(values)...).Result()
	return n, s.wrap("RPUSH", key, err)
}

func (s *Store) LPop(ctx context.Context, key string) (string, error) {
	value, err := s.client.LPop(ctx, key).Result()
	return value, s.wrap("LPOP", key, err)
}

func (s *Store) RPop(ctx context.Context, key string) (string, error) {
	value, err := s.client.RPop(ctx, key).Result()
	return value, s.wrap("RPOP", key, err)
}

func (s *Store) LLen(ctx context.Context, key string) (int64, error) {
	n, err := s.client.LLen(ctx, key).Result()
	return n, s.wrap("LLEN", key, err)
}

func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	values, err := s.client.LRange(ctx, key, start, stop).Result()
	return values, s.wrap("LRANGE", key, err)
}

// Sorted-set commands

func (s *Store) ZAdd(ctx context.Context, key string, members ...kv.Z) (int64, error) {
	zs := make([]redis.Z, len(members))
	for i, m := range members {
		zs[i] = redis.Z{Score: m.Score, Member: m.Member}
	}
	n, err := s.client.ZAdd(ctx, key, zs...).Result()
	return n, s.wrap("ZADD", key, err)
}

func (s *Store) ZRem(ctx context.Context, key string, members ...string) (int64, error) {
	n, err := s.client.ZRem(ctx, key, toAny(members)...).Result()
	return n, s.wrap("ZREM", key, err)
}

func (s *Store) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	members, err := s.client.ZRange(ctx, key, start, stop).Result()
	return members, s.wrap("ZRANGE", key, err)
}

func (s *Store) ZCard(ctx context.Context, key string) (int64, error) {
	n, err := s.client.ZCard(ctx, key).Result()
	return n, s.wrap("ZCARD", key, err)
}

func (s *Store) ZScore(ctx context.Context, key, member string) (float64, error) {
	score, err := s.client.ZScore(ctx, key, member).Result()
	return score, s.wrap("ZSCORE", key, err)
}

// Eval delegates to the server's real EVAL and coerces the reply into the
// rate-limit tuple shape.
func (s *Store) Eval(ctx context.Context, script string, keys []string, args ...string) ([]int64, error) {
	reply, err := s.client.Eval(ctx, script, keys, toAny(args)...).Result()
	if err != nil {
		return nil, s.wrap("EVAL", "", err)
	}
	values, ok := reply.([]any)
	if !ok {
		return nil, fmt.Errorf("store %q: EVAL: unexpected reply %T", s.name, reply)
	}
	out := make([]int64, 0, len(values))
	for _, v := range values {
		n, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("store %q: EVAL: unexpected element %T", s.name, v)
		}
		out = append(out, n)
	}
	return out, nil
}

// Connection-class commands. The underlying client owns its pool, so
// Connect and Ping both reduce to a server round trip and Disconnect is a
// no-op short of Close.

func (s *Store) Connect(ctx context.Context) error {
	return s.wrap("CONNECT", "", s.client.Ping(ctx).Err())
}

func (s *Store) Disconnect(ctx context.Context) error {
	return nil
}

func (s *Store) Quit(ctx context.Context) error {
	return s.wrap("QUIT", "", s.client.Close())
}

func (s *Store) Ping(ctx context.Context) error {
	return s.wrap("PING", "", s.client.Ping(ctx).Err())
}

func (s *Store) Close() error {
	return s.client.Close()
}
