package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Validator checks a freshly constructed (or long-lived) instance against
// the required command surface. It must leave no probe keys behind.
type Validator func(name string, s Store) ValidationResult

// ValidationResult aggregates a single instance's validation outcome.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
	Metrics  map[string]any
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// DefaultValidator exercises every required command family against probe
// keys and deletes them afterwards. The Store interface is checked at
// compile time; this runtime pass catches instances whose commands are
// wired but broken (a factory handing out a misconfigured adapter).
func DefaultValidator(name string, s Store) ValidationResult {
	ctx := context.Background()
	res := ValidationResult{Metrics: map[string]any{}}
	start := time.Now()

	// A deliberately armed fault mode would fail every probe; such an
	// instance is valid by construction.
	if faultable, ok := s.(Faultable); ok && faultable.FaultMode() != FaultNone {
		res.Valid = true
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("%s: fault mode %q armed; command probes skipped", name, faultable.FaultMode()))
		res.Metrics["probe_duration_ms"] = time.Since(start).Milliseconds()
		return res
	}

	probe := "validate:" + uuid.NewString()[:8]
	strKey := probe + ":str"
	hashKey := probe + ":hash"
	setKey := probe + ":set"
	listKey := probe + ":list"
	zsetKey := probe + ":zset"
	ctrKey := probe + ":ctr"

	if err := s.Set(ctx, strKey, "v"); err != nil {
		res.fail("%s: SET: %v", name, err)
	} else if got, err := s.Get(ctx, strKey); err != nil || got != "v" {
		res.fail("%s: GET roundtrip: got %q, err %v", name, got, err)
	}

	if err := s.SetEx(ctx, strKey, time.Minute, "v"); err != nil {
		res.fail("%s: SETEX: %v", name, err)
	} else if ttl, err := s.TTL(ctx, strKey); err != nil || ttl <= 0 {
		res.fail("%s: TTL after SETEX: got %d, err %v", name, ttl, err)
	}

	if n, err := s.Incr(ctx, ctrKey); err != nil || n != 1 {
		res.fail("%s: INCR: got %d, err %v", name, n, err)
	}
	if _, err := s.HSet(ctx, hashKey, "f", "v"); err != nil {
		res.fail("%s: HSET: %v", name, err)
	} else if got, err := s.HGet(ctx, hashKey, "f"); err != nil || got != "v" {
		res.fail("%s: HGET roundtrip: got %q, err %v", name, got, err)
	}
	if _, err := s.SAdd(ctx, setKey, "a", "b"); err != nil {
		res.fail("%s: SADD: %v", name, err)
	} else if n, err := s.SCard(ctx, setKey); err != nil || n != 2 {
		res.fail("%s: SCARD: got %d, err %v", name, n, err)
	}
	if _, err := s.LPush(ctx, listKey, "a", "b"); err != nil {
		res.fail("%s: LPUSH: %v", name, err)
	} else if items, err := s.LRange(ctx, listKey, 0, -1); err != nil || len(items) != 2 {
		res.fail("%s: LRANGE: got %v, err %v", name, items, err)
	}
	if _, err := s.ZAdd(ctx, zsetKey, Z{Member: "m", Score: 1}); err != nil {
		res.fail("%s: ZADD: %v", name, err)
	} else if score, err := s.ZScore(ctx, zsetKey, "m"); err != nil || score != 1 {
		res.fail("%s: ZSCORE: got %v, err %v", name, score, err)
	}

	if results, err := s.Multi().Set(strKey, "v2").Incr(ctrKey).Exec(ctx); err != nil || len(results) != 2 {
		res.fail("%s: MULTI/EXEC: got %d results, err %v", name, len(results), err)
	}
	// The script shape matters for real servers: the reply must be the
	// rate-limit 4-tuple. Canned engines ignore the script body entirely.
	if tuple, err := s.Eval(ctx, "return {1, 5, 4, 0}", []string{ctrKey}, "5", "60"); err != nil || len(tuple) != 4 {
		res.fail("%s: EVAL: got %v, err %v", name, tuple, err)
	}
	if err := s.Ping(ctx); err != nil {
		res.fail("%s: PING: %v", name, err)
	}

	if _, err := s.Del(ctx, strKey, hashKey, setKey, listKey, zsetKey, ctrKey); err != nil {
		res.fail("%s: DEL cleanup: %v", name, err)
	}

	if _, ok := s.(Faultable); !ok {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s: fault injection not supported", name))
	}
	if _, ok := s.(Resettable); !ok {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s: full state reset not supported; falling back to FLUSHALL", name))
	}

	if size, err := s.DBSize(ctx); err == nil {
		res.Metrics["dbsize"] = size
	}
	res.Metrics["probe_duration_ms"] = time.Since(start).Milliseconds()
	res.Valid = len(res.Errors) == 0
	return res
}
