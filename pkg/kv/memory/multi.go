package memory

import (
	"context"
	"sync"
	"time"

	"github.com/KingInYellow18/medianest-sub013/pkg/kv"
)

// pipeline records commands for later replay. Exec replays them in order,
// each command taking the store lock like a direct call, so per-command
// atomicity holds but commands applied before a failure stay applied.
type pipeline struct {
	mu    sync.Mutex
	store *Store
	ops   []queuedOp
}

type queuedOp struct {
	name  string
	apply func(ctx context.Context) (any, error)
}

var _ kv.Pipeline = (*pipeline)(nil)

// Multi returns a new recording pipeline.
func (s *Store) Multi() kv.Pipeline {
	return &pipeline{store: s}
}

func (p *pipeline) queue(name string, apply func(ctx context.Context) (any, error)) kv.Pipeline {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = append(p.ops, queuedOp{name: name, apply: apply})
	return p
}

func (p *pipeline) Set(key, value string) kv.Pipeline {
	return p.queue("SET", func(ctx context.Context) (any, error) {
		return "OK", p.store.Set(ctx, key, value)
	})
}

func (p *pipeline) SetEx(key string, ttl time.Duration, value string) kv.Pipeline {
	return p.queue("SETEX", func(ctx context.Context) (any, error) {
		return "OK", p.store.SetEx(ctx, key, ttl, value)
	})
}

func (p *pipeline) Del(keys ...string) kv.Pipeline {
	return p.queue("DEL", func(ctx context.Context) (any, error) {
		return p.store.Del(ctx, keys...)
	})
}

func (p *pipeline) Expire(key string, ttl time.Duration) kv.Pipeline {
	return p.queue("EXPIRE", func(ctx context.Context) (any, error) {
		return p.store.Expire(ctx, key, ttl)
	})
}

func (p *pipeline) Incr(key string) kv.Pipeline {
	return p.queue("INCR", func(ctx context.Context) (any, error) {
		return p.store.Incr(ctx, key)
	})
}

func (p *pipeline) IncrBy(key string, n int64) kv.Pipeline {
	return p.queue("INCRBY", func(ctx context.Context) (any, error) {
		return p.store.IncrBy(ctx, key, n)
	})
}

func (p *pipeline) HSet(key, field, value string) kv.Pipeline {
	return p.queue("HSET", func(ctx context.Context) (any, error) {
		return p.store.HSet(ctx, key, field, value)
	})
}

func (p *pipeline) SAdd(key string, members ...string) kv.Pipeline {
	return p.queue("SADD", func(ctx context.Context) (any, error) {
		return p.store.SAdd(ctx, key, members...)
	})
}

func (p *pipeline) LPush(key string, values ...string) kv.Pipeline {
	return p.queue("LPUSH", func(ctx context.Context) (any, error) {
		return p.store.LPush(ctx, key, values...)
	})
}

// Exec replays recorded commands sequentially and clears the recording.
// Replay stops at the first failing command; earlier results are returned
// alongside the error.
func (p *pipeline) Exec(ctx context.Context) ([]any, error) {
	p.mu.Lock()
	ops := p.ops
	p.ops = nil
	p.mu.Unlock()

	results := make([]any, 0, len(ops))
	for _, op := range ops {
		result, err := op.apply(ctx)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

// Discard drops recorded-but-unexecuted commands.
func (p *pipeline) Discard() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = nil
}
