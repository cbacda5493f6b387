package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/KingInYellow18/medianest-sub013/pkg/kv"
)

// pipeline maps the kv.Pipeline surface onto a go-redis TxPipeline.
type pipeline struct {
	mu    sync.Mutex
	store *Store
	ops   []func(pipe redis.Pipeliner) redis.Cmder
}

var _ kv.Pipeline = (*pipeline)(nil)

// Multi returns a new recording pipeline backed by MULTI/EXEC.
func (s *Store) Multi() kv.Pipeline {
	return &pipeline{store: s}
}

func (p *pipeline) queue(op func(pipe redis.Pipeliner) redis.Cmder) kv.Pipeline {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = append(p.ops, op)
	return p
}

func (p *pipeline) Set(key, value string) kv.Pipeline {
	return p.queue(func(pipe redis.Pipeliner) redis.Cmder {
		return pipe.Set(context.Background(), key, value, 0)
	})
}

func (p *pipeline) SetEx(key string, ttl time.Duration, value string) kv.Pipeline {
	return p.queue(func(pipe redis.Pipeliner) redis.Cmder {
		return pipe.SetEx(context.Background(), key, value, ttl)
	})
}

func (p *pipeline) Del(keys ...string) kv.Pipeline {
	return p.queue(func(pipe redis.Pipeliner) redis.Cmder {
		return pipe.Del(context.Background(), keys...)
	})
}

func (p *pipeline) Expire(key string, ttl time.Duration) kv.Pipeline {
	return p.queue(func(pipe redis.Pipeliner) redis.Cmder {
		return pipe.Expire(context.Background(), key, ttl)
	})
}

func (p *pipeline) Incr(key string) kv.Pipeline {
	return p.queue(func(pipe redis.Pipeliner) redis.Cmder {
		return pipe.Incr(context.Background(), key)
	})
}

func (p *pipeline) IncrBy(key string, n int64) kv.Pipeline {
	return p.queue(func(pipe redis.Pipeliner) redis.Cmder {
		return pipe.IncrBy(context.Background(), key, n)
	})
}

func (p *pipeline) HSet(key, field, value string) kv.Pipeline {
	return p.queue(func(pipe redis.Pipeliner) redis.Cmder {
		return pipe.HSet(context.Background(), key, field, value)
	})
}

func (p *pipeline) SAdd(key string, members ...string) kv.Pipeline {
	return p.queue(func(pipe redis.Pipeliner) redis.Cmder {
		return pipe.SAdd(context.Background(), key, toAny(members)...)
	})
}

func (p *pipeline) LPush(key string, values ...string) kv.Pipeline {
	return p.queue(func(pipe redis.Pipeliner) redis.Cmder {
		return pipe.LPush(context.Background(), key, toAny(values)...)
	})
}

func (p *pipeline) Exec(ctx context.Context) ([]any, error) {
	p.mu.Lock()
	ops := p.ops
	p.ops = nil
	p.mu.Unlock()

	pipe := p.store.client.TxPipeline()
	for _, op := range ops {
		op(pipe)
	}
	cmds, err := pipe.Exec(ctx)
	results := make([]any, 0, len(cmds))
	for _, cmd := range cmds {
		results = append(results, cmdValue(cmd))
	}
	if err != nil {
		return results, p.store.wrap("EXEC", "", err)
	}
	return results, nil
}

func cmdValue(cmd redis.Cmder) any {
	switch c := cmd.(type) {
	case *redis.StatusCmd:
		return c.Val()
	case *redis.IntCmd:
		return c.Val()
	case *redis.BoolCmd:
		return c.Val()
	case *redis.StringCmd:
		return c.Val()
	default:
		return nil
	}
}

func (p *pipeline) Discard() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = nil
}
