package store

import (
	"context"
	"fmt"
	"time"

	"github.com/KingInYellow18/medianest-sub013/internal/config"
	"github.com/KingInYellow18/medianest-sub013/pkg/kv"
	"github.com/KingInYellow18/medianest-sub013/pkg/kv/memory"
	"github.com/KingInYellow18/medianest-sub013/pkg/kv/redis"
	"go.uber.org/zap"
)

// NewBackend builds the kv.Store selected by cfg. A redis backend that does
// not answer within the startup probe falls back to the in-memory engine so
// a test run never stalls on an absent server.
func NewBackend(cfg config.StoreConfig, logger *zap.SugaredLogger) (kv.Store, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	switch cfg.Backend {
	case "memory":
		return memory.NewStore("fixtures"), nil

	case "redis":
		url := fmt.Sprintf("redis://%s/%d", cfg.RedisAddr, cfg.RedisDB)
		store, err := redis.New("fixtures", url)
		if err != nil {
			return nil, fmt.Errorf("redis backend: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			store.Close()
			logger.Warnw("redis unavailable; falling back to in-memory engine",
				"addr", cfg.RedisAddr, "error", err)
			return memory.NewStore("fixtures"), nil
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported backend %q (supported: memory, redis)", cfg.Backend)
	}
}
