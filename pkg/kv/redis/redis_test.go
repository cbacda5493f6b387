package redis

import (
	"context"
	"os"
	"testing"

	"github.com/KingInYellow18/medianest-sub013/pkg/kv/kvtest"
)

// TestRedisStore cross-checks the adapter against a real server. TTL tests
// need a controllable clock and are skipped here; the in-memory engine
// covers them.
func TestRedisStore(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set, skipping Redis tests")
	}

	factory := func(t *testing.T) kvtest.Harness {
		store, err := New("redis-conformance", redisURL)
		if err != nil {
			t.Fatalf("Failed to create Redis store: %v", err)
		}
		if err := store.FlushDB(context.Background()); err != nil {
			t.Fatalf("Failed to flush test database: %v", err)
		}
		t.Cleanup(func() { store.Close() })
		return kvtest.Harness{Store: store}
	}

	kvtest.RunConformanceTests(t, factory)
}
