package redis

import (
	"fmt"

	"github.com/KingInYellow18/medianest-sub013/pkg/kv"
)

// Factory returns a kv.Factory producing redis-backed instances for a
// registry. MockConfig behaviors other than realistic are rejected: a real
// server cannot be armed with deterministic faults or preloaded state in a
// reproducible way.
func Factory(name, url string) kv.Factory {
	return func(cfg kv.MockConfig) (kv.Store, error) {
		if cfg.Behavior != "" && cfg.Behavior != kv.BehaviorRealistic {
			return nil, fmt.Errorf("redis backend %q: behavior %q not supported", name, cfg.Behavior)
		}
		return New(name, url)
	}
}
