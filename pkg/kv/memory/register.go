package memory

import (
	"context"
	"fmt"

	"github.com/KingInYellow18/medianest-sub013/pkg/kv"
	"github.com/KingInYellow18/medianest-sub013/pkg/kv/clock"
)

// Factory returns a kv.Factory producing named engine instances for a
// registry. Every instance gets its own Simulated clock regardless of the
// Isolation flag; isolation only controls whether the name is decorated,
// state is never shared.
func Factory(name string) kv.Factory {
	return func(cfg kv.MockConfig) (kv.Store, error) {
		store := New(Config{Name: name, Clock: clock.NewSimulated()})
		if err := applyConfig(store, cfg); err != nil {
			return nil, err
		}
		return store, nil
	}
}

// applyConfig arms the behavior requested by a MockConfig on a fresh store.
func applyConfig(store *Store, cfg kv.MockConfig) error {
	switch cfg.Behavior {
	case kv.BehaviorRealistic, "":
		return nil
	case kv.BehaviorError:
		store.SetFaultMode(kv.FaultConnectionFailure)
		return nil
	case kv.BehaviorCustom:
		ctx := context.Background()
		for key, value := range cfg.State {
			if err := store.Set(ctx, key, value); err != nil {
				return fmt.Errorf("preload %q: %w", key, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported behavior %q", cfg.Behavior)
	}
}

// NewStore creates a standalone engine instance outside any registry.
func NewStore(name string) *Store {
	return New(Config{Name: name})
}
