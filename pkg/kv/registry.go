package kv

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Behavior values accepted by MockConfig.
const (
	BehaviorRealistic = "realistic"
	BehaviorError     = "error"
	BehaviorCustom    = "custom"
)

// MockConfig is the only external configuration surface passed into Get.
// Zero values are filled with the defaults {Behavior: realistic,
// Isolation: true} before the factory sees them.
type MockConfig struct {
	// Behavior selects the instance's starting disposition: "realistic"
	// is a transparent store, "error" pre-arms a fault mode, "custom"
	// preloads State into the keyspace.
	Behavior string
	// State holds keys preloaded by the "custom" behavior.
	State map[string]string
	// Isolation, when true (the default), asks the factory for an instance
	// with its own clock and keyspace shared with nobody.
	Isolation *bool
}

func (c *MockConfig) normalized() MockConfig {
	out := MockConfig{Behavior: BehaviorRealistic}
	if c != nil {
		out = *c
	}
	if out.Behavior == "" {
		out.Behavior = BehaviorRealistic
	}
	if out.Isolation == nil {
		isolated := true
		out.Isolation = &isolated
	}
	return out
}

// Isolated reports the effective isolation flag.
func (c MockConfig) Isolated() bool {
	return c.Isolation == nil || *c.Isolation
}

// Factory constructs a Store instance from a merged MockConfig.
type Factory func(cfg MockConfig) (Store, error)

// RegisterOptions tunes a single Register call.
type RegisterOptions struct {
	// Validator replaces the default command-surface validator.
	Validator Validator
	// Overwrite replaces an existing registration under the same name
	// (logged as a warning) instead of failing.
	Overwrite bool
	// Namespace scopes the registration; instances are keyed namespace:name.
	Namespace string
	// Isolate registers under a uniquely suffixed name so concurrently
	// running test files never clobber each other. Get with the bare name
	// and no namespace resolves to the most recent isolated variant.
	Isolate bool
}

// InstanceState tracks an instance through its lifecycle.
type InstanceState string

const (
	StateRegistered   InstanceState = "registered"
	StateInstantiated InstanceState = "instantiated"
	StateReset        InstanceState = "reset"
	StateDestroyed    InstanceState = "destroyed"
)

type registration struct {
	name      string // effective (possibly suffixed) name
	base      string // name as passed to Register
	namespace string
	isolated  bool
	seq       uint64
	factory   Factory
	validator Validator
}

type instance struct {
	name  string
	reg   *registration
	store Store
	state InstanceState
}

// Registry creates, validates, resets and destroys named store instances.
// It is an explicit handle rather than a package-level singleton so two
// registries (and their stores) can never observe each other's state.
type Registry struct {
	mu        sync.Mutex
	log       *zap.SugaredLogger
	factories map[string]*registration
	instances map[string]*instance
	seq       uint64
}

// NewRegistry returns an empty registry. A nil logger disables logging.
func NewRegistry(log *zap.SugaredLogger) *Registry {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Registry{
		log:       log,
		factories: make(map[string]*registration),
		instances: make(map[string]*instance),
	}
}

func instanceKey(namespace, name string) string {
	return namespace + ":" + name
}

// Register adds a factory under name and returns the effective name, which
// differs from name only when opts.Isolate suffixes it.
func (r *Registry) Register(name string, factory Factory, opts *RegisterOptions) (string, error) {
	if name == "" {
		return "", fmt.Errorf("register: name must not be empty")
	}
	if factory == nil {
		return "", fmt.Errorf("register %q: factory must not be nil", name)
	}
	if opts == nil {
		opts = &RegisterOptions{}
	}

	effective := name
	if opts.Isolate {
		effective = name + "-" + uuid.NewString()[:8]
	}
	key := instanceKey(opts.Namespace, effective)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[key]; exists {
		if !opts.Overwrite {
			return "", fmt.Errorf("register %q: already registered (use Overwrite or Isolate)", effective)
		}
		r.log.Warnw("overwriting registered factory", "name", effective, "namespace", opts.Namespace)
	}

	r.seq++
	r.factories[key] = &registration{
		name:      effective,
		base:      name,
		namespace: opts.Namespace,
		isolated:  opts.Isolate,
		seq:       r.seq,
		factory:   factory,
		validator: opts.Validator,
	}
	return effective, nil
}

// Get returns the instance keyed namespace:name, lazily constructing and
// validating it on first use. Namespaces scope instances, not factories: a
// namespaced lookup that misses resolves against the un-namespaced
// registration, so every namespace gets its own instance from the one
// factory. A bare name with no namespace falls back to the most recently
// registered isolated variant of that name.
func (r *Registry) Get(name string, cfg *MockConfig, namespace string) (Store, error) {
	key := instanceKey(namespace, name)

	r.mu.Lock()
	if inst, ok := r.instances[key]; ok && inst.state != StateDestroyed {
		r.mu.Unlock()
		return inst.store, nil
	}
	reg := r.factories[key]
	if reg == nil && namespace != "" {
		reg = r.factories[instanceKey("", name)]
	}
	if reg == nil && namespace == "" {
		reg = r.latestIsolatedLocked(name)
	}
	r.mu.Unlock()

	if reg == nil {
		return nil, fmt.Errorf("get %q (namespace %q): %w", name, namespace, ErrNotRegistered)
	}

	// Construct and validate outside the lock: validators issue store
	// commands and may call back into the registry.
	merged := cfg.normalized()
	store, err := reg.factory(merged)
	if err != nil {
		return nil, fmt.Errorf("get %q: construct: %w", name, err)
	}

	validator := reg.validator
	if validator == nil {
		validator = DefaultValidator
	}
	result := validator(name, store)
	if !result.Valid {
		store.Close()
		return nil, fmt.Errorf("get %q: %w: %s", name, ErrValidationFailed, strings.Join(result.Errors, "; "))
	}
	for _, w := range result.Warnings {
		r.log.Warnw("instance validation warning", "name", name, "warning", w)
	}

	r.mu.Lock()
	if inst, ok := r.instances[key]; ok && inst.state != StateDestroyed {
		// A concurrent Get won the race; keep its instance.
		r.mu.Unlock()
		store.Close()
		return inst.store, nil
	}
	r.instances[key] = &instance{name: name, reg: reg, store: store, state: StateInstantiated}
	r.mu.Unlock()

	r.log.Debugw("instantiated store", "name", name, "namespace", namespace, "behavior", merged.Behavior)
	return store, nil
}

// latestIsolatedLocked returns the newest isolated registration whose base
// name matches, or nil.
func (r *Registry) latestIsolatedLocked(base string) *registration {
	var best *registration
	for _, reg := range r.factories {
		if !reg.isolated || reg.base != base || reg.namespace != "" {
			continue
		}
		if best == nil || reg.seq > best.seq {
			best = reg
		}
	}
	return best
}

// Reset restores the named instances (all live instances when no names are
// given) to pristine state at a test boundary.
func (r *Registry) Reset(names ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var targets []*instance
	if len(names) == 0 {
		for _, inst := range r.instances {
			targets = append(targets, inst)
		}
	} else {
		for _, name := range names {
			for _, inst := range r.instances {
				if inst.name == name {
					targets = append(targets, inst)
				}
			}
		}
	}

	for _, inst := range targets {
		if inst.state == StateDestroyed {
			continue
		}
		if err := resetStore(inst.store); err != nil {
			return fmt.Errorf("reset %q: %w", inst.name, err)
		}
		inst.state = StateReset
		r.log.Debugw("reset store", "name", inst.name)
	}
	return nil
}

func resetStore(s Store) error {
	if resettable, ok := s.(Resettable); ok {
		return resettable.ResetState()
	}
	return s.FlushAll(context.Background())
}

// Validate runs each live instance's validator and aggregates the results
// keyed by instance name.
func (r *Registry) Validate() map[string]ValidationResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	results := make(map[string]ValidationResult, len(r.instances))
	for _, inst := range r.instances {
		if inst.state == StateDestroyed {
			continue
		}
		validator := inst.reg.validator
		if validator == nil {
			validator = DefaultValidator
		}
		results[inst.name] = validator(inst.name, inst.store)
	}
	return results
}

// Cleanup destroys and forgets all instances. Factory registrations stay in
// place so instances can be re-created.
func (r *Registry) Cleanup() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for key, inst := range r.instances {
		if inst.state != StateDestroyed {
			if err := inst.store.Close(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("cleanup %q: %w", inst.name, err)
			}
			inst.state = StateDestroyed
		}
		delete(r.instances, key)
	}
	return firstErr
}

// InstanceStates reports the lifecycle state of every known instance,
// keyed namespace:name.
func (r *Registry) InstanceStates() map[string]InstanceState {
	r.mu.Lock()
	defer r.mu.Unlock()

	states := make(map[string]InstanceState, len(r.instances))
	for key, inst := range r.instances {
		states[key] = inst.state
	}
	return states
}
