package kv_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/KingInYellow18/medianest-sub013/pkg/kv"
	"github.com/KingInYellow18/medianest-sub013/pkg/kv/memory"
)

func newRegistry() *kv.Registry {
	return kv.NewRegistry(nil)
}

func TestRegisterAndGet(t *testing.T) {
	reg := newRegistry()
	if _, err := reg.Register("sessions", memory.Factory("sessions"), nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	store, err := reg.Get("sessions", nil, "")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	again, err := reg.Get("sessions", nil, "")
	if err != nil {
		t.Fatalf("second Get failed: %v", err)
	}
	if store != again {
		t.Fatal("Get must return the existing instance, not construct a new one")
	}
}

func TestGetUnknownName(t *testing.T) {
	reg := newRegistry()
	_, err := reg.Get("nope", nil, "")
	if !errors.Is(err, kv.ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
}

func TestNamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry()
	reg.Register("store", memory.Factory("store"), nil)

	ns1, err := reg.Get("store", nil, "ns1")
	if err != nil {
		t.Fatalf("Get ns1 failed: %v", err)
	}
	ns2, err := reg.Get("store", nil, "ns2")
	if err != nil {
		t.Fatalf("Get ns2 failed: %v", err)
	}

	if err := ns1.Set(ctx, "user:1", "alice"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := ns2.Get(ctx, "user:1"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("key written in ns1 must be absent in ns2, got %v", err)
	}
}

func TestNamespacedGetUsesBareFactory(t *testing.T) {
	reg := newRegistry()
	if _, err := reg.Register("store", memory.Factory("store"), nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// One un-namespaced registration serves every namespace.
	ns1, err := reg.Get("store", nil, "ns1")
	if err != nil {
		t.Fatalf("Get in ns1 failed: %v", err)
	}
	again, err := reg.Get("store", nil, "ns1")
	if err != nil {
		t.Fatalf("second Get in ns1 failed: %v", err)
	}
	if ns1 != again {
		t.Fatal("repeated Get in a namespace must return the cached instance")
	}

	ns2, err := reg.Get("store", nil, "ns2")
	if err != nil {
		t.Fatalf("Get in ns2 failed: %v", err)
	}
	if ns1 == ns2 {
		t.Fatal("each namespace must receive its own instance")
	}
}

func TestNamespacedRegistrationTakesPrecedence(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry()
	reg.Register("store", func(cfg kv.MockConfig) (kv.Store, error) {
		s := memory.NewStore("plain")
		s.Set(ctx, "origin", "plain")
		return s, nil
	}, nil)
	reg.Register("store", func(cfg kv.MockConfig) (kv.Store, error) {
		s := memory.NewStore("scoped")
		s.Set(ctx, "origin", "scoped")
		return s, nil
	}, &kv.RegisterOptions{Namespace: "ns1"})

	store, err := reg.Get("store", nil, "ns1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got, _ := store.Get(ctx, "origin"); got != "scoped" {
		t.Fatalf("namespaced factory must win over the bare one, got %q", got)
	}

	if _, err := reg.Get("other", nil, "ns1"); !errors.Is(err, kv.ErrNotRegistered) {
		t.Fatalf("unregistered name must still fail in a namespace, got %v", err)
	}
}

func TestDuplicateRegistration(t *testing.T) {
	reg := newRegistry()
	reg.Register("dup", memory.Factory("dup"), nil)

	if _, err := reg.Register("dup", memory.Factory("dup"), nil); err == nil {
		t.Fatal("duplicate registration without Overwrite must fail")
	}
	if _, err := reg.Register("dup", memory.Factory("dup"), &kv.RegisterOptions{Overwrite: true}); err != nil {
		t.Fatalf("Overwrite registration failed: %v", err)
	}
}

func TestIsolatedRegistrations(t *testing.T) {
	reg := newRegistry()

	first, err := reg.Register("shared", memory.Factory("shared"), &kv.RegisterOptions{Isolate: true})
	if err != nil {
		t.Fatalf("first isolated Register failed: %v", err)
	}
	second, err := reg.Register("shared", memory.Factory("shared"), &kv.RegisterOptions{Isolate: true})
	if err != nil {
		t.Fatalf("second isolated Register failed: %v", err)
	}
	if first == second {
		t.Fatalf("isolated names must be unique, both were %q", first)
	}

	// The bare name resolves to the most recently registered variant.
	if _, err := reg.Get("shared", nil, ""); err != nil {
		t.Fatalf("bare-name fallback failed: %v", err)
	}
	// The suffixed names remain directly addressable.
	if _, err := reg.Get(second, nil, ""); err != nil {
		t.Fatalf("Get by isolated name failed: %v", err)
	}
}

func TestErrorBehavior(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry()
	reg.Register("flaky", memory.Factory("flaky"), nil)

	store, err := reg.Get("flaky", &kv.MockConfig{Behavior: kv.BehaviorError}, "")
	if err != nil {
		t.Fatalf("Get with error behavior failed: %v", err)
	}
	if err := store.Ping(ctx); !errors.Is(err, kv.ErrConnectionRefused) {
		t.Fatalf("error-behavior instance should refuse connections, got %v", err)
	}

	store.(kv.Faultable).SetFaultMode(kv.FaultNone)
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping after clearing fault mode: %v", err)
	}
}

func TestCustomStatePreload(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry()
	reg.Register("seeded", memory.Factory("seeded"), nil)

	cfg := &kv.MockConfig{
		Behavior: kv.BehaviorCustom,
		State:    map[string]string{"feature:flag": "on"},
	}
	store, err := reg.Get("seeded", cfg, "")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	got, err := store.Get(ctx, "feature:flag")
	if err != nil || got != "on" {
		t.Fatalf("preloaded key: got %q, err %v", got, err)
	}
}

func TestResetRestoresPristineState(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry()
	reg.Register("resettable", memory.Factory("resettable"), nil)

	store, err := reg.Get("resettable", nil, "")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	store.Set(ctx, "k", "v")
	store.(kv.Faultable).SetFaultMode(kv.FaultTimeout)

	if err := reg.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	if size, err := store.DBSize(ctx); err != nil || size != 0 {
		t.Fatalf("keyspace after reset: got %d, err %v", size, err)
	}
	if mode := store.(kv.Faultable).FaultMode(); mode != kv.FaultNone {
		t.Fatalf("fault mode after reset: got %q", mode)
	}
}

func TestCleanupForgetsInstancesKeepsFactories(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry()
	reg.Register("ephemeral", memory.Factory("ephemeral"), nil)

	store, err := reg.Get("ephemeral", nil, "")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	store.Set(ctx, "k", "v")

	if err := reg.Cleanup(); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	fresh, err := reg.Get("ephemeral", nil, "")
	if err != nil {
		t.Fatalf("Get after Cleanup failed: %v", err)
	}
	if _, err := fresh.Get(ctx, "k"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("instance after Cleanup must start empty, got %v", err)
	}
}

// brokenStore wraps a working engine but fails one required command.
type brokenStore struct {
	kv.Store
}

func (b brokenStore) Incr(ctx context.Context, key string) (int64, error) {
	return 0, fmt.Errorf("INCR unsupported")
}

func TestValidationRejectsBrokenInstance(t *testing.T) {
	reg := newRegistry()
	reg.Register("broken", func(cfg kv.MockConfig) (kv.Store, error) {
		return brokenStore{Store: memory.NewStore("broken")}, nil
	}, nil)

	_, err := reg.Get("broken", nil, "")
	if !errors.Is(err, kv.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}

func TestDefaultValidatorReportsMissingCommand(t *testing.T) {
	res := kv.DefaultValidator("broken", brokenStore{Store: memory.NewStore("broken")})
	if res.Valid {
		t.Fatal("broken store must not validate")
	}
	if len(res.Errors) == 0 {
		t.Fatal("validation result must carry at least one error")
	}
}

func TestValidateAggregatesPerInstance(t *testing.T) {
	reg := newRegistry()
	reg.Register("a", memory.Factory("a"), nil)
	reg.Register("b", memory.Factory("b"), nil)

	if _, err := reg.Get("a", nil, ""); err != nil {
		t.Fatalf("Get a failed: %v", err)
	}
	if _, err := reg.Get("b", nil, ""); err != nil {
		t.Fatalf("Get b failed: %v", err)
	}

	results := reg.Validate()
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for name, res := range results {
		if !res.Valid {
			t.Fatalf("instance %q should validate: %v", name, res.Errors)
		}
		if res.Metrics["probe_duration_ms"] == nil {
			t.Fatalf("instance %q missing probe metrics", name)
		}
	}
}

func TestValidatorLeavesNoProbeKeys(t *testing.T) {
	store := memory.NewStore("clean")
	res := kv.DefaultValidator("clean", store)
	if !res.Valid {
		t.Fatalf("validation failed: %v", res.Errors)
	}
	size, err := store.DBSize(context.Background())
	if err != nil || size != 0 {
		t.Fatalf("validator left %d probe keys, err %v", size, err)
	}
}

func TestValidatorMayCallBackIntoRegistry(t *testing.T) {
	reg := newRegistry()
	reg.Register("primary", memory.Factory("primary"), nil)

	reentrant := func(name string, s kv.Store) kv.ValidationResult {
		// A validator consulting the registry must not deadlock Get.
		reg.InstanceStates()
		if _, err := reg.Get("primary", nil, ""); err != nil {
			return kv.ValidationResult{Errors: []string{err.Error()}}
		}
		return kv.ValidationResult{Valid: true}
	}
	reg.Register("dependent", memory.Factory("dependent"), &kv.RegisterOptions{Validator: reentrant})

	done := make(chan error, 1)
	go func() {
		_, err := reg.Get("dependent", nil, "")
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Get with reentrant validator failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Get deadlocked while running the validator")
	}
}

func TestCustomValidatorFailureIsImmediate(t *testing.T) {
	reg := newRegistry()
	rejectAll := func(name string, s kv.Store) kv.ValidationResult {
		return kv.ValidationResult{Errors: []string{name + ": rejected by policy"}}
	}
	reg.Register("strict", memory.Factory("strict"), &kv.RegisterOptions{Validator: rejectAll})

	start := time.Now()
	_, err := reg.Get("strict", nil, "")
	if !errors.Is(err, kv.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("validation failure must be synchronous at Get time")
	}
}
