package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KingInYellow18/medianest-sub013/pkg/kv"
	"github.com/KingInYellow18/medianest-sub013/pkg/kv/clock"
	"github.com/KingInYellow18/medianest-sub013/pkg/kv/kvtest"
)

func TestMemoryStore(t *testing.T) {
	factory := func(t *testing.T) kvtest.Harness {
		sim := clock.NewSimulated()
		store := New(Config{Name: t.Name(), Clock: sim})
		return kvtest.Harness{Store: store, Clock: sim}
	}
	kvtest.RunConformanceTests(t, factory)
}

func TestConnectionFailureFaultMode(t *testing.T) {
	ctx := context.Background()
	store := NewStore("faulty")
	defer store.Close()

	store.SetFaultMode(kv.FaultConnectionFailure)

	if err := store.Ping(ctx); !errors.Is(err, kv.ErrConnectionRefused) {
		t.Fatalf("Ping under connection failure: got %v", err)
	}
	if err := store.Connect(ctx); !errors.Is(err, kv.ErrConnectionRefused) {
		t.Fatalf("Connect under connection failure: got %v", err)
	}
	// Data commands are untouched by the connection-failure mode.
	if err := store.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set under connection failure: got %v", err)
	}

	store.SetFaultMode(kv.FaultNone)
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping after clearing fault mode: got %v", err)
	}
}

func TestTimeoutFaultMode(t *testing.T) {
	ctx := context.Background()
	store := NewStore("slow")
	defer store.Close()

	store.SetFaultMode(kv.FaultTimeout)

	if err := store.Set(ctx, "k", "v"); !errors.Is(err, kv.ErrCommandTimeout) {
		t.Fatalf("Set under timeout: got %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, kv.ErrCommandTimeout) {
		t.Fatalf("Get under timeout: got %v", err)
	}
	// Connection commands are untouched by the timeout mode.
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping under timeout: got %v", err)
	}

	store.SetFaultMode(kv.FaultNone)
	if err := store.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set after clearing fault mode: got %v", err)
	}
}

func TestFaultErrorsNameInstanceAndCommand(t *testing.T) {
	store := NewStore("sessions-a")
	defer store.Close()
	store.SetFaultMode(kv.FaultTimeout)

	_, err := store.Get(context.Background(), "k")
	if err == nil {
		t.Fatal("expected injected failure")
	}
	for _, fragment := range []string{"sessions-a", "GET"} {
		if !contains(err.Error(), fragment) {
			t.Fatalf("error %q should mention %q", err.Error(), fragment)
		}
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

func TestInstanceIsolation(t *testing.T) {
	ctx := context.Background()
	a := NewStore("ns1")
	b := NewStore("ns2")
	defer a.Close()
	defer b.Close()

	if err := a.Set(ctx, "shared-key", "from-a"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := b.Get(ctx, "shared-key"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("key written in a must be absent in b, got %v", err)
	}

	// Clocks are per instance: advancing a's clock must not expire b's keys.
	if err := b.SetEx(ctx, "ttl-key", 10*time.Second, "v"); err != nil {
		t.Fatalf("SetEx failed: %v", err)
	}
	a.Clock().(*clock.Simulated).Advance(time.Hour)
	if got, err := b.Get(ctx, "ttl-key"); err != nil || got != "v" {
		t.Fatalf("b's key must survive a's clock advance: got %q, err %v", got, err)
	}

	// Fault modes are per instance too.
	a.SetFaultMode(kv.FaultTimeout)
	if err := b.Set(ctx, "other", "v"); err != nil {
		t.Fatalf("b must not observe a's fault mode: %v", err)
	}
}

func TestResetState(t *testing.T) {
	ctx := context.Background()
	store := NewStore("resettable")
	defer store.Close()

	store.Set(ctx, "k", "v")
	store.SetEx(ctx, "t", time.Minute, "v")
	store.SetFaultMode(kv.FaultTimeout)
	store.SetEvalScenario(kv.EvalExceeded)
	store.Events().On(EventConnect, func(any) {})
	store.Clock().(*clock.Simulated).Advance(time.Hour)

	if err := store.ResetState(); err != nil {
		t.Fatalf("ResetState failed: %v", err)
	}

	if size, err := store.DBSize(ctx); err != nil || size != 0 {
		t.Fatalf("keyspace must be empty after reset: got %d, err %v", size, err)
	}
	if mode := store.FaultMode(); mode != kv.FaultNone {
		t.Fatalf("fault mode must clear on reset: got %q", mode)
	}
	if scenario := store.EvalScenario(); scenario != kv.EvalAllowed {
		t.Fatalf("eval scenario must reset: got %q", scenario)
	}
	if n := store.Events().ListenerCount(EventConnect); n != 0 {
		t.Fatalf("listeners must clear on reset: got %d", n)
	}
}

func TestEvalDefaultsWithoutParseableArgs(t *testing.T) {
	store := NewStore("eval")
	defer store.Close()

	tuple, err := store.Eval(context.Background(), "return 0", []string{"rl:x"})
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if len(tuple) != 4 || tuple[0] != 1 || tuple[1] != defaultEvalLimit || tuple[2] != defaultEvalLimit-1 {
		t.Fatalf("default tuple: got %v", tuple)
	}
}

func TestExpireWithNonPositiveTTLDeletes(t *testing.T) {
	ctx := context.Background()
	store := NewStore("expire")
	defer store.Close()

	store.Set(ctx, "k", "v")
	ok, err := store.Expire(ctx, "k", 0)
	if err != nil || !ok {
		t.Fatalf("Expire(0): got %v, err %v", ok, err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("key must be gone after Expire(0), got %v", err)
	}
}

func TestPinnedClockFreezesTTL(t *testing.T) {
	ctx := context.Background()
	sim := clock.NewSimulated()
	store := New(Config{Name: "pinned", Clock: sim})
	defer store.Close()

	sim.SetFixed(time.Unix(1_700_000_000, 0))
	store.SetEx(ctx, "k", 5*time.Second, "v")

	// Wall time passing must not matter while the clock is pinned.
	ttl, err := store.TTL(ctx, "k")
	if err != nil || ttl != 5 {
		t.Fatalf("TTL under pinned clock: got %d, err %v", ttl, err)
	}

	sim.Advance(5 * time.Second)
	if _, err := store.Get(ctx, "k"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("key must expire exactly at the pin+5s boundary, got %v", err)
	}
}
