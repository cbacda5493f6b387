package memory

import (
	"context"
	"testing"
)

func TestConnectionLifecycleEvents(t *testing.T) {
	ctx := context.Background()
	store := NewStore("events")
	defer store.Close()

	var seen []string
	record := func(name string) EventHandler {
		return func(any) { seen = append(seen, name) }
	}
	store.Events().On(EventConnect, record("connect"))
	store.Events().On(EventReady, record("ready"))
	store.Events().On(EventDisconnect, record("disconnect"))
	store.Events().On(EventEnd, record("end"))

	if err := store.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if !store.Connected() {
		t.Fatal("store should report connected")
	}
	if err := store.Quit(ctx); err != nil {
		t.Fatalf("Quit failed: %v", err)
	}

	want := []string{"connect", "ready", "disconnect", "end"}
	if len(seen) != len(want) {
		t.Fatalf("events: got %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("events: got %v, want %v", seen, want)
		}
	}
}

func TestDataCommandsEmitNoEvents(t *testing.T) {
	ctx := context.Background()
	store := NewStore("quiet")
	defer store.Close()

	fired := 0
	for _, event := range []string{EventConnect, EventReady, EventDisconnect, EventEnd} {
		store.Events().On(event, func(any) { fired++ })
	}

	store.Set(ctx, "k", "v")
	store.Get(ctx, "k")
	store.Del(ctx, "k")

	if fired != 0 {
		t.Fatalf("data commands must not emit lifecycle events, got %d", fired)
	}
}

func TestEmitSnapshotsHandlers(t *testing.T) {
	bus := NewEventBus()

	var outer, inner int
	bus.On("tick", func(any) {
		outer++
		// Registered mid-emit: must not run within this same pass.
		bus.On("tick", func(any) { inner++ })
	})

	bus.Emit("tick", nil)
	if outer != 1 || inner != 0 {
		t.Fatalf("first pass: outer=%d inner=%d", outer, inner)
	}

	bus.Emit("tick", nil)
	if outer != 2 || inner != 1 {
		t.Fatalf("second pass: outer=%d inner=%d", outer, inner)
	}
}

func TestOnceRunsExactlyOnce(t *testing.T) {
	bus := NewEventBus()

	calls := 0
	bus.Once("ready", func(any) { calls++ })

	bus.Emit("ready", nil)
	bus.Emit("ready", nil)
	if calls != 1 {
		t.Fatalf("once handler ran %d times", calls)
	}
	if n := bus.ListenerCount("ready"); n != 0 {
		t.Fatalf("once handler must unregister itself, %d left", n)
	}
}

func TestOffRemovesOnlyTarget(t *testing.T) {
	bus := NewEventBus()

	var a, b int
	subA := bus.On("evt", func(any) { a++ })
	bus.On("evt", func(any) { b++ })

	if !bus.Off(subA) {
		t.Fatal("Off should report removal")
	}
	if bus.Off(subA) {
		t.Fatal("second Off of the same subscription should report false")
	}

	bus.Emit("evt", nil)
	if a != 0 || b != 1 {
		t.Fatalf("after Off: a=%d b=%d", a, b)
	}
}

func TestRemoveAllListeners(t *testing.T) {
	bus := NewEventBus()

	bus.On("a", func(any) {})
	bus.On("a", func(any) {})
	bus.On("b", func(any) {})

	bus.RemoveAllListeners("a")
	if bus.ListenerCount("a") != 0 || bus.ListenerCount("b") != 1 {
		t.Fatal("RemoveAllListeners(a) must leave b intact")
	}

	bus.RemoveAllListeners()
	if bus.ListenerCount("b") != 0 {
		t.Fatal("bare RemoveAllListeners must clear everything")
	}
}

func TestEmitPayload(t *testing.T) {
	bus := NewEventBus()

	var got any
	bus.On("named", func(payload any) { got = payload })
	if n := bus.Emit("named", "instance-7"); n != 1 {
		t.Fatalf("Emit reported %d handlers", n)
	}
	if got != "instance-7" {
		t.Fatalf("payload: got %v", got)
	}
}
