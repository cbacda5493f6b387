package clock

import (
	"testing"
	"time"
)

func TestSystemTracksWallClock(t *testing.T) {
	before := time.Now()
	got := System{}.Now()
	after := time.Now()
	if got.Before(before) || got.After(after) {
		t.Fatalf("System.Now %v outside [%v, %v]", got, before, after)
	}
}

func TestSimulatedAdvanceAccumulates(t *testing.T) {
	c := NewSimulated()
	c.Advance(10 * time.Second)
	c.Advance(5 * time.Second)

	drift := c.Now().Sub(time.Now())
	if drift < 14*time.Second || drift > 16*time.Second {
		t.Fatalf("expected ~15s ahead of wall clock, got %v", drift)
	}
}

func TestSimulatedNegativeAdvance(t *testing.T) {
	c := NewSimulated()
	c.Advance(10 * time.Second)
	c.Advance(-10 * time.Second)

	drift := c.Now().Sub(time.Now())
	if drift < -time.Second || drift > time.Second {
		t.Fatalf("offsets should cancel, got drift %v", drift)
	}
}

func TestSimulatedSetFixedPins(t *testing.T) {
	c := NewSimulated()
	pin := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.SetFixed(pin)

	if got := c.Now(); !got.Equal(pin) {
		t.Fatalf("pinned clock returned %v, want %v", got, pin)
	}
	// Repeated reads do not drift.
	time.Sleep(5 * time.Millisecond)
	if got := c.Now(); !got.Equal(pin) {
		t.Fatalf("pinned clock drifted to %v", got)
	}
}

func TestSimulatedAdvanceMovesPin(t *testing.T) {
	c := NewSimulated()
	pin := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.SetFixed(pin)
	c.Advance(90 * time.Second)

	want := pin.Add(90 * time.Second)
	if got := c.Now(); !got.Equal(want) {
		t.Fatalf("advanced pin returned %v, want %v", got, want)
	}
}

func TestSimulatedReset(t *testing.T) {
	c := NewSimulated()
	c.SetFixed(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	c.Advance(time.Hour)
	c.Reset()

	drift := c.Now().Sub(time.Now())
	if drift < -time.Second || drift > time.Second {
		t.Fatalf("reset clock should track wall time, got drift %v", drift)
	}
}

func TestIndependentClocks(t *testing.T) {
	a := NewSimulated()
	b := NewSimulated()
	a.Advance(time.Hour)

	drift := b.Now().Sub(time.Now())
	if drift < -time.Second || drift > time.Second {
		t.Fatalf("advancing one clock must not move another, got drift %v", drift)
	}
}
