package reveal

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hotplate-app/hotplate/internal/settings"
)

func newTestGate(start time.Time) (*MemoryGate, *time.Time) {
	gate := NewMemoryGate()
	now := start
	gate.now = func() time.Time { return now }
	return gate, &now
}

func TestHoldAccumulatesToReveal(t *testing.T) {
	ctx := context.Background()
	gate, now := newTestGate(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	var p Progress
	for i := 0; i < 10; i++ {
		var errHold error
		p, errHold = gate.Hold(ctx, 1, 7)
		if errHold != nil {
			t.Fatalf("hold: %v", errHold)
		}
		*now = now.Add(120 * time.Millisecond)
	}
	if !p.Revealed || p.Percent != 100 {
		t.Fatalf("expected full reveal after 10 ticks, got %+v", p)
	}

	revealed, errRevealed := gate.Revealed(ctx, 1, 7)
	if errRevealed != nil || !revealed {
		t.Fatalf("expected revealed, got %v err=%v", revealed, errRevealed)
	}
}

func TestReleaseResetsPartialProgress(t *testing.T) {
	ctx := context.Background()
	gate, now := newTestGate(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	for i := 0; i < 5; i++ {
		if _, errHold := gate.Hold(ctx, 1, 7); errHold != nil {
			t.Fatalf("hold: %v", errHold)
		}
		*now = now.Add(120 * time.Millisecond)
	}
	if errRelease := gate.Release(ctx, 1, 7); errRelease != nil {
		t.Fatalf("release: %v", errRelease)
	}

	p, errHold := gate.Hold(ctx, 1, 7)
	if errHold != nil {
		t.Fatalf("hold after release: %v", errHold)
	}
	if p.Percent != stepPercent() {
		t.Fatalf("expected progress restarted at one step, got %+v", p)
	}
}

func TestInterruptedHoldRestarts(t *testing.T) {
	ctx := context.Background()
	gate, now := newTestGate(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	for i := 0; i < 5; i++ {
		if _, errHold := gate.Hold(ctx, 1, 7); errHold != nil {
			t.Fatalf("hold: %v", errHold)
		}
		*now = now.Add(120 * time.Millisecond)
	}

	// A gap past the tolerance counts as lifting the finger.
	*now = now.Add(2 * time.Second)
	p, errHold := gate.Hold(ctx, 1, 7)
	if errHold != nil {
		t.Fatalf("hold: %v", errHold)
	}
	if p.Percent != stepPercent() || p.Revealed {
		t.Fatalf("expected restart after interruption, got %+v", p)
	}
}

func TestRevealIsStickyUntilTTL(t *testing.T) {
	ctx := context.Background()
	gate, now := newTestGate(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	for i := 0; i < 10; i++ {
		if _, errHold := gate.Hold(ctx, 1, 7); errHold != nil {
			t.Fatalf("hold: %v", errHold)
		}
		*now = now.Add(120 * time.Millisecond)
	}

	// Release after a full reveal does not reset it.
	if errRelease := gate.Release(ctx, 1, 7); errRelease != nil {
		t.Fatalf("release: %v", errRelease)
	}
	revealed, _ := gate.Revealed(ctx, 1, 7)
	if !revealed {
		t.Fatalf("reveal must stick after release")
	}

	// Past the TTL the reveal lapses.
	*now = now.Add(revealedTTL + time.Minute)
	revealed, _ = gate.Revealed(ctx, 1, 7)
	if revealed {
		t.Fatalf("reveal must lapse after TTL")
	}
}

func TestHoldDurationControlsTickCount(t *testing.T) {
	ctx := context.Background()
	gate, now := newTestGate(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	// A 600ms hold spans 5 ticks at the client cadence, so each tick
	// advances 20 percent.
	settings.StoreDBConfig(time.Now(), map[string]json.RawMessage{
		settings.RevealHoldMillisKey: json.RawMessage("600"),
	})
	t.Cleanup(func() { settings.StoreDBConfig(time.Now(), nil) })

	var p Progress
	for i := 0; i < 5; i++ {
		var errHold error
		p, errHold = gate.Hold(ctx, 1, 7)
		if errHold != nil {
			t.Fatalf("hold: %v", errHold)
		}
		*now = now.Add(120 * time.Millisecond)
	}
	if !p.Revealed || p.Percent != 100 {
		t.Fatalf("expected full reveal after 5 ticks of a 600ms hold, got %+v", p)
	}
}

func TestRevealIsPerUserPerDeal(t *testing.T) {
	ctx := context.Background()
	gate, now := newTestGate(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	for i := 0; i < 10; i++ {
		if _, errHold := gate.Hold(ctx, 1, 7); errHold != nil {
			t.Fatalf("hold: %v", errHold)
		}
		*now = now.Add(120 * time.Millisecond)
	}

	if revealed, _ := gate.Revealed(ctx, 2, 7); revealed {
		t.Fatalf("another user must not inherit the reveal")
	}
	if revealed, _ := gate.Revealed(ctx, 1, 8); revealed {
		t.Fatalf("another deal must not inherit the reveal")
	}
}
