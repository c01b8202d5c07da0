package expiry

import (
	"testing"
	"time"
)

func TestIsExpiredBoundary(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if IsExpired(at, at.Add(-time.Second)) {
		t.Fatalf("one second before expiry must not be expired")
	}
	if !IsExpired(at, at) {
		t.Fatalf("the expiry instant itself must count as expired")
	}
	if !IsExpired(at, at.Add(time.Second)) {
		t.Fatalf("one second after expiry must be expired")
	}
}

func TestIsExpiredMonotonic(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := at
	for i := 0; i < 10; i++ {
		if !IsExpired(at, now) {
			t.Fatalf("expiry must stay true at %v", now)
		}
		now = now.Add(time.Duration(i) * time.Hour)
	}
}

func TestRemainingBreakdown(t *testing.T) {
	at := time.Date(2026, 3, 3, 14, 45, 0, 0, time.UTC)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	got := Remaining(at, now)
	want := Breakdown{Days: 2, Hours: 2, Minutes: 45}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestRemainingAfterExpiry(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	got := Remaining(at, at.Add(time.Hour))
	if !got.Expired {
		t.Fatalf("expected expired breakdown, got %+v", got)
	}
	if got.Days != 0 || got.Hours != 0 || got.Minutes != 0 {
		t.Fatalf("expired breakdown must be zeroed, got %+v", got)
	}
}
