package clock

import (
	"testing"
	"time"
)

func TestNowFormat(t *testing.T) {
	now := Now()
	parsed, err := time.Parse("2006-01-02T15:04:05Z", now)
	if err != nil {
		t.Fatalf("Now() = %q, not in the wire format: %v", now, err)
	}
	if d := time.Since(parsed); d < -2*time.Second || d > 2*time.Second {
		t.Errorf("Now() is not current: %q", now)
	}
}

func TestDuration(t *testing.T) {
	d, err := Duration("2026-08-29T10:00:00Z", "2026-08-29T11:30:00Z")
	if err != nil {
		t.Fatalf("duration: %v", err)
	}
	if d != 90*time.Minute {
		t.Errorf("duration = %v, want 90m", d)
	}
	if _, err = Duration("not a time", "2026-08-29T11:30:00Z"); err == nil {
		t.Error("expected error for malformed from")
	}
}

func TestDurationHours(t *testing.T) {
	if h := DurationHours("2026-08-29T10:00:00Z", "2026-08-29T11:30:00Z"); h != 1.5 {
		t.Errorf("hours = %v, want 1.5", h)
	}
	if h := DurationHours("bad", "worse"); h != 0 {
		t.Errorf("hours = %v, want 0 on parse failure", h)
	}
}
