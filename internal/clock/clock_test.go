package clock

import (
	"testing"
	"time"
)

func TestFixedClock(t *testing.T) {
	start := time.Date(2026, 10, 16, 8, 30, 0, 0, time.UTC)
	c := NewFixed(start)

	if !c.Now().Equal(start) {
		t.Fatalf("expected %v, got %v", start, c.Now())
	}
	if Today(c) != "2026-10-16" {
		t.Errorf("expected today 2026-10-16, got %s", Today(c))
	}

	c.Advance(16 * time.Hour)
	if Today(c) != "2026-10-17" {
		t.Errorf("expected rollover to 2026-10-17, got %s", Today(c))
	}

	c.AdvanceDays(15)
	if Today(c) != "2026-11-01" {
		t.Errorf("expected 2026-11-01, got %s", Today(c))
	}
}

func TestNewSystem(t *testing.T) {
	c, err := NewSystem("UTC")
	if err != nil {
		t.Fatalf("NewSystem(UTC): %v", err)
	}
	if c.Now().Location().String() != "UTC" {
		t.Errorf("expected UTC location, got %s", c.Now().Location())
	}

	if _, err := NewSystem("Mars/Olympus_Mons"); err == nil {
		t.Error("expected error for invalid timezone")
	}
}
