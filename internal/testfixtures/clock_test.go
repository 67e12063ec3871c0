package testfixtures

import (
	"testing"
	"time"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}
}

func TestClockAdvanceAndSetTime(t *testing.T) {
	clock := NewClock(time.Time{})
	nowFn := clock.NowFunc()

	if got := clock.Advance(90 * time.Minute); !got.Equal(ReferenceTime().Add(90 * time.Minute)) {
		t.Fatalf("advance returned %v", got)
	}
	if !nowFn().Equal(clock.Now()) {
		t.Fatalf("NowFunc should track the clock")
	}

	got := clock.SetTime(8, 30)
	want := time.Date(2025, time.May, 6, 8, 30, 0, 0, time.UTC)
	if !got.Equal(want) || !clock.Now().Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestClockWindow(t *testing.T) {
	clock := NewClock(time.Time{})
	start, end := clock.Window(time.Hour, 2*time.Hour)
	if !start.Equal(ReferenceTime().Add(time.Hour)) || end.Sub(start) != 2*time.Hour {
		t.Fatalf("unexpected window %v - %v", start, end)
	}
}
