package clock

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}

	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) {
		t.Errorf("Clock time %v is before measurement time %v", now, before)
	}
	if now.After(after) {
		t.Errorf("Clock time %v is after measurement time %v", now, after)
	}
}

func TestMockClock_Now_Consistent(t *testing.T) {
	fixed := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(fixed)

	first := clock.Now()
	second := clock.Now()

	if !first.Equal(fixed) || !second.Equal(fixed) {
		t.Errorf("Mock clock should return the fixed time: first=%v, second=%v", first, second)
	}
}

func TestMockClock_Advance(t *testing.T) {
	start := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	cases := []struct {
		name     string
		duration time.Duration
		expected time.Time
	}{
		{"advance by 1 hour", 1 * time.Hour, start.Add(1 * time.Hour)},
		{"advance by 30 minutes more", 30 * time.Minute, start.Add(90 * time.Minute)},
		{"advance backwards", -2 * time.Hour, start.Add(-30 * time.Minute)},
		{"advance by zero", 0, start.Add(-30 * time.Minute)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clock.Advance(tc.duration)
			if now := clock.Now(); !now.Equal(tc.expected) {
				t.Errorf("Expected %v, got %v", tc.expected, now)
			}
		})
	}
}

func TestMockClock_TTLExpiry(t *testing.T) {
	start := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	expiresAt := clock.Now().Add(120 * time.Second)

	points := []struct {
		name    string
		advance time.Duration
		expired bool
	}{
		{"immediately", 0, false},
		{"halfway", 60 * time.Second, false},
		{"just before expiry", 119 * time.Second, false},
		{"at expiry", 120 * time.Second, true},
		{"after expiry", 180 * time.Second, true},
	}

	for _, tp := range points {
		t.Run(tp.name, func(t *testing.T) {
			c := NewMockClock(start)
			c.Advance(tp.advance)
			now := c.Now()
			expired := !now.Before(expiresAt)
			if expired != tp.expired {
				t.Errorf("At %v, expected expired=%v, got %v", now, tp.expired, expired)
			}
		})
	}
}

func TestClock_Interface_Compliance(t *testing.T) {
	var _ Clock = RealClock{}
	var _ Clock = &MockClock{}
}
