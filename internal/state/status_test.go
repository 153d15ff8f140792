package state

import "testing"

// TestCanTransition covers the one-directional lifecycle, the pause/resume
// cycle, and the always-allowed no-op transition.
func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusQueued, StatusGenerating, true},
		{StatusQueued, StatusFailed, true},
		{StatusQueued, StatusCompleted, false},
		{StatusGenerating, StatusPaused, true},
		{StatusGenerating, StatusProcessing, true},
		{StatusGenerating, StatusCompleted, true},
		{StatusGenerating, StatusFailed, true},
		{StatusGenerating, StatusQueued, false},
		{StatusPaused, StatusGenerating, true},
		{StatusPaused, StatusFailed, true},
		{StatusPaused, StatusCompleted, false},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusGenerating, false},
		{StatusCompleted, StatusGenerating, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusGenerating, false},
		{StatusFailed, StatusQueued, false},
		{StatusGenerating, StatusGenerating, true},
		{StatusCompleted, StatusCompleted, true},
	}
	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestTerminalAndActive(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusFailed} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
		if s.Active() {
			t.Errorf("%s should not be active", s)
		}
	}
	for _, s := range []Status{StatusQueued, StatusGenerating, StatusProcessing, StatusPaused} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
		if !s.Active() {
			t.Errorf("%s should be active", s)
		}
	}
}

func TestStatusValid(t *testing.T) {
	if Status("rendering").Valid() {
		t.Error("unknown status reported valid")
	}
	if !StatusQueued.Valid() {
		t.Error("queued reported invalid")
	}
}
