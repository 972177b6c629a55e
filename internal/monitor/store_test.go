package monitor

import (
	"testing"
	"time"

	"StockSentry/internal/model"
)

func TestRecord_EvictsOldest(t *testing.T) {
	s := NewStore(3, 0)
	for i := 0; i < 5; i++ {
		s.Record("sh600519", float64(100+i), float64(1000+i), 0, t0.Add(time.Duration(i)*time.Second))
	}

	st := s.states["sh600519"]
	if len(st.snapshots) != 3 {
		t.Fatalf("expected capacity 3, got %d snapshots", len(st.snapshots))
	}
	if st.snapshots[0].Price != 102 || st.snapshots[2].Price != 104 {
		t.Errorf("expected oldest evicted, got prices %.0f..%.0f", st.snapshots[0].Price, st.snapshots[2].Price)
	}
}

func TestCooldown_Window(t *testing.T) {
	s := NewStore(0, 60*time.Second)
	code, kind := "sh600519", model.AlertVolumeSurge

	if s.InCooldown(code, kind, t0) {
		t.Fatal("fresh code must not be in cooldown")
	}
	s.MarkAlerted(code, kind, t0)

	if !s.InCooldown(code, kind, t0.Add(10*time.Second)) {
		t.Error("expected cooldown 10s after an alert")
	}
	if s.InCooldown(code, kind, t0.Add(70*time.Second)) {
		t.Error("expected cooldown expired after 70s")
	}
	// Kinds are independent.
	if s.InCooldown(code, model.AlertRapidRise, t0.Add(10*time.Second)) {
		t.Error("cooldown must be scoped per alert kind")
	}
}

func TestForgetAndReset(t *testing.T) {
	s := NewStore(0, 0)
	s.Record("a", 1, 1, 0, t0)
	s.Record("b", 1, 1, 0, t0)
	if s.Tracked() != 2 {
		t.Fatalf("expected 2 tracked instruments, got %d", s.Tracked())
	}

	s.Forget("a")
	if s.Tracked() != 1 {
		t.Errorf("expected 1 tracked after Forget, got %d", s.Tracked())
	}

	s.Reset()
	if s.Tracked() != 0 {
		t.Errorf("expected empty store after Reset, got %d", s.Tracked())
	}
}
