// Package monitor keeps the bounded per-instrument rolling state and
// the detection algorithms that run against it. All detections are
// total: invalid or insufficient input yields a non-triggered result,
// never an error.
package monitor

import (
	"time"

	"StockSentry/internal/model"
)

// Defaults matching the production tuning of the detection pass.
const (
	DefaultSnapshotCap = 20               // ~1 minute of history at a 3s poll
	DefaultCooldown    = 60 * time.Second // per (code, kind) suppression window
	minPrevDeltas      = 5                // volume deltas required before the latest one
	minSnapshots       = 6                // snapshots required for volume detection
)

// Snapshot is one immutable per-instrument reading.
type Snapshot struct {
	Price     float64
	CumVolume float64
	Pct       float64
	At        time.Time
}

// State is the rolling monitoring state for one instrument. It is
// owned by the Store and mutated only during a detection pass.
type State struct {
	snapshots   []Snapshot
	lastAlert   map[model.AlertKind]time.Time
	wasLimitUp  bool
	openChecked bool
}

// Store owns all per-instrument monitoring state. It is not safe for
// concurrent use; the engine serializes every access behind its own
// mutex.
type Store struct {
	capacity int
	cooldown time.Duration
	states   map[string]*State
}

// NewStore creates an empty store. Non-positive capacity or cooldown
// fall back to the defaults.
func NewStore(capacity int, cooldown time.Duration) *Store {
	if capacity <= 0 {
		capacity = DefaultSnapshotCap
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Store{
		capacity: capacity,
		cooldown: cooldown,
		states:   make(map[string]*State),
	}
}

func (s *Store) state(code string) *State {
	st, ok := s.states[code]
	if !ok {
		st = &State{lastAlert: make(map[model.AlertKind]time.Time)}
		s.states[code] = st
	}
	return st
}

// Record appends a snapshot to the instrument's buffer, evicting the
// oldest reading once the buffer is at capacity. Values are taken as
// supplied; no monotonicity check is performed.
func (s *Store) Record(code string, price, cumVolume, pct float64, now time.Time) {
	st := s.state(code)
	st.snapshots = append(st.snapshots, Snapshot{
		Price:     price,
		CumVolume: cumVolume,
		Pct:       pct,
		At:        now,
	})
	if len(st.snapshots) > s.capacity {
		st.snapshots = st.snapshots[1:]
	}
}

// InCooldown reports whether kind fired for code within the cooldown
// window ending at now.
func (s *Store) InCooldown(code string, kind model.AlertKind, now time.Time) bool {
	st, ok := s.states[code]
	if !ok {
		return false
	}
	last, ok := st.lastAlert[kind]
	if !ok {
		return false
	}
	return now.Sub(last) < s.cooldown
}

// MarkAlerted records that kind fired for code at now, starting a new
// cooldown window.
func (s *Store) MarkAlerted(code string, kind model.AlertKind, now time.Time) {
	s.state(code).lastAlert[kind] = now
}

// OpenChecked reports whether the one-shot opening-gap check already
// ran for code.
func (s *Store) OpenChecked(code string) bool {
	st, ok := s.states[code]
	return ok && st.openChecked
}

// MarkOpenChecked latches the opening-gap check for code.
func (s *Store) MarkOpenChecked(code string) {
	s.state(code).openChecked = true
}

// Forget drops all state for one instrument. Called when the
// instrument leaves every watched strategy.
func (s *Store) Forget(code string) {
	delete(s.states, code)
}

// Reset drops all monitoring state.
func (s *Store) Reset() {
	s.states = make(map[string]*State)
}

// Tracked returns the number of instruments with live state.
func (s *Store) Tracked() int {
	return len(s.states)
}
