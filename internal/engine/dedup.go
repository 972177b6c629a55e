package engine

import "time"

// dailySet suppresses repeat notifications for the same key within one
// local calendar day. It gates notification only, never detection; the
// per-kind cooldown lives in the monitor store.
type dailySet struct {
	keys map[string]struct{}
	day  string
}

func newDailySet(now time.Time) *dailySet {
	return &dailySet{
		keys: make(map[string]struct{}),
		day:  now.Format("2006-01-02"),
	}
}

// resetIfNewDay clears the whole set when the observed local date has
// changed since the last tick.
func (d *dailySet) resetIfNewDay(now time.Time) {
	day := now.Format("2006-01-02")
	if day != d.day {
		d.keys = make(map[string]struct{})
		d.day = day
	}
}

// claim returns true exactly once per key per day.
func (d *dailySet) claim(key string) bool {
	if _, seen := d.keys[key]; seen {
		return false
	}
	d.keys[key] = struct{}{}
	return true
}
