package monitor

import (
	"math"
	"strings"

	"StockSentry/internal/model"
)

// Detection is the outcome of one algorithm for one instrument.
// Value carries the rounded figure reported to the user: surge
// multiplier, percent move, alpha, or limit price.
type Detection struct {
	Triggered bool
	Value     float64
}

// Direction selects the sign of a rapid price move.
type Direction int

const (
	Rise Direction = iota
	Fall
)

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }

// VolumeSurge compares the latest cumulative-volume delta against the
// average of the preceding positive deltas. Non-positive deltas (feed
// resets) are dropped from the sequence entirely.
func (s *Store) VolumeSurge(code string, threshold float64) Detection {
	st, ok := s.states[code]
	if !ok || len(st.snapshots) < minSnapshots {
		return Detection{}
	}

	var deltas []float64
	for i := 1; i < len(st.snapshots); i++ {
		d := st.snapshots[i].CumVolume - st.snapshots[i-1].CumVolume
		if d > 0 {
			deltas = append(deltas, d)
		}
	}
	if len(deltas)-1 < minPrevDeltas {
		return Detection{}
	}

	last := deltas[len(deltas)-1]
	var sum float64
	for _, d := range deltas[:len(deltas)-1] {
		sum += d
	}
	avg := sum / float64(len(deltas)-1)
	if avg <= 0 {
		return Detection{}
	}

	multiplier := last / avg
	if multiplier < threshold {
		return Detection{}
	}
	return Detection{Triggered: true, Value: round1(multiplier)}
}

// PriceRise returns the percent move from the oldest retained snapshot
// to the latest, and whether it is computable. Used by the volume-surge
// confirmation gate.
func (s *Store) PriceRise(code string) (float64, bool) {
	st, ok := s.states[code]
	if !ok || len(st.snapshots) < 2 {
		return 0, false
	}
	baseline := st.snapshots[0].Price
	if baseline <= 0 {
		return 0, false
	}
	latest := st.snapshots[len(st.snapshots)-1].Price
	return (latest - baseline) / baseline * 100, true
}

// RapidMove measures the percent change over the buffer's retained
// window: latest price against the oldest snapshot still held. An
// exact match of the threshold triggers.
func (s *Store) RapidMove(code string, threshold float64, dir Direction) Detection {
	st, ok := s.states[code]
	if !ok || len(st.snapshots) < 2 {
		return Detection{}
	}
	baseline := st.snapshots[0]
	if baseline.Price <= 0 {
		return Detection{}
	}
	latest := st.snapshots[len(st.snapshots)-1]
	pct := (latest.Price - baseline.Price) / baseline.Price * 100

	triggered := false
	if dir == Rise {
		triggered = pct >= threshold
	} else {
		triggered = pct <= -threshold
	}
	return Detection{Triggered: triggered, Value: round2(pct)}
}

// OpeningGap tests the day change against the rapid-move threshold
// once, on the first evaluation of an instrument, so a gap already
// beyond the threshold at open still fires.
func (s *Store) OpeningGap(code string, q model.Quote, threshold float64, dir Direction) Detection {
	st, ok := s.states[code]
	if !ok || st.openChecked {
		return Detection{}
	}
	if q.PreClose <= 0 {
		return Detection{}
	}
	pct := q.Pct()

	triggered := false
	if dir == Rise {
		triggered = pct >= threshold
	} else {
		triggered = pct <= -threshold
	}
	return Detection{Triggered: triggered, Value: round2(pct)}
}

// IsSpecialTreatment reports whether the instrument name marks an
// ST/*ST stock. The check is case-sensitive on purpose: real feeds
// deliver the marker uppercase.
func IsSpecialTreatment(name string) bool {
	return strings.Contains(name, "ST")
}

// LimitPrice computes the daily limit-up price from the previous
// close, rounded half-up to the cent. ST stocks cap at 5%, others at
// 10%.
func LimitPrice(preClose float64, special bool) float64 {
	pct := 0.10
	if special {
		pct = 0.05
	}
	return round2(preClose * (1 + pct))
}

// LimitTransitions evaluates the limit-up state machine for one tick.
// limitUp fires only on the first tick at the limit price; limitOpen
// only on the first tick back below it after a limit-up. The retained
// state is updated unconditionally, regardless of cooldown, so a
// suppressed alert never replays on a later tick.
func (s *Store) LimitTransitions(code string, q model.Quote) (limitUp, limitOpen bool, limitPrice float64) {
	if q.PreClose <= 0 {
		return false, false, 0
	}
	st := s.state(code)
	limitPrice = LimitPrice(q.PreClose, IsSpecialTreatment(q.Name))
	isLimitUp := q.Price >= limitPrice

	limitUp = isLimitUp && !st.wasLimitUp
	limitOpen = !isLimitUp && st.wasLimitUp
	st.wasLimitUp = isLimitUp
	return limitUp, limitOpen, limitPrice
}

// GroupAvgPct averages the day change over category members with a
// valid previous close. Members without one are excluded, not counted
// as zero. The second return is false when no member qualifies.
func GroupAvgPct(quotes map[string]model.Quote, codes []string) (float64, bool) {
	var sum float64
	var n int
	for _, code := range codes {
		q, ok := quotes[code]
		if !ok || q.PreClose <= 0 {
			continue
		}
		sum += q.Pct()
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// AlphaLead triggers when the stock outruns its group average by at
// least threshold points while itself being up on the day. A stock
// that is merely less negative than its peers never triggers.
func AlphaLead(stockPct, groupAvgPct, threshold float64) Detection {
	alpha := stockPct - groupAvgPct
	if alpha >= threshold && stockPct > 0 {
		return Detection{Triggered: true, Value: round2(alpha)}
	}
	return Detection{Value: round2(alpha)}
}
