package model

// Quote is a single real-time reading for one instrument, as delivered
// by the market-data feed. Percent change is derived by the engine from
// Price and PreClose, not taken from the feed.
type Quote struct {
	Code      string
	Name      string
	Price     float64
	PreClose  float64
	Open      float64
	High      float64
	Low       float64
	CumVolume float64 // cumulative volume since open, in lots
	Amount    float64 // cumulative turnover in yuan
}

// Pct returns the percent change relative to the previous close.
// A missing or non-positive preClose yields 0.
func (q Quote) Pct() float64 {
	if q.PreClose <= 0 {
		return 0
	}
	return (q.Price - q.PreClose) / q.PreClose * 100
}

// AlertKind identifies one group-alert detection algorithm.
type AlertKind string

const (
	AlertVolumeSurge AlertKind = "volume_surge"
	AlertRapidRise   AlertKind = "rapid_rise"
	AlertRapidFall   AlertKind = "rapid_fall"
	AlertLimitUp     AlertKind = "limit_up"
	AlertLimitOpen   AlertKind = "limit_open"
	AlertAlphaLead   AlertKind = "alpha_lead"
)

// AlertKindLabel returns the user-facing label for an alert kind.
func AlertKindLabel(k AlertKind) string {
	switch k {
	case AlertVolumeSurge:
		return "量能异动"
	case AlertRapidRise:
		return "快速拉升"
	case AlertRapidFall:
		return "快速下跌"
	case AlertLimitUp:
		return "封涨停"
	case AlertLimitOpen:
		return "涨停开板"
	case AlertAlphaLead:
		return "领涨异动"
	default:
		return string(k)
	}
}
