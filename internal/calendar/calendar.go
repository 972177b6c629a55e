// Package calendar implements the A-share trading-session predicate.
// All functions are pure over the supplied wall-clock time; holidays
// are not modelled, only weekends and intraday sessions.
package calendar

import "time"

// Status is the coarse A-share market phase.
type Status string

const (
	StatusClosed     Status = "closed"      // weekend or outside all sessions
	StatusPreAuction Status = "pre-auction" // 9:15-9:25 call auction
	StatusPreOpen    Status = "pre-open"    // 9:25-9:30 auction result display
	StatusTrading    Status = "trading"     // 9:30-11:30, 13:00-15:00
	StatusLunch      Status = "lunch"       // 11:30-13:00
	StatusPostClose  Status = "post-close"  // 15:00-15:30
)

// Session breakpoints in minutes from midnight.
const (
	preAuctionStart = 9*60 + 15
	preAuctionEnd   = 9*60 + 25
	preOpenEnd      = 9*60 + 30
	morningEnd      = 11*60 + 30
	afternoonStart  = 13 * 60
	afternoonEnd    = 15 * 60
	postCloseEnd    = 15*60 + 30
)

// MarketStatus returns the market phase at time t (local time).
func MarketStatus(t time.Time) Status {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return StatusClosed
	}

	m := t.Hour()*60 + t.Minute()
	switch {
	case m >= preAuctionStart && m < preAuctionEnd:
		return StatusPreAuction
	case m >= preAuctionEnd && m < preOpenEnd:
		return StatusPreOpen
	case m >= preOpenEnd && m <= morningEnd:
		return StatusTrading
	case m > morningEnd && m < afternoonStart:
		return StatusLunch
	case m >= afternoonStart && m <= afternoonEnd:
		return StatusTrading
	case m > afternoonEnd && m <= postCloseEnd:
		return StatusPostClose
	default:
		return StatusClosed
	}
}

// IsMarketOpen reports whether continuous trading is in progress at t.
func IsMarketOpen(t time.Time) bool {
	return MarketStatus(t) == StatusTrading
}

// StatusText returns the display text for the market phase at t.
func StatusText(t time.Time) string {
	switch MarketStatus(t) {
	case StatusPreAuction:
		return "集合竞价"
	case StatusPreOpen:
		return "等待开盘"
	case StatusTrading:
		return "交易中"
	case StatusLunch:
		return "午间休市"
	case StatusPostClose:
		return "已收盘"
	default:
		return "休市"
	}
}
