package calendar

import (
	"testing"
	"time"
)

// 2024-06-04 is a Tuesday.
func at(hour, min int) time.Time {
	return time.Date(2024, 6, 4, hour, min, 0, 0, time.Local)
}

func TestMarketStatus_Weekday(t *testing.T) {
	tests := []struct {
		hour, min int
		want      Status
	}{
		{9, 0, StatusClosed},
		{9, 15, StatusPreAuction},
		{9, 24, StatusPreAuction},
		{9, 25, StatusPreOpen},
		{9, 30, StatusTrading},
		{11, 30, StatusTrading},
		{11, 31, StatusLunch},
		{12, 59, StatusLunch},
		{13, 0, StatusTrading},
		{15, 0, StatusTrading},
		{15, 1, StatusPostClose},
		{15, 30, StatusPostClose},
		{15, 31, StatusClosed},
		{20, 0, StatusClosed},
	}
	for _, tt := range tests {
		got := MarketStatus(at(tt.hour, tt.min))
		if got != tt.want {
			t.Errorf("%02d:%02d: expected %s, got %s", tt.hour, tt.min, tt.want, got)
		}
	}
}

func TestMarketStatus_Weekend(t *testing.T) {
	sat := time.Date(2024, 6, 8, 10, 0, 0, 0, time.Local)
	if got := MarketStatus(sat); got != StatusClosed {
		t.Errorf("expected closed on Saturday, got %s", got)
	}
	if IsMarketOpen(sat) {
		t.Error("market must not be open on Saturday")
	}
}

func TestIsMarketOpen(t *testing.T) {
	if !IsMarketOpen(at(10, 0)) {
		t.Error("expected open at 10:00 on a weekday")
	}
	if IsMarketOpen(at(12, 0)) {
		t.Error("expected closed during lunch break")
	}
}
