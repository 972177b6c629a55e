// Package collector adapts the market-data vendor into the feed
// contract the engine consumes.
package collector

import (
	"context"
	"strings"

	"StockSentry/internal/model"
)

// Fetcher supplies real-time quotes for a batch of instrument codes.
type Fetcher interface {
	Name() string
	FetchQuotes(ctx context.Context, codes []string) (map[string]model.Quote, error)
}

// TickFetcher supplies the instantaneous active-buy ratio over the
// most recent trades, used by the volume-surge confirmation stage.
type TickFetcher interface {
	// ActiveBuyRatio returns buyVolume/(buyVolume+sellVolume) over the
	// recent tick window. ok is false when the vendor has no usable
	// tick data for the code.
	ActiveBuyRatio(ctx context.Context, code string) (ratio float64, ok bool, err error)
}

// NormalizeCode canonicalizes a user-entered instrument code to the
// prefixed form (sh600519, sz000001).
func NormalizeCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexByte(code, '.'); i >= 0 {
		// "600519.SH" style
		return code[i+1:] + code[:i]
	}
	if strings.HasPrefix(code, "sh") || strings.HasPrefix(code, "sz") {
		return code
	}
	if strings.HasPrefix(code, "6") || code == "000300" {
		return "sh" + code
	}
	return "sz" + code
}
