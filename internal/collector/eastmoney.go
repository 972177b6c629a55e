package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"StockSentry/internal/model"
)

const defaultEastmoneyBaseURL = "https://push2.eastmoney.com"

// tickWindow is the number of recent trades used for the active-buy
// ratio.
const tickWindow = 30

// EastmoneyFetcher implements Fetcher and TickFetcher against the
// Eastmoney push2 quote API.
type EastmoneyFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewEastmoneyFetcher creates a fetcher with optional proxy support.
// An empty baseURL selects the public endpoint.
func NewEastmoneyFetcher(baseURL, proxyURL string) *EastmoneyFetcher {
	if baseURL == "" {
		baseURL = defaultEastmoneyBaseURL
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &EastmoneyFetcher{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: transport,
		},
	}
}

func (f *EastmoneyFetcher) Name() string { return "eastmoney" }

// secID converts a prefixed code to Eastmoney's "market.symbol" form
// (sh → 1, sz → 0).
func secID(code string) string {
	market := "0"
	if strings.HasPrefix(code, "sh") {
		market = "1"
	}
	return market + "." + strings.TrimPrefix(strings.TrimPrefix(code, "sh"), "sz")
}

// FetchQuotes pulls the whole watch list in one ulist.np batch call.
func (f *EastmoneyFetcher) FetchQuotes(ctx context.Context, codes []string) (map[string]model.Quote, error) {
	if len(codes) == 0 {
		return map[string]model.Quote{}, nil
	}

	secids := make([]string, 0, len(codes))
	for _, code := range codes {
		secids = append(secids, secID(code))
	}
	params := url.Values{
		"fltt": {"2"},
		"invt": {"2"},
		// f2 price, f18 preClose, f17 open, f15 high, f16 low,
		// f5 volume (lots), f6 amount, f14 name, f12 symbol, f13 market
		"fields": {"f12,f13,f14,f2,f5,f6,f15,f16,f17,f18"},
		"secids": {strings.Join(secids, ",")},
	}
	endpoint := f.BaseURL + "/api/qt/ulist.np/get?" + params.Encode()

	var payload struct {
		Data struct {
			Diff []map[string]any `json:"diff"`
		} `json:"data"`
	}
	if err := f.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("fetch quotes: %w", err)
	}

	quotes := make(map[string]model.Quote, len(payload.Data.Diff))
	for _, item := range payload.Data.Diff {
		symbol := stringField(item, "f12")
		if symbol == "" {
			continue
		}
		prefix := "sz"
		if floatField(item, "f13") == 1 {
			prefix = "sh"
		}
		code := prefix + symbol
		quotes[code] = model.Quote{
			Code:      code,
			Name:      stringField(item, "f14"),
			Price:     floatField(item, "f2"),
			PreClose:  floatField(item, "f18"),
			Open:      floatField(item, "f17"),
			High:      floatField(item, "f15"),
			Low:       floatField(item, "f16"),
			CumVolume: floatField(item, "f5"),
			Amount:    floatField(item, "f6"),
		}
	}
	return quotes, nil
}

// ActiveBuyRatio computes the buy-side share over the last tickWindow
// trades. Neutral trades are excluded from both sides.
func (f *EastmoneyFetcher) ActiveBuyRatio(ctx context.Context, code string) (float64, bool, error) {
	params := url.Values{
		"fields1": {"f1,f2,f3,f4"},
		"fields2": {"f51,f52,f53,f54,f55"},
		"pos":     {fmt.Sprintf("-%d", tickWindow)},
		"secid":   {secID(code)},
	}
	endpoint := f.BaseURL + "/api/qt/stock/details/get?" + params.Encode()

	var payload struct {
		RC   int `json:"rc"`
		Data struct {
			Details []string `json:"details"`
		} `json:"data"`
	}
	if err := f.getJSON(ctx, endpoint, &payload); err != nil {
		return 0, false, fmt.Errorf("fetch ticks: %w", err)
	}
	if payload.RC != 0 || len(payload.Data.Details) == 0 {
		return 0, false, nil
	}

	var buyVol, sellVol float64
	for _, detail := range payload.Data.Details {
		// "time,price,volume,count,direction"; direction 2=buy, 1=sell, 4=neutral
		parts := strings.Split(detail, ",")
		if len(parts) < 5 {
			continue
		}
		vol, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			continue
		}
		switch parts[4] {
		case "2":
			buyVol += vol
		case "1":
			sellVol += vol
		}
	}
	total := buyVol + sellVol
	if total <= 0 {
		return 0, false, nil
	}
	return buyVol / total, true, nil
}

func (f *EastmoneyFetcher) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// The vendor delivers numeric fields as numbers but falls back to "-"
// for suspended instruments, so extraction tolerates both.

func floatField(item map[string]any, key string) float64 {
	switch v := item[key].(type) {
	case float64:
		return v
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func stringField(item map[string]any, key string) string {
	s, _ := item[key].(string)
	return s
}
