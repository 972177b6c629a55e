// Package checker calls the external strategy-evaluation service that
// handles strategy kinds the engine cannot evaluate from the live feed
// (pair monitoring, AH premium, breakout patterns).
package checker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"StockSentry/internal/model"
)

// Client is an HTTP client for the evaluation service. Timeouts are
// the service boundary's responsibility, so the client carries one;
// the orchestrator adds none of its own.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// NewClient creates a client with optional proxy support.
func NewClient(baseURL, apiKey, proxyURL string) *Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP: &http.Client{
			Timeout:   20 * time.Second,
			Transport: transport,
		},
	}
}

// CheckAll submits the full strategy list and returns the re-evaluated
// list in the same order. The service only changes the strategies it
// owns; the rest round-trip untouched.
func (c *Client) CheckAll(ctx context.Context, ss []model.Strategy) ([]model.Strategy, error) {
	encoded, err := model.EncodeStrategies(ss)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(map[string]json.RawMessage{"strategies": encoded})
	if err != nil {
		return nil, fmt.Errorf("encode check request: %w", err)
	}

	endpoint := c.BaseURL + "/api/v1/strategies/check"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create check request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("check strategies: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("check strategies: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var payload struct {
		Strategies json.RawMessage `json:"strategies"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode check response: %w", err)
	}
	updated, err := model.DecodeStrategies(payload.Strategies)
	if err != nil {
		return nil, err
	}
	if len(updated) != len(ss) {
		return nil, fmt.Errorf("check strategies: expected %d strategies back, got %d", len(ss), len(updated))
	}
	return updated, nil
}
