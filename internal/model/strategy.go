package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// StrategyStatus is the lifecycle state of a strategy.
type StrategyStatus string

const (
	StatusRunning   StrategyStatus = "running"
	StatusPaused    StrategyStatus = "paused"
	StatusTriggered StrategyStatus = "triggered"
)

// Strategy kinds handled natively by the engine. Every other kind
// (pair monitoring, AH premium, breakout patterns) is delegated to the
// external evaluation service and carried opaquely as a RemoteStrategy.
const (
	KindPrice      = "price"
	KindGroupAlert = "group_alert"
)

// StrategyTypeLabel returns the user-facing label for a strategy kind.
func StrategyTypeLabel(kind string) string {
	switch kind {
	case KindPrice:
		return "价格预警"
	case KindGroupAlert:
		return "分组异动"
	case "sector_arb":
		return "配对监控"
	case "ah_premium":
		return "AH溢价"
	case "fake_breakout":
		return "假突破"
	default:
		return kind
	}
}

// Base holds the fields shared by every strategy kind. Timestamps are
// Unix milliseconds, matching the persisted JSON format.
type Base struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Kind        string         `json:"type"`
	Status      StrategyStatus `json:"status"`
	Enabled     bool           `json:"enabled"`
	CreatedAt   int64          `json:"createdAt"`
	UpdatedAt   int64          `json:"updatedAt"`
	TriggeredAt int64          `json:"triggeredAt,omitempty"`
	Note        string         `json:"note,omitempty"`
}

// Strategy is the tagged union of all strategy kinds. Variants are
// dispatched by type switch once, at orchestration entry.
type Strategy interface {
	// Meta exposes the shared mutable fields.
	Meta() *Base
}

func (b *Base) Meta() *Base { return b }

// Millis converts a time to the Unix-millisecond representation used
// throughout strategy and history records.
func Millis(t time.Time) int64 { return t.UnixMilli() }

// PriceCondition is one threshold owned by a price-alert strategy.
// Once Triggered is set the engine never clears or re-fires it; only
// explicit user action (deleting or resetting the condition) does.
type PriceCondition struct {
	ID          string  `json:"id,omitempty"`
	Kind        string  `json:"type"`     // "price" or "pct"
	Operator    string  `json:"operator"` // "above" or "below"
	Value       float64 `json:"value"`
	Note        string  `json:"note,omitempty"`
	Triggered   bool    `json:"triggered,omitempty"`
	TriggeredAt int64   `json:"triggeredAt,omitempty"`
	Confirmed   bool    `json:"confirmed,omitempty"`
}

// PriceAlertStrategy watches a single instrument against a list of
// price or percent-change conditions.
type PriceAlertStrategy struct {
	Base
	Code       string           `json:"code"`
	StockName  string           `json:"stockName,omitempty"`
	Conditions []PriceCondition `json:"conditions"`
}

// TriggeredStock records one detection hit inside a group strategy.
type TriggeredStock struct {
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Kind        AlertKind `json:"alertType"`
	Value       float64   `json:"value"`
	Price       float64   `json:"price"`
	TriggeredAt int64     `json:"triggeredAt"`
}

// GroupAlertStrategy runs the detection algorithms over every member
// of a stock category.
type GroupAlertStrategy struct {
	Base
	CategoryID            string           `json:"categoryId"`
	CategoryName          string           `json:"categoryName,omitempty"`
	AlertKinds            []AlertKind      `json:"alertTypes"`
	VolumeSurgeMultiplier float64          `json:"volumeSurgeMultiplier,omitempty"`
	RapidRiseThreshold    float64          `json:"rapidRiseThreshold,omitempty"`
	RapidFallThreshold    float64          `json:"rapidFallThreshold,omitempty"`
	AlphaThreshold        float64          `json:"alphaThreshold,omitempty"`
	TriggeredStocks       []TriggeredStock `json:"triggeredStocks,omitempty"`
	LastCheckAt           int64            `json:"lastCheckTime,omitempty"`
}

// Watches reports whether the strategy has kind k enabled.
func (g *GroupAlertStrategy) Watches(k AlertKind) bool {
	for _, w := range g.AlertKinds {
		if w == k {
			return true
		}
	}
	return false
}

// RemoteStrategy carries a strategy kind the engine does not evaluate
// itself. The full payload round-trips untouched; only the Base fields
// are read or written locally.
type RemoteStrategy struct {
	Base
	raw map[string]json.RawMessage
}

// Float extracts a numeric field from the opaque payload, for
// notification bodies of known remote kinds.
func (r *RemoteStrategy) Float(key string) (float64, bool) {
	raw, ok := r.raw[key]
	if !ok {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	return v, true
}

func (r *RemoteStrategy) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &r.Base); err != nil {
		return err
	}
	return json.Unmarshal(data, &r.raw)
}

func (r *RemoteStrategy) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.raw)+8)
	for k, v := range r.raw {
		out[k] = v
	}
	// Base fields win over the captured payload.
	base, err := json.Marshal(&r.Base)
	if err != nil {
		return nil, err
	}
	var overlay map[string]json.RawMessage
	if err := json.Unmarshal(base, &overlay); err != nil {
		return nil, err
	}
	for k, v := range overlay {
		out[k] = v
	}
	if r.Base.TriggeredAt == 0 {
		delete(out, "triggeredAt")
	}
	return json.Marshal(out)
}

// DecodeStrategy parses one strategy from its JSON envelope, selecting
// the concrete type from the "type" tag.
func DecodeStrategy(data []byte) (Strategy, error) {
	var tag struct {
		Kind string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("decode strategy tag: %w", err)
	}
	switch tag.Kind {
	case KindPrice:
		s := &PriceAlertStrategy{}
		if err := json.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("decode price strategy: %w", err)
		}
		return s, nil
	case KindGroupAlert:
		s := &GroupAlertStrategy{}
		if err := json.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("decode group strategy: %w", err)
		}
		return s, nil
	default:
		s := &RemoteStrategy{}
		if err := json.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("decode remote strategy: %w", err)
		}
		return s, nil
	}
}

// DecodeStrategies parses a JSON array of strategy envelopes,
// preserving order.
func DecodeStrategies(data []byte) ([]Strategy, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode strategy list: %w", err)
	}
	out := make([]Strategy, 0, len(raws))
	for _, raw := range raws {
		s, err := DecodeStrategy(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// EncodeStrategies marshals strategies back to a JSON array in order.
func EncodeStrategies(ss []Strategy) ([]byte, error) {
	raws := make([]json.RawMessage, 0, len(ss))
	for _, s := range ss {
		data, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("encode strategy %s: %w", s.Meta().ID, err)
		}
		raws = append(raws, data)
	}
	return json.Marshal(raws)
}
