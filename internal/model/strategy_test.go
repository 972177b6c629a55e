package model

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestDecodeStrategyDispatch(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want any
	}{
		{
			name: "price",
			in:   `{"id":"p1","type":"price","status":"running","enabled":true,"code":"sh600519","conditions":[]}`,
			want: &PriceAlertStrategy{},
		},
		{
			name: "group",
			in:   `{"id":"g1","type":"group_alert","status":"running","enabled":true,"categoryId":"bank","alertTypes":["volume_surge"]}`,
			want: &GroupAlertStrategy{},
		},
		{
			name: "unknown kind falls back to remote",
			in:   `{"id":"r1","type":"fake_breakout","status":"running","enabled":true}`,
			want: &RemoteStrategy{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := DecodeStrategy([]byte(tc.in))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			switch tc.want.(type) {
			case *PriceAlertStrategy:
				if _, ok := s.(*PriceAlertStrategy); !ok {
					t.Errorf("got %T, want *PriceAlertStrategy", s)
				}
			case *GroupAlertStrategy:
				if _, ok := s.(*GroupAlertStrategy); !ok {
					t.Errorf("got %T, want *GroupAlertStrategy", s)
				}
			case *RemoteStrategy:
				if _, ok := s.(*RemoteStrategy); !ok {
					t.Errorf("got %T, want *RemoteStrategy", s)
				}
			}
		})
	}
}

func TestRemoteStrategyRoundTripPreservesUnknownFields(t *testing.T) {
	in := []byte(`{
		"id": "r1", "name": "AH溢价", "type": "ah_premium",
		"status": "running", "enabled": true,
		"premium": 5.2, "hShare": "00939", "aShare": "sh601939"
	}`)
	s, err := DecodeStrategy(in)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	r := s.(*RemoteStrategy)

	if v, ok := r.Float("premium"); !ok || v != 5.2 {
		t.Errorf("Float(premium) = %v, %v", v, ok)
	}
	if _, ok := r.Float("hShare"); ok {
		t.Error("Float(hShare) should fail on a string field")
	}

	// Mutate only the shared fields, as the engine does.
	r.Status = StatusTriggered
	r.TriggeredAt = 1717470000000

	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("unmarshal round trip: %v", err)
	}
	if got["hShare"] != "00939" || got["aShare"] != "sh601939" {
		t.Errorf("opaque fields lost: %v", got)
	}
	if got["status"] != "triggered" {
		t.Errorf("status = %v, want triggered", got["status"])
	}
	if got["premium"] != 5.2 {
		t.Errorf("premium = %v, want 5.2", got["premium"])
	}
}

func TestRemoteStrategyMarshalOmitsZeroTriggeredAt(t *testing.T) {
	s, err := DecodeStrategy([]byte(`{"id":"r1","type":"ah_premium","status":"running","enabled":true,"triggeredAt":123}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	r := s.(*RemoteStrategy)
	r.TriggeredAt = 0

	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if bytes.Contains(out, []byte("triggeredAt")) {
		t.Errorf("triggeredAt should be dropped when cleared: %s", out)
	}
}

func TestEncodeStrategiesPreservesOrder(t *testing.T) {
	ss := []Strategy{
		&PriceAlertStrategy{Base: Base{ID: "a", Kind: KindPrice, Status: StatusRunning}},
		&GroupAlertStrategy{Base: Base{ID: "b", Kind: KindGroupAlert, Status: StatusRunning}},
		&PriceAlertStrategy{Base: Base{ID: "c", Kind: KindPrice, Status: StatusPaused}},
	}
	data, err := EncodeStrategies(ss)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := DecodeStrategies(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(back) != 3 {
		t.Fatalf("decoded %d strategies, want 3", len(back))
	}
	for i, want := range []string{"a", "b", "c"} {
		if back[i].Meta().ID != want {
			t.Errorf("order lost at %d: got %s, want %s", i, back[i].Meta().ID, want)
		}
	}
}
