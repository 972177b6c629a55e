package engine

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"StockSentry/internal/model"
)

func groupStrategy(kinds ...model.AlertKind) *model.GroupAlertStrategy {
	return &model.GroupAlertStrategy{
		Base: model.Base{
			ID: "g1", Name: "银行板块异动", Kind: model.KindGroupAlert,
			Status: model.StatusRunning, Enabled: true,
		},
		CategoryID:   "cat1",
		CategoryName: "银行",
		AlertKinds:   kinds,
	}
}

func TestVolumeSurgeCooldownWindow(t *testing.T) {
	s := groupStrategy(model.AlertVolumeSurge)
	resolve := func(string) []string { return []string{"sz000001"} }
	eng, ms, fn := newTestEngine(t, []model.Strategy{s}, resolve, nil)

	base := time.Date(2024, 6, 4, 10, 0, 0, 0, time.Local)
	feed := func(offset time.Duration, vol float64) {
		eng.OnQuotes(context.Background(), base.Add(offset), map[string]model.Quote{
			"sz000001": {Code: "sz000001", Name: "平安银行", Price: 10, PreClose: 9.5, CumVolume: vol},
		})
	}

	// Seven steady readings, deltas of 100 lots each.
	for i := 0; i < 7; i++ {
		feed(time.Duration(i)*time.Second, 1000+float64(i)*100)
	}
	if fn.Count() != 0 {
		t.Fatalf("notifications before surge = %d, want 0", fn.Count())
	}

	// Delta of 300 against an average of 100 fires the first alert.
	feed(7*time.Second, 1900)
	if fn.Count() != 1 {
		t.Fatalf("notifications after surge = %d, want 1", fn.Count())
	}

	// Another surge 10s later is inside the 60s cooldown.
	feed(17*time.Second, 2200)
	if fn.Count() != 1 {
		t.Fatalf("notifications inside cooldown = %d, want 1", fn.Count())
	}

	// 71s after the first alert the cooldown has lapsed.
	feed(78*time.Second, 3000)
	if fn.Count() != 2 {
		t.Fatalf("notifications after cooldown = %d, want 2", fn.Count())
	}

	loaded, err := ms.LoadStrategies()
	if err != nil {
		t.Fatalf("load strategies: %v", err)
	}
	g := loaded[0].(*model.GroupAlertStrategy)
	if len(g.TriggeredStocks) != 2 {
		t.Errorf("triggered stocks = %d, want 2", len(g.TriggeredStocks))
	}
	if g.Status != model.StatusTriggered {
		t.Errorf("status = %s, want triggered", g.Status)
	}
	if g.LastCheckAt == 0 {
		t.Error("lastCheckTime not set")
	}
}

// scriptedChecker replays a status per call onto every remote strategy.
type scriptedChecker struct {
	statuses []model.StrategyStatus
	calls    int
}

func (c *scriptedChecker) CheckAll(_ context.Context, ss []model.Strategy) ([]model.Strategy, error) {
	status := c.statuses[c.calls]
	c.calls++
	for _, s := range ss {
		meta := s.Meta()
		if meta.Kind == model.KindPrice || meta.Kind == model.KindGroupAlert {
			continue
		}
		meta.Status = status
		if status == model.StatusTriggered {
			meta.TriggeredAt = model.Millis(time.Now())
		} else {
			meta.TriggeredAt = 0
		}
	}
	return ss, nil
}

func TestRemoteCheckNotifiesOncePerDay(t *testing.T) {
	remote, err := model.DecodeStrategy([]byte(`{
		"id": "r1", "name": "AH溢价监控", "type": "ah_premium",
		"status": "running", "enabled": true, "premium": 5.2
	}`))
	if err != nil {
		t.Fatalf("decode remote strategy: %v", err)
	}
	checker := &scriptedChecker{statuses: []model.StrategyStatus{
		model.StatusTriggered, // day 1: first trigger, notifies
		model.StatusRunning,   // day 1: recovers
		model.StatusTriggered, // day 1: re-trigger, deduped
		model.StatusRunning,   // day 2: recovers
		model.StatusTriggered, // day 2: fresh trigger, notifies again
	}}
	eng, _, fn := newTestEngine(t, []model.Strategy{remote}, nil, checker)

	day1 := time.Date(2024, 6, 4, 10, 0, 0, 0, time.Local)
	day2 := day1.Add(24 * time.Hour)
	ticks := []time.Time{day1, day1.Add(30 * time.Second), day1.Add(60 * time.Second), day2, day2.Add(30 * time.Second)}
	wantCounts := []int{1, 1, 1, 1, 2}

	for i, now := range ticks {
		eng.CheckRemote(context.Background(), now)
		if fn.Count() != wantCounts[i] {
			t.Fatalf("after tick %d notifications = %d, want %d", i, fn.Count(), wantCounts[i])
		}
	}
	if checker.calls != len(ticks) {
		t.Errorf("checker calls = %d, want %d", checker.calls, len(ticks))
	}
}

func TestRemoteCheckSkipsWithoutRemoteStrategies(t *testing.T) {
	s := &model.PriceAlertStrategy{
		Base: model.Base{
			ID: "p1", Name: "价格预警", Kind: model.KindPrice,
			Status: model.StatusRunning, Enabled: true,
		},
		Code:       "sh600519",
		Conditions: []model.PriceCondition{{Kind: "price", Operator: "above", Value: 1700}},
	}
	checker := &scriptedChecker{statuses: []model.StrategyStatus{model.StatusTriggered}}
	eng, _, _ := newTestEngine(t, []model.Strategy{s}, nil, checker)

	eng.CheckRemote(context.Background(), time.Date(2024, 6, 4, 10, 0, 0, 0, time.Local))
	if checker.calls != 0 {
		t.Errorf("checker calls = %d, want 0", checker.calls)
	}
}

// paddingChecker violates the service contract by returning one
// strategy too many.
type paddingChecker struct {
	calls int
}

func (c *paddingChecker) CheckAll(_ context.Context, ss []model.Strategy) ([]model.Strategy, error) {
	c.calls++
	extra, err := model.DecodeStrategy([]byte(`{"id":"x","type":"ah_premium","status":"triggered","enabled":true}`))
	if err != nil {
		return nil, err
	}
	return append(ss, extra), nil
}

func TestRemoteCheckRejectsLengthMismatch(t *testing.T) {
	remote, err := model.DecodeStrategy([]byte(`{
		"id": "r1", "name": "AH溢价监控", "type": "ah_premium",
		"status": "running", "enabled": true
	}`))
	if err != nil {
		t.Fatalf("decode remote strategy: %v", err)
	}
	checker := &paddingChecker{}
	eng, ms, fn := newTestEngine(t, []model.Strategy{remote}, nil, checker)

	eng.CheckRemote(context.Background(), time.Date(2024, 6, 4, 10, 0, 0, 0, time.Local))

	if checker.calls != 1 {
		t.Fatalf("checker calls = %d, want 1", checker.calls)
	}
	if fn.Count() != 0 {
		t.Errorf("notifications = %d, want 0", fn.Count())
	}
	loaded, err := ms.LoadStrategies()
	if err != nil {
		t.Fatalf("load strategies: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("persisted strategies = %d, want 1", len(loaded))
	}
	if loaded[0].Meta().Status != model.StatusRunning {
		t.Errorf("status = %s, want running", loaded[0].Meta().Status)
	}
}

// toggleChecker flips every remote strategy between running and
// triggered on successive calls.
type toggleChecker struct {
	flip bool
}

func (c *toggleChecker) CheckAll(_ context.Context, ss []model.Strategy) ([]model.Strategy, error) {
	c.flip = !c.flip
	status := model.StatusRunning
	if c.flip {
		status = model.StatusTriggered
	}
	for _, s := range ss {
		meta := s.Meta()
		if meta.Kind != model.KindPrice && meta.Kind != model.KindGroupAlert {
			meta.Status = status
		}
	}
	return ss, nil
}

func TestConcurrentDriversAndCommands(t *testing.T) {
	remote, err := model.DecodeStrategy([]byte(`{
		"id": "r1", "name": "AH溢价监控", "type": "ah_premium",
		"status": "running", "enabled": true
	}`))
	if err != nil {
		t.Fatalf("decode remote strategy: %v", err)
	}
	group := groupStrategy(model.AlertVolumeSurge, model.AlertRapidRise)
	resolve := func(string) []string { return []string{"sz000001"} }
	eng, _, _ := newTestEngine(t, []model.Strategy{group, remote}, resolve, &toggleChecker{})

	base := time.Date(2024, 6, 4, 10, 0, 0, 0, time.Local)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			eng.OnQuotes(context.Background(), base.Add(time.Duration(i)*time.Second), map[string]model.Quote{
				"sz000001": {Code: "sz000001", Name: "平安银行", Price: 10 + float64(i%5)*0.1, PreClose: 9.5, CumVolume: 1000 + float64(i)*100},
			})
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			eng.CheckRemote(context.Background(), base.Add(time.Duration(i)*time.Second))
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			switch i % 3 {
			case 0:
				eng.HandleCommand("交易中", "/status")
			case 1:
				eng.HandleCommand("交易中", "/alerts")
			default:
				eng.HandleCommand("交易中", "/reset")
			}
		}
	}()
	wg.Wait()

	if reply := eng.HandleCommand("交易中", "/status"); reply == "" {
		t.Error("empty status reply after concurrent run")
	}
}

func TestWatchedCodesUnion(t *testing.T) {
	price := &model.PriceAlertStrategy{
		Base: model.Base{ID: "p1", Kind: model.KindPrice, Status: model.StatusRunning, Enabled: true},
		Code: "sh600519",
	}
	group := groupStrategy(model.AlertRapidRise)
	resolve := func(string) []string { return []string{"sz000001", "sh600519"} }
	eng, _, _ := newTestEngine(t, []model.Strategy{price, group}, resolve, nil)

	codes := eng.WatchedCodes()
	want := []string{"sh600519", "sz000001"}
	if len(codes) != len(want) {
		t.Fatalf("codes = %v, want %v", codes, want)
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("codes = %v, want %v", codes, want)
		}
	}
}

func TestHandleCommands(t *testing.T) {
	s := groupStrategy(model.AlertVolumeSurge)
	eng, _, _ := newTestEngine(t, []model.Strategy{s}, func(string) []string { return []string{"sz000001"} }, nil)

	now := time.Date(2024, 6, 4, 10, 0, 0, 0, time.Local)
	eng.OnQuotes(context.Background(), now, map[string]model.Quote{
		"sz000001": {Code: "sz000001", Name: "平安银行", Price: 10, PreClose: 9.5, CumVolume: 1000},
	})

	status := eng.HandleCommand("交易中", "/status")
	if !strings.Contains(status, "跟踪标的: 1") {
		t.Errorf("status reply missing tracked count: %q", status)
	}
	if !strings.Contains(status, "运行中策略: 1") {
		t.Errorf("status reply missing running count: %q", status)
	}

	if got := eng.HandleCommand("交易中", "/alerts"); got != "暂无预警记录" {
		t.Errorf("alerts reply = %q", got)
	}

	if got := eng.HandleCommand("交易中", "/reset"); got != "监控状态已重置" {
		t.Errorf("reset reply = %q", got)
	}
	after := eng.HandleCommand("交易中", "/status")
	if !strings.Contains(after, "跟踪标的: 0") {
		t.Errorf("status after reset: %q", after)
	}
}
