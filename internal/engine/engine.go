// Package engine orchestrates the monitoring passes: the reactive
// pass runs on every fresh quote batch, the periodic pass delegates
// remote strategy kinds to the external evaluation service. Cron fires
// each activation on its own goroutine and the command surface runs on
// the Telegram polling goroutine, so one mutex serializes every
// touch of the monitor state and the notified-key set. The periodic
// pass releases it while awaiting the evaluation service; strategy
// state therefore interleaves only at pass boundaries.
package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"StockSentry/internal/calendar"
	"StockSentry/internal/collector"
	"StockSentry/internal/model"
	"StockSentry/internal/monitor"
	"StockSentry/internal/notifier"
	"StockSentry/internal/store"
)

// Default thresholds applied when a group strategy leaves one unset.
const (
	defaultSurgeMultiplier = 2.0
	defaultRapidThreshold  = 1.0
	defaultAlphaThreshold  = 2.0
)

// Volume-surge confirmation gates (enabled via Config).
const (
	surgeMinPriceRise = 0.3  // percent rise over the buffer window
	surgeMinBuyRatio  = 0.70 // active-buy share of recent ticks
)

// CategoryResolver maps a category ID to its member instrument codes.
type CategoryResolver func(categoryID string) []string

// Checker evaluates the strategy kinds the engine does not handle
// natively.
type Checker interface {
	CheckAll(ctx context.Context, ss []model.Strategy) ([]model.Strategy, error)
}

// Config carries the engine's tunables. Zero-valued thresholds fall
// back to the package defaults; strategies may still override them
// individually.
type Config struct {
	// VolumeSurgeConfirm enables the two-stage surge check: a price
	// rise over the buffer window plus an active-buy-ratio probe.
	VolumeSurgeConfirm bool
	SurgeMultiplier    float64
	RapidThreshold     float64
	AlphaThreshold     float64
}

// Options wires the engine's collaborators. Store, Monitor, Notifier
// and Resolve are required; Checker and Ticks may be nil, disabling
// the periodic remote pass and surge confirmation respectively.
// MarketOpen defaults to the trading-calendar predicate.
type Options struct {
	Store      store.Store
	Monitor    *monitor.Store
	Notifier   notifier.Notifier
	Checker    Checker
	Ticks      collector.TickFetcher
	Resolve    CategoryResolver
	MarketOpen func(time.Time) bool
	Config     Config
}

// Engine runs the detection passes and decides notification and
// persistence.
type Engine struct {
	store      store.Store
	mon        *monitor.Store
	notifier   notifier.Notifier
	checker    Checker
	ticks      collector.TickFetcher
	resolve    CategoryResolver
	marketOpen func(time.Time) bool
	cfg        Config
	broadcast  *Broadcaster

	// mu guards mon and notified across the cron and command
	// goroutines; checking additionally lets an overlapping periodic
	// tick be skipped instead of queued behind the network call.
	mu       sync.Mutex
	notified *dailySet
	checking atomic.Bool
}

// New creates an engine.
func New(opts Options) *Engine {
	if opts.MarketOpen == nil {
		opts.MarketOpen = calendar.IsMarketOpen
	}
	return &Engine{
		store:      opts.Store,
		mon:        opts.Monitor,
		notifier:   opts.Notifier,
		checker:    opts.Checker,
		ticks:      opts.Ticks,
		resolve:    opts.Resolve,
		marketOpen: opts.MarketOpen,
		cfg:        opts.Config,
		broadcast:  &Broadcaster{},
		notified:   newDailySet(time.Now()),
	}
}

// Broadcast exposes the change-event stream for presentation layers.
func (e *Engine) Broadcast() *Broadcaster { return e.broadcast }

// ResetMonitoring drops all rolling per-instrument state.
func (e *Engine) ResetMonitoring() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mon.Reset()
}

// WatchedCodes returns the sorted union of all instruments referenced
// by enabled price and group strategies.
func (e *Engine) WatchedCodes() []string {
	strategies, err := e.store.LoadStrategies()
	if err != nil {
		log.Printf("[ERROR] load strategies: %v", err)
		return nil
	}

	set := make(map[string]struct{})
	for _, st := range strategies {
		if !st.Meta().Enabled {
			continue
		}
		switch s := st.(type) {
		case *model.PriceAlertStrategy:
			set[s.Code] = struct{}{}
		case *model.GroupAlertStrategy:
			for _, code := range e.resolve(s.CategoryID) {
				set[code] = struct{}{}
			}
		}
	}

	codes := make([]string, 0, len(set))
	for code := range set {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// OnQuotes is the reactive driver: it records snapshots for every
// quoted instrument, evaluates price conditions and group detections,
// and persists only when some strategy state actually changed.
func (e *Engine) OnQuotes(ctx context.Context, now time.Time, quotes map[string]model.Quote) {
	if len(quotes) == 0 || !e.marketOpen(now) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notified.resetIfNewDay(now)

	strategies, err := e.store.LoadStrategies()
	if err != nil {
		log.Printf("[ERROR] load strategies: %v", err)
		return
	}
	if len(strategies) == 0 {
		return
	}

	for code, q := range quotes {
		e.mon.Record(code, q.Price, q.CumVolume, q.Pct(), now)
	}

	changed := false
	for _, st := range strategies {
		if !st.Meta().Enabled {
			continue
		}
		switch s := st.(type) {
		case *model.PriceAlertStrategy:
			if e.evalPriceStrategy(s, quotes, now) {
				changed = true
			}
		case *model.GroupAlertStrategy:
			if e.evalGroupStrategy(ctx, s, quotes, now) {
				changed = true
			}
		}
	}

	// Latch the one-shot opening-gap check for everything seen this
	// pass, after every strategy had its first look.
	for code := range quotes {
		if !e.mon.OpenChecked(code) {
			e.mon.MarkOpenChecked(code)
		}
	}

	// Trigger state changes only; LastCheckAt alone is not worth a
	// write every poll, it persists alongside the next real change.
	if changed {
		if err := e.store.SaveStrategies(strategies, true); err != nil {
			log.Printf("[ERROR] save strategies: %v", err)
			return
		}
		e.broadcast.Notify()
	}
}

// CheckRemote is the periodic driver: it hands the strategy list to
// the external evaluation service and reacts to status transitions. An
// overlapping tick (previous call still awaiting the service) is
// skipped outright.
func (e *Engine) CheckRemote(ctx context.Context, now time.Time) {
	if e.checker == nil {
		return
	}
	if !e.checking.CompareAndSwap(false, true) {
		log.Println("[WARN] strategy check still in flight, skipping tick")
		return
	}
	defer e.checking.Store(false)

	if !e.marketOpen(now) {
		return
	}
	e.mu.Lock()
	e.notified.resetIfNewDay(now)
	e.mu.Unlock()

	strategies, err := e.store.LoadStrategies()
	if err != nil {
		log.Printf("[ERROR] load strategies: %v", err)
		return
	}
	if !hasRemote(strategies) {
		return
	}

	// Snapshot the trigger state before the call; the service client
	// may mutate the passed strategies and hand the same objects back,
	// which would hide every transition from a pointer-based diff.
	type prior struct {
		status      model.StrategyStatus
		triggeredAt int64
	}
	before := make([]prior, len(strategies))
	for i, s := range strategies {
		meta := s.Meta()
		before[i] = prior{meta.Status, meta.TriggeredAt}
	}

	// Network call runs outside the lock so the reactive pass keeps
	// flowing while this tick awaits the service.
	updated, err := e.checker.CheckAll(ctx, strategies)
	if err != nil {
		log.Printf("[ERROR] strategy check: %v", err)
		return
	}
	if len(updated) != len(strategies) {
		log.Printf("[ERROR] strategy check: expected %d strategies back, got %d", len(strategies), len(updated))
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	changed := false
	for i, s := range updated {
		meta, old := s.Meta(), before[i]

		if meta.Status == model.StatusTriggered && old.status != model.StatusTriggered {
			if e.notified.claim(meta.ID) {
				title, body := notifier.FormatRemoteTrigger(s)
				e.send(title, body)
				e.appendHistory(model.AlertHistoryItem{
					ID:          uuid.NewString(),
					Kind:        meta.Kind,
					Title:       title,
					Description: body,
					Timestamp:   model.Millis(now),
				})
			}
		}
		if meta.Status != old.status || meta.TriggeredAt != old.triggeredAt {
			changed = true
		}
	}

	if changed {
		if err := e.store.SaveStrategies(updated, true); err != nil {
			log.Printf("[ERROR] save strategies: %v", err)
			return
		}
		e.broadcast.Notify()
	}
}

func hasRemote(ss []model.Strategy) bool {
	for _, s := range ss {
		meta := s.Meta()
		if !meta.Enabled {
			continue
		}
		if meta.Kind != model.KindPrice && meta.Kind != model.KindGroupAlert {
			return true
		}
	}
	return false
}

// HandleCommand serves the Telegram command surface. marketStatus is
// the current human-readable calendar phase.
func (e *Engine) HandleCommand(marketStatus, command string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch command {
	case "/status", "查看状态":
		running, triggered := e.strategyCounts()
		return notifier.FormatStatus(marketStatus, e.mon.Tracked(), running, triggered)
	case "/alerts", "最近预警":
		items, err := e.store.History(10)
		if err != nil {
			return fmt.Sprintf("读取预警记录失败: %v", err)
		}
		return notifier.FormatHistory(items)
	case "/reset", "重置监控":
		e.mon.Reset()
		return "监控状态已重置"
	default:
		return "可用命令:\n• /status 查看状态\n• /alerts 最近预警\n• /reset 重置监控"
	}
}

func (e *Engine) strategyCounts() (running, triggered int) {
	strategies, err := e.store.LoadStrategies()
	if err != nil {
		return 0, 0
	}
	for _, s := range strategies {
		switch s.Meta().Status {
		case model.StatusRunning:
			running++
		case model.StatusTriggered:
			triggered++
		}
	}
	return running, triggered
}

func (e *Engine) send(title, body string) {
	if err := e.notifier.Notify(title, body); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}

func (e *Engine) appendHistory(item model.AlertHistoryItem) {
	if err := e.store.AppendHistory(item); err != nil {
		log.Printf("[ERROR] append alert history: %v", err)
	}
}
