package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"StockSentry/internal/calendar"
	"StockSentry/internal/collector"
)

// Runner drives the engine's two loops on cron schedules: the quote
// poll feeding the reactive pass, and the periodic remote evaluation.
type Runner struct {
	Cron    *cron.Cron
	Engine  *Engine
	Fetcher collector.Fetcher
	Ctx     context.Context
}

// NewRunner creates a runner around an engine and its quote source.
func NewRunner(ctx context.Context, eng *Engine, f collector.Fetcher) *Runner {
	return &Runner{
		Cron:    cron.New(cron.WithSeconds()),
		Engine:  eng,
		Fetcher: f,
		Ctx:     ctx,
	}
}

// Register installs both loops. Intervals are in seconds.
func (r *Runner) Register(quotePollSec, checkIntervalSec int) error {
	if _, err := r.Cron.AddFunc(fmt.Sprintf("@every %ds", quotePollSec), r.pollQuotes); err != nil {
		return fmt.Errorf("register quote poll: %w", err)
	}
	if _, err := r.Cron.AddFunc(fmt.Sprintf("@every %ds", checkIntervalSec), r.checkStrategies); err != nil {
		return fmt.Errorf("register strategy check: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (r *Runner) Start() {
	r.Cron.Start()
	log.Println("[INFO] runner started")
}

// Stop stops the cron scheduler gracefully.
func (r *Runner) Stop() {
	r.Cron.Stop()
	log.Println("[INFO] runner stopped")
}

func (r *Runner) pollQuotes() {
	now := time.Now()
	if !calendar.IsMarketOpen(now) {
		return
	}
	codes := r.Engine.WatchedCodes()
	if len(codes) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(r.Ctx, 10*time.Second)
	defer cancel()

	quotes, err := r.Fetcher.FetchQuotes(ctx, codes)
	if err != nil {
		log.Printf("[ERROR] fetch quotes from %s: %v", r.Fetcher.Name(), err)
		return
	}
	r.Engine.OnQuotes(ctx, now, quotes)
}

func (r *Runner) checkStrategies() {
	ctx, cancel := context.WithTimeout(r.Ctx, 25*time.Second)
	defer cancel()
	r.Engine.CheckRemote(ctx, time.Now())
}
