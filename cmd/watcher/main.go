package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"StockSentry/internal/calendar"
	"StockSentry/internal/checker"
	"StockSentry/internal/collector"
	"StockSentry/internal/config"
	"StockSentry/internal/engine"
	"StockSentry/internal/monitor"
	"StockSentry/internal/notifier"
	"StockSentry/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] StockSentry starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init quote fetcher
	fetcher := collector.NewEastmoneyFetcher(cfg.Feed.BaseURL, cfg.Proxy)
	log.Printf("[INFO] quote feed: %s", fetcher.Name())

	// Init Telegram notifier
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)

	// Init store
	var st store.Store
	if cfg.Database.SQLitePath != "" {
		ss, err := store.NewSQLiteStore(cfg.Database.SQLitePath, cfg.Monitor.HistoryCap, nil)
		if err != nil {
			log.Printf("[WARN] init sqlite store failed, using memory: %v", err)
			st = store.NewMemoryStore(cfg.Monitor.HistoryCap, nil)
		} else {
			st = ss
			defer ss.Close()
		}
	} else {
		st = store.NewMemoryStore(cfg.Monitor.HistoryCap, nil)
	}

	// Category membership from config
	categories := make(map[string][]string, len(cfg.Categories))
	for _, c := range cfg.Categories {
		codes := make([]string, 0, len(c.Codes))
		for _, code := range c.Codes {
			codes = append(codes, collector.NormalizeCode(code))
		}
		categories[c.ID] = codes
	}
	resolve := func(categoryID string) []string { return categories[categoryID] }

	// Optional external evaluation service
	var chk engine.Checker
	if cfg.Eval.BaseURL != "" {
		chk = checker.NewClient(cfg.Eval.BaseURL, cfg.Eval.APIKey, cfg.Proxy)
		log.Println("[INFO] external strategy evaluation enabled")
	}

	eng := engine.New(engine.Options{
		Store:      st,
		Monitor:    monitor.NewStore(cfg.Monitor.SnapshotCap, time.Duration(cfg.Monitor.CooldownSec)*time.Second),
		Notifier:   tn,
		Checker:    chk,
		Ticks:      fetcher,
		Resolve:    resolve,
		MarketOpen: calendar.IsMarketOpen,
		Config: engine.Config{
			VolumeSurgeConfirm: cfg.Monitor.VolumeSurgeConfirm,
			SurgeMultiplier:    cfg.Monitor.VolumeSurgeMult,
			RapidThreshold:     cfg.Monitor.RapidMoveThreshold,
			AlphaThreshold:     cfg.Monitor.AlphaThreshold,
		},
	})

	eng.Broadcast().Subscribe(func() {
		log.Println("[INFO] strategy state changed")
	})

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init runner
	runner := engine.NewRunner(ctx, eng, fetcher)
	if err := runner.Register(cfg.Monitor.QuotePollSec, cfg.Monitor.CheckIntervalSec); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	runner.Start()
	defer runner.Stop()

	// Start Telegram polling
	go tn.StartPolling(ctx, func(command string) string {
		return eng.HandleCommand(calendar.StatusText(time.Now()), command)
	})
	log.Println("[INFO] Telegram polling started")

	log.Println("[INFO] StockSentry is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] StockSentry stopped")
}
