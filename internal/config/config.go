package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Feed struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"feed"`
	Eval struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"eval"`
	Monitor struct {
		QuotePollSec       int     `yaml:"quote_poll_sec"`
		CheckIntervalSec   int     `yaml:"check_interval_sec"`
		CooldownSec        int     `yaml:"cooldown_sec"`
		SnapshotCap        int     `yaml:"snapshot_cap"`
		HistoryCap         int     `yaml:"history_cap"`
		VolumeSurgeConfirm bool    `yaml:"volume_surge_confirm"`
		VolumeSurgeMult    float64 `yaml:"volume_surge_multiplier"`
		RapidMoveThreshold float64 `yaml:"rapid_move_threshold"`
		AlphaThreshold     float64 `yaml:"alpha_threshold"`
	} `yaml:"monitor"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Categories []Category `yaml:"categories"`
	Proxy      string     `yaml:"proxy"`
}

// Category is one named watchlist group referenced by group strategies.
type Category struct {
	ID    string   `yaml:"id"`
	Name  string   `yaml:"name"`
	Codes []string `yaml:"codes"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("EASTMONEY_BASE_URL"); v != "" {
		cfg.Feed.BaseURL = v
	}
	if v := os.Getenv("EVAL_BASE_URL"); v != "" {
		cfg.Eval.BaseURL = v
	}
	if v := os.Getenv("EVAL_API_KEY"); v != "" {
		cfg.Eval.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("CHECK_INTERVAL"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil {
			cfg.Monitor.CheckIntervalSec = sec
		}
	}

	// Defaults
	if cfg.Feed.BaseURL == "" {
		cfg.Feed.BaseURL = "https://push2.eastmoney.com"
	}
	if cfg.Monitor.QuotePollSec <= 0 {
		cfg.Monitor.QuotePollSec = 3
	}
	if cfg.Monitor.CheckIntervalSec <= 0 {
		cfg.Monitor.CheckIntervalSec = 30
	}
	if cfg.Monitor.CooldownSec <= 0 {
		cfg.Monitor.CooldownSec = 60
	}
	if cfg.Monitor.SnapshotCap <= 0 {
		cfg.Monitor.SnapshotCap = 20
	}
	if cfg.Monitor.HistoryCap <= 0 {
		cfg.Monitor.HistoryCap = 100
	}
	if cfg.Monitor.VolumeSurgeMult <= 0 {
		cfg.Monitor.VolumeSurgeMult = 2.0
	}
	if cfg.Monitor.RapidMoveThreshold <= 0 {
		cfg.Monitor.RapidMoveThreshold = 1.0
	}
	if cfg.Monitor.AlphaThreshold <= 0 {
		cfg.Monitor.AlphaThreshold = 2.0
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	if c.Eval.BaseURL != "" && c.Eval.APIKey == "" {
		return fmt.Errorf("eval.api_key is required when eval.base_url is set")
	}
	return nil
}
