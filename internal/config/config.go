package config

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"daily_loop/internal/models"
)

// Named errors for missing credentials, checked once at startup instead of
// ad hoc presence checks scattered through the cycle.
var (
	ErrMissingGrokKey      = errors.New("GROK_API_KEY is required")
	ErrMissingAlpacaKey    = errors.New("ALPACA_API_KEY is required for live trading")
	ErrMissingAlpacaSecret = errors.New("ALPACA_SECRET_KEY is required for live trading")
)

// Config holds all application configuration: the tracked symbol, risk
// limits, file paths, and collaborator credentials. Values come from an
// optional YAML file with environment overrides on top.
type Config struct {
	Symbol       string `yaml:"symbol"`
	DataSource   string `yaml:"data_source"` // "alpaca" or "yahoo"
	LookbackDays int    `yaml:"lookback_days"`

	Risk models.Constraints `yaml:"risk"`

	Files struct {
		Portfolio    string `yaml:"portfolio"`
		TradeHistory string `yaml:"trade_history"`
		SQLitePath   string `yaml:"sqlite_path"` // optional event mirror
	} `yaml:"files"`

	Grok struct {
		APIKey      string `yaml:"-"`
		Model       string `yaml:"model"`
		BaseURL     string `yaml:"base_url"`
		TimeoutSecs int    `yaml:"timeout_secs"`
	} `yaml:"grok"`

	Alpaca struct {
		APIKey      string `yaml:"-"`
		SecretKey   string `yaml:"-"`
		BaseURL     string `yaml:"base_url"`
		TimeoutSecs int    `yaml:"timeout_secs"`
	} `yaml:"alpaca"`

	Telegram struct {
		BotToken string `yaml:"-"`
		ChatID   string `yaml:"-"`
	} `yaml:"telegram"`

	Schedule struct {
		DailyCron string `yaml:"daily_cron"`
	} `yaml:"schedule"`

	Log struct {
		File       string `yaml:"file"`
		MaxSizeMB  int64  `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
	} `yaml:"log"`
}

// Load reads the optional YAML file at path, loads .env into the process
// environment, applies environment overrides, and fills defaults. A missing
// config file is not an error; missing credentials are caught by Validate.
func Load(path string) (*Config, error) {
	// .env is a convenience for local runs; deployed environments set real env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	// Credentials only ever come from the environment.
	cfg.Grok.APIKey = os.Getenv("GROK_API_KEY")
	cfg.Alpaca.APIKey = os.Getenv("ALPACA_API_KEY")
	cfg.Alpaca.SecretKey = os.Getenv("ALPACA_SECRET_KEY")
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.Telegram.ChatID = os.Getenv("TELEGRAM_CHAT_ID")

	// Non-secret environment overrides.
	if v := os.Getenv("TRADE_SYMBOL"); v != "" {
		cfg.Symbol = v
	}
	if v := os.Getenv("DATA_SOURCE"); v != "" {
		cfg.DataSource = v
	}
	if v := os.Getenv("GROK_MODEL"); v != "" {
		cfg.Grok.Model = v
	}
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Files.SQLitePath = v
	}
	if v := os.Getenv("DAILY_CRON"); v != "" {
		cfg.Schedule.DailyCron = v
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Symbol == "" {
		cfg.Symbol = "MSFT"
	}
	if cfg.DataSource == "" {
		cfg.DataSource = "alpaca"
	}
	if cfg.LookbackDays == 0 {
		cfg.LookbackDays = 365
	}
	if cfg.Risk.MaxPositionSizePct == 0 {
		cfg.Risk.MaxPositionSizePct = 0.20
	}
	if cfg.Risk.MaxDrawdownPct == 0 {
		cfg.Risk.MaxDrawdownPct = 0.10
	}
	if cfg.Risk.RiskPerTradePct == 0 {
		cfg.Risk.RiskPerTradePct = 0.02
	}
	if cfg.Risk.MinATR == 0 {
		cfg.Risk.MinATR = 3.5
	}
	if cfg.Risk.MaxATR == 0 {
		cfg.Risk.MaxATR = 18.0
	}
	if cfg.Files.Portfolio == "" {
		cfg.Files.Portfolio = "portfolio_state.json"
	}
	if cfg.Files.TradeHistory == "" {
		cfg.Files.TradeHistory = "trade_history.json"
	}
	if cfg.Grok.Model == "" {
		cfg.Grok.Model = "grok-4-1-fast-reasoning-latest"
	}
	if cfg.Grok.BaseURL == "" {
		cfg.Grok.BaseURL = "https://api.x.ai/v1"
	}
	if cfg.Grok.TimeoutSecs == 0 {
		cfg.Grok.TimeoutSecs = 30
	}
	if cfg.Alpaca.BaseURL == "" {
		cfg.Alpaca.BaseURL = "https://paper-api.alpaca.markets"
	}
	if cfg.Alpaca.TimeoutSecs == 0 {
		cfg.Alpaca.TimeoutSecs = 15
	}
	if cfg.Schedule.DailyCron == "" {
		// Weekdays 16:45 ET-ish in server local time; operators override.
		cfg.Schedule.DailyCron = "45 16 * * 1-5"
	}
	if cfg.Log.File == "" {
		cfg.Log.File = "trading_log.txt"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 10
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 3
	}
}

// Validate checks the credentials needed for the requested mode. The
// decision-maker key is always required; broker keys only for live runs.
func (c *Config) Validate(live bool) error {
	if c.Grok.APIKey == "" {
		return ErrMissingGrokKey
	}
	if live {
		if c.Alpaca.APIKey == "" {
			return ErrMissingAlpacaKey
		}
		if c.Alpaca.SecretKey == "" {
			return ErrMissingAlpacaSecret
		}
	}
	if c.DataSource != "alpaca" && c.DataSource != "yahoo" {
		return fmt.Errorf("data_source must be alpaca or yahoo, got %q", c.DataSource)
	}
	if c.Risk.MaxATR < c.Risk.MinATR {
		return fmt.Errorf("risk.max_atr (%.2f) below risk.min_atr (%.2f)", c.Risk.MaxATR, c.Risk.MinATR)
	}
	return nil
}
