package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/ducminhle1904/flipside-bot/internal/exchange"
	"github.com/ducminhle1904/flipside-bot/internal/exchange/adapters"
	"github.com/ducminhle1904/flipside-bot/internal/indicators"
	"github.com/ducminhle1904/flipside-bot/internal/position"
	"github.com/ducminhle1904/flipside-bot/internal/safety"
	"github.com/ducminhle1904/flipside-bot/internal/state"
	"github.com/ducminhle1904/flipside-bot/internal/strategy"
	"github.com/ducminhle1904/flipside-bot/internal/tracker"
	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

// Config is the complete configuration of one bot process.
type Config struct {
	Environment string `json:"environment" yaml:"environment" validate:"oneof=development production test"`
	LogLevel    string `json:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	LogDir      string `json:"log_dir" yaml:"log_dir"`

	Exchange      ExchangeConfig     `json:"exchange" yaml:"exchange"`
	Pairs         []PairConfig       `json:"pairs" yaml:"pairs" validate:"required,min=1,dive"`
	Strategy      StrategyConfig     `json:"strategy" yaml:"strategy"`
	Scheduler     SchedulerConfig    `json:"scheduler" yaml:"scheduler"`
	Storage       state.Config       `json:"storage" yaml:"storage"`
	Notifications NotificationConfig `json:"notifications" yaml:"notifications"`
	Monitoring    MonitoringConfig   `json:"monitoring" yaml:"monitoring"`
}

// ExchangeConfig selects the connector. Credentials come from the environment.
type ExchangeConfig struct {
	Name      string `json:"name" yaml:"name" validate:"required,oneof=binance bybit"`
	APIKey    string `json:"-" yaml:"-"`
	APISecret string `json:"-" yaml:"-"`
	Testnet   bool   `json:"testnet" yaml:"testnet"`
	Demo      bool   `json:"demo" yaml:"demo"`

	RequestsPerSecond int    `json:"requests_per_second" yaml:"requests_per_second" validate:"gte=0"`
	Burst             int    `json:"burst" yaml:"burst" validate:"gte=0"`
	BreakerFailures   uint32 `json:"breaker_failures" yaml:"breaker_failures"`
	BreakerCooldown   string `json:"breaker_cooldown" yaml:"breaker_cooldown"`
}

// PairConfig is one traded symbol. A zero budget falls back to the strategy budget.
type PairConfig struct {
	Symbol string  `json:"symbol" yaml:"symbol" validate:"required,uppercase,min=5"`
	Budget float64 `json:"budget,omitempty" yaml:"budget,omitempty" validate:"gte=0"`
}

// StrategyConfig holds everything a tracker needs besides the symbol.
type StrategyConfig struct {
	Interval string `json:"interval" yaml:"interval" validate:"required"`
	Capacity int    `json:"capacity" yaml:"capacity" validate:"gte=1"`

	// Indicator bank
	WindowIndex       int     `json:"window_index" yaml:"window_index" validate:"min=1,max=10"`
	BandFactor        float64 `json:"band_factor" yaml:"band_factor" validate:"gt=0"`
	BandSource        string  `json:"band_source" yaml:"band_source" validate:"oneof=close typical hl2"`
	DirectionalPeriod int     `json:"directional_period" yaml:"directional_period" validate:"gte=1"`

	// Signal arbitration
	Signals strategy.Descriptor `json:"signals" yaml:"signals"`

	// Position
	Budget        float64 `json:"budget" yaml:"budget" validate:"gte=0"`
	Commission    float64 `json:"commission" yaml:"commission" validate:"gte=0,lt=1"`
	SpendFraction float64 `json:"spend_fraction" yaml:"spend_fraction" validate:"gt=0,lte=1"`
	StopLoss      float64 `json:"stop_loss" yaml:"stop_loss" validate:"gte=0,lt=1"`
	MinQuote      float64 `json:"min_quote" yaml:"min_quote" validate:"gte=0"`
}

type SchedulerConfig struct {
	Interval     string `json:"interval" yaml:"interval"` // tick period, e.g. "1m"
	Offset       string `json:"offset" yaml:"offset"`     // delay past each boundary, e.g. "7s"
	PersistEvery int    `json:"persist_every" yaml:"persist_every" validate:"gte=1"`
	HistoryLimit int    `json:"history_limit" yaml:"history_limit" validate:"gte=1,lte=1000"`
}

type NotificationConfig struct {
	TelegramToken  string `json:"-" yaml:"-"`
	TelegramChatID string `json:"telegram_chat_id,omitempty" yaml:"telegram_chat_id,omitempty"`
	Title          string `json:"title,omitempty" yaml:"title,omitempty"`
}

type MonitoringConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	Addr       string `json:"addr" yaml:"addr" validate:"required_if=Enabled true"`
	StaleAfter string `json:"stale_after" yaml:"stale_after"`
}

// Load reads a JSON or YAML file on top of DefaultConfig, applies the
// environment overlay and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, cfg)
		case ".json":
			err = json.Unmarshal(data, cfg)
		default:
			return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays credentials and a few operational knobs from the environment.
func (c *Config) ApplyEnv() {
	c.Environment = getEnv("ENV", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	switch strings.ToLower(c.Exchange.Name) {
	case adapters.ExchangeBinance:
		c.Exchange.APIKey = getEnv("BINANCE_API_KEY", c.Exchange.APIKey)
		c.Exchange.APISecret = getEnv("BINANCE_API_SECRET", c.Exchange.APISecret)
	case adapters.ExchangeBybit:
		c.Exchange.APIKey = getEnv("BYBIT_API_KEY", c.Exchange.APIKey)
		c.Exchange.APISecret = getEnv("BYBIT_API_SECRET", c.Exchange.APISecret)
	}
	c.Exchange.Testnet = getEnvBool("EXCHANGE_TESTNET", c.Exchange.Testnet)

	c.Notifications.TelegramToken = getEnv("TELEGRAM_TOKEN", c.Notifications.TelegramToken)
	c.Notifications.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", c.Notifications.TelegramChatID)

	c.Storage.RedisAddr = getEnv("REDIS_ADDR", c.Storage.RedisAddr)
	c.Storage.RedisPassword = getEnv("REDIS_PASSWORD", c.Storage.RedisPassword)
}

// Validate checks struct tags and the relations between fields.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if _, err := exchange.IntervalDuration(c.Strategy.Interval); err != nil {
		return fmt.Errorf("invalid config: strategy interval: %w", err)
	}
	if _, _, err := c.Strategy.Signals.Build(); err != nil {
		return fmt.Errorf("invalid config: signals: %w", err)
	}
	if c.Strategy.Signals.Quorum > len(c.Strategy.Signals.Rules) {
		return fmt.Errorf("invalid config: quorum %d exceeds %d rules", c.Strategy.Signals.Quorum, len(c.Strategy.Signals.Rules))
	}
	bankCfg := c.TrackerConfig(PairConfig{}).Bank
	bankCfg.Families = c.Strategy.Signals.Families()
	bank, err := indicators.NewBank(bankCfg)
	if err != nil {
		return fmt.Errorf("invalid config: indicators: %w", err)
	}
	if warmup := bank.WarmupPeriods(); c.Strategy.Capacity <= warmup {
		return fmt.Errorf("invalid config: capacity %d does not cover the %d bar warm-up", c.Strategy.Capacity, warmup)
	}

	interval, err := c.Scheduler.TickInterval()
	if err != nil {
		return fmt.Errorf("invalid config: scheduler interval: %w", err)
	}
	offset, err := c.Scheduler.TickOffset()
	if err != nil {
		return fmt.Errorf("invalid config: scheduler offset: %w", err)
	}
	if offset < 0 || offset >= interval {
		return fmt.Errorf("invalid config: scheduler offset %s must be within [0, %s)", offset, interval)
	}
	if _, err := c.Exchange.Guard(); err != nil {
		return fmt.Errorf("invalid config: exchange breaker_cooldown: %w", err)
	}
	if _, err := c.Monitoring.Staleness(); err != nil {
		return fmt.Errorf("invalid config: monitoring stale_after: %w", err)
	}

	seen := make(map[string]bool, len(c.Pairs))
	for _, p := range c.Pairs {
		if seen[p.Symbol] {
			return fmt.Errorf("invalid config: duplicate pair %s", p.Symbol)
		}
		seen[p.Symbol] = true
	}

	if (c.Notifications.TelegramToken == "") != (c.Notifications.TelegramChatID == "") {
		return fmt.Errorf("invalid config: telegram needs both TELEGRAM_TOKEN and TELEGRAM_CHAT_ID")
	}
	return nil
}

// RequireCredentials fails when live trading is requested without API keys.
func (c *Config) RequireCredentials() error {
	if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" {
		prefix := strings.ToUpper(c.Exchange.Name)
		return fmt.Errorf("missing %s_API_KEY or %s_API_SECRET", prefix, prefix)
	}
	return nil
}

// TrackerConfig builds the per-pair tracker configuration.
func (c *Config) TrackerConfig(pair PairConfig) tracker.Config {
	s := c.Strategy
	budget := s.Budget
	if pair.Budget > 0 {
		budget = pair.Budget
	}
	return tracker.Config{
		Symbol:   pair.Symbol,
		Capacity: s.Capacity,
		Bank: indicators.BankConfig{
			WindowIndex:       s.WindowIndex,
			BandFactor:        s.BandFactor,
			BandSource:        types.PriceSource(s.BandSource),
			DirectionalPeriod: s.DirectionalPeriod,
		},
		Strategy: s.Signals,
		Position: position.Config{
			Budget:        decimal.NewFromFloat(budget),
			Commission:    decimal.NewFromFloat(s.Commission),
			SpendFraction: decimal.NewFromFloat(s.SpendFraction),
			StopLoss:      decimal.NewFromFloat(s.StopLoss),
			MinQuote:      decimal.NewFromFloat(s.MinQuote),
		},
	}
}

func (c *Config) ClientConfig() adapters.ClientConfig {
	return adapters.ClientConfig{
		Name:      c.Exchange.Name,
		APIKey:    c.Exchange.APIKey,
		APISecret: c.Exchange.APISecret,
		Testnet:   c.Exchange.Testnet,
		Demo:      c.Exchange.Demo,
	}
}

// Guard sizes the rate limiter and circuit breaker shared by all pairs.
func (e ExchangeConfig) Guard() (safety.GuardConfig, error) {
	cfg := safety.GuardConfig{
		RequestsPerSecond: e.RequestsPerSecond,
		Burst:             e.Burst,
		FailureThreshold:  e.BreakerFailures,
	}
	if e.BreakerCooldown != "" {
		d, err := time.ParseDuration(e.BreakerCooldown)
		if err != nil {
			return cfg, err
		}
		cfg.Cooldown = d
	}
	return cfg, nil
}

func (s SchedulerConfig) TickInterval() (time.Duration, error) {
	d, err := time.ParseDuration(s.Interval)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be positive, got %s", d)
	}
	return d, nil
}

func (s SchedulerConfig) TickOffset() (time.Duration, error) {
	if s.Offset == "" {
		return 0, nil
	}
	return time.ParseDuration(s.Offset)
}

// Staleness is how long a pair may go without a tick before /health degrades.
func (m MonitoringConfig) Staleness() (time.Duration, error) {
	if m.StaleAfter == "" {
		return 0, nil
	}
	return time.ParseDuration(m.StaleAfter)
}

// Symbols lists the configured pairs in order.
func (c *Config) Symbols() []string {
	out := make([]string, len(c.Pairs))
	for i, p := range c.Pairs {
		out[i] = p.Symbol
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
