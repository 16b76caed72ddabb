package config

import (
	"github.com/ducminhle1904/flipside-bot/internal/indicators"
	"github.com/ducminhle1904/flipside-bot/internal/series"
	"github.com/ducminhle1904/flipside-bot/internal/state"
	"github.com/ducminhle1904/flipside-bot/internal/strategy"
)

// DefaultConfig returns a paper-safe configuration for one BTCUSDT pair on
// Binance testnet, ticking once a minute at seven seconds past.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		LogLevel:    "info",
		LogDir:      "logs",
		Exchange: ExchangeConfig{
			Name:              "binance",
			Testnet:           true,
			RequestsPerSecond: 10,
			Burst:             20,
			BreakerFailures:   5,
			BreakerCooldown:   "30s",
		},
		Pairs:    []PairConfig{{Symbol: "BTCUSDT"}},
		Strategy: DefaultStrategyConfig(),
		Scheduler: SchedulerConfig{
			Interval:     "1m",
			Offset:       "7s",
			PersistEvery: 15,
			HistoryLimit: 1000,
		},
		Storage: state.Config{
			Backend: state.BackendFile,
			Dir:     "state",
		},
		Notifications: NotificationConfig{
			Title: "Flipside Bot",
		},
		Monitoring: MonitoringConfig{
			Enabled:    true,
			Addr:       ":9090",
			StaleAfter: "5m",
		},
	}
}

// DefaultStrategyConfig is the four-rule, two-vote design over a 21 bar window.
func DefaultStrategyConfig() StrategyConfig {
	bank := indicators.DefaultBankConfig()
	return StrategyConfig{
		Interval:          "15m",
		Capacity:          series.FullCycle,
		WindowIndex:       bank.WindowIndex,
		BandFactor:        bank.BandFactor,
		BandSource:        string(bank.BandSource),
		DirectionalPeriod: bank.DirectionalPeriod,
		Signals:           strategy.DefaultDescriptor(),
		Budget:            1000,
		Commission:        0.001,
		SpendFraction:     1,
		StopLoss:          0.05,
		MinQuote:          10,
	}
}
