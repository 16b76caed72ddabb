package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ducminhle1904/flipside-bot/cmd/common"
	"github.com/ducminhle1904/flipside-bot/internal/config"
	boterrors "github.com/ducminhle1904/flipside-bot/internal/errors"
	"github.com/ducminhle1904/flipside-bot/internal/exchange"
	"github.com/ducminhle1904/flipside-bot/internal/exchange/adapters"
	"github.com/ducminhle1904/flipside-bot/internal/logger"
	"github.com/ducminhle1904/flipside-bot/internal/monitoring"
	"github.com/ducminhle1904/flipside-bot/internal/notifications"
	"github.com/ducminhle1904/flipside-bot/internal/safety"
	"github.com/ducminhle1904/flipside-bot/internal/scheduler"
	"github.com/ducminhle1904/flipside-bot/internal/state"
	"github.com/ducminhle1904/flipside-bot/internal/tracker"
)

func main() {
	var (
		configFile = flag.String("config", "", "Configuration file (.yaml or .json)")
		envFile    = flag.String("env", ".env", "Environment file path")
		goLive     = flag.Bool("go-live", false, "Place real market orders; without it fills are simulated on live data")
		version    = flag.Bool("version", false, "Show version information")
	)
	usage := common.NewUsageFormatter("flipside-tracker", "Tracks configured pairs and trades their dominant signal").
		AddExample("flipside-tracker -config configs/flipside.yaml", "Dry run against live market data").
		AddExample("flipside-tracker -config configs/flipside.yaml -go-live", "Trade with the configured exchange account")
	flag.Usage = usage.PrintUsage
	flag.Parse()

	if *version {
		common.PrintVersion("flipside-tracker")
		return
	}

	if err := common.LoadEnvFile(*envFile); err != nil {
		log.Printf("Warning: %v, checking environment variables...", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configFile, *goLive); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configFile string, goLive bool) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return boterrors.NewConfigurationError("config", "load", err.Error())
	}
	if goLive {
		if err := cfg.RequireCredentials(); err != nil {
			return boterrors.NewConfigurationError("config", "credentials", err.Error())
		}
	}

	root, err := logger.New("", cfg.Strategy.Interval, logger.Options{Level: cfg.LogLevel, Dir: cfg.LogDir, Console: true})
	if err != nil {
		return err
	}
	defer root.Close()

	mode := "DRY RUN (simulated fills)"
	if goLive {
		mode = "LIVE"
	}
	root.Status("🚀 %s %s starting in %s mode on %s (%s)", common.ProjectName, common.Version, mode, cfg.Exchange.Name, cfg.Environment)

	venue, err := adapters.NewClient(cfg.ClientConfig())
	if err != nil {
		return boterrors.NewConfigurationError("exchange", "connect", err.Error())
	}
	guardCfg, _ := cfg.Exchange.Guard()
	client := safety.Guard(venue, guardCfg)

	store, err := state.Open(ctx, cfg.Storage)
	if err != nil {
		return boterrors.NewStorageError("state", "open", err)
	}
	defer store.Close()

	notifier := notifications.Multi{notifications.NewLogNotifier(root)}
	if cfg.Notifications.TelegramToken != "" {
		notifier = append(notifier, notifications.NewTelegramNotifier(cfg.Notifications.TelegramToken, cfg.Notifications.TelegramChatID).
			WithTitle(cfg.Notifications.Title))
	}

	stats := boterrors.NewErrorStats(100)
	staleAfter, _ := cfg.Monitoring.Staleness()
	health := monitoring.NewHealthChecker(staleAfter, stats)

	client.Breaker().SetStateChangeCallback(func(from, to safety.CircuitBreakerState) {
		root.Warning("⚡ %s circuit %s -> %s", client.Name(), from, to)
		health.SetConnected(to != safety.StateOpen)
		level := notifications.LevelWarning
		if to == safety.StateClosed {
			level = notifications.LevelSuccess
		}
		_ = notifier.Notify(context.Background(), level, fmt.Sprintf("%s connection circuit %s", client.Name(), to))
	})

	if goLive {
		printBalances(ctx, client, root)
	}

	var (
		exec tracker.Executor
		live *tracker.ExchangeExecutor
	)
	if goLive {
		live = tracker.NewExchangeExecutor(client)
		exec = live
	}

	var pairs []*scheduler.PairRunner
	for _, pair := range cfg.Pairs {
		pairLog, err := logger.New(pair.Symbol, cfg.Strategy.Interval, logger.Options{Level: cfg.LogLevel, Dir: cfg.LogDir, Console: true})
		if err != nil {
			return err
		}
		defer pairLog.Close()

		tcfg := cfg.TrackerConfig(pair)
		if live != nil {
			useAccountTerms(ctx, client, live, &tcfg, pairLog)
		}
		t, err := tracker.New(tcfg, exec, pairLog)
		if err != nil {
			return err
		}
		runner, err := scheduler.NewPairRunner(t, client, scheduler.RunnerOptions{
			Interval:     cfg.Strategy.Interval,
			PersistEvery: cfg.Scheduler.PersistEvery,
			HistoryLimit: cfg.Scheduler.HistoryLimit,
			Store:        store,
			Notifier:     notifier,
			Health:       health,
			Logger:       pairLog,
		})
		if err != nil {
			return err
		}
		pairs = append(pairs, runner)
	}

	tickInterval, _ := cfg.Scheduler.TickInterval()
	tickOffset, _ := cfg.Scheduler.TickOffset()
	sched := scheduler.New(scheduler.Config{
		Interval: tickInterval,
		Offset:   tickOffset,
	}, pairs, notifier, stats, root)

	var srv *http.Server
	if cfg.Monitoring.Enabled {
		srv = &http.Server{
			Addr:              cfg.Monitoring.Addr,
			Handler:           monitoring.NewServeMux(health),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			root.Info("📊 Metrics and health on %s", cfg.Monitoring.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				root.LogError("monitoring server", err)
			}
		}()
	}

	sched.Preload(ctx)
	health.SetConnected(true)
	_ = notifier.Notify(ctx, notifications.LevelInfo, fmt.Sprintf("%s started (%s), tracking %v", common.ProjectName, mode, cfg.Symbols()))

	err = sched.Run(ctx)

	// The run context is cancelled by now; shutdown work gets its own deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	root.Status("🛑 Shutdown signal received, saving state...")
	sched.Flush(shutdownCtx)
	health.SetConnected(false)
	if srv != nil {
		_ = srv.Shutdown(shutdownCtx)
	}
	_ = notifier.Notify(shutdownCtx, notifications.LevelWarning, fmt.Sprintf("%s stopped", common.ProjectName))
	return err
}

// useAccountTerms replaces the configured commission with the account's taker
// rate and logs the venue's sizing rules for the pair.
func useAccountTerms(ctx context.Context, client *safety.GuardedClient, live *tracker.ExchangeExecutor, tcfg *tracker.Config, lg *logger.Logger) {
	symbol := tcfg.Symbol
	rate, ok, err := client.Commission(ctx, symbol)
	switch {
	case err != nil:
		lg.Warning("%s: keeping configured commission %s: %v", symbol, tcfg.Position.Commission, err)
	case ok && !rate.Equal(tcfg.Position.Commission):
		lg.Info("%s: account taker commission %s replaces configured %s", symbol, rate, tcfg.Position.Commission)
		tcfg.Position.Commission = rate
	}

	rules, err := live.Rules(ctx, symbol)
	if err != nil {
		lg.Warning("%s: sizing rules unavailable, orders go out unrounded until they load: %v", symbol, err)
		return
	}
	lg.Info("%s: base step %s, quote step %s, min notional %s", symbol, rules.BaseStep, rules.QuoteStep, rules.MinNotional)
}

func printBalances(ctx context.Context, account exchange.Account, lg *logger.Logger) {
	balances, err := account.Balances(ctx)
	if err != nil {
		lg.LogError("fetch balances", err)
		return
	}
	sort.Slice(balances, func(i, j int) bool { return balances[i].Asset < balances[j].Asset })

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("💰 WALLET")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Asset", "Free", "Locked"})
	for _, b := range balances {
		if b.Free == 0 && b.Locked == 0 {
			continue
		}
		t.AppendRow(table.Row{b.Asset, fmt.Sprintf("%.8f", b.Free), fmt.Sprintf("%.8f", b.Locked)})
	}
	t.Render()
}
