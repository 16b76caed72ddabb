package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ducminhle1904/flipside-bot/cmd/common"
	"github.com/ducminhle1904/flipside-bot/internal/backtest"
	"github.com/ducminhle1904/flipside-bot/internal/config"
	"github.com/ducminhle1904/flipside-bot/internal/exchange"
	"github.com/ducminhle1904/flipside-bot/internal/exchange/adapters"
	"github.com/ducminhle1904/flipside-bot/internal/logger"
	"github.com/ducminhle1904/flipside-bot/internal/safety"
	"github.com/ducminhle1904/flipside-bot/pkg/data"
	"github.com/ducminhle1904/flipside-bot/pkg/reporting"
	"github.com/ducminhle1904/flipside-bot/pkg/types"
	"github.com/ducminhle1904/flipside-bot/pkg/validation"
)

const downloadPageLimit = 1000

type flags struct {
	configFile  string
	envFile     string
	dataFile    string
	dataRoot    string
	symbol      string
	interval    string
	budget      float64
	period      string
	outDir      string
	windows     string
	workers     int
	split       float64
	wfTrain     int
	wfTest      int
	wfRoll      int
	download    bool
	consoleOnly bool
	version     bool
}

func parseFlags() *flags {
	f := &flags{}
	flag.StringVar(&f.configFile, "config", "", "Configuration file (.yaml or .json); defaults are used when empty")
	flag.StringVar(&f.envFile, "env", ".env", "Environment file path")
	flag.StringVar(&f.dataFile, "data", "", "Kline CSV dump; located under -data-root when empty")
	flag.StringVar(&f.dataRoot, "data-root", "data", "Data root directory")
	flag.StringVar(&f.symbol, "symbol", "", "Trading pair, overrides the first configured pair")
	flag.StringVar(&f.interval, "interval", "", "Bar interval, overrides the strategy interval")
	flag.Float64Var(&f.budget, "budget", 0, "Initial quote balance, overrides the configured budget")
	flag.StringVar(&f.period, "period", "", "Trailing period to test, e.g. 30d or 180d")
	flag.StringVar(&f.outDir, "out", "", "Output directory (default results/<SYMBOL>_<interval>)")
	flag.StringVar(&f.windows, "windows", "", "Comma separated window indices to sweep, e.g. 4,5,6,7")
	flag.IntVar(&f.workers, "workers", runtime.NumCPU(), "Parallel sweep workers")
	flag.Float64Var(&f.split, "split", 0, "Holdout walk-forward: share of bars used to pick the window, e.g. 0.7")
	flag.IntVar(&f.wfTrain, "wf-train", 0, "Rolling walk-forward: training days per fold")
	flag.IntVar(&f.wfTest, "wf-test", 0, "Rolling walk-forward: test days per fold")
	flag.IntVar(&f.wfRoll, "wf-roll", 0, "Rolling walk-forward: days to advance each fold (default -wf-test)")
	flag.BoolVar(&f.download, "download", false, "Download the trailing period from the exchange before testing")
	flag.BoolVar(&f.consoleOnly, "console-only", false, "Console output only (no file output)")
	flag.BoolVar(&f.version, "version", false, "Show version information")

	usage := common.NewUsageFormatter("flipside-backtest", "Replays kline history through the signal tracker").
		AddExample("flipside-backtest -data data/BTCUSDT_15m.csv", "Backtest a local dump with the default strategy").
		AddExample("flipside-backtest -config configs/flipside.yaml -symbol ETHUSDT -period 90d", "Backtest the last 90 days of a configured pair").
		AddExample("flipside-backtest -symbol BTCUSDT -interval 1h -period 180d -download -windows 4,5,6,7", "Download history and sweep the window index").
		AddExample("flipside-backtest -data data/BTCUSDT_1h.csv -windows 4,5,6 -wf-train 60 -wf-test 15", "Rolling walk-forward validation of the window choice")
	flag.Usage = usage.PrintUsage

	flag.Parse()
	return f
}

func main() {
	f := parseFlags()
	if f.version {
		common.PrintVersion("flipside-backtest")
		return
	}

	if err := common.LoadEnvFile(f.envFile); err != nil {
		log.Printf("Warning: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, f); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f *flags) error {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return err
	}

	pair := cfg.Pairs[0]
	if f.symbol != "" {
		pair = config.PairConfig{Symbol: strings.ToUpper(f.symbol)}
	}
	if f.budget > 0 {
		pair.Budget = f.budget
	}
	interval := f.interval
	if interval == "" && f.dataFile != "" {
		interval = reporting.ExtractIntervalFromPath(f.dataFile)
	}
	if interval == "" {
		interval = cfg.Strategy.Interval
	}

	v := common.NewFlagValidator().ValidateInt("workers", f.workers, 1, 256)
	if _, err := exchange.IntervalDuration(interval); err != nil {
		v.AddError(err.Error())
	}
	period, hasPeriod := data.ParseTrailingPeriod(f.period)
	if f.period != "" && !hasPeriod {
		v.AddError(fmt.Sprintf("invalid period %q", f.period))
	}
	if f.download && !hasPeriod {
		v.AddError("-download requires -period")
	}
	windows, err := parseWindows(f.windows)
	if err != nil {
		v.AddError(err.Error())
	}
	wf, walkForward := f.walkForward()
	if f.split != 0 {
		v.ValidateFloat("split", f.split, 0.1, 0.95)
	}
	if f.wfTrain > 0 || f.wfTest > 0 {
		v.ValidateInt("wf-train", f.wfTrain, 1, 3650).ValidateInt("wf-test", f.wfTest, 1, 3650)
	}
	if err := v.GetError(); err != nil {
		return err
	}

	lg, err := logger.New(pair.Symbol, interval, logger.Options{Level: cfg.LogLevel, Console: true})
	if err != nil {
		return err
	}
	defer lg.Close()

	dm := data.NewDataManager()
	path := f.dataFile
	if f.download {
		path, err = download(ctx, cfg, pair.Symbol, interval, period, f.dataRoot, lg)
		if err != nil {
			return err
		}
	}
	if path == "" {
		path = dm.FindDataFile(f.dataRoot, cfg.Exchange.Name, pair.Symbol, interval)
	}
	if err := common.NewFlagValidator().ValidateFile("data", path, true).GetError(); err != nil {
		return err
	}

	candles, err := dm.Load(path, period)
	if err != nil {
		return err
	}
	lg.Info("📈 Loaded %d bars from %s", len(candles), path)

	base := cfg.TrackerConfig(pair)
	reporter := reporting.NewReportingManager(reporting.ReportingConfig{
		EnableConsole:   true,
		EnableFiles:     !f.consoleOnly,
		OutputDirectory: f.outDir,
		CSVEnabled:      true,
		ExcelEnabled:    true,
		JSONEnabled:     true,
	}, os.Stdout)

	if walkForward {
		summary, err := validation.NewWalkForwardValidator(f.workers, lg).Validate(ctx, base, candles, windows, wf)
		if err != nil {
			return err
		}
		validation.PrintSummary(os.Stdout, summary)
		return nil
	}

	if len(windows) > 0 {
		start := time.Now()
		jobs := backtest.Sweep(ctx, base, candles, windows, f.workers, lg)
		reporting.NewConsoleReporter(os.Stdout).PrintSweep(jobs)
		lg.Status("Sweep of %d windows finished in %s", len(windows), time.Since(start).Round(time.Millisecond))
		return nil
	}

	results, err := backtest.NewEngine(base, lg).Run(ctx, candles)
	if err != nil {
		return err
	}

	written, err := reporter.ReportResults(results, interval)
	if err != nil {
		return err
	}
	for _, p := range written {
		fmt.Printf("📁 %s\n", p)
	}
	return nil
}

// walkForward reports whether a walk-forward mode was requested.
func (f *flags) walkForward() (validation.WalkForwardConfig, bool) {
	if f.wfTrain > 0 || f.wfTest > 0 {
		roll := f.wfRoll
		if roll <= 0 {
			roll = f.wfTest
		}
		return validation.WalkForwardConfig{Rolling: true, TrainDays: f.wfTrain, TestDays: f.wfTest, RollDays: roll}, true
	}
	if f.split != 0 {
		return validation.WalkForwardConfig{SplitRatio: f.split}, true
	}
	return validation.WalkForwardConfig{}, false
}

func parseWindows(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 || n > 10 {
			return nil, fmt.Errorf("invalid window index %q (1..10)", part)
		}
		out = append(out, n)
	}
	return out, nil
}

// download pages klines for the trailing period into the data root and
// returns the written path. The still-forming bar is dropped.
func download(ctx context.Context, cfg *config.Config, symbol, interval string, period time.Duration, dataRoot string, lg *logger.Logger) (string, error) {
	venue, err := adapters.NewClient(cfg.ClientConfig())
	if err != nil {
		return "", err
	}
	guardCfg, _ := cfg.Exchange.Guard()
	client := safety.Guard(venue, guardCfg)

	now := time.Now().UTC()
	since := now.Add(-period)
	var candles []types.Candle
	for {
		raws, err := client.FetchKlines(ctx, symbol, interval, since, downloadPageLimit)
		if err != nil {
			return "", fmt.Errorf("download %s %s: %w", symbol, interval, err)
		}
		batch, err := types.ParseKlines(raws)
		if err != nil {
			return "", err
		}
		for _, c := range batch {
			if c.CloseTime.Before(now) {
				candles = append(candles, c)
			}
		}
		if len(batch) < downloadPageLimit {
			break
		}
		since = batch[len(batch)-1].CloseTime.Add(time.Millisecond)
	}

	path := data.DataPath(dataRoot, client.Name(), symbol, interval)
	if err := data.WriteCSV(path, candles); err != nil {
		return "", err
	}
	lg.Info("⬇️  Downloaded %d bars from %s into %s", len(candles), client.Name(), path)
	return path, nil
}
