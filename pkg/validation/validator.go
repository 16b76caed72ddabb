package validation

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/ducminhle1904/flipside-bot/internal/backtest"
	"github.com/ducminhle1904/flipside-bot/internal/logger"
	"github.com/ducminhle1904/flipside-bot/internal/tracker"
	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

// WalkForwardValidator sweeps the window index on each training slice and
// replays the winner on the following test slice.
type WalkForwardValidator struct {
	splitter DataSplitter
	workers  int
	log      *logger.Logger
}

// NewWalkForwardValidator creates a validator running sweeps on workers goroutines.
func NewWalkForwardValidator(workers int, log *logger.Logger) *WalkForwardValidator {
	if workers < 1 {
		workers = 1
	}
	return &WalkForwardValidator{
		splitter: NewDefaultDataSplitter(),
		workers:  workers,
		log:      logger.OrNop(log),
	}
}

// Validate runs holdout or rolling validation over the candidate windows.
func (v *WalkForwardValidator) Validate(ctx context.Context, base tracker.Config, data []types.Candle, windows []int, cfg WalkForwardConfig) (*WalkForwardSummary, error) {
	if len(windows) == 0 {
		windows = []int{base.Bank.WindowIndex}
	}

	var folds []WalkForwardFold
	if cfg.Rolling {
		folds = v.splitter.CreateRollingFolds(data, cfg.TrainDays, cfg.TestDays, cfg.RollDays)
		if len(folds) == 0 {
			return nil, fmt.Errorf("not enough data for rolling walk-forward validation")
		}
	} else {
		train, test := v.splitter.SplitByRatio(data, cfg.SplitRatio)
		if len(test) < minTestBars || len(train) < minTrainBars {
			return nil, fmt.Errorf("not enough data for a %.0f/%.0f holdout split", cfg.SplitRatio*100, (1-cfg.SplitRatio)*100)
		}
		folds = []WalkForwardFold{{
			Train:      train,
			Test:       test,
			TrainStart: train[0].OpenTime,
			TrainEnd:   train[len(train)-1].CloseTime,
			TestStart:  test[0].OpenTime,
			TestEnd:    test[len(test)-1].CloseTime,
		}}
	}

	results := make([]WalkForwardResults, 0, len(folds))
	for i, fold := range folds {
		res, err := v.runFold(ctx, base, fold, windows)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", i+1, err)
		}
		res.Fold = i + 1
		results = append(results, res)

		v.log.Info("Fold %d/%d: window %d, train %.2f%% (%s → %s), test %.2f%% (%s → %s)",
			i+1, len(folds), res.Window,
			res.TrainResults.TotalReturn*100, fold.TrainStart.Format("2006-01-02"), fold.TrainEnd.Format("2006-01-02"),
			res.TestResults.TotalReturn*100, fold.TestStart.Format("2006-01-02"), fold.TestEnd.Format("2006-01-02"))
	}

	return calculateSummary(results), nil
}

func (v *WalkForwardValidator) runFold(ctx context.Context, base tracker.Config, fold WalkForwardFold, windows []int) (WalkForwardResults, error) {
	var best *backtest.JobResult
	jobs := backtest.Sweep(ctx, base, fold.Train, windows, v.workers, v.log)
	for i := range jobs {
		jr := &jobs[i]
		if jr.Error != nil {
			continue
		}
		if best == nil || jr.Results.TotalReturn > best.Results.TotalReturn {
			best = jr
		}
	}
	if best == nil {
		return WalkForwardResults{}, fmt.Errorf("every training run failed")
	}

	test, err := backtest.NewEngine(best.Config, v.log).Run(ctx, fold.Test)
	if err != nil {
		return WalkForwardResults{}, err
	}
	return WalkForwardResults{
		Window:       best.Config.Bank.WindowIndex,
		TrainResults: best.Results,
		TestResults:  test,
	}, nil
}

func calculateSummary(results []WalkForwardResults) *WalkForwardSummary {
	if len(results) == 0 {
		return &WalkForwardSummary{}
	}

	var trainReturns, testReturns, trainDrawdowns, testDrawdowns []float64
	for _, r := range results {
		trainReturns = append(trainReturns, r.TrainResults.TotalReturn*100)
		testReturns = append(testReturns, r.TestResults.TotalReturn*100)
		trainDrawdowns = append(trainDrawdowns, r.TrainResults.MaxDrawdown*100)
		testDrawdowns = append(testDrawdowns, r.TestResults.MaxDrawdown*100)
	}

	avgTrainReturn := average(trainReturns)
	avgTestReturn := average(testReturns)
	returnDegradation := ((avgTrainReturn - avgTestReturn) / math.Max(0.01, math.Abs(avgTrainReturn))) * 100

	risk := "LOW"
	switch {
	case returnDegradation > 30:
		risk = "HIGH"
	case returnDegradation > 15:
		risk = "MODERATE"
	}

	return &WalkForwardSummary{
		Results:              results,
		AverageTrainReturn:   avgTrainReturn,
		AverageTestReturn:    avgTestReturn,
		AverageTrainDrawdown: average(trainDrawdowns),
		AverageTestDrawdown:  average(testDrawdowns),
		ReturnDegradation:    returnDegradation,
		IsRobust:             returnDegradation <= 30,
		OverfittingRisk:      risk,
	}
}

// PrintSummary writes the walk-forward summary.
func PrintSummary(out io.Writer, s *WalkForwardSummary) {
	var trainReturns, testReturns []float64
	for _, r := range s.Results {
		trainReturns = append(trainReturns, r.TrainResults.TotalReturn*100)
		testReturns = append(testReturns, r.TestResults.TotalReturn*100)
	}

	fmt.Fprintln(out, "📊 ================ WALK-FORWARD SUMMARY ================")
	fmt.Fprintf(out, "AVERAGE PERFORMANCE ACROSS %d FOLDS:\n", len(s.Results))
	fmt.Fprintf(out, "  Train Return:    %.2f%% ± %.2f%%\n", s.AverageTrainReturn, stdDev(trainReturns))
	fmt.Fprintf(out, "  Test Return:     %.2f%% ± %.2f%%\n", s.AverageTestReturn, stdDev(testReturns))
	fmt.Fprintf(out, "  Train Drawdown:  %.2f%%\n", s.AverageTrainDrawdown)
	fmt.Fprintf(out, "  Test Drawdown:   %.2f%%\n", s.AverageTestDrawdown)

	fmt.Fprintf(out, "\nCONSISTENCY ANALYSIS:\n")
	fmt.Fprintf(out, "  Return Degradation: %.1f%%\n", s.ReturnDegradation)
	switch s.OverfittingRisk {
	case "HIGH":
		fmt.Fprintf(out, "  ⚠️  HIGH OVERFITTING RISK - Strategy may not generalize well\n")
	case "MODERATE":
		fmt.Fprintf(out, "  ⚠️  MODERATE OVERFITTING - Some performance degradation\n")
	default:
		fmt.Fprintf(out, "  ✅ ROBUST STRATEGY - Good generalization across time periods\n")
	}
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	avg := average(values)
	sum := 0.0
	for _, v := range values {
		sum += (v - avg) * (v - avg)
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
