package validation

import (
	"time"

	"github.com/ducminhle1904/flipside-bot/internal/backtest"
	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

// Package validation provides walk-forward validation of the window index
// choice: pick the best window on a training slice, then replay it unseen.

// DataSplitter defines the interface for splitting data into train/test sets
type DataSplitter interface {
	SplitByRatio(data []types.Candle, ratio float64) ([]types.Candle, []types.Candle)
	CreateRollingFolds(data []types.Candle, trainDays, testDays, rollDays int) []WalkForwardFold
}

// WalkForwardConfig holds the configuration for walk-forward validation
type WalkForwardConfig struct {
	Rolling    bool
	SplitRatio float64 // holdout share used for training
	TrainDays  int
	TestDays   int
	RollDays   int
}

// WalkForwardFold represents a single fold in walk-forward validation
type WalkForwardFold struct {
	Train      []types.Candle
	Test       []types.Candle
	TrainStart time.Time
	TrainEnd   time.Time
	TestStart  time.Time
	TestEnd    time.Time
}

// WalkForwardResults holds the results for a single fold
type WalkForwardResults struct {
	Fold         int
	Window       int // best window index on the training slice
	TrainResults *backtest.Results
	TestResults  *backtest.Results
}

// WalkForwardSummary holds the summary of all walk-forward validation results
type WalkForwardSummary struct {
	Results              []WalkForwardResults
	AverageTrainReturn   float64 // percent
	AverageTestReturn    float64 // percent
	AverageTrainDrawdown float64 // percent
	AverageTestDrawdown  float64 // percent
	ReturnDegradation    float64 // percent of the training return lost out of sample
	IsRobust             bool
	OverfittingRisk      string
}
