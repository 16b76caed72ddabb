package validation

import (
	"time"

	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

const (
	minTrainBars = 50
	minTestBars  = 10
)

// DefaultDataSplitter implements the DataSplitter interface
type DefaultDataSplitter struct{}

// NewDefaultDataSplitter creates a new default data splitter
func NewDefaultDataSplitter() *DefaultDataSplitter {
	return &DefaultDataSplitter{}
}

// SplitByRatio splits data into train/test by ratio. A ratio outside (0, 1)
// keeps everything for training.
func (s *DefaultDataSplitter) SplitByRatio(data []types.Candle, ratio float64) ([]types.Candle, []types.Candle) {
	if ratio <= 0 || ratio >= 1 {
		return data, nil
	}

	n := int(float64(len(data)) * ratio)
	if n < 1 || n >= len(data) {
		return data, nil
	}

	return data[:n], data[n:]
}

// CreateRollingFolds slides a train window followed by a test window over the
// data, advancing the start by rollDays each fold. Folds too short to be
// meaningful end the walk.
func (s *DefaultDataSplitter) CreateRollingFolds(data []types.Candle, trainDays, testDays, rollDays int) []WalkForwardFold {
	var folds []WalkForwardFold

	trainDur := time.Duration(trainDays) * 24 * time.Hour
	testDur := time.Duration(testDays) * 24 * time.Hour
	rollDur := time.Duration(rollDays) * 24 * time.Hour

	if len(data) < minTrainBars+minTestBars {
		return folds
	}

	start := 0
	for {
		trainEndTs := data[start].OpenTime.Add(trainDur)
		trainEnd := start
		for trainEnd < len(data) && data[trainEnd].OpenTime.Before(trainEndTs) {
			trainEnd++
		}

		testEndTs := trainEndTs.Add(testDur)
		testEnd := trainEnd
		for testEnd < len(data) && data[testEnd].OpenTime.Before(testEndTs) {
			testEnd++
		}

		if trainEnd-start < minTrainBars || testEnd-trainEnd < minTestBars {
			break
		}

		folds = append(folds, WalkForwardFold{
			Train:      data[start:trainEnd],
			Test:       data[trainEnd:testEnd],
			TrainStart: data[start].OpenTime,
			TrainEnd:   data[trainEnd-1].CloseTime,
			TestStart:  data[trainEnd].OpenTime,
			TestEnd:    data[testEnd-1].CloseTime,
		})

		nextStartTs := data[start].OpenTime.Add(rollDur)
		nextStart := start
		for nextStart < len(data) && data[nextStart].OpenTime.Before(nextStartTs) {
			nextStart++
		}
		if nextStart <= start {
			nextStart = start + 1
		}
		if nextStart >= len(data) {
			break
		}
		start = nextStart
	}

	return folds
}
