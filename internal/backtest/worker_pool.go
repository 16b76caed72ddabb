package backtest

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/ducminhle1904/flipside-bot/internal/logger"
	"github.com/ducminhle1904/flipside-bot/internal/tracker"
	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

// WorkerPool manages parallel backtest execution
type WorkerPool struct {
	workerCount int
	jobQueue    chan Job
	resultQueue chan JobResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	log         *logger.Logger
}

// Job is one configuration replayed over one series.
type Job struct {
	ID      string
	Config  tracker.Config
	Candles []types.Candle
}

// JobResult represents the result of a backtest job
type JobResult struct {
	ID       string
	Config   tracker.Config
	Results  *Results
	Duration time.Duration
	Error    error
}

// NewWorkerPool creates a new worker pool for parallel backtesting
func NewWorkerPool(ctx context.Context, workerCount, jobBufferSize int, log *logger.Logger) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		workerCount: workerCount,
		jobQueue:    make(chan Job, jobBufferSize),
		resultQueue: make(chan JobResult, jobBufferSize),
		ctx:         ctx,
		cancel:      cancel,
		log:         logger.OrNop(log),
	}
}

// Start starts the worker pool
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

// Stop closes the queue and waits for the workers to drain it.
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// SubmitJob submits a backtest job to the pool
func (wp *WorkerPool) SubmitJob(job Job) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// Results returns the channel completed jobs are delivered on.
func (wp *WorkerPool) Results() <-chan JobResult {
	return wp.resultQueue
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}
			result := wp.processJob(job)

			select {
			case wp.resultQueue <- result:
			case <-wp.ctx.Done():
				return
			}
		case <-wp.ctx.Done():
			return
		}
	}
}

func (wp *WorkerPool) processJob(job Job) JobResult {
	start := time.Now()
	results, err := NewEngine(job.Config, wp.log).Run(wp.ctx, job.Candles)
	return JobResult{
		ID:       job.ID,
		Config:   job.Config,
		Results:  results,
		Duration: time.Since(start),
		Error:    err,
	}
}

// Sweep backtests base once per window index in parallel. Results come back
// ordered by window index.
func Sweep(ctx context.Context, base tracker.Config, candles []types.Candle, windowIndices []int, workers int, log *logger.Logger) []JobResult {
	pool := NewWorkerPool(ctx, workers, len(windowIndices), log)
	pool.Start()

	submitted := 0
	for _, idx := range windowIndices {
		cfg := base
		cfg.Bank.WindowIndex = idx
		job := Job{ID: fmt.Sprintf("%s_w%d", base.Symbol, idx), Config: cfg, Candles: candles}
		if err := pool.SubmitJob(job); err != nil {
			break
		}
		submitted++
	}

	out := make([]JobResult, 0, submitted)
collect:
	for i := 0; i < submitted; i++ {
		select {
		case r := <-pool.Results():
			out = append(out, r)
		case <-ctx.Done():
			break collect
		}
	}
	pool.Stop()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Config.Bank.WindowIndex < out[j].Config.Bank.WindowIndex
	})
	return out
}
