package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Tick metrics
	ticksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flipside_ticks_total",
			Help: "Scheduler ticks per pair by result",
		},
		[]string{"symbol", "result"},
	)

	tickDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flipside_tick_duration_seconds",
			Help:    "Wall time of one pair tick",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"symbol"},
	)

	candlesAppended = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flipside_candles_appended_total",
			Help: "Closed candles appended to the series store",
		},
		[]string{"symbol"},
	)

	// Signal metrics
	subSignals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flipside_sub_signals_total",
			Help: "Rule triggers by rule and action",
		},
		[]string{"symbol", "rule", "action"},
	)

	dominantSignals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flipside_dominant_signals_total",
			Help: "Bars resolved to a non-HOLD dominant signal",
		},
		[]string{"symbol", "action"},
	)

	// Trading metrics
	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flipside_trades_total",
			Help: "Total number of trades executed",
		},
		[]string{"symbol", "side"},
	)

	tradeQuote = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flipside_trade_quote",
			Help:    "Quote amount per trade",
			Buckets: prometheus.ExponentialBuckets(10, 2, 12),
		},
		[]string{"symbol"},
	)

	refusalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flipside_refusals_total",
			Help: "Signals the position declined, by outcome",
		},
		[]string{"symbol", "outcome"},
	)

	stopLossesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flipside_stop_losses_total",
			Help: "Forced exits below the stop level",
		},
		[]string{"symbol"},
	)

	realizedPnL = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flipside_realized_pnl",
			Help: "Realized profit in quote currency",
		},
		[]string{"symbol"},
	)

	// Market data metrics
	currentPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flipside_current_price",
			Help: "Close of the newest bar",
		},
		[]string{"symbol"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flipside_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(
		ticksTotal, tickDuration, candlesAppended,
		subSignals, dominantSignals,
		tradesTotal, tradeQuote, refusalsTotal, stopLossesTotal, realizedPnL,
		currentPrice, errorsTotal,
	)
}

// MetricsHandler serves the Prometheus metrics endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordTick records one pair tick.
func RecordTick(symbol string, ok bool, took time.Duration) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	ticksTotal.WithLabelValues(symbol, result).Inc()
	tickDuration.WithLabelValues(symbol).Observe(took.Seconds())
}

func RecordCandles(symbol string, n int) {
	candlesAppended.WithLabelValues(symbol).Add(float64(n))
}

func RecordSubSignal(symbol, rule, action string) {
	subSignals.WithLabelValues(symbol, rule, action).Inc()
}

func RecordDominant(symbol, action string) {
	dominantSignals.WithLabelValues(symbol, action).Inc()
}

// RecordTrade records a trade metric
func RecordTrade(symbol, side string, quote float64, forced bool) {
	tradesTotal.WithLabelValues(symbol, side).Inc()
	tradeQuote.WithLabelValues(symbol).Observe(quote)
	if forced {
		stopLossesTotal.WithLabelValues(symbol).Inc()
	}
}

func RecordRefusal(symbol, outcome string) {
	refusalsTotal.WithLabelValues(symbol, outcome).Inc()
}

func UpdateRealizedPnL(symbol string, pnl float64) {
	realizedPnL.WithLabelValues(symbol).Set(pnl)
}

// UpdatePrice updates the current price metric
func UpdatePrice(symbol string, price float64) {
	currentPrice.WithLabelValues(symbol).Set(price)
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
