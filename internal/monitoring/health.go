package monitoring

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	boterrors "github.com/ducminhle1904/flipside-bot/internal/errors"
)

var startTime = time.Now()

// HealthChecker reports whether every pair is ticking.
type HealthChecker struct {
	mu          sync.RWMutex
	staleAfter  time.Duration
	isConnected bool
	pairs       map[string]*PairHealth
	stats       *boterrors.ErrorStats
	now         func() time.Time
}

// PairHealth is the last known state of one pair.
type PairHealth struct {
	LastTick  time.Time `json:"last_tick"`
	LastTrade time.Time `json:"last_trade,omitempty"`
	LastPrice float64   `json:"last_price"`
	LastError string    `json:"last_error,omitempty"`
	Committed bool      `json:"committed"`
}

type HealthStatus struct {
	Status      string                `json:"status"`
	Timestamp   time.Time             `json:"timestamp"`
	IsConnected bool                  `json:"is_connected"`
	Uptime      string                `json:"uptime"`
	Pairs       map[string]PairHealth `json:"pairs"`
	Stale       []string              `json:"stale,omitempty"`
	Errors      map[string]int        `json:"errors,omitempty"`
}

// NewHealthChecker marks a pair stale once it has not ticked for staleAfter.
func NewHealthChecker(staleAfter time.Duration, stats *boterrors.ErrorStats) *HealthChecker {
	return &HealthChecker{
		staleAfter: staleAfter,
		pairs:      make(map[string]*PairHealth),
		stats:      stats,
		now:        time.Now,
	}
}

func (h *HealthChecker) pair(symbol string) *PairHealth {
	p, ok := h.pairs[symbol]
	if !ok {
		p = &PairHealth{}
		h.pairs[symbol] = p
	}
	return p
}

func (h *HealthChecker) SetConnected(connected bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isConnected = connected
}

// MarkTick records a completed tick. A nil err clears the last error.
func (h *HealthChecker) MarkTick(symbol string, at time.Time, price float64, committed bool, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p := h.pair(symbol)
	p.LastTick = at
	if price > 0 {
		p.LastPrice = price
	}
	p.Committed = committed
	p.LastError = ""
	if err != nil {
		p.LastError = err.Error()
	}
}

func (h *HealthChecker) MarkTrade(symbol string, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pair(symbol).LastTrade = at
}

// Status evaluates the current health.
func (h *HealthChecker) Status() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	now := h.now()
	status := HealthStatus{
		Status:      "healthy",
		Timestamp:   now,
		IsConnected: h.isConnected,
		Uptime:      time.Since(startTime).Round(time.Second).String(),
		Pairs:       make(map[string]PairHealth, len(h.pairs)),
	}

	failing := false
	for symbol, p := range h.pairs {
		status.Pairs[symbol] = *p
		if h.staleAfter > 0 && now.Sub(p.LastTick) > h.staleAfter {
			status.Stale = append(status.Stale, symbol)
		}
		if p.LastError != "" {
			failing = true
		}
	}
	sort.Strings(status.Stale)

	if h.stats != nil {
		status.Errors = make(map[string]int)
		for cat, n := range h.stats.ByCategory() {
			status.Errors[string(cat)] = n
		}
	}

	switch {
	case failing:
		status.Status = "unhealthy"
	case !h.isConnected || len(status.Stale) > 0:
		status.Status = "degraded"
	}
	return status
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.Status()

	w.Header().Set("Content-Type", "application/json")
	switch status.Status {
	case "unhealthy":
		w.WriteHeader(http.StatusInternalServerError)
	case "degraded":
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(status)
}

// NewServeMux exposes /metrics and /health.
func NewServeMux(health *HealthChecker) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler())
	mux.Handle("/health", health)
	return mux
}
