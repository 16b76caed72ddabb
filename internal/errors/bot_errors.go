package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/ducminhle1904/flipside-bot/internal/exchange"
	"github.com/ducminhle1904/flipside-bot/internal/series"
	"github.com/ducminhle1904/flipside-bot/pkg/types"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	// Stop the process
	ErrorCategoryFatal         ErrorCategory = "FATAL"
	ErrorCategoryCredentials   ErrorCategory = "CREDENTIALS"
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"

	// Abandon the current tick; the next one retries
	ErrorCategoryExchange  ErrorCategory = "EXCHANGE"
	ErrorCategoryNetwork   ErrorCategory = "NETWORK"
	ErrorCategoryTimeout   ErrorCategory = "TIMEOUT"
	ErrorCategoryRateLimit ErrorCategory = "RATE_LIMIT"
	ErrorCategoryStorage   ErrorCategory = "STORAGE"
	ErrorCategoryTemporary ErrorCategory = "TEMPORARY"

	// Skip the operation, no state change
	ErrorCategoryData      ErrorCategory = "DATA"
	ErrorCategoryInvariant ErrorCategory = "INVARIANT"
	ErrorCategoryPanic     ErrorCategory = "PANIC"
)

// BotError represents a categorized error with context
type BotError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
	Retryable  bool
}

// Error implements the error interface
func (e *BotError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *BotError) Unwrap() error {
	return e.Underlying
}

// IsRetryable returns whether this error can be retried
func (e *BotError) IsRetryable() bool {
	return e.Retryable
}

// IsFatal returns whether this error should stop the bot
func (e *BotError) IsFatal() bool {
	return e.Category == ErrorCategoryFatal ||
		e.Category == ErrorCategoryCredentials ||
		e.Category == ErrorCategoryConfiguration
}

// TypeName is the short error class reported to operators.
func (e *BotError) TypeName() string {
	if e.Underlying == nil {
		return string(e.Category)
	}
	return fmt.Sprintf("%s(%T)", e.Category, rootCause(e.Underlying))
}

// NewBotError creates a new categorized bot error
func NewBotError(category ErrorCategory, component, operation, message string) *BotError {
	return &BotError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
		Retryable: isRetryableCategory(category),
	}
}

// WrapError wraps an existing error with bot error context
func WrapError(err error, category ErrorCategory, component, operation string) *BotError {
	if err == nil {
		return nil
	}

	return &BotError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Context:    make(map[string]interface{}),
		Retryable:  isRetryableCategory(category),
	}
}

// WithContext adds context information to the error
func (e *BotError) WithContext(key string, value interface{}) *BotError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRetryable sets the retryable flag
func (e *BotError) WithRetryable(retryable bool) *BotError {
	e.Retryable = retryable
	return e
}

func isRetryableCategory(category ErrorCategory) bool {
	switch category {
	case ErrorCategoryFatal, ErrorCategoryCredentials, ErrorCategoryConfiguration,
		ErrorCategoryInvariant, ErrorCategoryData:
		return false
	default:
		return true
	}
}

// statusCoder is satisfied by exchange client errors.
type statusCoder interface {
	HTTPStatus() int
}

// CategorizeError attempts to categorize a generic error
func CategorizeError(err error, component, operation string) *BotError {
	if err == nil {
		return nil
	}

	var botErr *BotError
	if stderrors.As(err, &botErr) {
		return botErr
	}

	switch {
	case stderrors.Is(err, types.ErrMalformedKline),
		stderrors.Is(err, types.ErrInvalidCandle),
		stderrors.Is(err, series.ErrNonMonotonic):
		return WrapError(err, ErrorCategoryInvariant, component, operation)
	case stderrors.Is(err, series.ErrEmptyFeed),
		stderrors.Is(err, exchange.ErrBelowMinimum):
		return WrapError(err, ErrorCategoryData, component, operation)
	case stderrors.Is(err, context.DeadlineExceeded):
		return WrapError(err, ErrorCategoryTimeout, component, operation)
	}

	var sc statusCoder
	if stderrors.As(err, &sc) {
		switch status := sc.HTTPStatus(); {
		case status == 429 || status == 418:
			return WrapError(err, ErrorCategoryRateLimit, component, operation)
		case status == 401 || status == 403:
			return WrapError(err, ErrorCategoryCredentials, component, operation)
		default:
			return WrapError(err, ErrorCategoryExchange, component, operation)
		}
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		if netErr.Timeout() {
			return WrapError(err, ErrorCategoryTimeout, component, operation)
		}
		return NewNetworkError(component, operation, err)
	}

	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "timeout") {
		return WrapError(err, ErrorCategoryTimeout, component, operation)
	}

	if strings.Contains(errMsg, "connection") || strings.Contains(errMsg, "network") ||
		strings.Contains(errMsg, "dns") || strings.Contains(errMsg, "dial") {
		return NewNetworkError(component, operation, err)
	}

	if strings.Contains(errMsg, "api key") || strings.Contains(errMsg, "signature") ||
		strings.Contains(errMsg, "unauthorized") {
		return WrapError(err, ErrorCategoryCredentials, component, operation)
	}

	if strings.Contains(errMsg, "rate limit") || strings.Contains(errMsg, "too many requests") {
		return WrapError(err, ErrorCategoryRateLimit, component, operation)
	}

	return WrapError(err, ErrorCategoryTemporary, component, operation)
}

func rootCause(err error) error {
	for {
		next := stderrors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// Common error constructors
func NewNetworkError(component, operation string, err error) *BotError {
	return WrapError(err, ErrorCategoryNetwork, component, operation)
}

func NewStorageError(component, operation string, err error) *BotError {
	return WrapError(err, ErrorCategoryStorage, component, operation)
}

func NewConfigurationError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryConfiguration, component, operation, message).WithRetryable(false)
}

func NewDataError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryData, component, operation, message)
}

func NewPanicError(component, operation string, recovered interface{}) *BotError {
	return NewBotError(ErrorCategoryPanic, component, operation, fmt.Sprintf("panic: %v", recovered))
}

func NewFatalError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryFatal, component, operation, message).WithRetryable(false)
}

// Error recovery strategies
type RecoveryAction string

const (
	RecoveryActionRetry RecoveryAction = "RETRY"
	RecoveryActionSkip  RecoveryAction = "SKIP"
	RecoveryActionStop  RecoveryAction = "STOP"
	RecoveryActionWait  RecoveryAction = "WAIT"
)

// GetRecoveryAction suggests a recovery action based on error category
func (e *BotError) GetRecoveryAction() RecoveryAction {
	switch e.Category {
	case ErrorCategoryFatal, ErrorCategoryCredentials, ErrorCategoryConfiguration:
		return RecoveryActionStop
	case ErrorCategoryRateLimit:
		return RecoveryActionWait
	case ErrorCategoryData, ErrorCategoryInvariant:
		return RecoveryActionSkip
	default:
		return RecoveryActionRetry
	}
}

// ErrorStats tracks error statistics. Safe for concurrent use.
type ErrorStats struct {
	mu               sync.Mutex
	totalErrors      int
	errorsByCategory map[ErrorCategory]int
	recentErrors     []*BotError
	maxRecentErrors  int
}

// NewErrorStats creates a new error statistics tracker
func NewErrorStats(maxRecentErrors int) *ErrorStats {
	return &ErrorStats{
		errorsByCategory: make(map[ErrorCategory]int),
		recentErrors:     make([]*BotError, 0, maxRecentErrors),
		maxRecentErrors:  maxRecentErrors,
	}
}

// RecordError records an error in the statistics
func (es *ErrorStats) RecordError(err *BotError) {
	es.mu.Lock()
	defer es.mu.Unlock()

	es.totalErrors++
	es.errorsByCategory[err.Category]++

	es.recentErrors = append(es.recentErrors, err)
	if len(es.recentErrors) > es.maxRecentErrors {
		es.recentErrors = es.recentErrors[1:]
	}
}

// Total returns the number of recorded errors.
func (es *ErrorStats) Total() int {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.totalErrors
}

// ByCategory returns a copy of the per-category counters.
func (es *ErrorStats) ByCategory() map[ErrorCategory]int {
	es.mu.Lock()
	defer es.mu.Unlock()
	out := make(map[ErrorCategory]int, len(es.errorsByCategory))
	for k, v := range es.errorsByCategory {
		out[k] = v
	}
	return out
}

// HasRecentErrors checks if there have been errors in the recent history
func (es *ErrorStats) HasRecentErrors(category ErrorCategory, count int) bool {
	es.mu.Lock()
	defer es.mu.Unlock()

	recentCount := 0
	for _, err := range es.recentErrors {
		if err.Category == category {
			recentCount++
		}
	}
	return recentCount >= count
}
