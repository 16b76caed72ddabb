package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a pair-scoped logger for tracker activity. It keeps the
// printf-style helpers the bot uses everywhere and routes them through zap.
type Logger struct {
	symbol   string
	interval string
	logDir   string
	file     *os.File
	zl       *zap.Logger
}

// LogLevel represents different types of log entries
type LogLevel string

const (
	LogLevelDebug   LogLevel = "DEBUG"
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
	LogLevelTrade   LogLevel = "TRADE"
	LogLevelStatus  LogLevel = "STATUS"
)

// Options controls where log entries are written.
type Options struct {
	Level   string // debug, info, warn, error
	Dir     string // empty disables the file sink
	Console bool
}

// NewLogger creates a logger for the specified symbol and interval that writes
// readable lines to stdout and JSON lines to logs/<symbol>_<interval>_<date>.log.
func NewLogger(symbol, interval string) (*Logger, error) {
	return New(symbol, interval, Options{Level: "info", Dir: "logs", Console: true})
}

// New builds a logger from explicit options.
func New(symbol, interval string, opts Options) (*Logger, error) {
	level := parseLevel(opts.Level)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var cores []zapcore.Core
	if opts.Console {
		consoleConfig := encoderConfig
		consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.AddSync(os.Stdout), level))
	}

	l := &Logger{symbol: symbol, interval: interval, logDir: opts.Dir}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(l.GetLogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = file
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(file), level))
	}

	if len(cores) == 0 {
		l.zl = zap.NewNop()
		return l, nil
	}

	base := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(2))
	if symbol != "" {
		base = base.With(zap.String("symbol", symbol))
	}
	if interval != "" {
		base = base.With(zap.String("interval", interval))
	}
	l.zl = base
	return l, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{zl: zap.NewNop()}
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *Logger) *Logger {
	if l == nil {
		return NewNop()
	}
	return l
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// With returns a child logger carrying the given structured fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	child := *l
	child.file = nil // only the root owns the file
	child.zl = l.zl.With(fields...)
	return &child
}

// Zap exposes the underlying zap logger.
func (l *Logger) Zap() *zap.Logger {
	return l.zl
}

// Log writes a formatted log entry with the specified level
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	kind := zap.String("kind", string(level))
	switch level {
	case LogLevelDebug:
		l.zl.Debug(message, kind)
	case LogLevelWarning:
		l.zl.Warn(message, kind)
	case LogLevelError:
		l.zl.Error(message, kind)
	default:
		l.zl.Info(message, kind)
	}
}

// Debug logs a diagnostic message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.Log(LogLevelDebug, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LogLevelWarning, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

// Trade logs a trading action
func (l *Logger) Trade(format string, args ...interface{}) {
	l.Log(LogLevelTrade, format, args...)
}

// Status logs market status information
func (l *Logger) Status(format string, args ...interface{}) {
	l.Log(LogLevelStatus, format, args...)
}

// LogError logs error with context
func (l *Logger) LogError(context string, err error) {
	l.zl.Error(context, zap.Error(err), zap.String("kind", string(LogLevelError)))
}

// LogTradeExecution logs one filled order.
func (l *Logger) LogTradeExecution(side, orderID string, at time.Time, price, base, quote float64, forced bool) {
	l.zl.Info("order executed",
		zap.String("kind", string(LogLevelTrade)),
		zap.String("side", side),
		zap.String("order_id", orderID),
		zap.Time("bar_time", at),
		zap.Float64("price", price),
		zap.Float64("base", base),
		zap.Float64("quote", quote),
		zap.Bool("forced", forced),
	)
}

// Close flushes buffered entries and closes the log file.
func (l *Logger) Close() error {
	_ = l.zl.Sync()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// GetLogPath returns the current log file path
func (l *Logger) GetLogPath() string {
	timestamp := time.Now().Format("2006-01-02")
	name := l.symbol
	if name == "" {
		name = "flipside"
	}
	filename := fmt.Sprintf("%s_%s_%s.log", name, l.interval, timestamp)
	return filepath.Join(l.logDir, filename)
}
