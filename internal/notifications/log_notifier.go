package notifications

import (
	"context"

	"github.com/ducminhle1904/flipside-bot/internal/logger"
)

// LogNotifier writes notifications to the bot log.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: logger.OrNop(log)}
}

func (n *LogNotifier) Notify(_ context.Context, level Level, message string) error {
	switch level {
	case LevelError, LevelCritical:
		n.log.Error("%s", message)
	case LevelWarning:
		n.log.Warning("%s", message)
	case LevelTrade:
		n.log.Trade("%s", message)
	default:
		n.log.Info("%s", message)
	}
	return nil
}
