package channel

import (
	"context"

	"go.uber.org/zap"
)

// LogSender accepts every message and only logs it. It stands in for a
// real provider when one is not configured (local runs).
type LogSender struct {
	channel string
	logger  *zap.Logger
}

func NewLogSender(channel string, logger *zap.Logger) *LogSender {
	return &LogSender{channel: channel, logger: logger}
}

func (s *LogSender) Send(_ context.Context, recipient, subject, body string) error {
	s.logger.Info("delivery simulated",
		zap.String("channel", s.channel),
		zap.String("recipient", recipient),
		zap.String("subject", subject),
		zap.Int("body_len", len(body)),
	)
	return nil
}
