// Package sms abstracts the delivery of login codes to phones.
//
// There is no real SMS gateway wired in: the log sender below writes the
// code to the application log, which is exactly what you want for local
// development and demos. Swapping in a real provider later means adding
// another Sender implementation and choosing it in main — nothing in the
// auth flow changes.
package sms

import (
	"context"
	"log/slog"
)

// Sender delivers a one-time login code to a phone number.
type Sender interface {
	Send(ctx context.Context, phone, code string) error
}

var _ Sender = (*LogSender)(nil)

// LogSender "delivers" codes by logging them at INFO level.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a log-backed sender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, phone, code string) error {
	s.logger.Info("sms login code issued",
		slog.String("phone", phone),
		slog.String("code", code),
	)
	return nil
}
