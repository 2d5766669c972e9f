// Package logsender is a development Sender that writes codes to the
// log instead of delivering them. Never use it outside development.
package logsender

import (
	"context"
	"log/slog"
)

type Sender struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{logger: logger}
}

func (s *Sender) SendCode(ctx context.Context, email, code string) error {
	s.logger.Warn("development otp delivery",
		"email", email,
		"code", code,
	)
	return nil
}
