// Package email delivers transactional mail through SMTP, Amazon SES or, in
// development, the application log.
package email

import (
	"context"
	"fmt"
	"log/slog"

	"sixtylens/internal/config"
)

const (
	ProviderLog  = "log"
	ProviderSMTP = "smtp"
	ProviderSES  = "ses"
)

type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// New builds the sender selected by cfg.Provider.
func New(ctx context.Context, cfg config.EmailConfig, logger *slog.Logger) (Sender, error) {
	switch cfg.Provider {
	case ProviderLog, "":
		return NewLogSender(logger), nil
	case ProviderSMTP:
		return NewSMTPSender(cfg)
	case ProviderSES:
		return NewSESSender(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}

// LogSender writes messages to the logger instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, to, subject, text, _ string) error {
	s.logger.InfoContext(ctx, "email not sent (log provider)", "to", to, "subject", subject, "body", text)
	return nil
}
