package sms

import (
	"context"
	"log/slog"
)

// noopDispatcher logs instead of sending. It keeps local development usable
// without a provider account.
type noopDispatcher struct {
	logger *slog.Logger
}

func NewNoopDispatcher(logger *slog.Logger) Dispatcher {
	return &noopDispatcher{logger: logger}
}

func (d *noopDispatcher) Send(ctx context.Context, phone, message string) error {
	if phone == "" {
		return ErrEmptyPhone
	}
	d.logger.DebugContext(ctx, "SMS not sent, noop dispatcher", "phone", phone, "length", len(message))
	return nil
}

func (d *noopDispatcher) SendOTP(ctx context.Context, phone, code string) error {
	if phone == "" {
		return ErrEmptyPhone
	}
	d.logger.InfoContext(ctx, "OTP not sent, noop dispatcher", "phone", phone, "code", code)
	return nil
}
