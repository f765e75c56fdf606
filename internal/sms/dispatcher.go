// Package sms delivers OTP codes and plain messages to phones.
package sms

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/anis2566/monorepo-new-sub002/internal/config"
)

var ErrEmptyPhone = errors.New("phone number is required")

// Dispatcher sends text messages. Implementations honour ctx cancellation even
// when the provider client itself blocks.
type Dispatcher interface {
	Send(ctx context.Context, phone, message string) error
	SendOTP(ctx context.Context, phone, code string) error
}

// NewDispatcher picks a provider from configuration, falling back to the noop
// dispatcher when the provider is unknown or has no API key.
func NewDispatcher(cfg config.SMSConfig, logger *slog.Logger) Dispatcher {
	switch strings.ToLower(cfg.Provider) {
	case "kavenegar":
		if cfg.APIKey == "" {
			logger.Warn("SMS provider is kavenegar but no API key is set, using noop dispatcher")
			return NewNoopDispatcher(logger)
		}
		logger.Info("Initializing Kavenegar SMS dispatcher", "sender", cfg.Sender, "template", cfg.OTPTemplate)
		return NewKavenegarDispatcher(cfg.APIKey, cfg.Sender, cfg.OTPTemplate, logger)
	case "", "noop":
		logger.Warn("SMS provider is not configured, using noop dispatcher")
		return NewNoopDispatcher(logger)
	default:
		logger.Warn("Unknown SMS provider, using noop dispatcher", "provider", cfg.Provider)
		return NewNoopDispatcher(logger)
	}
}

// runWithContext runs a blocking provider call and gives up when ctx is done.
// The call keeps running in the background; its result is dropped.
func runWithContext(ctx context.Context, call func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- call()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
