package sms

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kavenegar/kavenegar-go"
)

type kavenegarDispatcher struct {
	api      *kavenegar.Kavenegar
	sender   string
	template string
	logger   *slog.Logger
}

func NewKavenegarDispatcher(apiKey, sender, template string, logger *slog.Logger) Dispatcher {
	return &kavenegarDispatcher{
		api:      kavenegar.New(apiKey),
		sender:   sender,
		template: template,
		logger:   logger,
	}
}

func (d *kavenegarDispatcher) Send(ctx context.Context, phone, message string) error {
	if phone == "" {
		return ErrEmptyPhone
	}

	return runWithContext(ctx, func() error {
		res, err := d.api.Message.Send(d.sender, []string{phone}, message, nil)
		if err != nil {
			return wrapKavenegarError(err)
		}
		if len(res) == 0 {
			return fmt.Errorf("kavenegar returned no message entries")
		}
		return nil
	})
}

// SendOTP uses the verify template and falls back to a plain message when the
// template lookup is rejected.
func (d *kavenegarDispatcher) SendOTP(ctx context.Context, phone, code string) error {
	if phone == "" {
		return ErrEmptyPhone
	}

	err := runWithContext(ctx, func() error {
		_, err := d.api.Verify.Lookup(phone, d.template, code, &kavenegar.VerifyLookupParam{})
		return err
	})
	if err == nil || ctx.Err() != nil {
		return err
	}

	d.logger.Warn("Kavenegar verify lookup failed, falling back to plain SMS",
		"template", d.template,
		"error", err)
	return d.Send(ctx, phone, fmt.Sprintf("Your verification code is %s", code))
}

func wrapKavenegarError(err error) error {
	switch e := err.(type) {
	case *kavenegar.APIError:
		return fmt.Errorf("kavenegar API error: %w", e)
	case *kavenegar.HTTPError:
		return fmt.Errorf("kavenegar HTTP error: %w", e)
	default:
		return fmt.Errorf("failed to send SMS: %w", err)
	}
}
