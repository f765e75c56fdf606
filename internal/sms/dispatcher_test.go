package sms

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anis2566/monorepo-new-sub002/internal/config"
	"github.com/anis2566/monorepo-new-sub002/internal/utils"
	"github.com/stretchr/testify/assert"
)

func TestNewDispatcher_FallsBackToNoop(t *testing.T) {
	logger := utils.NewDiscardLogger()

	cases := []config.SMSConfig{
		{Provider: ""},
		{Provider: "kavenegar"},
		{Provider: "carrier-pigeon", APIKey: "key"},
	}
	for _, cfg := range cases {
		d := NewDispatcher(cfg, logger)
		_, ok := d.(*noopDispatcher)
		assert.True(t, ok, "provider %q", cfg.Provider)
	}

	d := NewDispatcher(config.SMSConfig{Provider: "Kavenegar", APIKey: "key"}, logger)
	_, ok := d.(*kavenegarDispatcher)
	assert.True(t, ok)
}

func TestNoopDispatcher_RequiresPhone(t *testing.T) {
	d := NewNoopDispatcher(utils.NewDiscardLogger())

	assert.ErrorIs(t, d.SendOTP(context.Background(), "", "123456"), ErrEmptyPhone)
	assert.NoError(t, d.SendOTP(context.Background(), "01711111111", "123456"))
}

func TestRunWithContext_TimesOut(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	release := make(chan struct{})
	defer close(release)

	err := runWithContext(ctx, func() error {
		<-release
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunWithContext_ReturnsCallError(t *testing.T) {
	boom := errors.New("boom")
	err := runWithContext(context.Background(), func() error { return boom })
	assert.ErrorIs(t, err, boom)
}
