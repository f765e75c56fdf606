package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/anis2566/monorepo-new-sub002/internal/auth"
	"github.com/anis2566/monorepo-new-sub002/internal/handlers"
	"github.com/anis2566/monorepo-new-sub002/internal/metrics"
	"github.com/anis2566/monorepo-new-sub002/internal/middleware"
	"github.com/anis2566/monorepo-new-sub002/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the deadline sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics.Register()

	otpLimiter := middleware.NewIPRateLimiter(a.cfg.RateLimit.OTPRequests, a.cfg.RateLimit.OTPWindow)
	go otpLimiter.RunCleanup(ctx)
	go a.services.Sweeper().Run(ctx)

	logger := utils.NewSlogLogger(a.logger)
	hm := handlers.NewHandlerManager(a.services, auth.NewVerifier(a.cfg.Auth), otpLimiter, logger)

	server := &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      handlers.NewRouter(hm, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting exam service", "port", a.cfg.Port, "environment", a.cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.logger.Info("Shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
