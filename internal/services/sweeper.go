package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/anis2566/monorepo-new-sub002/internal/config"
	"github.com/anis2566/monorepo-new-sub002/internal/metrics"
	"github.com/anis2566/monorepo-new-sub002/internal/models"
	"github.com/anis2566/monorepo-new-sub002/internal/repositories"
	"golang.org/x/sync/errgroup"
)

const sweepBatchSize = 500

// SweepReport summarizes one pass of the deadline sweeper.
type SweepReport struct {
	Scanned       int   `json:"scanned"`
	AutoSubmitted int   `json:"auto_submitted"`
	Abandoned     int   `json:"abandoned"`
	Failed        int   `json:"failed"`
	OtpPruned     int64 `json:"otp_pruned"`
}

// Sweeper finalizes attempts left in progress past their deadline and prunes
// stale OTP challenges.
type Sweeper struct {
	repo     repositories.Repository
	attempts AttemptService
	otp      OtpService
	cfg      config.ExamConfig
	logger   *slog.Logger
	now      func() time.Time
}

func NewSweeper(repo repositories.Repository, attempts AttemptService, otp OtpService, cfg config.ExamConfig, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		repo:     repo,
		attempts: attempts,
		otp:      otp,
		cfg:      cfg,
		logger:   logger.With("component", "sweeper"),
		now:      time.Now,
	}
}

// Run sweeps once per interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	s.logger.Info("Deadline sweeper started", "interval", s.cfg.SweepInterval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Deadline sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("Sweep failed", "error", err)
			}
		}
	}
}

func (s *Sweeper) RunOnce(ctx context.Context) (*SweepReport, error) {
	start := time.Now()
	defer func() { metrics.SweepDuration.Observe(time.Since(start).Seconds()) }()

	now := s.now()
	report := &SweepReport{}

	for {
		expired, err := s.repo.Attempt().ListExpiredInProgress(ctx, nil, now, sweepBatchSize)
		if err != nil {
			return report, fmt.Errorf("failed to list expired attempts: %w", err)
		}
		if len(expired) == 0 {
			break
		}

		before := report.AutoSubmitted + report.Abandoned
		if err := s.finalizeBatch(ctx, expired, now, report); err != nil {
			return report, err
		}
		// A batch where nothing moved would be listed again unchanged.
		if len(expired) < sweepBatchSize || report.AutoSubmitted+report.Abandoned == before {
			break
		}
	}

	if s.otp != nil {
		pruned, err := s.otp.PruneExpired(ctx, now.Add(-s.cfg.OtpRetention))
		if err != nil {
			s.logger.WarnContext(ctx, "OTP prune failed", "error", err)
		}
		report.OtpPruned = pruned
	}

	if report.Scanned > 0 {
		s.logger.InfoContext(ctx, "Sweep finished",
			"scanned", report.Scanned,
			"auto_submitted", report.AutoSubmitted,
			"abandoned", report.Abandoned,
			"failed", report.Failed,
			"duration", time.Since(start))
	}
	return report, nil
}

func (s *Sweeper) finalizeBatch(ctx context.Context, expired []*models.ExamAttempt, now time.Time, report *SweepReport) error {
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.cfg.SweepConcurrency, 1))

	for _, attempt := range expired {
		id := attempt.ID
		g.Go(func() error {
			status, err := s.attempts.FinalizeExpired(gctx, id, now)

			mu.Lock()
			defer mu.Unlock()
			report.Scanned++
			if err != nil {
				// counted, the pass continues
				report.Failed++
				s.logger.WarnContext(gctx, "Failed to finalize expired attempt", "attempt_id", id, "error", err)
				return nil
			}
			switch status {
			case models.AttemptAutoSubmitted:
				report.AutoSubmitted++
			case models.AttemptAbandoned:
				report.Abandoned++
			}
			return nil
		})
	}
	return g.Wait()
}
