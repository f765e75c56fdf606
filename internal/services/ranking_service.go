package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anis2566/monorepo-new-sub002/internal/cache"
	"github.com/anis2566/monorepo-new-sub002/internal/config"
	"github.com/anis2566/monorepo-new-sub002/internal/models"
	"github.com/anis2566/monorepo-new-sub002/internal/repositories"
	"github.com/anis2566/monorepo-new-sub002/internal/validator"
	"golang.org/x/sync/singleflight"
)

var leaderboardVariants = []models.LeaderboardVariant{
	models.LeaderboardOverall,
	models.LeaderboardWeekly,
	models.LeaderboardStreak,
}

type rankingService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	validator *validator.Validator
	cfg       config.ExamConfig
	logger    *slog.Logger
	sf        singleflight.Group
	now       func() time.Time
}

func NewRankingService(repo repositories.Repository, cacheService cache.CacheService, v *validator.Validator, cfg config.ExamConfig, logger *slog.Logger) RankingService {
	return &rankingService{
		repo:      repo,
		cache:     cacheService,
		validator: v,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// ===== MERIT LIST =====

func (s *rankingService) GetMeritList(ctx context.Context, examID uint, query MeritListQuery) (*models.MeritList, error) {
	if err := s.validator.Validate(&query); err != nil {
		return nil, err
	}

	full, err := s.fullMeritList(ctx, examID)
	if err != nil {
		return nil, err
	}

	limit := query.Limit
	if limit == 0 {
		limit = s.cfg.DefaultPageSize
	}
	start, end := paginate(len(full.Entries), limit, query.Offset)

	page := *full
	page.Entries = full.Entries[start:end]
	return &page, nil
}

func (s *rankingService) fullMeritList(ctx context.Context, examID uint) (*models.MeritList, error) {
	key := cache.MeritListKey(examID)

	var cached models.MeritList
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.WarnContext(ctx, "Merit list cache read failed", "exam_id", examID, "error", err)
	}

	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		// Detached: every caller waiting on key shares this fill.
		ctx := context.WithoutCancel(ctx)
		exam, err := s.repo.Exam().GetByID(ctx, nil, examID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrExamNotFound
			}
			return nil, fmt.Errorf("failed to get exam: %w", err)
		}

		rows, err := s.repo.Attempt().ListMeritRows(ctx, nil, examID, repositories.MeritFilters{Limit: s.cfg.MaxMeritListEntries})
		if err != nil {
			return nil, fmt.Errorf("failed to list merit rows: %w", err)
		}
		entries := RankMeritRows(rows)

		total := len(entries)
		if limit := s.cfg.MaxMeritListEntries; limit > 0 && total >= limit {
			count, err := s.repo.Attempt().CountFinalized(ctx, nil, examID)
			if err != nil {
				return nil, fmt.Errorf("failed to count finalized attempts: %w", err)
			}
			total = int(count)
		}

		list := &models.MeritList{
			ExamID:      examID,
			ExamTitle:   exam.Title,
			Total:       total,
			Truncated:   total > len(entries),
			Entries:     entries,
			GeneratedAt: s.now(),
		}
		if err := s.cache.Set(ctx, key, list, cache.WithJitter(s.cfg.RankingCacheTTL)); err != nil {
			s.logger.WarnContext(ctx, "Merit list cache write failed", "exam_id", examID, "error", err)
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.MeritList), nil
}

// ===== LEADERBOARD =====

func (s *rankingService) GetLeaderboard(ctx context.Context, query LeaderboardQuery) (*models.Leaderboard, error) {
	if query.Variant == "" {
		query.Variant = models.LeaderboardOverall
	}
	if !isLeaderboardVariant(query.Variant) {
		return nil, ErrInvalidLeaderboardVariant
	}
	if err := s.validator.Validate(&query); err != nil {
		return nil, err
	}

	full, err := s.fullLeaderboard(ctx, query.Variant)
	if err != nil {
		return nil, err
	}

	limit := query.Limit
	if limit == 0 {
		limit = s.cfg.DefaultPageSize
	}
	start, end := paginate(len(full.Entries), limit, query.Offset)

	board := &models.Leaderboard{
		Variant:     full.Variant,
		Total:       full.Total,
		Entries:     append([]models.LeaderboardEntry(nil), full.Entries[start:end]...),
		GeneratedAt: full.GeneratedAt,
	}
	if query.StudentID != "" {
		for i := range full.Entries {
			if full.Entries[i].StudentID == query.StudentID {
				me := full.Entries[i]
				board.Me = &me
				break
			}
		}
	}

	if err := s.attachStudents(ctx, board); err != nil {
		return nil, err
	}
	return board, nil
}

func (s *rankingService) fullLeaderboard(ctx context.Context, variant models.LeaderboardVariant) (*models.Leaderboard, error) {
	key := cache.LeaderboardKey(string(variant))

	var cached models.Leaderboard
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.WarnContext(ctx, "Leaderboard cache read failed", "variant", variant, "error", err)
	}

	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		ctx := context.WithoutCancel(ctx)
		now := s.now()
		filters := repositories.LeaderboardFilters{}
		if variant == models.LeaderboardWeekly {
			since := now.Add(-7 * 24 * time.Hour)
			filters.FinishedSince = &since
		}

		aggregates, err := s.repo.Attempt().AggregateByStudent(ctx, nil, filters)
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate attempts: %w", err)
		}
		entries := RankStudents(variant, aggregates)
		s.applySnapshot(ctx, variant, entries, now)

		board := &models.Leaderboard{
			Variant:     variant,
			Total:       len(entries),
			Entries:     entries,
			GeneratedAt: now,
		}
		if err := s.cache.Set(ctx, key, board, cache.WithJitter(s.cfg.RankingCacheTTL)); err != nil {
			s.logger.WarnContext(ctx, "Leaderboard cache write failed", "variant", variant, "error", err)
		}
		return board, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Leaderboard), nil
}

// applySnapshot fills previous ranks and rotates the stored snapshot. Failures
// only cost the rank-change display.
func (s *rankingService) applySnapshot(ctx context.Context, variant models.LeaderboardVariant, entries []models.LeaderboardEntry, now time.Time) {
	key := cache.RankSnapshotKey(string(variant))

	var stored *rankSnapshot
	var snap rankSnapshot
	if err := s.cache.Get(ctx, key, &snap); err == nil {
		stored = &snap
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.WarnContext(ctx, "Rank snapshot read failed", "variant", variant, "error", err)
	}

	next := stored.rotate(entries, now, s.cfg.RankSnapshotEvery)
	applyPreviousRanks(entries, next.Previous)

	if next != stored {
		if err := s.cache.Set(ctx, key, next, 3*s.cfg.RankSnapshotEvery); err != nil {
			s.logger.WarnContext(ctx, "Rank snapshot write failed", "variant", variant, "error", err)
		}
	}
}

func (s *rankingService) attachStudents(ctx context.Context, board *models.Leaderboard) error {
	ids := make([]string, 0, len(board.Entries)+1)
	for _, e := range board.Entries {
		ids = append(ids, e.StudentID)
	}
	if board.Me != nil {
		ids = append(ids, board.Me.StudentID)
	}

	students, err := s.repo.Student().GetByIDs(ctx, nil, ids)
	if err != nil {
		return fmt.Errorf("failed to get students: %w", err)
	}

	fill := func(e *models.LeaderboardEntry) {
		if st, ok := students[e.StudentID]; ok {
			e.Name = st.Name
			e.Class = st.Class
			e.Institution = st.Institution
			e.ImageURL = st.ImageURL
		}
	}
	for i := range board.Entries {
		fill(&board.Entries[i])
	}
	if board.Me != nil {
		fill(board.Me)
	}
	return nil
}

// ===== INVALIDATION =====

func (s *rankingService) InvalidateExam(ctx context.Context, examID uint) {
	if err := s.cache.DeletePattern(ctx, cache.MeritListPattern(examID)); err != nil {
		s.logger.WarnContext(ctx, "Failed to invalidate merit list", "exam_id", examID, "error", err)
	}

	keys := make([]string, 0, len(leaderboardVariants))
	for _, v := range leaderboardVariants {
		keys = append(keys, cache.LeaderboardKey(string(v)))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.WarnContext(ctx, "Failed to invalidate leaderboards", "error", err)
	}
}

func isLeaderboardVariant(v models.LeaderboardVariant) bool {
	for _, known := range leaderboardVariants {
		if v == known {
			return true
		}
	}
	return false
}
