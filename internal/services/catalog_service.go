package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anis2566/monorepo-new-sub002/internal/models"
	"github.com/anis2566/monorepo-new-sub002/internal/repositories"
)

type catalogService struct {
	repo   repositories.Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewCatalogService(repo repositories.Repository, logger *slog.Logger) CatalogService {
	return &catalogService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// GetExamSummary exposes exam metadata without questions or answer keys.
func (s *catalogService) GetExamSummary(ctx context.Context, examID uint) (*ExamSummary, error) {
	exam, err := s.repo.Exam().GetByID(ctx, nil, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	return &ExamSummary{
		ID:                exam.ID,
		Title:             exam.Title,
		Type:              exam.Type,
		Status:            exam.StatusAt(s.now()),
		DurationMinutes:   exam.DurationMinutes,
		TotalQuestions:    exam.TotalQuestions,
		TotalMarks:        exam.TotalMarks,
		MarkPerQuestion:   exam.PerQuestionMark(),
		HasNegativeMark:   exam.HasNegativeMark,
		NegativeMarkValue: exam.NegativeMarkValue,
		MaxTabSwitches:    exam.MaxTabSwitches,
		Subjects:          []string(exam.Subjects),
		StartDate:         exam.StartDate,
		EndDate:           exam.EndDate,
	}, nil
}

func (s *catalogService) ListClassOptions(ctx context.Context) ([]models.ClassOption, error) {
	options, err := s.repo.Student().ListClassOptions(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list class options: %w", err)
	}
	if options == nil {
		options = []models.ClassOption{}
	}
	return options, nil
}
