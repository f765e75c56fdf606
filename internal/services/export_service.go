package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/anis2566/monorepo-new-sub002/internal/models"
	"github.com/anis2566/monorepo-new-sub002/internal/storage"
	"github.com/xuri/excelize/v2"
)

const (
	meritSheetName   = "Merit List"
	meritExportBatch = 1000
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var meritHeaders = []string{
	"Rank", "Name", "Class", "Institution", "Score", "Percentage",
	"Correct", "Wrong", "Duration (seconds)", "Finished At",
}

type exportService struct {
	ranking RankingService
	store   storage.ObjectStore
	logger  *slog.Logger
	now     func() time.Time
}

// NewExportService builds the merit list exporter. store may be nil, in which case
// archiving returns ErrStorageDisabled.
func NewExportService(ranking RankingService, store storage.ObjectStore, logger *slog.Logger) ExportService {
	return &exportService{
		ranking: ranking,
		store:   store,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *exportService) ExportMeritList(ctx context.Context, examID uint, w io.Writer) error {
	_, err := s.writeMeritWorkbook(ctx, examID, w)
	return err
}

func (s *exportService) ArchiveMeritList(ctx context.Context, examID uint) (*ArchiveResult, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}

	var buf bytes.Buffer
	count, err := s.writeMeritWorkbook(ctx, examID, &buf)
	if err != nil {
		return nil, err
	}

	archivedAt := s.now().UTC()
	name := fmt.Sprintf("exam-%d/merit-list-%s.xlsx", examID, archivedAt.Format("20060102T150405Z"))
	url, err := s.store.Upload(ctx, name, bytes.NewReader(buf.Bytes()), int64(buf.Len()), xlsxContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to archive merit list: %w", err)
	}

	s.logger.InfoContext(ctx, "Merit list archived",
		"exam_id", examID,
		"object", name,
		"entries", count)

	return &ArchiveResult{
		ExamID:     examID,
		ObjectName: name,
		URL:        url,
		Entries:    count,
		ArchivedAt: archivedAt,
	}, nil
}

func (s *exportService) writeMeritWorkbook(ctx context.Context, examID uint, w io.Writer) (int, error) {
	entries, err := s.collectMeritEntries(ctx, examID)
	if err != nil {
		return 0, err
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(meritSheetName)
	if err != nil {
		return 0, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return 0, fmt.Errorf("failed to remove default sheet: %w", err)
	}

	for i, header := range meritHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(meritSheetName, cell, header); err != nil {
			return 0, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for rowIndex, e := range entries {
		row := []interface{}{
			e.Rank,
			e.Name,
			e.Class,
			e.Institution,
			e.Score.InexactFloat64(),
			e.Percentage.InexactFloat64(),
			e.CorrectAnswers,
			e.WrongAnswers,
			e.DurationSeconds,
			e.EndTime.Format("2006-01-02 15:04:05"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, rowIndex+2)
		if err := f.SetSheetRow(meritSheetName, cell, &row); err != nil {
			return 0, fmt.Errorf("failed to write row %d: %w", rowIndex+1, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return 0, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return len(entries), nil
}

func (s *exportService) collectMeritEntries(ctx context.Context, examID uint) ([]models.MeritEntry, error) {
	var entries []models.MeritEntry
	for {
		page, err := s.ranking.GetMeritList(ctx, examID, MeritListQuery{Limit: meritExportBatch, Offset: len(entries)})
		if err != nil {
			return nil, err
		}
		entries = append(entries, page.Entries...)
		if len(page.Entries) == 0 || len(entries) >= page.Total {
			return entries, nil
		}
	}
}
