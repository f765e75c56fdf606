package services

import (
	"testing"
	"time"

	"github.com/anis2566/monorepo-new-sub002/internal/models"
	"github.com/anis2566/monorepo-new-sub002/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogService_GetExamSummary(t *testing.T) {
	f := newFixture(t)
	catalog := NewCatalogService(f.repo, utils.NewDiscardLogger()).(*catalogService)
	catalog.now = f.clock.Now

	summary, err := catalog.GetExamSummary(f.ctx, testExamID)
	require.NoError(t, err)
	assert.Equal(t, "Physics Model Test", summary.Title)
	assert.Equal(t, models.ExamOngoing, summary.Status)
	assert.True(t, decimal.NewFromInt(1).Equal(summary.MarkPerQuestion))

	f.clock.Advance(4 * time.Hour)
	summary, err = catalog.GetExamSummary(f.ctx, testExamID)
	require.NoError(t, err)
	assert.Equal(t, models.ExamCompleted, summary.Status)

	_, err = catalog.GetExamSummary(f.ctx, 42)
	assert.ErrorIs(t, err, ErrExamNotFound)
}

func TestCatalogService_ListClassOptions(t *testing.T) {
	f := newFixture(t)
	catalog := NewCatalogService(f.repo, utils.NewDiscardLogger())

	empty, err := catalog.ListClassOptions(f.ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	f.repo.SeedClassOptions(
		models.ClassOption{ID: 2, Name: "HSC 2027", SortOrder: 2},
		models.ClassOption{ID: 1, Name: "HSC 2026", SortOrder: 1},
	)
	options, err := catalog.ListClassOptions(f.ctx)
	require.NoError(t, err)
	require.Len(t, options, 2)
	assert.Equal(t, "HSC 2026", options[0].Name)
}
