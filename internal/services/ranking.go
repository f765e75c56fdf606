package services

import (
	"sort"
	"time"

	"github.com/anis2566/monorepo-new-sub002/internal/models"
	"github.com/anis2566/monorepo-new-sub002/internal/repositories"
)

// lessMerit orders by score desc, then faster completion, then earlier finish.
// The attempt id makes the order total.
func lessMerit(a, b repositories.MeritRow) bool {
	if c := a.Score.Cmp(b.Score); c != 0 {
		return c > 0
	}
	if da, db := a.Duration(), b.Duration(); da != db {
		return da < db
	}
	if !a.EndTime.Equal(b.EndTime) {
		return a.EndTime.Before(b.EndTime)
	}
	return a.AttemptID < b.AttemptID
}

// RankMeritRows assigns 1-based positions. Every entry gets a distinct rank.
func RankMeritRows(rows []repositories.MeritRow) []models.MeritEntry {
	sorted := make([]repositories.MeritRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return lessMerit(sorted[i], sorted[j]) })

	entries := make([]models.MeritEntry, len(sorted))
	for i, r := range sorted {
		entries[i] = models.MeritEntry{
			Rank:            i + 1,
			AttemptID:       r.AttemptID,
			Name:            r.Name,
			Class:           r.Class,
			Institution:     r.Institution,
			Score:           r.Score,
			Percentage:      r.Percentage,
			CorrectAnswers:  r.CorrectAnswers,
			WrongAnswers:    r.WrongAnswers,
			DurationSeconds: int64(r.Duration() / time.Second),
			EndTime:         r.EndTime,
		}
	}
	return entries
}

func lessAggregate(variant models.LeaderboardVariant, a, b models.StudentAggregate) bool {
	byScore := a.TotalScore.Cmp(b.TotalScore)
	byStreak := a.BestStreak - b.BestStreak

	primary, secondary := byScore, byStreak
	if variant == models.LeaderboardStreak {
		primary, secondary = byStreak, byScore
	}
	if primary != 0 {
		return primary > 0
	}
	if secondary != 0 {
		return secondary > 0
	}
	if !a.LastFinished.Equal(b.LastFinished) {
		return a.LastFinished.Before(b.LastFinished)
	}
	return a.StudentID < b.StudentID
}

// RankStudents orders student aggregates for one leaderboard variant.
func RankStudents(variant models.LeaderboardVariant, aggregates []models.StudentAggregate) []models.LeaderboardEntry {
	sorted := make([]models.StudentAggregate, len(aggregates))
	copy(sorted, aggregates)
	sort.SliceStable(sorted, func(i, j int) bool { return lessAggregate(variant, sorted[i], sorted[j]) })

	entries := make([]models.LeaderboardEntry, len(sorted))
	for i, a := range sorted {
		entries[i] = models.LeaderboardEntry{
			Rank:       i + 1,
			StudentID:  a.StudentID,
			TotalScore: a.TotalScore,
			Attempts:   a.Attempts,
			BestStreak: a.BestStreak,
		}
	}
	return entries
}

// rankSnapshot keeps the ranks of the previous period for rank-change display.
type rankSnapshot struct {
	TakenAt  time.Time      `json:"taken_at"`
	Ranks    map[string]int `json:"ranks"`
	Previous map[string]int `json:"previous"`
}

// rotate returns the snapshot to store after observing the current ranks.
// Rotation happens at most once per interval.
func (s *rankSnapshot) rotate(current []models.LeaderboardEntry, now time.Time, every time.Duration) *rankSnapshot {
	ranks := make(map[string]int, len(current))
	for _, e := range current {
		ranks[e.StudentID] = e.Rank
	}
	if s == nil {
		return &rankSnapshot{TakenAt: now, Ranks: ranks}
	}
	if now.Sub(s.TakenAt) < every {
		return s
	}
	return &rankSnapshot{TakenAt: now, Ranks: ranks, Previous: s.Ranks}
}

func applyPreviousRanks(entries []models.LeaderboardEntry, previous map[string]int) {
	for i := range entries {
		if rank, ok := previous[entries[i].StudentID]; ok {
			r := rank
			entries[i].PreviousRank = &r
		}
	}
}

func paginate(total, limit, offset int) (int, int) {
	if offset > total {
		offset = total
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return offset, end
}
