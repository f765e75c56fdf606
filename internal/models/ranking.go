package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MeritEntry is derived on read from a finalized attempt.
type MeritEntry struct {
	Rank            int             `json:"rank"`
	AttemptID       string          `json:"attempt_id"`
	Name            string          `json:"name"`
	Class           string          `json:"class"`
	Institution     string          `json:"institution"`
	Score           decimal.Decimal `json:"score"`
	Percentage      decimal.Decimal `json:"percentage"`
	CorrectAnswers  int             `json:"correct_answers"`
	WrongAnswers    int             `json:"wrong_answers"`
	DurationSeconds int64           `json:"duration_seconds"`
	EndTime         time.Time       `json:"end_time"`
}

type MeritList struct {
	ExamID      uint         `json:"exam_id"`
	ExamTitle   string       `json:"exam_title"`
	Total       int          `json:"total"`
	Truncated   bool         `json:"truncated"`
	Entries     []MeritEntry `json:"entries"`
	GeneratedAt time.Time    `json:"generated_at"`
}

type LeaderboardVariant string

const (
	LeaderboardOverall LeaderboardVariant = "overall"
	LeaderboardWeekly  LeaderboardVariant = "weekly"
	LeaderboardStreak  LeaderboardVariant = "streak"
)

// StudentAggregate is one student's totals over finalized attempts.
type StudentAggregate struct {
	StudentID    string          `json:"student_id"`
	TotalScore   decimal.Decimal `json:"total_score"`
	Attempts     int             `json:"attempts"`
	BestStreak   int             `json:"best_streak"`
	LastFinished time.Time       `json:"last_finished"`
}

type LeaderboardEntry struct {
	Rank         int             `json:"rank"`
	PreviousRank *int            `json:"previous_rank,omitempty"`
	StudentID    string          `json:"student_id"`
	Name         string          `json:"name"`
	Class        string          `json:"class"`
	Institution  string          `json:"institution"`
	ImageURL     string          `json:"image_url,omitempty"`
	TotalScore   decimal.Decimal `json:"total_score"`
	Attempts     int             `json:"attempts"`
	BestStreak   int             `json:"best_streak"`
}

type Leaderboard struct {
	Variant     LeaderboardVariant `json:"variant"`
	Total       int                `json:"total"`
	Entries     []LeaderboardEntry `json:"entries"`
	Me          *LeaderboardEntry  `json:"me,omitempty"`
	GeneratedAt time.Time          `json:"generated_at"`
}
