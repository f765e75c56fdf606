package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptNotStarted    AttemptStatus = "NotStarted"
	AttemptInProgress    AttemptStatus = "InProgress"
	AttemptSubmitted     AttemptStatus = "Submitted"
	AttemptAutoSubmitted AttemptStatus = "AutoSubmitted"
	AttemptAbandoned     AttemptStatus = "Abandoned"
)

// FinalizedStatuses are the only statuses that count towards rankings.
var FinalizedStatuses = []AttemptStatus{AttemptSubmitted, AttemptAutoSubmitted}

type SubmissionType string

const (
	SubmissionManual        SubmissionType = "Manual"
	SubmissionAutoTimeUp    SubmissionType = "Auto-TimeUp"
	SubmissionAutoTabSwitch SubmissionType = "Auto-TabSwitch"
)

// OptionOrders maps a question id to its displayed option permutation:
// position i on screen shows original option order[i].
type OptionOrders map[uint][]int

type ExamAttempt struct {
	ID            string  `json:"id" gorm:"primaryKey;size:36"`
	ExamID        uint    `json:"exam_id" gorm:"not null;index"`
	ParticipantID *string `json:"participant_id,omitempty" gorm:"size:36;uniqueIndex:idx_attempt_participant"`
	StudentID     *string `json:"student_id,omitempty" gorm:"size:64;index"`

	QuestionIDs  datatypes.JSONSlice[uint]        `json:"question_ids" gorm:"type:jsonb;not null"`
	OptionOrders datatypes.JSONType[OptionOrders] `json:"-" gorm:"type:jsonb"`

	StartTime      time.Time       `json:"start_time"`
	Deadline       time.Time       `json:"deadline" gorm:"not null;index"`
	EndTime        *time.Time      `json:"end_time,omitempty"`
	Status         AttemptStatus   `json:"status" gorm:"not null;size:20;index"`
	SubmissionType *SubmissionType `json:"submission_type,omitempty" gorm:"size:20"`
	TabSwitchCount int             `json:"tab_switch_count" gorm:"not null"`
	AnswerSeq      int             `json:"-" gorm:"not null"`

	Score            decimal.Decimal `json:"score" gorm:"type:numeric(10,2);not null"`
	Percentage       decimal.Decimal `json:"percentage" gorm:"type:numeric(6,2);not null"`
	CorrectAnswers   int             `json:"correct_answers" gorm:"not null"`
	WrongAnswers     int             `json:"wrong_answers" gorm:"not null"`
	SkippedQuestions int             `json:"skipped_questions" gorm:"not null"`
	BestStreak       int             `json:"best_streak" gorm:"not null"`
	CurrentStreak    int             `json:"current_streak" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Answers []AttemptAnswer `json:"answers,omitempty" gorm:"foreignKey:AttemptID"`
}

func (ExamAttempt) TableName() string {
	return "exam_attempts"
}

func (a *ExamAttempt) IsFinalized() bool {
	return a.Status == AttemptSubmitted || a.Status == AttemptAutoSubmitted || a.Status == AttemptAbandoned
}

// OwnedBy reports whether the caller is the participant or student bound to the attempt.
func (a *ExamAttempt) OwnedBy(participantID, studentID string) bool {
	if a.ParticipantID != nil {
		return participantID != "" && *a.ParticipantID == participantID
	}
	if a.StudentID != nil {
		return studentID != "" && *a.StudentID == studentID
	}
	return false
}

func (a *ExamAttempt) CompletionDuration() time.Duration {
	if a.EndTime == nil {
		return 0
	}
	return a.EndTime.Sub(a.StartTime)
}

// AttemptAnswer holds the latest selection for one question of an attempt.
// SelectedLetter is expressed in the attempt's displayed option order.
type AttemptAnswer struct {
	AttemptID        string    `json:"attempt_id" gorm:"primaryKey;size:36"`
	QuestionID       uint      `json:"question_id" gorm:"primaryKey"`
	SelectedLetter   *string   `json:"selected_letter" gorm:"size:1"`
	TimeSpentSeconds int       `json:"time_spent_seconds" gorm:"not null"`
	Sequence         int       `json:"sequence" gorm:"not null"`
	IsCorrect        bool      `json:"is_correct"`
	AnsweredAt       time.Time `json:"answered_at"`
}

func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}
