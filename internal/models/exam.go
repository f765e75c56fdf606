package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type ExamStatus string

const (
	ExamUpcoming  ExamStatus = "Upcoming"
	ExamOngoing   ExamStatus = "Ongoing"
	ExamCompleted ExamStatus = "Completed"
)

type ExamType string

const (
	ExamTypePublic  ExamType = "Public"
	ExamTypePrivate ExamType = "Private"
)

// Exam is owned by the admin back-office. This service only reads it.
type Exam struct {
	ID                uint                        `json:"id" gorm:"primaryKey"`
	Title             string                      `json:"title" gorm:"not null;size:200"`
	Type              ExamType                    `json:"type" gorm:"size:20;index"`
	DurationMinutes   int                         `json:"duration_minutes" gorm:"not null"`
	TotalQuestions    int                         `json:"total_questions"`
	TotalMarks        decimal.Decimal             `json:"total_marks" gorm:"type:numeric(10,2)"`
	MarkPerQuestion   decimal.Decimal             `json:"mark_per_question" gorm:"type:numeric(10,2)"`
	HasNegativeMark   bool                        `json:"has_negative_mark"`
	NegativeMarkValue decimal.Decimal             `json:"negative_mark_value" gorm:"type:numeric(10,2)"`
	HasShuffle        bool                        `json:"has_shuffle"`
	HasRandom         bool                        `json:"has_random"`
	MaxTabSwitches    int                         `json:"max_tab_switches"`
	Subjects          datatypes.JSONSlice[string] `json:"subjects" gorm:"type:jsonb"`
	StartDate         time.Time                   `json:"start_date" gorm:"not null"`
	EndDate           time.Time                   `json:"end_date" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Exam) TableName() string {
	return "exams"
}

// StatusAt derives the exam status from its date window.
func (e *Exam) StatusAt(now time.Time) ExamStatus {
	switch {
	case now.Before(e.StartDate):
		return ExamUpcoming
	case now.After(e.EndDate):
		return ExamCompleted
	default:
		return ExamOngoing
	}
}

func (e *Exam) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// PerQuestionMark falls back to TotalMarks/TotalQuestions, then to 1.
func (e *Exam) PerQuestionMark() decimal.Decimal {
	if e.MarkPerQuestion.IsPositive() {
		return e.MarkPerQuestion
	}
	if e.TotalQuestions > 0 && e.TotalMarks.IsPositive() {
		return e.TotalMarks.Div(decimal.NewFromInt(int64(e.TotalQuestions)))
	}
	return decimal.NewFromInt(1)
}

// ExamQuestion links an exam to its MCQs in authoring order.
type ExamQuestion struct {
	ExamID   uint `json:"exam_id" gorm:"primaryKey"`
	MCQID    uint `json:"mcq_id" gorm:"primaryKey;column:mcq_id"`
	Position int  `json:"position" gorm:"not null"`

	MCQ MCQ `json:"-" gorm:"foreignKey:MCQID"`
}

func (ExamQuestion) TableName() string {
	return "exam_questions"
}

type MCQ struct {
	ID          uint                        `json:"id" gorm:"primaryKey"`
	Question    string                      `json:"question" gorm:"type:text;not null"`
	Options     datatypes.JSONSlice[string] `json:"options" gorm:"type:jsonb;not null"`
	Answer      string                      `json:"-" gorm:"type:text;not null"`
	Explanation *string                     `json:"explanation,omitempty" gorm:"type:text"`
	SubjectID   *uint                       `json:"subject_id,omitempty" gorm:"index"`
	ChapterID   *uint                       `json:"chapter_id,omitempty" gorm:"index"`
	IsMath      bool                        `json:"is_math"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (MCQ) TableName() string {
	return "mcqs"
}
