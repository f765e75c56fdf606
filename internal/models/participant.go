package models

import "time"

// Participant is an anonymous exam-taker identified by a verified phone.
// Rows are never deleted; the merit list depends on them.
type Participant struct {
	ID       string  `json:"id" gorm:"primaryKey;size:36"`
	ExamID   uint    `json:"exam_id" gorm:"not null;uniqueIndex:idx_participant_exam_phone"`
	Name     string  `json:"name" gorm:"not null;size:120"`
	Class    string  `json:"class" gorm:"not null;size:50"`
	Phone    string  `json:"phone" gorm:"not null;size:20;uniqueIndex:idx_participant_exam_phone"`
	College  string  `json:"college" gorm:"not null;size:200"`
	Email    *string `json:"email,omitempty" gorm:"size:200"`
	Verified bool    `json:"verified"`

	CreatedAt time.Time `json:"created_at"`
}

func (Participant) TableName() string {
	return "participants"
}

// Student is read from the admin directory for authenticated attempts and leaderboards.
type Student struct {
	ID          string `json:"id" gorm:"primaryKey;size:64"`
	Name        string `json:"name"`
	Class       string `json:"class"`
	Institution string `json:"institution"`
	Phone       string `json:"phone,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

func (Student) TableName() string {
	return "students"
}

type ClassOption struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

func (ClassOption) TableName() string {
	return "class_options"
}
