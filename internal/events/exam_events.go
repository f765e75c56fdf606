package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents different types of exam domain events
type EventType string

const (
	EventParticipantRegistered EventType = "participant.registered"
	EventAttemptStarted        EventType = "attempt.started"
	EventAttemptSubmitted      EventType = "attempt.submitted"
	EventAttemptAbandoned      EventType = "attempt.abandoned"
	EventOtpSent               EventType = "otp.sent"
)

const (
	eventSource  = "exam-service"
	eventVersion = "1.0"
)

// Event is the envelope for all published events
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	ExamID    uint                   `json:"exam_id,omitempty"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

func NewEvent(eventType EventType, examID uint, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		ExamID:    examID,
		Data:      data,
	}
}

type ParticipantRegisteredEvent struct {
	ParticipantID string    `json:"participant_id"`
	AttemptID     string    `json:"attempt_id"`
	ExamID        uint      `json:"exam_id"`
	Class         string    `json:"class"`
	College       string    `json:"college"`
	RegisteredAt  time.Time `json:"registered_at"`
}

type AttemptStartedEvent struct {
	AttemptID     string    `json:"attempt_id"`
	ExamID        uint      `json:"exam_id"`
	ParticipantID *string   `json:"participant_id,omitempty"`
	StudentID     *string   `json:"student_id,omitempty"`
	QuestionCount int       `json:"question_count"`
	StartedAt     time.Time `json:"started_at"`
	Deadline      time.Time `json:"deadline"`
}

type AttemptSubmittedEvent struct {
	AttemptID        string    `json:"attempt_id"`
	ExamID           uint      `json:"exam_id"`
	ParticipantID    *string   `json:"participant_id,omitempty"`
	StudentID        *string   `json:"student_id,omitempty"`
	Status           string    `json:"status"`
	SubmissionType   string    `json:"submission_type"`
	Score            string    `json:"score"`
	Percentage       string    `json:"percentage"`
	CorrectAnswers   int       `json:"correct_answers"`
	WrongAnswers     int       `json:"wrong_answers"`
	SkippedQuestions int       `json:"skipped_questions"`
	BestStreak       int       `json:"best_streak"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

type AttemptAbandonedEvent struct {
	AttemptID   string    `json:"attempt_id"`
	ExamID      uint      `json:"exam_id"`
	AbandonedAt time.Time `json:"abandoned_at"`
}

type OtpSentEvent struct {
	// Phone is masked; only the last three digits are kept.
	Phone  string    `json:"phone"`
	SentAt time.Time `json:"sent_at"`
}
