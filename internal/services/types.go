package services

import (
	"context"
	"io"
	"time"

	"github.com/anis2566/monorepo-new-sub002/internal/models"
	"github.com/shopspring/decimal"
)

// ===== SERVICE INTERFACES =====

type OtpService interface {
	SendCode(ctx context.Context, req *SendOtpRequest) (*SendOtpResponse, error)
	VerifyCode(ctx context.Context, req *VerifyOtpRequest) (*VerifyOtpResponse, error)
	// IsVerified reports whether the phone consumed a code within the verification window.
	IsVerified(ctx context.Context, phone string) (bool, error)
	PruneExpired(ctx context.Context, before time.Time) (int64, error)
}

type ParticipantService interface {
	Register(ctx context.Context, examID uint, req *RegisterRequest) (*RegisterResponse, error)
}

type AttemptService interface {
	StartForStudent(ctx context.Context, examID uint, studentID string) (*AttemptView, error)
	Get(ctx context.Context, attemptID string, actor Actor) (*AttemptView, error)
	SubmitAnswer(ctx context.Context, attemptID string, actor Actor, req *SubmitAnswerRequest) (*AnswerResponse, error)
	RecordTabSwitch(ctx context.Context, attemptID string, actor Actor) (*TabSwitchResponse, error)
	Submit(ctx context.Context, attemptID string, actor Actor, req *SubmitAttemptRequest) (*AttemptResult, error)
	GetResult(ctx context.Context, attemptID string, actor Actor) (*AttemptResult, error)
	// FinalizeExpired closes an attempt whose deadline passed. It is a no-op for
	// attempts that are already final or still within their time.
	FinalizeExpired(ctx context.Context, attemptID string, now time.Time) (models.AttemptStatus, error)
}

type RankingService interface {
	GetMeritList(ctx context.Context, examID uint, query MeritListQuery) (*models.MeritList, error)
	GetLeaderboard(ctx context.Context, query LeaderboardQuery) (*models.Leaderboard, error)
	InvalidateExam(ctx context.Context, examID uint)
}

type ExportService interface {
	ExportMeritList(ctx context.Context, examID uint, w io.Writer) error
	ArchiveMeritList(ctx context.Context, examID uint) (*ArchiveResult, error)
}

type CatalogService interface {
	GetExamSummary(ctx context.Context, examID uint) (*ExamSummary, error)
	ListClassOptions(ctx context.Context) ([]models.ClassOption, error)
}

// ===== CALLER IDENTITY =====

// Actor identifies who is acting on an attempt. Public participants carry the
// participant id issued at registration; students carry their verified subject.
type Actor struct {
	ParticipantID string
	StudentID     string
}

func (a Actor) String() string {
	if a.StudentID != "" {
		return "student:" + a.StudentID
	}
	if a.ParticipantID != "" {
		return "participant:" + a.ParticipantID
	}
	return "anonymous"
}

// ===== OTP DTOs =====

type SendOtpRequest struct {
	Phone string `json:"phone" validate:"required,bd_phone"`
}

type SendOtpResponse struct {
	Phone              string    `json:"phone"`
	ExpiresAt          time.Time `json:"expires_at"`
	ExpiresInSeconds   int       `json:"expires_in_seconds"`
	ResendAfterSeconds int       `json:"resend_after_seconds"`
}

type VerifyOtpRequest struct {
	Phone string `json:"phone" validate:"required,bd_phone"`
	Code  string `json:"code" validate:"required,otp_code"`
}

type VerifyOtpResponse struct {
	Verified   bool      `json:"verified"`
	ValidUntil time.Time `json:"valid_until"`
}

// ===== REGISTRATION DTOs =====

type RegisterRequest struct {
	Name    string  `json:"name" validate:"required,min=2,max=120"`
	Class   string  `json:"class" validate:"required,max=50"`
	Phone   string  `json:"phone" validate:"required,bd_phone"`
	College string  `json:"college" validate:"required,max=200"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email,max=200"`
	// Verified is the client's view of the OTP step and is not trusted.
	Verified bool `json:"verified"`
}

type RegisterResponse struct {
	ParticipantID string       `json:"participant_id"`
	AttemptID     string       `json:"attempt_id"`
	Attempt       *AttemptView `json:"attempt"`
}

// ===== ATTEMPT DTOs =====

type OptionView struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

type QuestionView struct {
	ID       uint         `json:"id"`
	Position int          `json:"position"`
	Question string       `json:"question"`
	Options  []OptionView `json:"options"`
	IsMath   bool         `json:"is_math"`
	Selected *string      `json:"selected,omitempty"`
}

type AttemptView struct {
	ID               string                 `json:"id"`
	ExamID           uint                   `json:"exam_id"`
	ExamTitle        string                 `json:"exam_title"`
	Status           models.AttemptStatus   `json:"status"`
	SubmissionType   *models.SubmissionType `json:"submission_type,omitempty"`
	StartTime        time.Time              `json:"start_time"`
	Deadline         time.Time              `json:"deadline"`
	RemainingSeconds int                    `json:"remaining_seconds"`
	TabSwitchCount   int                    `json:"tab_switch_count"`
	MaxTabSwitches   int                    `json:"max_tab_switches"`
	AnsweredCount    int                    `json:"answered_count"`
	CurrentStreak    int                    `json:"current_streak"`
	BestStreak       int                    `json:"best_streak"`
	Questions        []QuestionView         `json:"questions"`
}

type SubmitAnswerRequest struct {
	ParticipantID    string  `json:"participant_id,omitempty"`
	QuestionID       uint    `json:"question_id" validate:"required"`
	SelectedOption   *string `json:"selected_option" validate:"omitempty,option_letter"`
	TimeSpentSeconds int     `json:"time_spent_seconds" validate:"min=0"`
}

type AnswerResponse struct {
	QuestionID     uint    `json:"question_id"`
	SelectedOption *string `json:"selected_option"`
	AnsweredCount  int     `json:"answered_count"`
	CurrentStreak  int     `json:"current_streak"`
	BestStreak     int     `json:"best_streak"`
}

type SubmissionReason string

const (
	ReasonManual    SubmissionReason = "Manual"
	ReasonTimeUp    SubmissionReason = "TimeUp"
	ReasonTabSwitch SubmissionReason = "TabSwitch"
)

type SubmitAttemptRequest struct {
	ParticipantID string           `json:"participant_id,omitempty"`
	Reason        SubmissionReason `json:"reason" validate:"required,submission_reason"`
}

type TabSwitchResponse struct {
	TabSwitchCount int            `json:"tab_switch_count"`
	Limit          int            `json:"limit"`
	AutoSubmitted  bool           `json:"auto_submitted"`
	Result         *AttemptResult `json:"result,omitempty"`
}

type AnswerReview struct {
	QuestionID    uint         `json:"question_id"`
	Position      int          `json:"position"`
	Question      string       `json:"question"`
	Options       []OptionView `json:"options"`
	Selected      *string      `json:"selected"`
	CorrectOption string       `json:"correct_option"`
	IsCorrect     bool         `json:"is_correct"`
	Explanation   *string      `json:"explanation,omitempty"`
}

type AttemptResult struct {
	AttemptID        string                 `json:"attempt_id"`
	ExamID           uint                   `json:"exam_id"`
	ExamTitle        string                 `json:"exam_title"`
	Status           models.AttemptStatus   `json:"status"`
	SubmissionType   *models.SubmissionType `json:"submission_type,omitempty"`
	Score            decimal.Decimal        `json:"score"`
	TotalMarks       decimal.Decimal        `json:"total_marks"`
	Percentage       decimal.Decimal        `json:"percentage"`
	Grade            string                 `json:"grade"`
	CorrectAnswers   int                    `json:"correct_answers"`
	WrongAnswers     int                    `json:"wrong_answers"`
	SkippedQuestions int                    `json:"skipped_questions"`
	TotalQuestions   int                    `json:"total_questions"`
	BestStreak       int                    `json:"best_streak"`
	TabSwitchCount   int                    `json:"tab_switch_count"`
	StartTime        time.Time              `json:"start_time"`
	EndTime          *time.Time             `json:"end_time,omitempty"`
	DurationSeconds  int64                  `json:"duration_seconds"`
	Review           []AnswerReview         `json:"review,omitempty"`
}

// ===== RANKING DTOs =====

type MeritListQuery struct {
	Limit  int `form:"limit" validate:"min=0,max=1000"`
	Offset int `form:"offset" validate:"min=0"`
}

type LeaderboardQuery struct {
	Variant   models.LeaderboardVariant `form:"variant" validate:"omitempty,leaderboard_variant"`
	StudentID string                    `form:"student_id"`
	Limit     int                       `form:"limit" validate:"min=0,max=1000"`
	Offset    int                       `form:"offset" validate:"min=0"`
}

type ArchiveResult struct {
	ExamID     uint      `json:"exam_id"`
	ObjectName string    `json:"object_name"`
	URL        string    `json:"url"`
	Entries    int       `json:"entries"`
	ArchivedAt time.Time `json:"archived_at"`
}

// ===== CATALOG DTOs =====

type ExamSummary struct {
	ID                uint              `json:"id"`
	Title             string            `json:"title"`
	Type              models.ExamType   `json:"type"`
	Status            models.ExamStatus `json:"status"`
	DurationMinutes   int               `json:"duration_minutes"`
	TotalQuestions    int               `json:"total_questions"`
	TotalMarks        decimal.Decimal   `json:"total_marks"`
	MarkPerQuestion   decimal.Decimal   `json:"mark_per_question"`
	HasNegativeMark   bool              `json:"has_negative_mark"`
	NegativeMarkValue decimal.Decimal   `json:"negative_mark_value"`
	MaxTabSwitches    int               `json:"max_tab_switches"`
	Subjects          []string          `json:"subjects"`
	StartDate         time.Time         `json:"start_date"`
	EndDate           time.Time         `json:"end_date"`
}
