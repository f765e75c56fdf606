package services

import (
	"time"

	"github.com/anis2566/monorepo-new-sub002/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// newAttempt assigns question and option order and opens the timer.
// Exam and MCQ rows are only read.
func newAttempt(exam *models.Exam, questions []models.MCQ, participantID, studentID *string, now time.Time) *models.ExamAttempt {
	id := uuid.NewString()
	attempt := &models.ExamAttempt{
		ID:            id,
		ExamID:        exam.ID,
		ParticipantID: participantID,
		StudentID:     studentID,
		QuestionIDs:   datatypes.JSONSlice[uint](AssignQuestionOrder(id, questions, exam.HasShuffle)),
		StartTime:     now,
		Deadline:      now.Add(exam.Duration()),
		Status:        models.AttemptInProgress,
		Score:         decimal.Zero,
		Percentage:    decimal.Zero,
	}
	if orders := AssignOptionOrders(id, questions, exam.HasRandom); orders != nil {
		attempt.OptionOrders = datatypes.NewJSONType(orders)
	}
	attempt.SkippedQuestions = len(attempt.QuestionIDs)
	return attempt
}

func indexQuestions(questions []models.MCQ) map[uint]*models.MCQ {
	byID := make(map[uint]*models.MCQ, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}
	return byID
}

func indexAnswers(answers []models.AttemptAnswer) map[uint]*models.AttemptAnswer {
	byID := make(map[uint]*models.AttemptAnswer, len(answers))
	for i := range answers {
		byID[answers[i].QuestionID] = &answers[i]
	}
	return byID
}

func containsQuestion(attempt *models.ExamAttempt, questionID uint) bool {
	for _, id := range attempt.QuestionIDs {
		if id == questionID {
			return true
		}
	}
	return false
}

func countSelected(answers []models.AttemptAnswer) int {
	n := 0
	for _, a := range answers {
		if a.SelectedLetter != nil {
			n++
		}
	}
	return n
}

// displayedOptions lists a question's options in the attempt's display order.
func displayedOptions(q *models.MCQ, orders models.OptionOrders) []OptionView {
	options := make([]OptionView, len(q.Options))
	for pos := range q.Options {
		original := OriginalOptionIndex(orders, q.ID, pos)
		if original < 0 || original >= len(q.Options) {
			original = pos
		}
		options[pos] = OptionView{
			Letter: models.OptionLetter(pos),
			Text:   q.Options[original],
		}
	}
	return options
}

func tabSwitchLimit(exam *models.Exam, fallback int) int {
	if exam.MaxTabSwitches > 0 {
		return exam.MaxTabSwitches
	}
	return fallback
}

func remainingSeconds(attempt *models.ExamAttempt, now time.Time) int {
	if attempt.IsFinalized() || !now.Before(attempt.Deadline) {
		return 0
	}
	return ceilSeconds(attempt.Deadline.Sub(now))
}

// buildAttemptView never exposes answer keys.
func buildAttemptView(exam *models.Exam, attempt *models.ExamAttempt, questions []models.MCQ, answers []models.AttemptAnswer, now time.Time, tabLimit int) *AttemptView {
	byID := indexQuestions(questions)
	byAnswer := indexAnswers(answers)
	orders := attempt.OptionOrders.Data()

	view := &AttemptView{
		ID:               attempt.ID,
		ExamID:           attempt.ExamID,
		ExamTitle:        exam.Title,
		Status:           attempt.Status,
		SubmissionType:   attempt.SubmissionType,
		StartTime:        attempt.StartTime,
		Deadline:         attempt.Deadline,
		RemainingSeconds: remainingSeconds(attempt, now),
		TabSwitchCount:   attempt.TabSwitchCount,
		MaxTabSwitches:   tabLimit,
		AnsweredCount:    countSelected(answers),
		CurrentStreak:    attempt.CurrentStreak,
		BestStreak:       attempt.BestStreak,
		Questions:        make([]QuestionView, 0, len(attempt.QuestionIDs)),
	}

	for pos, id := range attempt.QuestionIDs {
		q, ok := byID[id]
		if !ok {
			continue
		}
		qv := QuestionView{
			ID:       q.ID,
			Position: pos + 1,
			Question: q.Question,
			Options:  displayedOptions(q, orders),
			IsMath:   q.IsMath,
		}
		if a, ok := byAnswer[id]; ok {
			qv.Selected = a.SelectedLetter
		}
		view.Questions = append(view.Questions, qv)
	}
	return view
}

func buildResult(exam *models.Exam, attempt *models.ExamAttempt, totalMarks decimal.Decimal) *AttemptResult {
	result := &AttemptResult{
		AttemptID:        attempt.ID,
		ExamID:           attempt.ExamID,
		ExamTitle:        exam.Title,
		Status:           attempt.Status,
		SubmissionType:   attempt.SubmissionType,
		Score:            attempt.Score,
		TotalMarks:       totalMarks,
		Percentage:       attempt.Percentage,
		Grade:            GradeFor(attempt.Percentage),
		CorrectAnswers:   attempt.CorrectAnswers,
		WrongAnswers:     attempt.WrongAnswers,
		SkippedQuestions: attempt.SkippedQuestions,
		TotalQuestions:   len(attempt.QuestionIDs),
		BestStreak:       attempt.BestStreak,
		TabSwitchCount:   attempt.TabSwitchCount,
		StartTime:        attempt.StartTime,
		EndTime:          attempt.EndTime,
		DurationSeconds:  int64(attempt.CompletionDuration() / time.Second),
	}
	return result
}

// buildReview pairs each assigned question with the selection and the correct
// option, both expressed in the attempt's display order.
func buildReview(attempt *models.ExamAttempt, questions []models.MCQ, answers []models.AttemptAnswer, key AnswerKey) []AnswerReview {
	byID := indexQuestions(questions)
	byAnswer := indexAnswers(answers)
	orders := attempt.OptionOrders.Data()

	review := make([]AnswerReview, 0, len(attempt.QuestionIDs))
	for pos, id := range attempt.QuestionIDs {
		q, ok := byID[id]
		if !ok {
			continue
		}
		item := AnswerReview{
			QuestionID:  q.ID,
			Position:    pos + 1,
			Question:    q.Question,
			Options:     displayedOptions(q, orders),
			Explanation: q.Explanation,
		}
		if correct, ok := key[id]; ok {
			item.CorrectOption = models.OptionLetter(DisplayedOptionIndex(orders, id, correct))
		}
		if a, ok := byAnswer[id]; ok && a.SelectedLetter != nil {
			item.Selected = a.SelectedLetter
			item.IsCorrect = IsCorrectSelection(*a.SelectedLetter, id, key, orders)
		}
		review = append(review, item)
	}
	return review
}
