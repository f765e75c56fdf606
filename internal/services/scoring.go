package services

import (
	"sort"

	"github.com/anis2566/monorepo-new-sub002/internal/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ScoringPolicy holds the marking rules of one exam.
type ScoringPolicy struct {
	PerQuestionMark decimal.Decimal
	NegativeMark    decimal.Decimal
	HasNegative     bool
	TotalMarks      decimal.Decimal
	Floor           decimal.Decimal
}

// PolicyFor derives the marking rules for an attempt with questionCount questions.
// Without configured total marks, the total is the sum of the per question marks.
func PolicyFor(exam *models.Exam, questionCount int, floor decimal.Decimal) ScoringPolicy {
	perQuestion := exam.PerQuestionMark()
	total := exam.TotalMarks
	if !total.IsPositive() {
		total = perQuestion.Mul(decimal.NewFromInt(int64(questionCount)))
	}
	return ScoringPolicy{
		PerQuestionMark: perQuestion,
		NegativeMark:    exam.NegativeMarkValue.Abs(),
		HasNegative:     exam.HasNegativeMark,
		TotalMarks:      total,
		Floor:           floor,
	}
}

// AnswerKey maps a question id to its correct option index in authoring order.
type AnswerKey map[uint]int

// BuildAnswerKey resolves every question's stored answer to an option index.
func BuildAnswerKey(questions []models.MCQ) (AnswerKey, error) {
	key := make(AnswerKey, len(questions))
	for i := range questions {
		idx, err := questions[i].AnswerIndex()
		if err != nil {
			return nil, ErrInvalidAnswerKey
		}
		key[questions[i].ID] = idx
	}
	return key, nil
}

type ScoreInput struct {
	QuestionIDs  []uint
	Answers      []models.AttemptAnswer
	Key          AnswerKey
	OptionOrders models.OptionOrders
}

type ScoreResult struct {
	Score         decimal.Decimal
	Percentage    decimal.Decimal
	Grade         string
	Correct       int
	Wrong         int
	Skipped       int
	BestStreak    int
	CurrentStreak int
}

// Score is a pure function of the stored answers and the answer key.
// Answers to questions outside the attempt are ignored.
func Score(policy ScoringPolicy, in ScoreInput) ScoreResult {
	assigned := make(map[uint]struct{}, len(in.QuestionIDs))
	for _, id := range in.QuestionIDs {
		assigned[id] = struct{}{}
	}

	evaluated := make([]models.AttemptAnswer, 0, len(in.Answers))
	var result ScoreResult
	for _, answer := range in.Answers {
		if _, ok := assigned[answer.QuestionID]; !ok {
			continue
		}
		if answer.SelectedLetter == nil {
			continue
		}
		answer.IsCorrect = IsCorrectSelection(*answer.SelectedLetter, answer.QuestionID, in.Key, in.OptionOrders)
		if answer.IsCorrect {
			result.Correct++
		} else {
			result.Wrong++
		}
		evaluated = append(evaluated, answer)
	}
	result.Skipped = len(in.QuestionIDs) - result.Correct - result.Wrong
	result.CurrentStreak, result.BestStreak = ComputeStreaks(evaluated)

	score := policy.PerQuestionMark.Mul(decimal.NewFromInt(int64(result.Correct)))
	if policy.HasNegative {
		score = score.Sub(policy.NegativeMark.Mul(decimal.NewFromInt(int64(result.Wrong))))
	}
	if score.LessThan(policy.Floor) {
		score = policy.Floor
	}
	result.Score = score

	if policy.TotalMarks.IsPositive() {
		result.Percentage = score.Div(policy.TotalMarks).Mul(hundred).Round(2)
	} else {
		result.Percentage = decimal.Zero
	}
	result.Grade = GradeFor(result.Percentage)
	return result
}

// IsCorrectSelection maps a displayed letter back to the authoring order and
// compares it with the key.
func IsCorrectSelection(letter string, questionID uint, key AnswerKey, orders models.OptionOrders) bool {
	correct, ok := key[questionID]
	if !ok {
		return false
	}
	displayed, ok := models.LetterIndex(letter)
	if !ok {
		return false
	}
	return OriginalOptionIndex(orders, questionID, displayed) == correct
}

// OriginalOptionIndex returns the authoring index of the option shown at position displayed.
func OriginalOptionIndex(orders models.OptionOrders, questionID uint, displayed int) int {
	order, ok := orders[questionID]
	if !ok || displayed < 0 || displayed >= len(order) {
		return displayed
	}
	return order[displayed]
}

// DisplayedOptionIndex is the inverse of OriginalOptionIndex.
func DisplayedOptionIndex(orders models.OptionOrders, questionID uint, original int) int {
	order, ok := orders[questionID]
	if !ok {
		return original
	}
	for pos, idx := range order {
		if idx == original {
			return pos
		}
	}
	return original
}

// ComputeStreaks replays answers in the order they were last given. Cleared
// selections are ignored; a wrong answer resets the running streak.
func ComputeStreaks(answers []models.AttemptAnswer) (current, best int) {
	ordered := make([]models.AttemptAnswer, len(answers))
	copy(ordered, answers)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Sequence < ordered[j].Sequence })

	for _, answer := range ordered {
		if answer.SelectedLetter == nil {
			continue
		}
		if answer.IsCorrect {
			current++
			if current > best {
				best = current
			}
		} else {
			current = 0
		}
	}
	return current, best
}

var gradeBands = []struct {
	min   decimal.Decimal
	grade string
}{
	{decimal.NewFromInt(80), "A+"},
	{decimal.NewFromInt(70), "A"},
	{decimal.NewFromInt(60), "A-"},
	{decimal.NewFromInt(50), "B"},
	{decimal.NewFromInt(40), "C"},
	{decimal.NewFromInt(33), "D"},
}

func GradeFor(percentage decimal.Decimal) string {
	for _, band := range gradeBands {
		if percentage.GreaterThanOrEqual(band.min) {
			return band.grade
		}
	}
	return "F"
}
