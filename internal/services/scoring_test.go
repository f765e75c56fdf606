package services

import (
	"testing"

	"github.com/anis2566/monorepo-new-sub002/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selected(questionID uint, letter string, seq int) models.AttemptAnswer {
	return models.AttemptAnswer{QuestionID: questionID, SelectedLetter: &letter, Sequence: seq}
}

func TestScore_NegativeMarking(t *testing.T) {
	policy := ScoringPolicy{
		PerQuestionMark: decimal.NewFromInt(1),
		NegativeMark:    decimal.RequireFromString("0.25"),
		HasNegative:     true,
		TotalMarks:      decimal.NewFromInt(4),
		Floor:           decimal.Zero,
	}
	key := AnswerKey{1: 0, 2: 1, 3: 2, 4: 3}

	result := Score(policy, ScoreInput{
		QuestionIDs: []uint{1, 2, 3, 4},
		Answers: []models.AttemptAnswer{
			selected(1, "A", 1),
			selected(2, "C", 2),
			{QuestionID: 3, Sequence: 3},
			selected(4, "D", 4),
		},
		Key: key,
	})

	assert.Equal(t, 2, result.Correct)
	assert.Equal(t, 1, result.Wrong)
	assert.Equal(t, 1, result.Skipped)
	assert.True(t, decimal.RequireFromString("1.75").Equal(result.Score), "score %s", result.Score)
	assert.True(t, decimal.RequireFromString("43.75").Equal(result.Percentage), "percentage %s", result.Percentage)
	assert.Equal(t, "C", result.Grade)
	assert.Equal(t, 1, result.BestStreak)
	assert.Equal(t, 1, result.CurrentStreak)
}

func TestScore_Floor(t *testing.T) {
	policy := ScoringPolicy{
		PerQuestionMark: decimal.NewFromInt(1),
		NegativeMark:    decimal.NewFromInt(1),
		HasNegative:     true,
		TotalMarks:      decimal.NewFromInt(2),
		Floor:           decimal.Zero,
	}
	in := ScoreInput{
		QuestionIDs: []uint{1, 2},
		Answers:     []models.AttemptAnswer{selected(1, "B", 1), selected(2, "B", 2)},
		Key:         AnswerKey{1: 0, 2: 0},
	}

	assert.True(t, Score(policy, in).Score.IsZero())

	policy.Floor = decimal.NewFromInt(-10)
	assert.True(t, decimal.NewFromInt(-2).Equal(Score(policy, in).Score))
}

func TestScore_IgnoresForeignAnswers(t *testing.T) {
	policy := ScoringPolicy{PerQuestionMark: decimal.NewFromInt(2), TotalMarks: decimal.NewFromInt(2)}

	result := Score(policy, ScoreInput{
		QuestionIDs: []uint{1},
		Answers:     []models.AttemptAnswer{selected(1, "A", 1), selected(9, "A", 2)},
		Key:         AnswerKey{1: 0, 9: 0},
	})
	assert.Equal(t, 1, result.Correct)
	assert.Equal(t, 0, result.Wrong)
	assert.True(t, decimal.NewFromInt(100).Equal(result.Percentage))
	assert.Equal(t, "A+", result.Grade)
}

func TestScore_UsesOptionPermutation(t *testing.T) {
	// display position 0 shows original option 2, which is the key
	orders := models.OptionOrders{1: {2, 0, 3, 1}}
	policy := ScoringPolicy{PerQuestionMark: decimal.NewFromInt(1), TotalMarks: decimal.NewFromInt(1)}

	right := Score(policy, ScoreInput{
		QuestionIDs:  []uint{1},
		Answers:      []models.AttemptAnswer{selected(1, "A", 1)},
		Key:          AnswerKey{1: 2},
		OptionOrders: orders,
	})
	assert.Equal(t, 1, right.Correct)

	wrong := Score(policy, ScoreInput{
		QuestionIDs:  []uint{1},
		Answers:      []models.AttemptAnswer{selected(1, "C", 1)},
		Key:          AnswerKey{1: 2},
		OptionOrders: orders,
	})
	assert.Equal(t, 1, wrong.Wrong)

	assert.Equal(t, 0, DisplayedOptionIndex(orders, 1, 2))
	assert.Equal(t, 2, OriginalOptionIndex(orders, 1, 0))
	assert.Equal(t, 3, OriginalOptionIndex(orders, 7, 3))
}

func TestComputeStreaks(t *testing.T) {
	answers := []models.AttemptAnswer{
		{QuestionID: 4, SelectedLetter: strPtr("A"), IsCorrect: true, Sequence: 5},
		{QuestionID: 1, SelectedLetter: strPtr("A"), IsCorrect: true, Sequence: 1},
		{QuestionID: 2, SelectedLetter: strPtr("B"), IsCorrect: true, Sequence: 2},
		{QuestionID: 3, SelectedLetter: nil, Sequence: 3},
		{QuestionID: 5, SelectedLetter: strPtr("C"), IsCorrect: true, Sequence: 4},
		{QuestionID: 6, SelectedLetter: strPtr("D"), IsCorrect: false, Sequence: 6},
	}

	current, best := ComputeStreaks(answers)
	assert.Equal(t, 0, current)
	assert.Equal(t, 4, best)

	current, best = ComputeStreaks(nil)
	assert.Zero(t, current)
	assert.Zero(t, best)
}

func TestGradeFor(t *testing.T) {
	cases := map[string]string{
		"100": "A+", "80": "A+", "79.99": "A", "70": "A", "60": "A-",
		"50": "B", "40": "C", "33": "D", "32.99": "F", "0": "F",
	}
	for pct, grade := range cases {
		assert.Equal(t, grade, GradeFor(decimal.RequireFromString(pct)), pct)
	}
}

func TestBuildAnswerKey(t *testing.T) {
	key, err := BuildAnswerKey(testQuestions())
	require.NoError(t, err)
	for id, idx := range correctIndex {
		assert.Equal(t, idx, key[id], "question %d", id)
	}

	_, err = BuildAnswerKey([]models.MCQ{{ID: 1, Options: []string{"x", "y"}, Answer: "z"}})
	assert.ErrorIs(t, err, ErrInvalidAnswerKey)
}

func TestPolicyFor(t *testing.T) {
	exam := &models.Exam{TotalQuestions: 4, TotalMarks: decimal.NewFromInt(8), NegativeMarkValue: decimal.RequireFromString("-0.5"), HasNegativeMark: true}
	policy := PolicyFor(exam, 4, decimal.Zero)
	assert.True(t, decimal.NewFromInt(2).Equal(policy.PerQuestionMark))
	assert.True(t, decimal.RequireFromString("0.5").Equal(policy.NegativeMark))
	assert.True(t, decimal.NewFromInt(8).Equal(policy.TotalMarks))

	bare := PolicyFor(&models.Exam{}, 3, decimal.Zero)
	assert.True(t, decimal.NewFromInt(1).Equal(bare.PerQuestionMark))
	assert.True(t, decimal.NewFromInt(3).Equal(bare.TotalMarks))
}
