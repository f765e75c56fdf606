package models

import (
	"errors"
	"strings"
)

var ErrUnresolvableAnswer = errors.New("answer does not match any option")

// OptionLetter maps a zero-based option index to A, B, C, ...
func OptionLetter(index int) string {
	if index < 0 || index >= 26 {
		return ""
	}
	return string(rune('A' + index))
}

// LetterIndex is the inverse of OptionLetter. Lower case letters are accepted.
func LetterIndex(letter string) (int, bool) {
	letter = strings.TrimSpace(letter)
	if len(letter) != 1 {
		return 0, false
	}
	c := letter[0]
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	if c < 'A' || c > 'Z' {
		return 0, false
	}
	return int(c - 'A'), true
}

// AnswerIndex resolves the stored answer to an option index. Older rows store the
// option text instead of the letter; those are matched against the options.
func (q *MCQ) AnswerIndex() (int, error) {
	answer := strings.TrimSpace(q.Answer)
	if idx, ok := LetterIndex(answer); ok && idx < len(q.Options) {
		return idx, nil
	}
	for i, option := range q.Options {
		if strings.EqualFold(strings.TrimSpace(option), answer) {
			return i, nil
		}
	}
	return 0, ErrUnresolvableAnswer
}

// AnswerLetter is the canonical letter of the correct option in authoring order.
func (q *MCQ) AnswerLetter() (string, error) {
	idx, err := q.AnswerIndex()
	if err != nil {
		return "", err
	}
	return OptionLetter(idx), nil
}
