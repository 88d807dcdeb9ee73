package quiz

import (
	"strings"

	"github.com/example/vocabtamil/pkg/models"
)

// MaxAnswerLength bounds an accepted answer string
const MaxAnswerLength = 500

// Evaluate compares a submitted answer against the expected one. Choice-based
// questions require an exact match; free-text questions accept close answers
// because learners often type the meaning with extra words around it.
// Comparison is case-insensitive with surrounding whitespace ignored, and an
// empty submission is always wrong.
func Evaluate(questionType, userAnswer, correctAnswer string) bool {
	user := strings.ToLower(strings.TrimSpace(userAnswer))
	correct := strings.ToLower(strings.TrimSpace(correctAnswer))
	if user == "" {
		return false
	}

	switch questionType {
	case models.QuestionFillBlank:
		return user == correct || strings.Contains(correct, user)
	case models.QuestionTyping:
		return user == correct || strings.Contains(correct, user) || strings.Contains(user, correct)
	default:
		// mcq, audio and match submit one of the offered options verbatim
		return user == correct
	}
}
