package models

import (
	"math"
	"time"
)

// Quiz types
const (
	QuizTypeDaily     = "daily"
	QuizTypeReview    = "review"
	QuizTypeSpeed     = "speed"
	QuizTypeCustom    = "custom"
	QuizTypePlacement = "placement"
)

// Session lifecycle states. Completed and abandoned are terminal.
const (
	SessionActive    = "active"
	SessionCompleted = "completed"
	SessionAbandoned = "abandoned"
)

// Question types
const (
	QuestionMCQ       = "mcq"
	QuestionFillBlank = "fill_blank"
	QuestionAudio     = "audio"
	QuestionTyping    = "typing"
	QuestionMatch     = "match"
)

// MaxWordsPerQuiz caps the word list size for a single session
const MaxWordsPerQuiz = 50

// QuizSession is one quiz run for a user
type QuizSession struct {
	ID               string     `json:"id" db:"id"`
	UserID           int64      `json:"user_id" db:"user_id"`
	QuizType         string     `json:"quiz_type" db:"quiz_type"`
	Status           string     `json:"status" db:"status"`
	TotalQuestions   int        `json:"total_questions" db:"total_questions"`
	CorrectAnswers   int        `json:"correct_answers" db:"correct_answers"`
	TotalTimeSeconds *int       `json:"total_time_seconds" db:"total_time_seconds"`
	XPEarned         int        `json:"xp_earned" db:"xp_earned"`
	StartedAt        time.Time  `json:"started_at" db:"started_at"`
	CompletedAt      *time.Time `json:"completed_at" db:"completed_at"` // set at most once
}

// IsCompleted reports whether the session has been completed
func (s *QuizSession) IsCompleted() bool {
	return s.CompletedAt != nil
}

// AccuracyPercent returns correct answers over total questions as a percentage
func (s *QuizSession) AccuracyPercent() float64 {
	if s.TotalQuestions == 0 {
		return 0
	}
	return float64(s.CorrectAnswers) / float64(s.TotalQuestions) * 100
}

// DurationMinutes returns the session duration in minutes, rounded to one decimal
func (s *QuizSession) DurationMinutes() float64 {
	if s.TotalTimeSeconds == nil || *s.TotalTimeSeconds <= 0 {
		return 0
	}
	return math.Round(float64(*s.TotalTimeSeconds)/60*10) / 10
}

// QuizQuestion is a single question within a session
type QuizQuestion struct {
	ID                  string     `json:"id" db:"id"`
	SessionID           string     `json:"session_id" db:"session_id"`
	WordID              int64      `json:"word_id" db:"word_id"`
	QuestionType        string     `json:"question_type" db:"question_type"`
	QuestionText        string     `json:"question_text" db:"question_text"`
	CorrectAnswer       string     `json:"correct_answer" db:"correct_answer"`
	AnswerOptions       StringList `json:"answer_options" db:"answer_options"` // populated for choice questions
	UserAnswer          string     `json:"user_answer" db:"user_answer"`
	IsCorrect           *bool      `json:"is_correct" db:"is_correct"` // nil until answered
	ResponseTimeSeconds *float64   `json:"response_time_seconds" db:"response_time_seconds"`
	AskedAt             time.Time  `json:"asked_at" db:"asked_at"`
	AnsweredAt          *time.Time `json:"answered_at" db:"answered_at"`
}

// IsAnswered reports whether an answer has been recorded for this question
func (q *QuizQuestion) IsAnswered() bool {
	return q.AnsweredAt != nil
}
