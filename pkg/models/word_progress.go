package models

import "time"

// Mastery levels for a word
const (
	MasteryNew      = 0
	MasteryLearning = 1
	MasteryFamiliar = 2
	MasteryMastered = 3
)

// Ease factor bounds for the review scheduler
const (
	MinEaseFactor     = 1.30
	MaxEaseFactor     = 3.00
	DefaultEaseFactor = 2.50
)

// WordProgress tracks one user's recall history with one word.
// There is at most one row per (user, word); it is created lazily on the
// first encounter and mutated only under a row-level lock.
type WordProgress struct {
	ID                  int64     `json:"id" db:"id"`
	UserID              int64     `json:"user_id" db:"user_id"`
	WordID              int64     `json:"word_id" db:"word_id"`
	MasteryLevel        int       `json:"mastery_level" db:"mastery_level"` // 0-3
	TimesSeen           int       `json:"times_seen" db:"times_seen"`
	TimesCorrect        int       `json:"times_correct" db:"times_correct"`
	TimesIncorrect      int       `json:"times_incorrect" db:"times_incorrect"`
	EaseFactor          float64   `json:"ease_factor" db:"ease_factor"`                   // always within [1.30, 3.00]
	ReviewIntervalDays  int       `json:"review_interval_days" db:"review_interval_days"` // >= 1
	NextReviewDate      Date      `json:"next_review_date" db:"next_review_date"`
	AverageResponseTime *float64  `json:"average_response_time" db:"average_response_time"`
	LastResponseTime    *float64  `json:"last_response_time" db:"last_response_time"`
	FirstSeenAt         time.Time `json:"first_seen_at" db:"first_seen_at"`
	LastReviewedAt      time.Time `json:"last_reviewed_at" db:"last_reviewed_at"`
}

// AccuracyPercent returns the lifetime accuracy for this word as a percentage
func (p *WordProgress) AccuracyPercent() float64 {
	if p.TimesSeen == 0 {
		return 0
	}
	return float64(p.TimesCorrect) / float64(p.TimesSeen) * 100
}
