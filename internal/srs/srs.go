// Package srs owns per-(user, word) learning progress: the spaced
// repetition step applied on every answer and the review scheduling built
// on top of it.
package srs

import (
	"github.com/example/vocabtamil/pkg/models"
)

// Tuning constants for the review scheduler
const (
	// Interval assigned on the first correct answer after a reset
	firstCorrectIntervalDays = 3
	// Ease factor delta per correct / incorrect answer
	easeReward  = 0.10
	easePenalty = 0.20
	// Accuracy thresholds for mastery movement, in percent
	promoteAccuracy = 80.0
	demoteAccuracy  = 50.0
	// Correct answers required before the first promotion
	promoteMinCorrect = 3
	// Longest gap the scheduler will ever set between reviews. Also keeps
	// the interval*ease step from overflowing int on long correct runs.
	maxIntervalDays = 365
)

// Advance applies one answer to a progress row in place. The caller holds
// the row lock; this function is pure bookkeeping.
func Advance(p *models.WordProgress, isCorrect bool, responseTime *float64, today models.Date) {
	p.TimesSeen++

	if responseTime != nil {
		if p.AverageResponseTime != nil {
			// Decaying running estimate, deliberately not a true mean:
			// recent samples weigh more and the result is order-dependent.
			avg := (*p.AverageResponseTime + *responseTime) / 2
			p.AverageResponseTime = &avg
		} else {
			v := *responseTime
			p.AverageResponseTime = &v
		}
		last := *responseTime
		p.LastResponseTime = &last
	}

	if isCorrect {
		p.TimesCorrect++

		if p.ReviewIntervalDays == 1 {
			p.ReviewIntervalDays = firstCorrectIntervalDays
		} else {
			p.ReviewIntervalDays = int(float64(p.ReviewIntervalDays) * p.EaseFactor)
			if p.ReviewIntervalDays > maxIntervalDays {
				p.ReviewIntervalDays = maxIntervalDays
			}
		}

		p.EaseFactor += easeReward
		if p.EaseFactor > models.MaxEaseFactor {
			p.EaseFactor = models.MaxEaseFactor
		}

		if p.MasteryLevel < models.MasteryMastered &&
			p.TimesCorrect >= promoteMinCorrect &&
			p.AccuracyPercent() >= promoteAccuracy {
			p.MasteryLevel++
		}
	} else {
		p.TimesIncorrect++
		p.ReviewIntervalDays = 1

		p.EaseFactor -= easePenalty
		if p.EaseFactor < models.MinEaseFactor {
			p.EaseFactor = models.MinEaseFactor
		}

		if p.MasteryLevel > models.MasteryNew && p.AccuracyPercent() < demoteAccuracy {
			p.MasteryLevel--
		}
	}

	p.NextReviewDate = today.AddDays(p.ReviewIntervalDays)
}

// DueForReview reports whether a word should be reviewed today: the review
// date has arrived and the word is not yet mastered.
func DueForReview(p *models.WordProgress, today models.Date) bool {
	if p.MasteryLevel >= models.MasteryMastered {
		return false
	}
	return !today.Before(p.NextReviewDate.Time)
}

// NewProgress returns a fresh progress row for the first encounter of a word
func NewProgress(userID, wordID int64, today models.Date) *models.WordProgress {
	return &models.WordProgress{
		UserID:             userID,
		WordID:             wordID,
		MasteryLevel:       models.MasteryNew,
		EaseFactor:         models.DefaultEaseFactor,
		ReviewIntervalDays: 1,
		NextReviewDate:     today,
	}
}
