package srs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/vocabtamil/pkg/models"
)

func floatPtr(v float64) *float64 { return &v }

func dateOf(year int, month time.Month, day int) models.Date {
	return models.DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

func TestAdvanceCorrectIntervalSequence(t *testing.T) {
	today := dateOf(2026, time.August, 31)
	p := NewProgress(1, 1, today)

	Advance(p, true, nil, today)
	assert.Equal(t, 3, p.ReviewIntervalDays)
	assert.InDelta(t, 2.60, p.EaseFactor, 0.001)
	assert.Equal(t, today.AddDays(3), p.NextReviewDate)

	Advance(p, true, nil, today)
	assert.Equal(t, 7, p.ReviewIntervalDays) // int(3 * 2.6)
	assert.InDelta(t, 2.70, p.EaseFactor, 0.001)

	Advance(p, true, nil, today)
	assert.Equal(t, 18, p.ReviewIntervalDays) // int(7 * 2.7)
	assert.InDelta(t, 2.80, p.EaseFactor, 0.001)
}

func TestAdvanceLongCorrectRunStaysBounded(t *testing.T) {
	today := dateOf(2026, time.August, 31)
	p := NewProgress(1, 1, today)

	prev := p.ReviewIntervalDays
	for i := 0; i < 60; i++ {
		Advance(p, true, nil, today)
		require.GreaterOrEqual(t, p.ReviewIntervalDays, 1,
			"interval must stay positive after %d correct answers", i+1)
		require.LessOrEqual(t, p.ReviewIntervalDays, maxIntervalDays)
		require.GreaterOrEqual(t, p.ReviewIntervalDays, prev,
			"interval must not shrink on a correct answer")
		prev = p.ReviewIntervalDays
	}
	assert.Equal(t, maxIntervalDays, p.ReviewIntervalDays)
	assert.Equal(t, today.AddDays(maxIntervalDays), p.NextReviewDate)

	// An incorrect answer still resets the capped interval
	Advance(p, false, nil, today)
	assert.Equal(t, 1, p.ReviewIntervalDays)
}

func TestAdvanceIncorrectResetsInterval(t *testing.T) {
	today := models.Today()
	p := NewProgress(1, 1, today)
	Advance(p, true, nil, today)
	Advance(p, true, nil, today)
	require.Equal(t, 7, p.ReviewIntervalDays)

	Advance(p, false, nil, today)
	assert.Equal(t, 1, p.ReviewIntervalDays)
	assert.InDelta(t, 2.50, p.EaseFactor, 0.001)
	assert.Equal(t, today.AddDays(1), p.NextReviewDate)
}

func TestAdvanceEaseFactorBounds(t *testing.T) {
	today := models.Today()

	p := NewProgress(1, 1, today)
	for i := 0; i < 10; i++ {
		Advance(p, true, nil, today)
	}
	assert.InDelta(t, models.MaxEaseFactor, p.EaseFactor, 0.001)

	p = NewProgress(1, 2, today)
	for i := 0; i < 10; i++ {
		Advance(p, false, nil, today)
	}
	assert.InDelta(t, models.MinEaseFactor, p.EaseFactor, 0.001)
}

func TestAdvancePromotionNeedsThreeCorrect(t *testing.T) {
	today := models.Today()
	p := NewProgress(1, 1, today)

	Advance(p, true, nil, today)
	Advance(p, true, nil, today)
	assert.Equal(t, models.MasteryNew, p.MasteryLevel)

	Advance(p, true, nil, today)
	assert.Equal(t, models.MasteryLearning, p.MasteryLevel)
}

func TestAdvancePromotionRequiresAccuracy(t *testing.T) {
	today := models.Today()
	p := NewProgress(1, 1, today)

	// 3 correct out of 5 is 60%, below the promotion bar
	Advance(p, false, nil, today)
	Advance(p, false, nil, today)
	Advance(p, true, nil, today)
	Advance(p, true, nil, today)
	Advance(p, true, nil, today)
	assert.Equal(t, models.MasteryNew, p.MasteryLevel)
}

func TestAdvanceDemotionBelowHalfAccuracy(t *testing.T) {
	today := models.Today()
	p := NewProgress(1, 1, today)
	p.MasteryLevel = models.MasteryFamiliar
	p.TimesSeen = 4
	p.TimesCorrect = 2
	p.TimesIncorrect = 2

	// 2/5 correct after this answer, below 50%
	Advance(p, false, nil, today)
	assert.Equal(t, models.MasteryLearning, p.MasteryLevel)
}

func TestAdvanceNeverDemotesBelowNew(t *testing.T) {
	today := models.Today()
	p := NewProgress(1, 1, today)
	for i := 0; i < 5; i++ {
		Advance(p, false, nil, today)
	}
	assert.Equal(t, models.MasteryNew, p.MasteryLevel)
}

func TestAdvanceResponseTimeRunningEstimate(t *testing.T) {
	today := models.Today()
	p := NewProgress(1, 1, today)

	Advance(p, true, floatPtr(10), today)
	require.NotNil(t, p.AverageResponseTime)
	assert.InDelta(t, 10, *p.AverageResponseTime, 0.001)

	Advance(p, true, floatPtr(20), today)
	assert.InDelta(t, 15, *p.AverageResponseTime, 0.001)

	// Recency-weighted, not a true mean of 10, 20, 40
	Advance(p, true, floatPtr(40), today)
	assert.InDelta(t, 27.5, *p.AverageResponseTime, 0.001)
	assert.InDelta(t, 40, *p.LastResponseTime, 0.001)
}

func TestAdvanceNilResponseTimeLeavesEstimate(t *testing.T) {
	today := models.Today()
	p := NewProgress(1, 1, today)
	Advance(p, true, floatPtr(12), today)
	Advance(p, true, nil, today)
	assert.InDelta(t, 12, *p.AverageResponseTime, 0.001)
}

func TestDueForReview(t *testing.T) {
	today := dateOf(2026, time.August, 31)

	p := NewProgress(1, 1, today)
	assert.True(t, DueForReview(p, today), "review date today is due")

	p.NextReviewDate = today.AddDays(2)
	assert.False(t, DueForReview(p, today))

	p.NextReviewDate = today.AddDays(-3)
	assert.True(t, DueForReview(p, today), "overdue is due")

	p.MasteryLevel = models.MasteryMastered
	assert.False(t, DueForReview(p, today), "mastered words are never due")
}

func TestNewProgressDefaults(t *testing.T) {
	today := models.Today()
	p := NewProgress(7, 42, today)
	assert.Equal(t, int64(7), p.UserID)
	assert.Equal(t, int64(42), p.WordID)
	assert.Equal(t, models.MasteryNew, p.MasteryLevel)
	assert.InDelta(t, models.DefaultEaseFactor, p.EaseFactor, 0.001)
	assert.Equal(t, 1, p.ReviewIntervalDays)
	assert.Equal(t, today, p.NextReviewDate)
}
