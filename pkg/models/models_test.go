package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateValueAndScan(t *testing.T) {
	d := DateOf(time.Date(2026, time.August, 31, 15, 4, 5, 0, time.UTC))

	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2026-08-31", v)

	var scanned Date
	require.NoError(t, scanned.Scan("2026-08-31"))
	assert.True(t, scanned.Equal(d))

	// Drivers sometimes hand back a full timestamp string
	require.NoError(t, scanned.Scan("2026-08-31 00:00:00+00:00"))
	assert.True(t, scanned.Equal(d))

	require.NoError(t, scanned.Scan(time.Date(2026, time.August, 31, 23, 59, 0, 0, time.UTC)))
	assert.True(t, scanned.Equal(d))
}

func TestDateZeroValueIsNull(t *testing.T) {
	var d Date
	v, err := d.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	data, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestDateAddDays(t *testing.T) {
	d := DateOf(time.Date(2026, time.February, 27, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2026-03-01", d.AddDays(2).Format("2006-01-02"), "crosses the month boundary")
}

func TestStringListRoundTrip(t *testing.T) {
	s := StringList{"love", "affection"}
	v, err := s.Value()
	require.NoError(t, err)

	var scanned StringList
	require.NoError(t, scanned.Scan(v))
	assert.Equal(t, s, scanned)

	var empty StringList
	v, err = empty.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestJSONMapCategory(t *testing.T) {
	m := JSONMap{"category": "food"}
	assert.Equal(t, "food", m.Category())
	assert.Equal(t, "", JSONMap{}.Category())
	assert.Equal(t, "", JSONMap{"category": 7}.Category())
}

func TestQuizSessionDurationMinutes(t *testing.T) {
	seconds := 130
	s := &QuizSession{TotalTimeSeconds: &seconds}
	assert.InDelta(t, 2.2, s.DurationMinutes(), 0.001, "rounded to one decimal")

	s.TotalTimeSeconds = nil
	assert.Zero(t, s.DurationMinutes())
}

func TestQuizSessionAccuracyPercent(t *testing.T) {
	s := &QuizSession{TotalQuestions: 3, CorrectAnswers: 2}
	assert.InDelta(t, 66.666, s.AccuracyPercent(), 0.001)
	assert.Zero(t, (&QuizSession{}).AccuracyPercent())
}

func TestWordProgressAccuracyPercent(t *testing.T) {
	p := &WordProgress{TimesSeen: 4, TimesCorrect: 3}
	assert.InDelta(t, 75.0, p.AccuracyPercent(), 0.001)
	assert.Zero(t, (&WordProgress{}).AccuracyPercent())
}

func TestDifficultyBand(t *testing.T) {
	assert.Equal(t, []int{1, 2}, DifficultyBand(LevelBeginner))
	assert.Equal(t, []int{2, 3, 4}, DifficultyBand(LevelIntermediate))
	assert.Equal(t, []int{3, 4, 5}, DifficultyBand(LevelAdvanced))
	assert.Equal(t, []int{1, 2}, DifficultyBand("unknown"), "unknown levels fall back to beginner")
}

func TestWordPrimaryMeaning(t *testing.T) {
	w := &Word{Meanings: StringList{"love", "affection"}}
	assert.Equal(t, "love", w.PrimaryMeaning())
	assert.Equal(t, "", (&Word{}).PrimaryMeaning())
}
