package srs

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/vocabtamil/internal/apperr"
	"github.com/example/vocabtamil/internal/database"
	"github.com/example/vocabtamil/pkg/models"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	t.Setenv("DB_TYPE", "sqlite")
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, database.Connect())
	t.Cleanup(func() { database.Close() })
}

func createTestUser(t *testing.T, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username}
	require.NoError(t, database.NewUserRepository().Create(context.Background(), database.DB, user))
	return user
}

func createTestWord(t *testing.T, tamil, meaning, category string, difficulty int) *models.Word {
	t.Helper()
	word := &models.Word{
		TamilWord:       tamil,
		Transliteration: tamil + "-tr",
		Meanings:        models.StringList{meaning},
		Category:        category,
		Difficulty:      difficulty,
	}
	require.NoError(t, database.NewWordRepository().Create(context.Background(), database.DB, word))
	return word
}

func TestRecordAnswerCreatesProgressOnFirstEncounter(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, "asha")
	word := createTestWord(t, "அன்பு", "love", "emotions", 1)
	tracker := NewTracker(database.DB)

	p, err := tracker.RecordAnswer(ctx, user.ID, word.ID, true, floatPtr(4.2))
	require.NoError(t, err)
	assert.Equal(t, 1, p.TimesSeen)
	assert.Equal(t, 1, p.TimesCorrect)
	assert.Equal(t, 3, p.ReviewIntervalDays)
	require.NotNil(t, p.AverageResponseTime)
	assert.InDelta(t, 4.2, *p.AverageResponseTime, 0.001)

	// Row persisted, answered again without creating a duplicate
	p2, err := tracker.RecordAnswer(ctx, user.ID, word.ID, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, p2.TimesSeen)
	assert.Equal(t, 1, p2.TimesIncorrect)
	assert.Equal(t, 1, p2.ReviewIntervalDays)
}

func TestRecordAnswerUnknownWord(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "asha")
	tracker := NewTracker(database.DB)

	_, err := tracker.RecordAnswer(context.Background(), user.ID, 9999, true, nil)
	assert.True(t, apperr.IsNotFound(err))
}

func TestRecordAnswerResponseTimeBounds(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "asha")
	word := createTestWord(t, "நீர்", "water", "nature", 1)
	tracker := NewTracker(database.DB)

	_, err := tracker.RecordAnswer(context.Background(), user.ID, word.ID, true, floatPtr(-1))
	assert.True(t, apperr.IsValidation(err))

	_, err = tracker.RecordAnswer(context.Background(), user.ID, word.ID, true, floatPtr(3601))
	assert.True(t, apperr.IsValidation(err))
}

func TestBreakdownCountsUnseenAsNew(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, "asha")
	seenWord := createTestWord(t, "வீடு", "house", "places", 1)
	createTestWord(t, "மரம்", "tree", "nature", 1)
	createTestWord(t, "புத்தகம்", "book", "objects", 2)
	tracker := NewTracker(database.DB)

	// Three correct answers promote the seen word to learning
	for i := 0; i < 3; i++ {
		_, err := tracker.RecordAnswer(ctx, user.ID, seenWord.ID, true, nil)
		require.NoError(t, err)
	}

	breakdown, err := tracker.Breakdown(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, breakdown.New, "unseen catalog words count as new")
	assert.Equal(t, 1, breakdown.Learning)
	assert.Equal(t, 0, breakdown.Familiar)
	assert.Equal(t, 0, breakdown.Mastered)
}

func TestDueWords(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, "asha")
	wordNow := createTestWord(t, "பால்", "milk", "food", 1)
	wordLater := createTestWord(t, "தண்ணீர்", "water", "food", 1)
	tracker := NewTracker(database.DB)

	// Wrong answer keeps the first word due tomorrow; a streak of correct
	// answers pushes the second word days out.
	_, err := tracker.RecordAnswer(ctx, user.ID, wordNow.ID, false, nil)
	require.NoError(t, err)
	_, err = tracker.RecordAnswer(ctx, user.ID, wordLater.ID, true, nil)
	require.NoError(t, err)

	due, err := tracker.DueWords(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, due, "nothing is due before its review date")
}

func TestPickDailyWordsFillsFromUnseen(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, "asha")
	for i := 0; i < 5; i++ {
		createTestWord(t, fmt.Sprintf("word-%d", i), fmt.Sprintf("meaning-%d", i), "misc", 1)
	}
	tracker := NewTracker(database.DB)
	rng := rand.New(rand.NewSource(1))

	picked, err := tracker.PickDailyWords(ctx, user.ID, 3, rng)
	require.NoError(t, err)
	assert.Len(t, picked, 3)

	// Difficulty 5 words are outside a beginner's band
	createTestWord(t, "கடினம்", "hard", "misc", 5)
	picked, err = tracker.PickDailyWords(ctx, user.ID, 10, rng)
	require.NoError(t, err)
	assert.Len(t, picked, 5)
}

func TestCategoryBreakdown(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, "asha")
	food := createTestWord(t, "சோறு", "rice", "food", 1)
	createTestWord(t, "மீன்", "fish", "food", 1)
	createTestWord(t, "மலை", "mountain", "nature", 1)
	tracker := NewTracker(database.DB)

	for i := 0; i < 3; i++ {
		_, err := tracker.RecordAnswer(ctx, user.ID, food.ID, true, nil)
		require.NoError(t, err)
	}

	categories, err := tracker.CategoryBreakdown(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	// Sorted by mastery rate, food first
	assert.Equal(t, "food", categories[0].Category)
	assert.Equal(t, 1, categories[0].WordsLearned)
	assert.Equal(t, 2, categories[0].TotalWords)
	assert.InDelta(t, 50.0, categories[0].MasteryRate, 0.001)
	assert.Equal(t, "nature", categories[1].Category)
	assert.Equal(t, 0, categories[1].WordsLearned)

	summary, err := tracker.Summary(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Mastery.Learning)
	assert.Len(t, summary.Categories, 2)
}
