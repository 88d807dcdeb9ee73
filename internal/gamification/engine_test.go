package gamification

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

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

func createTestAchievement(t *testing.T, a *models.Achievement) *models.Achievement {
	t.Helper()
	require.NoError(t, database.NewAchievementRepository().Create(context.Background(), database.DB, a))
	return a
}

func dateOf(year int, month time.Month, day int) models.Date {
	return models.DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

func TestApplyStreak(t *testing.T) {
	today := dateOf(2026, time.August, 31)

	t.Run("first activity starts at one", func(t *testing.T) {
		u := &models.User{}
		ApplyStreak(u, today)
		assert.Equal(t, 1, u.CurrentStreak)
		assert.Equal(t, 1, u.LongestStreak)
		assert.Equal(t, today, u.LastActivityDate)
	})

	t.Run("same day is a no-op", func(t *testing.T) {
		u := &models.User{CurrentStreak: 4, LongestStreak: 4, LastActivityDate: today}
		ApplyStreak(u, today)
		assert.Equal(t, 4, u.CurrentStreak)
	})

	t.Run("consecutive day increments", func(t *testing.T) {
		u := &models.User{CurrentStreak: 4, LongestStreak: 4, LastActivityDate: today.AddDays(-1)}
		ApplyStreak(u, today)
		assert.Equal(t, 5, u.CurrentStreak)
		assert.Equal(t, 5, u.LongestStreak)
	})

	t.Run("gap resets to one", func(t *testing.T) {
		u := &models.User{CurrentStreak: 9, LongestStreak: 9, LastActivityDate: today.AddDays(-3)}
		ApplyStreak(u, today)
		assert.Equal(t, 1, u.CurrentStreak)
		assert.Equal(t, 9, u.LongestStreak, "longest streak survives a reset")
	})
}

func TestValidateXPAmount(t *testing.T) {
	assert.NoError(t, ValidateXPAmount(0))
	assert.NoError(t, ValidateXPAmount(MaxXPPerAward))
	assert.True(t, apperr.IsValidation(ValidateXPAmount(-1)))
	assert.True(t, apperr.IsValidation(ValidateXPAmount(MaxXPPerAward+1)))
}

func TestAddXP(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, "asha")
	engine := NewEngine(database.DB)

	updated, err := engine.AddXP(ctx, user.ID, 150)
	require.NoError(t, err)
	assert.Equal(t, 150, updated.TotalXP)

	updated, err = engine.AddXP(ctx, user.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, 200, updated.TotalXP)

	_, err = engine.AddXP(ctx, user.ID, -5)
	assert.True(t, apperr.IsValidation(err))

	_, err = engine.AddXP(ctx, 9999, 10)
	assert.True(t, apperr.IsNotFound(err))
}

func TestUpdateStreakPersists(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, "asha")
	engine := NewEngine(database.DB)

	updated, err := engine.UpdateStreak(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.CurrentStreak)

	// Second activity the same day changes nothing
	updated, err = engine.UpdateStreak(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.CurrentStreak)
	assert.True(t, updated.LastActivityDate.Equal(models.Today()))
}

func TestEvaluateAchievementsAwardsOnce(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, "asha")
	engine := NewEngine(database.DB)
	achievement := createTestAchievement(t, &models.Achievement{
		Name:          "XP Collector",
		CriteriaType:  models.CriteriaXP,
		CriteriaValue: 100,
		XPReward:      25,
	})

	earned, err := engine.EvaluateAchievements(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, earned, "criteria not met yet")

	_, err = engine.AddXP(ctx, user.ID, 100)
	require.NoError(t, err)

	earned, err = engine.EvaluateAchievements(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, earned, 1)
	assert.Equal(t, achievement.ID, earned[0].ID)

	updated, err := database.NewUserRepository().GetByID(ctx, database.DB, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 125, updated.TotalXP, "award pays its XP reward")

	// Re-evaluation never awards twice
	earned, err = engine.EvaluateAchievements(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, earned)

	updated, err = database.NewUserRepository().GetByID(ctx, database.DB, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 125, updated.TotalXP)
}

func TestEvaluateAchievementsConcurrent(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, "asha")
	engine := NewEngine(database.DB)
	createTestAchievement(t, &models.Achievement{
		Name:          "Quick Start",
		CriteriaType:  models.CriteriaXP,
		CriteriaValue: 10,
		XPReward:      50,
	})
	_, err := engine.AddXP(ctx, user.ID, 10)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]models.Achievement, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			earned, err := engine.EvaluateAchievements(ctx, user.ID)
			assert.NoError(t, err)
			results[i] = earned
		}(i)
	}
	wg.Wait()

	total := 0
	for _, earned := range results {
		total += len(earned)
	}
	assert.Equal(t, 1, total, "exactly one evaluator wins the award")

	updated, err := database.NewUserRepository().GetByID(ctx, database.DB, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, updated.TotalXP)
}

func TestEvaluateCategoryMastery(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, "asha")
	engine := NewEngine(database.DB)
	createTestAchievement(t, &models.Achievement{
		Name:          "Food Expert",
		CriteriaType:  models.CriteriaCategoryMastery,
		CriteriaValue: 1,
		CriteriaData:  models.JSONMap{"category": "food"},
	})
	createTestAchievement(t, &models.Achievement{
		Name:          "Sharp Shooter",
		CriteriaType:  models.CriteriaAccuracy,
		CriteriaValue: 80,
	})

	word := &models.Word{
		TamilWord:       "சோறு",
		Transliteration: "soru",
		Meanings:        models.StringList{"rice"},
		Category:        "food",
		Difficulty:      1,
	}
	require.NoError(t, database.NewWordRepository().Create(ctx, database.DB, word))

	progress := &models.WordProgress{
		UserID:             user.ID,
		WordID:             word.ID,
		MasteryLevel:       models.MasteryMastered,
		TimesSeen:          10,
		TimesCorrect:       9,
		EaseFactor:         models.DefaultEaseFactor,
		ReviewIntervalDays: 30,
		NextReviewDate:     models.Today().AddDays(30),
	}
	require.NoError(t, database.NewProgressRepository().Create(ctx, database.DB, progress))

	earned, err := engine.EvaluateAchievements(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, earned, 2)
	assert.Equal(t, "Food Expert", earned[0].Name)
	assert.Equal(t, "Sharp Shooter", earned[1].Name)
}

func TestProgressReportsUnearnedOnly(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, "asha")
	engine := NewEngine(database.DB)
	createTestAchievement(t, &models.Achievement{
		Name:          "XP Collector",
		CriteriaType:  models.CriteriaXP,
		CriteriaValue: 200,
	})
	createTestAchievement(t, &models.Achievement{
		Name:          "Secret",
		CriteriaType:  models.CriteriaXP,
		CriteriaValue: 1000,
		IsHidden:      true,
	})

	_, err := engine.AddXP(ctx, user.ID, 100)
	require.NoError(t, err)

	progress, err := engine.Progress(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, progress, 1, "hidden achievements stay out of the report")
	assert.Equal(t, "XP Collector", progress[0].Achievement.Name)
	assert.Equal(t, 100, progress[0].Current)
	assert.Equal(t, 200, progress[0].Target)
	assert.InDelta(t, 50.0, progress[0].Percentage, 0.001)
}
