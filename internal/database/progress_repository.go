package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/vocabtamil/internal/apperr"
	"github.com/example/vocabtamil/pkg/models"
)

// ProgressRepository handles database operations for per-(user, word)
// learning progress. Rows are created lazily and mutated only under the
// row lock taken by GetForUpdate.
type ProgressRepository struct{}

// NewProgressRepository creates a new repository instance
func NewProgressRepository() *ProgressRepository {
	return &ProgressRepository{}
}

// Get returns progress for a specific user and word
func (r *ProgressRepository) Get(ctx context.Context, q Queryer, userID, wordID int64) (*models.WordProgress, error) {
	var progress models.WordProgress
	err := sqlx.GetContext(ctx, q, &progress,
		"SELECT * FROM user_word_progress WHERE user_id = $1 AND word_id = $2", userID, wordID)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("word progress", fmt.Sprintf("%d/%d", userID, wordID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get word progress: %v", err)
	}
	return &progress, nil
}

// GetForUpdate returns progress for a specific user and word holding a
// row-level exclusive lock for the lifetime of the surrounding transaction.
func (r *ProgressRepository) GetForUpdate(ctx context.Context, q Queryer, userID, wordID int64) (*models.WordProgress, error) {
	var progress models.WordProgress
	err := sqlx.GetContext(ctx, q, &progress,
		"SELECT * FROM user_word_progress WHERE user_id = $1 AND word_id = $2"+forUpdate(q), userID, wordID)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("word progress", fmt.Sprintf("%d/%d", userID, wordID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock word progress: %v", err)
	}
	return &progress, nil
}

// Create inserts a new progress record. The (user_id, word_id) unique
// constraint turns a create race into a conflict the caller retries.
func (r *ProgressRepository) Create(ctx context.Context, q Queryer, progress *models.WordProgress) error {
	if q.DriverName() == "postgres" {
		query := `
			INSERT INTO user_word_progress (
				user_id, word_id, mastery_level, times_seen, times_correct, times_incorrect,
				ease_factor, review_interval_days, next_review_date, average_response_time, last_response_time
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id, first_seen_at, last_reviewed_at
		`
		return sqlx.GetContext(ctx, q, progress, query,
			progress.UserID, progress.WordID, progress.MasteryLevel,
			progress.TimesSeen, progress.TimesCorrect, progress.TimesIncorrect,
			progress.EaseFactor, progress.ReviewIntervalDays, progress.NextReviewDate,
			progress.AverageResponseTime, progress.LastResponseTime)
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO user_word_progress (
			user_id, word_id, mastery_level, times_seen, times_correct, times_incorrect,
			ease_factor, review_interval_days, next_review_date, average_response_time, last_response_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		progress.UserID, progress.WordID, progress.MasteryLevel,
		progress.TimesSeen, progress.TimesCorrect, progress.TimesIncorrect,
		progress.EaseFactor, progress.ReviewIntervalDays, progress.NextReviewDate,
		progress.AverageResponseTime, progress.LastResponseTime)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get progress id: %v", err)
	}
	progress.ID = id
	return nil
}

// Update persists a progress record. The caller must hold the row lock.
func (r *ProgressRepository) Update(ctx context.Context, q Queryer, progress *models.WordProgress) error {
	_, err := q.ExecContext(ctx, `
		UPDATE user_word_progress SET
			mastery_level = $1,
			times_seen = $2,
			times_correct = $3,
			times_incorrect = $4,
			ease_factor = $5,
			review_interval_days = $6,
			next_review_date = $7,
			average_response_time = $8,
			last_response_time = $9,
			last_reviewed_at = CURRENT_TIMESTAMP
		WHERE id = $10`,
		progress.MasteryLevel, progress.TimesSeen, progress.TimesCorrect, progress.TimesIncorrect,
		progress.EaseFactor, progress.ReviewIntervalDays, progress.NextReviewDate,
		progress.AverageResponseTime, progress.LastResponseTime, progress.ID)
	if err != nil {
		return fmt.Errorf("failed to update word progress: %v", err)
	}
	return nil
}

// ListByUser returns all progress rows for a user
func (r *ProgressRepository) ListByUser(ctx context.Context, q Queryer, userID int64) ([]models.WordProgress, error) {
	var rows []models.WordProgress
	err := sqlx.SelectContext(ctx, q, &rows,
		"SELECT * FROM user_word_progress WHERE user_id = $1", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list word progress: %v", err)
	}
	return rows, nil
}

// DueForUser returns progress rows due for review: the review date has
// arrived and the word is not yet mastered.
func (r *ProgressRepository) DueForUser(ctx context.Context, q Queryer, userID int64, today models.Date) ([]models.WordProgress, error) {
	var rows []models.WordProgress
	err := sqlx.SelectContext(ctx, q, &rows, `
		SELECT * FROM user_word_progress
		WHERE user_id = $1 AND next_review_date <= $2 AND mastery_level < $3
		ORDER BY next_review_date`, userID, today, models.MasteryMastered)
	if err != nil {
		return nil, fmt.Errorf("failed to get due words: %v", err)
	}
	return rows, nil
}

// CountDueForUser returns the number of words due for review
func (r *ProgressRepository) CountDueForUser(ctx context.Context, q Queryer, userID int64, today models.Date) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, q, &count, `
		SELECT COUNT(*) FROM user_word_progress
		WHERE user_id = $1 AND next_review_date <= $2 AND mastery_level < $3`,
		userID, today, models.MasteryMastered)
	if err != nil {
		return 0, fmt.Errorf("failed to count due words: %v", err)
	}
	return count, nil
}

// CountByMinMastery returns how many of the user's words have reached at
// least the given mastery level.
func (r *ProgressRepository) CountByMinMastery(ctx context.Context, q Queryer, userID int64, level int) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, q, &count,
		"SELECT COUNT(*) FROM user_word_progress WHERE user_id = $1 AND mastery_level >= $2",
		userID, level)
	if err != nil {
		return 0, fmt.Errorf("failed to count words by mastery: %v", err)
	}
	return count, nil
}

// CountMasteredInCategory returns how many words the user has mastered in
// one catalog category.
func (r *ProgressRepository) CountMasteredInCategory(ctx context.Context, q Queryer, userID int64, category string) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, q, &count, `
		SELECT COUNT(*) FROM user_word_progress up
		JOIN words w ON up.word_id = w.id
		WHERE up.user_id = $1 AND w.category = $2 AND up.mastery_level = $3`,
		userID, category, models.MasteryMastered)
	if err != nil {
		return 0, fmt.Errorf("failed to count mastered words in category: %v", err)
	}
	return count, nil
}

// CountLearnedInCategory returns how many words the user has learned
// (mastery level 1 or better) in one catalog category.
func (r *ProgressRepository) CountLearnedInCategory(ctx context.Context, q Queryer, userID int64, category string) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, q, &count, `
		SELECT COUNT(*) FROM user_word_progress up
		JOIN words w ON up.word_id = w.id
		WHERE up.user_id = $1 AND w.category = $2 AND up.mastery_level >= $3`,
		userID, category, models.MasteryLearning)
	if err != nil {
		return 0, fmt.Errorf("failed to count learned words in category: %v", err)
	}
	return count, nil
}

// AccuracyTotals returns lifetime correct answers and attempts across all of
// a user's words.
func (r *ProgressRepository) AccuracyTotals(ctx context.Context, q Queryer, userID int64) (correct int, attempts int, err error) {
	row := struct {
		Correct  int `db:"correct"`
		Attempts int `db:"attempts"`
	}{}
	err = sqlx.GetContext(ctx, q, &row, `
		SELECT COALESCE(SUM(times_correct), 0) AS correct, COALESCE(SUM(times_seen), 0) AS attempts
		FROM user_word_progress WHERE user_id = $1 AND times_seen > 0`, userID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get accuracy totals: %v", err)
	}
	return row.Correct, row.Attempts, nil
}

// MasteryCounts returns a count of the user's progress rows per mastery level
func (r *ProgressRepository) MasteryCounts(ctx context.Context, q Queryer, userID int64) (map[int]int, error) {
	var rows []struct {
		Level int `db:"mastery_level"`
		Total int `db:"total"`
	}
	err := sqlx.SelectContext(ctx, q, &rows, `
		SELECT mastery_level, COUNT(*) AS total FROM user_word_progress
		WHERE user_id = $1 GROUP BY mastery_level`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get mastery counts: %v", err)
	}
	counts := make(map[int]int, len(rows))
	for _, row := range rows {
		counts[row.Level] = row.Total
	}
	return counts, nil
}
