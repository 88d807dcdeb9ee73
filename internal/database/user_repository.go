package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/vocabtamil/internal/apperr"
	"github.com/example/vocabtamil/pkg/models"
)

// UserRepository handles database operations for user accounts. Only the
// gamification aggregate (XP, streaks, activity date) is written here.
type UserRepository struct{}

// NewUserRepository creates a new repository instance
func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

// GetByID returns a user by ID
func (r *UserRepository) GetByID(ctx context.Context, q Queryer, id int64) (*models.User, error) {
	var user models.User
	err := sqlx.GetContext(ctx, q, &user, "SELECT * FROM users WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %v", err)
	}
	return &user, nil
}

// GetByIDForUpdate returns a user by ID holding a row-level exclusive lock
// for the lifetime of the surrounding transaction.
func (r *UserRepository) GetByIDForUpdate(ctx context.Context, q Queryer, id int64) (*models.User, error) {
	var user models.User
	err := sqlx.GetContext(ctx, q, &user, "SELECT * FROM users WHERE id = $1"+forUpdate(q), id)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock user: %v", err)
	}
	return &user, nil
}

// UpdateAggregate persists the gamification fields of a user row. The caller
// must hold the row lock acquired by GetByIDForUpdate.
func (r *UserRepository) UpdateAggregate(ctx context.Context, q Queryer, user *models.User) error {
	_, err := q.ExecContext(ctx, `
		UPDATE users SET
			total_xp = $1,
			current_streak = $2,
			longest_streak = $3,
			last_activity_date = $4,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $5`,
		user.TotalXP, user.CurrentStreak, user.LongestStreak, user.LastActivityDate, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user aggregate: %v", err)
	}
	return nil
}

// ListIDs returns all user IDs
func (r *UserRepository) ListIDs(ctx context.Context, q Queryer) ([]int64, error) {
	var ids []int64
	if err := sqlx.SelectContext(ctx, q, &ids, "SELECT id FROM users ORDER BY id"); err != nil {
		return nil, fmt.Errorf("failed to list users: %v", err)
	}
	return ids, nil
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, q Queryer, user *models.User) error {
	if user.TamilLevel == "" {
		user.TamilLevel = models.LevelBeginner
	}
	if user.DailyWordGoal == 0 {
		user.DailyWordGoal = 10
	}

	if q.DriverName() == "postgres" {
		query := `
			INSERT INTO users (username, tamil_level, daily_word_goal, total_xp, current_streak, longest_streak, last_activity_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at, updated_at
		`
		return sqlx.GetContext(ctx, q, user, query,
			user.Username, user.TamilLevel, user.DailyWordGoal,
			user.TotalXP, user.CurrentStreak, user.LongestStreak, user.LastActivityDate)
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO users (username, tamil_level, daily_word_goal, total_xp, current_streak, longest_streak, last_activity_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.Username, user.TamilLevel, user.DailyWordGoal,
		user.TotalXP, user.CurrentStreak, user.LongestStreak, user.LastActivityDate)
	if err != nil {
		return fmt.Errorf("failed to create user: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get user id: %v", err)
	}
	user.ID = id
	return nil
}
