package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/vocabtamil/pkg/models"
)

// AchievementRepository handles database operations for achievements and
// awards. The (user_id, achievement_id) unique constraint is the sole source
// of truth for whether an award happened.
type AchievementRepository struct{}

// NewAchievementRepository creates a new repository instance
func NewAchievementRepository() *AchievementRepository {
	return &AchievementRepository{}
}

// All returns every achievement definition ordered by criteria value
func (r *AchievementRepository) All(ctx context.Context, q Queryer) ([]models.Achievement, error) {
	var achievements []models.Achievement
	err := sqlx.SelectContext(ctx, q, &achievements,
		"SELECT * FROM achievements ORDER BY criteria_value, id")
	if err != nil {
		return nil, fmt.Errorf("failed to get achievements: %v", err)
	}
	return achievements, nil
}

// Unearned returns achievements the user has not earned yet
func (r *AchievementRepository) Unearned(ctx context.Context, q Queryer, userID int64) ([]models.Achievement, error) {
	var achievements []models.Achievement
	err := sqlx.SelectContext(ctx, q, &achievements, `
		SELECT * FROM achievements
		WHERE id NOT IN (SELECT achievement_id FROM user_achievements WHERE user_id = $1)
		ORDER BY criteria_value, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get unearned achievements: %v", err)
	}
	return achievements, nil
}

// Award attempts the atomic conditional insert of a UserAchievement row.
// Returns true only when this call created the row; a concurrent winner
// leaves the constraint intact and reads as false, never as an error.
func (r *AchievementRepository) Award(ctx context.Context, q Queryer, userID, achievementID int64) (bool, error) {
	var query string
	if q.DriverName() == "postgres" {
		query = `
			INSERT INTO user_achievements (user_id, achievement_id)
			VALUES ($1, $2)
			ON CONFLICT (user_id, achievement_id) DO NOTHING`
	} else {
		query = `
			INSERT OR IGNORE INTO user_achievements (user_id, achievement_id)
			VALUES ($1, $2)`
	}
	result, err := q.ExecContext(ctx, query, userID, achievementID)
	if err != nil {
		return false, fmt.Errorf("failed to award achievement: %v", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check award result: %v", err)
	}
	return affected == 1, nil
}

// EarnedByUser returns the user's awards, most recent first
func (r *AchievementRepository) EarnedByUser(ctx context.Context, q Queryer, userID int64) ([]models.UserAchievement, error) {
	var earned []models.UserAchievement
	err := sqlx.SelectContext(ctx, q, &earned,
		"SELECT * FROM user_achievements WHERE user_id = $1 ORDER BY earned_at DESC, id DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get earned achievements: %v", err)
	}
	return earned, nil
}

// Create inserts an achievement definition
func (r *AchievementRepository) Create(ctx context.Context, q Queryer, achievement *models.Achievement) error {
	if achievement.BadgeColor == "" {
		achievement.BadgeColor = "blue"
	}
	if q.DriverName() == "postgres" {
		query := `
			INSERT INTO achievements (name, description, icon, criteria_type, criteria_value, criteria_data, xp_reward, badge_color, is_hidden)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at
		`
		return sqlx.GetContext(ctx, q, achievement, query,
			achievement.Name, achievement.Description, achievement.Icon,
			achievement.CriteriaType, achievement.CriteriaValue, achievement.CriteriaData,
			achievement.XPReward, achievement.BadgeColor, achievement.IsHidden)
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO achievements (name, description, icon, criteria_type, criteria_value, criteria_data, xp_reward, badge_color, is_hidden)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		achievement.Name, achievement.Description, achievement.Icon,
		achievement.CriteriaType, achievement.CriteriaValue, achievement.CriteriaData,
		achievement.XPReward, achievement.BadgeColor, achievement.IsHidden)
	if err != nil {
		return fmt.Errorf("failed to create achievement: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get achievement id: %v", err)
	}
	achievement.ID = id
	return nil
}
