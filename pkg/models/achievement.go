package models

import "time"

// Achievement criteria types
const (
	CriteriaWordsLearned    = "words_learned"
	CriteriaWordsMastered   = "words_mastered"
	CriteriaStreak          = "streak"
	CriteriaXP              = "xp"
	CriteriaAccuracy        = "accuracy"
	CriteriaQuizSessions    = "quiz_sessions"
	CriteriaCategoryMastery = "category_mastery"
)

// Achievement is an unlockable reward definition
type Achievement struct {
	ID            int64     `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Description   string    `json:"description" db:"description"`
	Icon          string    `json:"icon" db:"icon"`
	CriteriaType  string    `json:"criteria_type" db:"criteria_type"`
	CriteriaValue int       `json:"criteria_value" db:"criteria_value"`
	CriteriaData  JSONMap   `json:"criteria_data" db:"criteria_data"` // e.g. {"category": "food"}
	XPReward      int       `json:"xp_reward" db:"xp_reward"`
	BadgeColor    string    `json:"badge_color" db:"badge_color"`
	IsHidden      bool      `json:"is_hidden" db:"is_hidden"` // hidden until unlocked
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// UserAchievement records an award. At most one exists per (user, achievement)
// and creation is terminal; the unique constraint is the award's source of truth.
type UserAchievement struct {
	ID            int64     `json:"id" db:"id"`
	UserID        int64     `json:"user_id" db:"user_id"`
	AchievementID int64     `json:"achievement_id" db:"achievement_id"`
	EarnedAt      time.Time `json:"earned_at" db:"earned_at"`
}
