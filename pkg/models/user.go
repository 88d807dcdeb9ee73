package models

import "time"

// Tamil proficiency levels
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// User holds the account fields the learning engine reads and writes
type User struct {
	ID               int64      `json:"id" db:"id"`
	Username         string     `json:"username" db:"username"`
	TamilLevel       string     `json:"tamil_level" db:"tamil_level"`
	DailyWordGoal    int        `json:"daily_word_goal" db:"daily_word_goal"`
	TotalXP          int        `json:"total_xp" db:"total_xp"`
	CurrentStreak    int        `json:"current_streak" db:"current_streak"`
	LongestStreak    int        `json:"longest_streak" db:"longest_streak"`
	LastActivityDate Date       `json:"last_activity_date" db:"last_activity_date"` // zero until first activity
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// DifficultyBand returns the word difficulties eligible for a Tamil level
func DifficultyBand(level string) []int {
	switch level {
	case LevelIntermediate:
		return []int{2, 3, 4}
	case LevelAdvanced:
		return []int{3, 4, 5}
	default:
		return []int{1, 2}
	}
}
