package gamification

import (
	"context"
	"log"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/vocabtamil/internal/apperr"
	"github.com/example/vocabtamil/internal/database"
	"github.com/example/vocabtamil/internal/txn"
	"github.com/example/vocabtamil/pkg/models"
)

// MaxXPPerAward bounds a single XP grant
const MaxXPPerAward = 10000

// Engine applies XP, streak and achievement rules to user accounts. All
// writes go through a locked user row inside a retried transaction.
type Engine struct {
	db           *sqlx.DB
	users        *database.UserRepository
	progress     *database.ProgressRepository
	quizzes      *database.QuizRepository
	achievements *database.AchievementRepository
	retry        txn.Options
}

// NewEngine creates a gamification engine on the given database handle
func NewEngine(db *sqlx.DB) *Engine {
	return &Engine{
		db:           db,
		users:        database.NewUserRepository(),
		progress:     database.NewProgressRepository(),
		quizzes:      database.NewQuizRepository(),
		achievements: database.NewAchievementRepository(),
		retry:        txn.DefaultOptions(),
	}
}

// ValidateXPAmount rejects XP awards outside the allowed range. Out-of-range
// amounts are an error, never silently clamped.
func ValidateXPAmount(amount int) error {
	if amount < 0 || amount > MaxXPPerAward {
		return apperr.Validation("xp amount must be between 0 and %d", MaxXPPerAward)
	}
	return nil
}

// ApplyStreak advances a user's streak for activity on the given day.
// First activity ever starts at 1, a second activity on the same day is a
// no-op, consecutive days increment, and any gap resets to 1.
func ApplyStreak(u *models.User, today models.Date) {
	switch {
	case u.LastActivityDate.IsZero():
		u.CurrentStreak = 1
	case u.LastActivityDate.Equal(today):
		return
	case u.LastActivityDate.AddDays(1).Equal(today):
		u.CurrentStreak++
	default:
		u.CurrentStreak = 1
	}
	if u.CurrentStreak > u.LongestStreak {
		u.LongestStreak = u.CurrentStreak
	}
	u.LastActivityDate = today
}

// AddXPTx adds XP to an already-locked user row
func (e *Engine) AddXPTx(ctx context.Context, tx *sqlx.Tx, user *models.User, amount int) error {
	if err := ValidateXPAmount(amount); err != nil {
		return err
	}
	user.TotalXP += amount
	return e.users.UpdateAggregate(ctx, tx, user)
}

// UpdateStreakTx records today's activity on an already-locked user row
func (e *Engine) UpdateStreakTx(ctx context.Context, tx *sqlx.Tx, user *models.User, today models.Date) error {
	ApplyStreak(user, today)
	return e.users.UpdateAggregate(ctx, tx, user)
}

// AddXP adds XP to a user's total under the row lock
func (e *Engine) AddXP(ctx context.Context, userID int64, amount int) (*models.User, error) {
	if err := ValidateXPAmount(amount); err != nil {
		return nil, err
	}
	var updated *models.User
	err := txn.WithRetry(ctx, e.db, e.retry, func(tx *sqlx.Tx) error {
		user, err := e.users.GetByIDForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := e.AddXPTx(ctx, tx, user, amount); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateStreak records activity for today under the row lock
func (e *Engine) UpdateStreak(ctx context.Context, userID int64) (*models.User, error) {
	var updated *models.User
	err := txn.WithRetry(ctx, e.db, e.retry, func(tx *sqlx.Tx) error {
		user, err := e.users.GetByIDForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := e.UpdateStreakTx(ctx, tx, user, models.Today()); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// EvaluateAchievements checks every achievement the user has not earned yet
// and awards the ones whose criteria are now met. Each award runs in its own
// guarded transaction; the conditional insert makes a concurrent evaluation
// of the same user award each achievement exactly once.
func (e *Engine) EvaluateAchievements(ctx context.Context, userID int64) ([]models.Achievement, error) {
	candidates, err := e.achievements.Unearned(ctx, e.db, userID)
	if err != nil {
		return nil, err
	}

	var newlyEarned []models.Achievement
	for _, a := range candidates {
		met, err := e.criteriaMet(ctx, e.db, userID, &a)
		if err != nil {
			return newlyEarned, errors.Wrapf(err, "evaluating achievement %d", a.ID)
		}
		if !met {
			continue
		}

		achievement := a
		var won bool
		err = txn.WithRetry(ctx, e.db, e.retry, func(tx *sqlx.Tx) error {
			won = false
			awarded, err := e.achievements.Award(ctx, tx, userID, achievement.ID)
			if err != nil {
				return err
			}
			if !awarded {
				// Another evaluation got there first
				return nil
			}
			won = true
			if achievement.XPReward <= 0 {
				return nil
			}
			user, err := e.users.GetByIDForUpdate(ctx, tx, userID)
			if err != nil {
				return err
			}
			return e.AddXPTx(ctx, tx, user, achievement.XPReward)
		})
		if err != nil {
			return newlyEarned, err
		}
		if won {
			newlyEarned = append(newlyEarned, achievement)
		}
	}
	return newlyEarned, nil
}

// criteriaMet computes the user's current value for an achievement's metric
// and compares it against the threshold.
func (e *Engine) criteriaMet(ctx context.Context, q database.Queryer, userID int64, a *models.Achievement) (bool, error) {
	value, err := e.metricValue(ctx, q, userID, a)
	if err != nil {
		return false, err
	}
	return value >= a.CriteriaValue, nil
}

func (e *Engine) metricValue(ctx context.Context, q database.Queryer, userID int64, a *models.Achievement) (int, error) {
	switch a.CriteriaType {
	case models.CriteriaWordsLearned:
		return e.progress.CountByMinMastery(ctx, q, userID, models.MasteryLearning)
	case models.CriteriaWordsMastered:
		return e.progress.CountByMinMastery(ctx, q, userID, models.MasteryMastered)
	case models.CriteriaStreak:
		user, err := e.users.GetByID(ctx, q, userID)
		if err != nil {
			return 0, err
		}
		return user.CurrentStreak, nil
	case models.CriteriaXP:
		user, err := e.users.GetByID(ctx, q, userID)
		if err != nil {
			return 0, err
		}
		return user.TotalXP, nil
	case models.CriteriaAccuracy:
		correct, attempts, err := e.progress.AccuracyTotals(ctx, q, userID)
		if err != nil {
			return 0, err
		}
		if attempts == 0 {
			return 0, nil
		}
		return int(float64(correct) / float64(attempts) * 100), nil
	case models.CriteriaQuizSessions:
		return e.quizzes.CountCompletedByUser(ctx, q, userID)
	case models.CriteriaCategoryMastery:
		category := a.CriteriaData.Category()
		if category == "" {
			log.Printf("achievement %d has category_mastery criteria without a category", a.ID)
			return 0, nil
		}
		return e.progress.CountMasteredInCategory(ctx, q, userID, category)
	default:
		log.Printf("achievement %d has unknown criteria type %s", a.ID, a.CriteriaType)
		return 0, nil
	}
}

// AchievementProgress describes how close a user is to an unearned achievement
type AchievementProgress struct {
	Achievement models.Achievement `json:"achievement"`
	Current     int                `json:"current"`
	Target      int                `json:"target"`
	Percentage  float64            `json:"percentage"`
}

// Progress reports the user's progress toward each visible unearned
// achievement, closest first.
func (e *Engine) Progress(ctx context.Context, userID int64) ([]AchievementProgress, error) {
	candidates, err := e.achievements.Unearned(ctx, e.db, userID)
	if err != nil {
		return nil, err
	}

	result := make([]AchievementProgress, 0, len(candidates))
	for _, a := range candidates {
		if a.IsHidden {
			continue
		}
		value, err := e.metricValue(ctx, e.db, userID, &a)
		if err != nil {
			return nil, err
		}
		pct := 0.0
		if a.CriteriaValue > 0 {
			pct = float64(value) / float64(a.CriteriaValue) * 100
			if pct > 100 {
				pct = 100
			}
		}
		result = append(result, AchievementProgress{
			Achievement: a,
			Current:     value,
			Target:      a.CriteriaValue,
			Percentage:  pct,
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Percentage > result[j].Percentage
	})
	return result, nil
}
