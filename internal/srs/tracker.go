package srs

import (
	"context"
	"math/rand"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/vocabtamil/internal/apperr"
	"github.com/example/vocabtamil/internal/database"
	"github.com/example/vocabtamil/internal/txn"
	"github.com/example/vocabtamil/pkg/models"
)

// MaxResponseTimeSeconds bounds a single recorded response time
const MaxResponseTimeSeconds = 3600

// Tracker records answers against word progress rows and serves review
// scheduling queries.
type Tracker struct {
	db       *sqlx.DB
	progress *database.ProgressRepository
	words    *database.WordRepository
	users    *database.UserRepository
	retry    txn.Options
}

// NewTracker creates a tracker on the given database handle
func NewTracker(db *sqlx.DB) *Tracker {
	return &Tracker{
		db:       db,
		progress: database.NewProgressRepository(),
		words:    database.NewWordRepository(),
		users:    database.NewUserRepository(),
		retry:    txn.DefaultOptions(),
	}
}

// RecordAnswer applies one answer to the (user, word) progress row, creating
// it on first encounter. The read-modify-write runs under the row lock
// inside a retried transaction, so two simultaneous submissions for the same
// word serialize instead of losing an update.
func (t *Tracker) RecordAnswer(ctx context.Context, userID, wordID int64, isCorrect bool, responseTime *float64) (*models.WordProgress, error) {
	if responseTime != nil && (*responseTime < 0 || *responseTime > MaxResponseTimeSeconds) {
		return nil, apperr.Validation("response time must be between 0 and %d seconds", MaxResponseTimeSeconds)
	}

	var updated *models.WordProgress
	err := txn.WithRetry(ctx, t.db, t.retry, func(tx *sqlx.Tx) error {
		return t.recordAnswerTx(ctx, tx, userID, wordID, isCorrect, responseTime, &updated)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (t *Tracker) recordAnswerTx(ctx context.Context, tx *sqlx.Tx, userID, wordID int64, isCorrect bool, responseTime *float64, out **models.WordProgress) error {
	today := models.Today()

	progress, err := t.progress.GetForUpdate(ctx, tx, userID, wordID)
	if apperr.IsNotFound(err) {
		// First encounter. The word must exist; the unique constraint turns
		// a concurrent create into a conflict the guard retries, after which
		// the locked read succeeds.
		if _, err := t.words.GetByID(ctx, tx, wordID); err != nil {
			return err
		}
		progress = NewProgress(userID, wordID, today)
		Advance(progress, isCorrect, responseTime, today)
		if err := t.progress.Create(ctx, tx, progress); err != nil {
			return err
		}
		*out = progress
		return nil
	}
	if err != nil {
		return err
	}

	Advance(progress, isCorrect, responseTime, today)
	if err := t.progress.Update(ctx, tx, progress); err != nil {
		return err
	}
	*out = progress
	return nil
}

// DueWords returns the user's progress rows due for review today
func (t *Tracker) DueWords(ctx context.Context, userID int64) ([]models.WordProgress, error) {
	return t.progress.DueForUser(ctx, t.db, userID, models.Today())
}

// PickDailyWords assembles a practice set: words due for review first, then
// unseen words from the user's difficulty band ordered by frequency, the
// whole set shuffled with the injected random source.
func (t *Tracker) PickDailyWords(ctx context.Context, userID int64, limit int, rng *rand.Rand) ([]models.Word, error) {
	if limit <= 0 {
		return nil, nil
	}
	user, err := t.users.GetByID(ctx, t.db, userID)
	if err != nil {
		return nil, err
	}

	due, err := t.DueWords(ctx, userID)
	if err != nil {
		return nil, err
	}
	wordIDs := make([]int64, 0, limit)
	for _, p := range due {
		if len(wordIDs) == limit {
			break
		}
		wordIDs = append(wordIDs, p.WordID)
	}

	var picked []models.Word
	if len(wordIDs) > 0 {
		picked, err = t.words.GetByIDs(ctx, t.db, wordIDs)
		if err != nil {
			return nil, errors.Wrap(err, "loading due words")
		}
	}

	if missing := limit - len(picked); missing > 0 {
		fresh, err := t.words.ListUnseenByDifficulty(ctx, t.db, userID, models.DifficultyBand(user.TamilLevel), missing)
		if err != nil {
			return nil, errors.Wrap(err, "loading new words")
		}
		picked = append(picked, fresh...)
	}

	rng.Shuffle(len(picked), func(i, j int) {
		picked[i], picked[j] = picked[j], picked[i]
	})
	return picked, nil
}

// MasteryBreakdown counts the user's words per mastery level. Catalog words
// the user has never seen count as new.
type MasteryBreakdown struct {
	New      int `json:"new"`
	Learning int `json:"learning"`
	Familiar int `json:"familiar"`
	Mastered int `json:"mastered"`
}

// Breakdown returns the user's mastery breakdown
func (t *Tracker) Breakdown(ctx context.Context, userID int64) (*MasteryBreakdown, error) {
	counts, err := t.progress.MasteryCounts(ctx, t.db, userID)
	if err != nil {
		return nil, err
	}
	total, err := t.words.CountAll(ctx, t.db)
	if err != nil {
		return nil, err
	}

	breakdown := &MasteryBreakdown{
		New:      counts[models.MasteryNew],
		Learning: counts[models.MasteryLearning],
		Familiar: counts[models.MasteryFamiliar],
		Mastered: counts[models.MasteryMastered],
	}
	seen := breakdown.New + breakdown.Learning + breakdown.Familiar + breakdown.Mastered
	if unseen := total - seen; unseen > 0 {
		breakdown.New += unseen
	}
	return breakdown, nil
}

// CategoryProgress reports how far a user has come in one catalog category
type CategoryProgress struct {
	Category     string  `json:"category"`
	WordsLearned int     `json:"words_learned"`
	TotalWords   int     `json:"total_words"`
	MasteryRate  float64 `json:"mastery_rate"` // percent, one decimal
}

// CategoryBreakdown returns per-category learning progress sorted by mastery
// rate, highest first.
func (t *Tracker) CategoryBreakdown(ctx context.Context, userID int64) ([]CategoryProgress, error) {
	categories, err := t.words.Categories(ctx, t.db)
	if err != nil {
		return nil, err
	}

	result := make([]CategoryProgress, 0, len(categories))
	for _, c := range categories {
		learned, err := t.progress.CountLearnedInCategory(ctx, t.db, userID, c.Category)
		if err != nil {
			return nil, err
		}
		rate := 0.0
		if c.Total > 0 {
			rate = float64(learned) / float64(c.Total) * 100
			rate = float64(int(rate*10+0.5)) / 10
		}
		result = append(result, CategoryProgress{
			Category:     c.Category,
			WordsLearned: learned,
			TotalWords:   c.Total,
			MasteryRate:  rate,
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].MasteryRate > result[j].MasteryRate
	})
	return result, nil
}

// ProgressSummary bundles the mastery breakdown with per-category progress
type ProgressSummary struct {
	Mastery    *MasteryBreakdown  `json:"mastery_breakdown"`
	Categories []CategoryProgress `json:"category_progress"`
}

// Summary returns the user's overall learning progress
func (t *Tracker) Summary(ctx context.Context, userID int64) (*ProgressSummary, error) {
	breakdown, err := t.Breakdown(ctx, userID)
	if err != nil {
		return nil, err
	}
	categories, err := t.CategoryBreakdown(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ProgressSummary{Mastery: breakdown, Categories: categories}, nil
}
