package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/vocabtamil/internal/apperr"
	"github.com/example/vocabtamil/pkg/models"
)

// WordRepository handles database operations for the word catalog.
// The catalog is read-only to the learning engine.
type WordRepository struct{}

// NewWordRepository creates a new repository instance
func NewWordRepository() *WordRepository {
	return &WordRepository{}
}

// GetByID returns a word by ID
func (r *WordRepository) GetByID(ctx context.Context, q Queryer, id int64) (*models.Word, error) {
	var word models.Word
	err := sqlx.GetContext(ctx, q, &word, "SELECT * FROM words WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("word", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get word by ID: %v", err)
	}
	return &word, nil
}

// GetByIDs returns the words for the given IDs. Any missing ID yields a
// not-found error naming the first absent word.
func (r *WordRepository) GetByIDs(ctx context.Context, q Queryer, ids []int64) ([]models.Word, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT * FROM words WHERE id IN (?)", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build word query: %v", err)
	}
	var words []models.Word
	if err := sqlx.SelectContext(ctx, q, &words, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get words: %v", err)
	}
	if len(words) != len(ids) {
		found := make(map[int64]bool, len(words))
		for _, w := range words {
			found[w.ID] = true
		}
		for _, id := range ids {
			if !found[id] {
				return nil, apperr.NotFound("word", id)
			}
		}
	}
	return words, nil
}

// CountAll returns the total catalog size
func (r *WordRepository) CountAll(ctx context.Context, q Queryer) (int, error) {
	var count int
	if err := sqlx.GetContext(ctx, q, &count, "SELECT COUNT(*) FROM words"); err != nil {
		return 0, fmt.Errorf("failed to count words: %v", err)
	}
	return count, nil
}

// Categories returns each category with its total word count
func (r *WordRepository) Categories(ctx context.Context, q Queryer) ([]CategoryCount, error) {
	var rows []CategoryCount
	err := sqlx.SelectContext(ctx, q, &rows,
		"SELECT category, COUNT(*) AS total FROM words GROUP BY category ORDER BY category")
	if err != nil {
		return nil, fmt.Errorf("failed to get word categories: %v", err)
	}
	return rows, nil
}

// CategoryCount pairs a category with its catalog size
type CategoryCount struct {
	Category string `db:"category"`
	Total    int    `db:"total"`
}

// ListOthers returns up to limit words excluding the given IDs, same
// category first, then by frequency rank. Used to widen the distractor pool.
func (r *WordRepository) ListOthers(ctx context.Context, q Queryer, excludeIDs []int64, category string, limit int) ([]models.Word, error) {
	if limit <= 0 {
		return nil, nil
	}
	base := "SELECT * FROM words"
	args := []interface{}{}
	if len(excludeIDs) > 0 {
		query, inArgs, err := sqlx.In(base+" WHERE id NOT IN (?)", excludeIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to build distractor query: %v", err)
		}
		base = query
		args = inArgs
	}
	base += " ORDER BY CASE WHEN category = ? THEN 0 ELSE 1 END, frequency_rank LIMIT ?"
	args = append(args, category, limit)

	var words []models.Word
	if err := sqlx.SelectContext(ctx, q, &words, q.Rebind(base), args...); err != nil {
		return nil, fmt.Errorf("failed to get distractor words: %v", err)
	}
	return words, nil
}

// ListUnseenByDifficulty returns words the user has no progress row for,
// restricted to the given difficulty band, ordered by frequency rank.
func (r *WordRepository) ListUnseenByDifficulty(ctx context.Context, q Queryer, userID int64, difficulties []int, limit int) ([]models.Word, error) {
	if limit <= 0 || len(difficulties) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
		SELECT * FROM words
		WHERE difficulty IN (?)
		AND id NOT IN (SELECT word_id FROM user_word_progress WHERE user_id = ?)
		ORDER BY frequency_rank
		LIMIT ?`, difficulties, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to build unseen word query: %v", err)
	}
	var words []models.Word
	if err := sqlx.SelectContext(ctx, q, &words, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get unseen words: %v", err)
	}
	return words, nil
}

// Create inserts a new catalog word
func (r *WordRepository) Create(ctx context.Context, q Queryer, word *models.Word) error {
	if q.DriverName() == "postgres" {
		query := `
			INSERT INTO words (tamil_word, transliteration, meanings, example_tamil, example_english, category, difficulty, frequency_rank)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, created_at, updated_at
		`
		return sqlx.GetContext(ctx, q, word, query,
			word.TamilWord, word.Transliteration, word.Meanings, word.ExampleTamil,
			word.ExampleEnglish, word.Category, word.Difficulty, word.FrequencyRank)
	}

	// SQLite path without RETURNING
	result, err := q.ExecContext(ctx, `
		INSERT INTO words (tamil_word, transliteration, meanings, example_tamil, example_english, category, difficulty, frequency_rank)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		word.TamilWord, word.Transliteration, word.Meanings, word.ExampleTamil,
		word.ExampleEnglish, word.Category, word.Difficulty, word.FrequencyRank)
	if err != nil {
		return fmt.Errorf("failed to create word: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get word id: %v", err)
	}
	word.ID = id
	return nil
}
