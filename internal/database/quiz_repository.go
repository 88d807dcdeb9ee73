package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/vocabtamil/internal/apperr"
	"github.com/example/vocabtamil/pkg/models"
)

// QuizRepository handles database operations for quiz sessions and their
// questions.
type QuizRepository struct{}

// NewQuizRepository creates a new repository instance
func NewQuizRepository() *QuizRepository {
	return &QuizRepository{}
}

// CreateSession inserts a new quiz session
func (r *QuizRepository) CreateSession(ctx context.Context, q Queryer, session *models.QuizSession) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO quiz_sessions (id, user_id, quiz_type, status, total_questions, correct_answers, total_time_seconds, xp_earned, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		session.ID, session.UserID, session.QuizType, session.Status,
		session.TotalQuestions, session.CorrectAnswers, session.TotalTimeSeconds,
		session.XPEarned, session.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create quiz session: %v", err)
	}
	return nil
}

// GetSession returns a session by ID
func (r *QuizRepository) GetSession(ctx context.Context, q Queryer, id string) (*models.QuizSession, error) {
	var session models.QuizSession
	err := sqlx.GetContext(ctx, q, &session, "SELECT * FROM quiz_sessions WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("quiz session", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz session: %v", err)
	}
	return &session, nil
}

// GetSessionForUpdate returns a session by ID holding a row-level exclusive
// lock for the lifetime of the surrounding transaction.
func (r *QuizRepository) GetSessionForUpdate(ctx context.Context, q Queryer, id string) (*models.QuizSession, error) {
	var session models.QuizSession
	err := sqlx.GetContext(ctx, q, &session, "SELECT * FROM quiz_sessions WHERE id = $1"+forUpdate(q), id)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("quiz session", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock quiz session: %v", err)
	}
	return &session, nil
}

// UpdateSession persists the mutable session fields. The caller must hold
// the row lock.
func (r *QuizRepository) UpdateSession(ctx context.Context, q Queryer, session *models.QuizSession) error {
	_, err := q.ExecContext(ctx, `
		UPDATE quiz_sessions SET
			status = $1,
			total_questions = $2,
			correct_answers = $3,
			total_time_seconds = $4,
			xp_earned = $5,
			completed_at = $6
		WHERE id = $7`,
		session.Status, session.TotalQuestions, session.CorrectAnswers,
		session.TotalTimeSeconds, session.XPEarned, session.CompletedAt, session.ID)
	if err != nil {
		return fmt.Errorf("failed to update quiz session: %v", err)
	}
	return nil
}

// CountCompletedByUser returns the number of sessions the user has completed
func (r *QuizRepository) CountCompletedByUser(ctx context.Context, q Queryer, userID int64) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, q, &count,
		"SELECT COUNT(*) FROM quiz_sessions WHERE user_id = $1 AND completed_at IS NOT NULL", userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed sessions: %v", err)
	}
	return count, nil
}

// CompletedByUser returns the user's completed sessions, most recent first
func (r *QuizRepository) CompletedByUser(ctx context.Context, q Queryer, userID int64, limit int) ([]models.QuizSession, error) {
	var sessions []models.QuizSession
	err := sqlx.SelectContext(ctx, q, &sessions, `
		SELECT * FROM quiz_sessions
		WHERE user_id = $1 AND completed_at IS NOT NULL
		ORDER BY completed_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz history: %v", err)
	}
	return sessions, nil
}

// CreateQuestion inserts a new quiz question
func (r *QuizRepository) CreateQuestion(ctx context.Context, q Queryer, question *models.QuizQuestion) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO quiz_questions (id, session_id, word_id, question_type, question_text, correct_answer, answer_options, user_answer, asked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		question.ID, question.SessionID, question.WordID, question.QuestionType,
		question.QuestionText, question.CorrectAnswer, question.AnswerOptions,
		question.UserAnswer, question.AskedAt)
	if err != nil {
		return fmt.Errorf("failed to create quiz question: %v", err)
	}
	return nil
}

// GetQuestionInSession returns a question by ID, scoped to its session so a
// question from another session reads as missing.
func (r *QuizRepository) GetQuestionInSession(ctx context.Context, q Queryer, sessionID, questionID string) (*models.QuizQuestion, error) {
	var question models.QuizQuestion
	err := sqlx.GetContext(ctx, q, &question,
		"SELECT * FROM quiz_questions WHERE id = $1 AND session_id = $2", questionID, sessionID)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("quiz question", questionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz question: %v", err)
	}
	return &question, nil
}

// GetQuestionForUpdate returns a question scoped to its session holding a
// row-level exclusive lock.
func (r *QuizRepository) GetQuestionForUpdate(ctx context.Context, q Queryer, sessionID, questionID string) (*models.QuizQuestion, error) {
	var question models.QuizQuestion
	err := sqlx.GetContext(ctx, q, &question,
		"SELECT * FROM quiz_questions WHERE id = $1 AND session_id = $2"+forUpdate(q), questionID, sessionID)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("quiz question", questionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock quiz question: %v", err)
	}
	return &question, nil
}

// UpdateQuestionAnswer records the submitted answer for a question
func (r *QuizRepository) UpdateQuestionAnswer(ctx context.Context, q Queryer, question *models.QuizQuestion) error {
	_, err := q.ExecContext(ctx, `
		UPDATE quiz_questions SET
			user_answer = $1,
			is_correct = $2,
			response_time_seconds = $3,
			answered_at = $4
		WHERE id = $5`,
		question.UserAnswer, question.IsCorrect, question.ResponseTimeSeconds,
		question.AnsweredAt, question.ID)
	if err != nil {
		return fmt.Errorf("failed to update quiz question: %v", err)
	}
	return nil
}

// ListQuestions returns all questions for a session in asked order
func (r *QuizRepository) ListQuestions(ctx context.Context, q Queryer, sessionID string) ([]models.QuizQuestion, error) {
	var questions []models.QuizQuestion
	err := sqlx.SelectContext(ctx, q, &questions,
		"SELECT * FROM quiz_questions WHERE session_id = $1 ORDER BY asked_at, id", sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quiz questions: %v", err)
	}
	return questions, nil
}

// NextUnanswered returns the first unanswered question of a session, or nil
// when every question has been answered.
func (r *QuizRepository) NextUnanswered(ctx context.Context, q Queryer, sessionID string) (*models.QuizQuestion, error) {
	var question models.QuizQuestion
	err := sqlx.GetContext(ctx, q, &question, `
		SELECT * FROM quiz_questions
		WHERE session_id = $1 AND answered_at IS NULL
		ORDER BY asked_at, id
		LIMIT 1`, sessionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get next question: %v", err)
	}
	return &question, nil
}

// AnsweredCounts returns how many questions of a session are answered and
// how many of those are correct.
func (r *QuizRepository) AnsweredCounts(ctx context.Context, q Queryer, sessionID string) (answered int, correct int, err error) {
	row := struct {
		Answered int `db:"answered"`
		Correct  int `db:"correct"`
	}{}
	err = sqlx.GetContext(ctx, q, &row, `
		SELECT
			COUNT(answered_at) AS answered,
			COALESCE(SUM(CASE WHEN is_correct THEN 1 ELSE 0 END), 0) AS correct
		FROM quiz_questions WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count answered questions: %v", err)
	}
	return row.Answered, row.Correct, nil
}
