package quiz

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/vocabtamil/internal/apperr"
	"github.com/example/vocabtamil/internal/database"
	"github.com/example/vocabtamil/internal/gamification"
	"github.com/example/vocabtamil/internal/srs"
	"github.com/example/vocabtamil/internal/txn"
	"github.com/example/vocabtamil/pkg/models"
)

// Engine drives the quiz session lifecycle: start, answer, complete
type Engine struct {
	db           *sqlx.DB
	quizzes      *database.QuizRepository
	words        *database.WordRepository
	users        *database.UserRepository
	tracker      *srs.Tracker
	gamification *gamification.Engine
	generator    *Generator
	retry        txn.Options
}

// NewEngine creates a quiz engine on the given database handle
func NewEngine(db *sqlx.DB, tracker *srs.Tracker, game *gamification.Engine, rng *rand.Rand) *Engine {
	return &Engine{
		db:           db,
		quizzes:      database.NewQuizRepository(),
		words:        database.NewWordRepository(),
		users:        database.NewUserRepository(),
		tracker:      tracker,
		gamification: game,
		generator:    NewGenerator(rng),
		retry:        txn.DefaultOptions(),
	}
}

// StartResult is the answer to a successful session start
type StartResult struct {
	Session   *models.QuizSession   `json:"session"`
	Questions []models.QuizQuestion `json:"questions"`
}

// Start validates the word list, generates one question per word with a
// type drawn from the requested set, and persists the session atomically.
func (e *Engine) Start(ctx context.Context, userID int64, quizType string, questionTypes []string, wordIDs []int64) (*StartResult, error) {
	if len(questionTypes) == 0 {
		return nil, apperr.Validation("question type list must not be empty")
	}
	for _, qt := range questionTypes {
		switch qt {
		case models.QuestionMCQ, models.QuestionFillBlank, models.QuestionAudio, models.QuestionTyping, models.QuestionMatch:
		default:
			return nil, apperr.Validation("unknown question type %q", qt)
		}
	}
	if len(wordIDs) == 0 {
		return nil, apperr.Validation("word list must not be empty")
	}
	if len(wordIDs) > models.MaxWordsPerQuiz {
		return nil, apperr.Validation("word list exceeds the maximum of %d words", models.MaxWordsPerQuiz)
	}
	seen := make(map[int64]bool, len(wordIDs))
	for _, id := range wordIDs {
		if seen[id] {
			return nil, apperr.Validation("word list contains duplicate id %d", id)
		}
		seen[id] = true
	}

	if _, err := e.users.GetByID(ctx, e.db, userID); err != nil {
		return nil, err
	}
	words, err := e.words.GetByIDs(ctx, e.db, wordIDs)
	if err != nil {
		return nil, err
	}

	session := &models.QuizSession{
		ID:             uuid.NewString(),
		UserID:         userID,
		QuizType:       quizType,
		Status:         models.SessionActive,
		TotalQuestions: len(words),
		StartedAt:      time.Now().UTC(),
	}
	questions, err := e.generator.Build(ctx, e.db, session.ID, questionTypes, words)
	if err != nil {
		return nil, errors.Wrap(err, "generating questions")
	}

	err = txn.WithRetry(ctx, e.db, e.retry, func(tx *sqlx.Tx) error {
		if err := e.quizzes.CreateSession(ctx, tx, session); err != nil {
			return err
		}
		for i := range questions {
			if err := e.quizzes.CreateQuestion(ctx, tx, &questions[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &StartResult{Session: session, Questions: questions}, nil
}

// AnswerResult reports the outcome of one submitted answer
type AnswerResult struct {
	IsCorrect     bool                 `json:"is_correct"`
	CorrectAnswer string               `json:"correct_answer"`
	NextQuestion  *models.QuizQuestion `json:"next_question,omitempty"`
	QuizCompleted bool                 `json:"quiz_completed"`
}

// SubmitAnswer grades one answer and updates the question, session counters
// and word progress. Submitting the same question twice returns the first
// grading without changing anything.
func (e *Engine) SubmitAnswer(ctx context.Context, userID int64, sessionID, questionID, answer string, responseTime *float64) (*AnswerResult, error) {
	if len(answer) > MaxAnswerLength {
		return nil, apperr.Validation("answer exceeds %d characters", MaxAnswerLength)
	}
	if responseTime != nil && (*responseTime < 0 || *responseTime > srs.MaxResponseTimeSeconds) {
		return nil, apperr.Validation("response time must be between 0 and %d seconds", srs.MaxResponseTimeSeconds)
	}

	var (
		result    *AnswerResult
		graded    *models.QuizQuestion
		duplicate bool
	)
	err := txn.WithRetry(ctx, e.db, e.retry, func(tx *sqlx.Tx) error {
		duplicate = false
		session, err := e.quizzes.GetSessionForUpdate(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if session.UserID != userID {
			return apperr.NotFound("quiz session", sessionID)
		}
		if session.Status != models.SessionActive {
			return apperr.Validation("quiz session is %s", session.Status)
		}

		question, err := e.quizzes.GetQuestionForUpdate(ctx, tx, sessionID, questionID)
		if err != nil {
			return err
		}
		if question.IsAnswered() {
			duplicate = true
			result = &AnswerResult{
				IsCorrect:     question.IsCorrect != nil && *question.IsCorrect,
				CorrectAnswer: question.CorrectAnswer,
			}
			return nil
		}

		correct := Evaluate(question.QuestionType, answer, question.CorrectAnswer)
		now := time.Now().UTC()
		question.UserAnswer = answer
		question.IsCorrect = &correct
		question.ResponseTimeSeconds = responseTime
		question.AnsweredAt = &now
		if err := e.quizzes.UpdateQuestionAnswer(ctx, tx, question); err != nil {
			return err
		}
		if correct {
			session.CorrectAnswers++
			if err := e.quizzes.UpdateSession(ctx, tx, session); err != nil {
				return err
			}
		}

		graded = question
		result = &AnswerResult{
			IsCorrect:     correct,
			CorrectAnswer: question.CorrectAnswer,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !duplicate {
		// Word progress moves in its own transaction so a retry there cannot
		// re-grade the question.
		isCorrect := graded.IsCorrect != nil && *graded.IsCorrect
		if _, err := e.tracker.RecordAnswer(ctx, userID, graded.WordID, isCorrect, responseTime); err != nil {
			return nil, errors.Wrap(err, "recording word progress")
		}
	}

	next, err := e.quizzes.NextUnanswered(ctx, e.db, sessionID)
	if err != nil {
		return nil, err
	}
	if next != nil {
		result.NextQuestion = next
	} else {
		result.QuizCompleted = true
	}
	return result, nil
}

// Summary is the final accounting of a session
type Summary struct {
	SessionID        string  `json:"session_id"`
	TotalQuestions   int     `json:"total_questions"`
	CorrectAnswers   int     `json:"correct_answers"`
	Accuracy         float64 `json:"accuracy"`
	DurationMinutes  float64 `json:"duration_minutes"`
	XPEarned         int     `json:"xp_earned"`
	TotalTimeSeconds int     `json:"total_time_seconds"`
	// NewAchievements lists achievements awarded by this Complete call only.
	// A repeat Complete on an already-completed session leaves it empty;
	// callers that lost the first response can fetch the full earned list
	// from AchievementRepository.EarnedByUser.
	NewAchievements []models.Achievement `json:"new_achievements,omitempty"`
}

// Complete finalizes a session: marks it completed, computes XP, and applies
// XP and streak to the user in the same transaction. A second call returns
// the stored totals without awarding anything again.
func (e *Engine) Complete(ctx context.Context, userID int64, sessionID string, totalTimeSeconds *int) (*Summary, error) {
	var (
		summary *Summary
		already bool
	)
	err := txn.WithRetry(ctx, e.db, e.retry, func(tx *sqlx.Tx) error {
		already = false
		session, err := e.quizzes.GetSessionForUpdate(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if session.UserID != userID {
			return apperr.NotFound("quiz session", sessionID)
		}
		if session.IsCompleted() {
			already = true
			summary = summarize(session, nil)
			return nil
		}
		if session.Status == models.SessionAbandoned {
			return apperr.Validation("quiz session is abandoned")
		}

		now := time.Now().UTC()
		elapsed := totalTimeSeconds
		if elapsed == nil {
			derived := int(now.Sub(session.StartedAt).Seconds())
			elapsed = &derived
		}
		if *elapsed < 0 {
			zero := 0
			elapsed = &zero
		}

		session.Status = models.SessionCompleted
		session.CompletedAt = &now
		session.TotalTimeSeconds = elapsed
		session.XPEarned = SessionXP(session)
		if err := e.quizzes.UpdateSession(ctx, tx, session); err != nil {
			return err
		}

		user, err := e.users.GetByIDForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := e.gamification.AddXPTx(ctx, tx, user, session.XPEarned); err != nil {
			return err
		}
		if err := e.gamification.UpdateStreakTx(ctx, tx, user, models.Today()); err != nil {
			return err
		}

		summary = summarize(session, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if already {
		return summary, nil
	}

	earned, err := e.gamification.EvaluateAchievements(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "evaluating achievements")
	}
	summary.NewAchievements = earned
	return summary, nil
}

// HandlePartial closes out a session the user walked away from. With no
// answered questions the session is abandoned outright; otherwise it is
// truncated to the answered questions and completed normally.
func (e *Engine) HandlePartial(ctx context.Context, userID int64, sessionID string) (*Summary, error) {
	var (
		abandoned bool
		stored    *Summary
	)
	err := txn.WithRetry(ctx, e.db, e.retry, func(tx *sqlx.Tx) error {
		abandoned = false
		stored = nil
		session, err := e.quizzes.GetSessionForUpdate(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if session.UserID != userID {
			return apperr.NotFound("quiz session", sessionID)
		}
		if session.IsCompleted() {
			stored = summarize(session, nil)
			return nil
		}
		if session.Status == models.SessionAbandoned {
			abandoned = true
			return nil
		}

		answered, correct, err := e.quizzes.AnsweredCounts(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if answered == 0 {
			session.Status = models.SessionAbandoned
			abandoned = true
			return e.quizzes.UpdateSession(ctx, tx, session)
		}

		// Score only what was actually answered
		session.TotalQuestions = answered
		session.CorrectAnswers = correct
		return e.quizzes.UpdateSession(ctx, tx, session)
	})
	if err != nil {
		return nil, err
	}
	if stored != nil {
		return stored, nil
	}
	if abandoned {
		return nil, nil
	}
	return e.Complete(ctx, userID, sessionID, nil)
}

// SessionXP computes the XP for a completed session: a base amount per
// correct answer, an accuracy bonus in 10% steps, and a speed bonus that
// decays with session length in minutes.
func SessionXP(s *models.QuizSession) int {
	base := s.CorrectAnswers * 10
	accuracyBonus := int(s.AccuracyPercent()/10) * 5
	speedBonus := int(math.Max(0, 50-s.DurationMinutes()))
	return base + accuracyBonus + speedBonus
}

func summarize(s *models.QuizSession, earned []models.Achievement) *Summary {
	total := 0
	if s.TotalTimeSeconds != nil {
		total = *s.TotalTimeSeconds
	}
	return &Summary{
		SessionID:        s.ID,
		TotalQuestions:   s.TotalQuestions,
		CorrectAnswers:   s.CorrectAnswers,
		Accuracy:         s.AccuracyPercent(),
		DurationMinutes:  s.DurationMinutes(),
		XPEarned:         s.XPEarned,
		TotalTimeSeconds: total,
		NewAchievements:  earned,
	}
}

// GetSession loads a session the user owns
func (e *Engine) GetSession(ctx context.Context, userID int64, sessionID string) (*models.QuizSession, error) {
	session, err := e.quizzes.GetSession(ctx, e.db, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, apperr.NotFound("quiz session", sessionID)
	}
	return session, nil
}

// History returns the user's most recent completed sessions
func (e *Engine) History(ctx context.Context, userID int64, limit int) ([]models.QuizSession, error) {
	if limit <= 0 {
		limit = 10
	}
	return e.quizzes.CompletedByUser(ctx, e.db, userID, limit)
}
