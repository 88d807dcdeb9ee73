package quiz

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/vocabtamil/internal/database"
	"github.com/example/vocabtamil/pkg/models"
)

const mcqOptionCount = 4

// Generator builds quiz questions for a set of words. The random source is
// injected so question shape is reproducible in tests.
type Generator struct {
	words *database.WordRepository
	rng   *rand.Rand
}

// NewGenerator creates a question generator
func NewGenerator(rng *rand.Rand) *Generator {
	return &Generator{
		words: database.NewWordRepository(),
		rng:   rng,
	}
}

// Build creates one question per word for the session, with the question
// type drawn uniformly from the requested set. Distractors come from the
// other session words first, backfilled from the catalog when the set is
// too small.
func (g *Generator) Build(ctx context.Context, q database.Queryer, sessionID string, questionTypes []string, words []models.Word) ([]models.QuizQuestion, error) {
	questions := make([]models.QuizQuestion, 0, len(words))
	now := time.Now().UTC()
	for i, w := range words {
		questionType := questionTypes[g.rng.Intn(len(questionTypes))]
		question, err := g.buildOne(ctx, q, sessionID, questionType, w, words)
		if err != nil {
			return nil, err
		}
		// Staggered so the asked-at order is the presentation order
		question.AskedAt = now.Add(time.Duration(i) * time.Millisecond)
		questions = append(questions, *question)
	}
	return questions, nil
}

func (g *Generator) buildOne(ctx context.Context, q database.Queryer, sessionID, questionType string, word models.Word, sessionWords []models.Word) (*models.QuizQuestion, error) {
	question := &models.QuizQuestion{
		ID:           uuid.NewString(),
		SessionID:    sessionID,
		WordID:       word.ID,
		QuestionType: questionType,
	}

	switch questionType {
	case models.QuestionMCQ:
		if err := g.fillChoice(ctx, q, question, word, sessionWords); err != nil {
			return nil, err
		}
	case models.QuestionFillBlank:
		g.fillBlank(question, word)
	case models.QuestionAudio:
		question.QuestionText = fmt.Sprintf("Listen and pick the word you hear (%s)", word.Transliteration)
		question.CorrectAnswer = word.TamilWord
	case models.QuestionTyping:
		question.QuestionText = fmt.Sprintf("Type the Tamil word for '%s'", word.PrimaryMeaning())
		question.CorrectAnswer = word.TamilWord
	case models.QuestionMatch:
		question.QuestionText = fmt.Sprintf("Match '%s' with its meaning", word.TamilWord)
		question.CorrectAnswer = word.PrimaryMeaning()
	default:
		return nil, fmt.Errorf("unknown question type: %s", questionType)
	}
	return question, nil
}

// fillChoice builds a multiple-choice question in a random direction, either
// Tamil to meaning or meaning to Tamil.
func (g *Generator) fillChoice(ctx context.Context, q database.Queryer, question *models.QuizQuestion, word models.Word, sessionWords []models.Word) error {
	tamilToMeaning := g.rng.Intn(2) == 0
	if tamilToMeaning {
		question.QuestionText = fmt.Sprintf("What does '%s' (%s) mean?", word.TamilWord, word.Transliteration)
		question.CorrectAnswer = word.PrimaryMeaning()
	} else {
		question.QuestionText = fmt.Sprintf("Which word means '%s'?", word.PrimaryMeaning())
		question.CorrectAnswer = word.TamilWord
	}

	pick := func(w models.Word) string {
		if tamilToMeaning {
			return w.PrimaryMeaning()
		}
		return w.TamilWord
	}

	distractors := g.distractors(question.CorrectAnswer, word.ID, sessionWords, pick)
	if len(distractors) < mcqOptionCount-1 {
		exclude := make([]int64, 0, len(sessionWords))
		for _, w := range sessionWords {
			exclude = append(exclude, w.ID)
		}
		extra, err := g.words.ListOthers(ctx, q, exclude, word.Category, mcqOptionCount*2)
		if err != nil {
			return err
		}
		distractors = append(distractors, g.distractors(question.CorrectAnswer, word.ID, extra, pick)...)
	}
	if len(distractors) > mcqOptionCount-1 {
		g.rng.Shuffle(len(distractors), func(i, j int) {
			distractors[i], distractors[j] = distractors[j], distractors[i]
		})
		distractors = distractors[:mcqOptionCount-1]
	}
	// Small catalogs can leave us short of real distractors
	for i := len(distractors); i < mcqOptionCount-1; i++ {
		distractors = append(distractors, fmt.Sprintf("Option %d", i+2))
	}

	options := append([]string{question.CorrectAnswer}, distractors...)
	g.rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	question.AnswerOptions = options
	return nil
}

// distractors collects distinct candidate answers that differ from the
// correct one.
func (g *Generator) distractors(correct string, wordID int64, pool []models.Word, pick func(models.Word) string) []string {
	seen := map[string]bool{strings.ToLower(correct): true}
	var out []string
	for _, w := range pool {
		if w.ID == wordID {
			continue
		}
		candidate := pick(w)
		key := strings.ToLower(candidate)
		if candidate == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, candidate)
	}
	return out
}

// fillBlank blanks the target word out of its example sentence when the
// sentence contains it, otherwise falls back to a transliteration prompt.
func (g *Generator) fillBlank(question *models.QuizQuestion, word models.Word) {
	if word.ExampleTamil != "" && strings.Contains(word.ExampleTamil, word.TamilWord) {
		question.QuestionText = fmt.Sprintf("Fill in the blank: %s",
			strings.Replace(word.ExampleTamil, word.TamilWord, "_____", 1))
		question.CorrectAnswer = word.TamilWord
		return
	}
	question.QuestionText = fmt.Sprintf("The Tamil word for '%s' is pronounced '%s'. Write it.",
		word.PrimaryMeaning(), word.Transliteration)
	question.CorrectAnswer = word.Transliteration
}
