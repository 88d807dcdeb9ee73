package scheduler

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/jmoiron/sqlx"

	"github.com/example/vocabtamil/internal/database"
	"github.com/example/vocabtamil/pkg/models"
)

// DefaultDigestHour is the hour (UTC) the daily digest job runs at
const DefaultDigestHour = 9

// Notifier delivers the daily review digest to a user
type Notifier interface {
	SendDigest(userID int64, dueCount int) error
}

// Scheduler runs the recurring background jobs
type Scheduler struct {
	scheduler *gocron.Scheduler
	db        *sqlx.DB
	users     *database.UserRepository
	progress  *database.ProgressRepository
	notifier  Notifier
}

// New creates a scheduler on the given database handle
func New(db *sqlx.DB, notifier Notifier) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		db:        db,
		users:     database.NewUserRepository(),
		progress:  database.NewProgressRepository(),
		notifier:  notifier,
	}
}

// Start registers the daily digest job and runs the scheduler in the
// background.
func (s *Scheduler) Start() {
	hour := DefaultDigestHour
	if v := os.Getenv("DIGEST_HOUR"); v != "" {
		if h, err := strconv.Atoi(v); err == nil && h >= 0 && h <= 23 {
			hour = h
		}
	}
	s.scheduler.Every(1).Day().At(fmt.Sprintf("%02d:00", hour)).Do(s.sendDailyDigests)
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// sendDailyDigests tells each user how many words are waiting for review.
// A failure for one user does not stop the rest.
func (s *Scheduler) sendDailyDigests() {
	ctx := context.Background()
	userIDs, err := s.users.ListIDs(ctx, s.db)
	if err != nil {
		log.Printf("daily digest: listing users: %v", err)
		return
	}

	today := models.Today()
	sent := 0
	for _, userID := range userIDs {
		due, err := s.progress.CountDueForUser(ctx, s.db, userID, today)
		if err != nil {
			log.Printf("daily digest: counting due words for user %d: %v", userID, err)
			continue
		}
		if due == 0 {
			continue
		}
		if err := s.notifier.SendDigest(userID, due); err != nil {
			log.Printf("daily digest: sending to user %d: %v", userID, err)
			continue
		}
		sent++
	}
	log.Printf("daily digest: sent %d notifications", sent)
}
