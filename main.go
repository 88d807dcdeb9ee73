package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/example/vocabtamil/internal/database"
	"github.com/example/vocabtamil/internal/scheduler"
)

// logNotifier writes digests to the log. Swap in a real delivery channel
// (push, email) by implementing scheduler.Notifier.
type logNotifier struct{}

func (logNotifier) SendDigest(userID int64, dueCount int) error {
	log.Printf("user %d has %d words due for review", userID, dueCount)
	return nil
}

func main() {
	// Load .env if present; real deployments set the environment directly
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	if err := database.Connect(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	sched := scheduler.New(database.DB, logNotifier{})
	sched.Start()
	defer sched.Stop()

	log.Println("Scheduler started. Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("Received signal: %v, shutting down", sig)
}
