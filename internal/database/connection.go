package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the global database connection
var DB *sqlx.DB

// Connect establishes a connection to the database. DB_TYPE selects the
// driver: "postgres" (DATABASE_URL) or "sqlite" (DATABASE_PATH, the default).
func Connect() error {
	dbType := os.Getenv("DB_TYPE")
	if dbType == "" {
		dbType = "sqlite"
	}

	var db *sqlx.DB
	var err error

	switch dbType {
	case "postgres":
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			return fmt.Errorf("DATABASE_URL environment variable is not set")
		}
		db, err = sqlx.Connect("postgres", dsn)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %v", err)
		}
	case "sqlite":
		dbPath := os.Getenv("DATABASE_PATH")
		if dbPath == "" {
			dataDir := "data"
			if err := os.MkdirAll(dataDir, 0755); err != nil {
				return fmt.Errorf("failed to create data directory: %v", err)
			}
			dbPath = filepath.Join(dataDir, "vocabtamil.db")
		}
		db, err = sqlx.Connect("sqlite3", dbPath)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %v", err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return fmt.Errorf("failed to enable foreign keys: %v", err)
		}
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	default:
		return fmt.Errorf("unsupported DB_TYPE: %s", dbType)
	}

	DB = db
	return initializeSchema()
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema() error {
	statements := sqliteSchema
	if DB.DriverName() == "postgres" {
		statements = postgresSchema
	}
	for _, stmt := range statements {
		if _, err := DB.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %v", err)
		}
	}
	return nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		tamil_level TEXT NOT NULL DEFAULT 'beginner',
		daily_word_goal INTEGER NOT NULL DEFAULT 10,
		total_xp INTEGER NOT NULL DEFAULT 0,
		current_streak INTEGER NOT NULL DEFAULT 0,
		longest_streak INTEGER NOT NULL DEFAULT 0,
		last_activity_date DATE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS words (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tamil_word TEXT NOT NULL UNIQUE,
		transliteration TEXT NOT NULL,
		meanings TEXT NOT NULL DEFAULT '[]',
		example_tamil TEXT NOT NULL DEFAULT '',
		example_english TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		difficulty INTEGER NOT NULL DEFAULT 1,
		frequency_rank INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS user_word_progress (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		word_id INTEGER NOT NULL,
		mastery_level INTEGER NOT NULL DEFAULT 0,
		times_seen INTEGER NOT NULL DEFAULT 0,
		times_correct INTEGER NOT NULL DEFAULT 0,
		times_incorrect INTEGER NOT NULL DEFAULT 0,
		ease_factor REAL NOT NULL DEFAULT 2.5,
		review_interval_days INTEGER NOT NULL DEFAULT 1,
		next_review_date DATE NOT NULL,
		average_response_time REAL,
		last_response_time REAL,
		first_seen_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_reviewed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id),
		FOREIGN KEY (word_id) REFERENCES words(id),
		UNIQUE(user_id, word_id)
	)`,
	`CREATE TABLE IF NOT EXISTS quiz_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		quiz_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		total_questions INTEGER NOT NULL,
		correct_answers INTEGER NOT NULL DEFAULT 0,
		total_time_seconds INTEGER,
		xp_earned INTEGER NOT NULL DEFAULT 0,
		started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		completed_at TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id)
	)`,
	`CREATE TABLE IF NOT EXISTS quiz_questions (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		word_id INTEGER NOT NULL,
		question_type TEXT NOT NULL,
		question_text TEXT NOT NULL,
		correct_answer TEXT NOT NULL,
		answer_options TEXT,
		user_answer TEXT NOT NULL DEFAULT '',
		is_correct BOOLEAN,
		response_time_seconds REAL,
		asked_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		answered_at TIMESTAMP,
		FOREIGN KEY (session_id) REFERENCES quiz_sessions(id),
		FOREIGN KEY (word_id) REFERENCES words(id)
	)`,
	`CREATE TABLE IF NOT EXISTS achievements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		icon TEXT NOT NULL DEFAULT '',
		criteria_type TEXT NOT NULL,
		criteria_value INTEGER NOT NULL,
		criteria_data TEXT NOT NULL DEFAULT '{}',
		xp_reward INTEGER NOT NULL DEFAULT 0,
		badge_color TEXT NOT NULL DEFAULT 'blue',
		is_hidden BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS user_achievements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		achievement_id INTEGER NOT NULL,
		earned_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id),
		FOREIGN KEY (achievement_id) REFERENCES achievements(id),
		UNIQUE(user_id, achievement_id)
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		tamil_level TEXT NOT NULL DEFAULT 'beginner',
		daily_word_goal INTEGER NOT NULL DEFAULT 10,
		total_xp INTEGER NOT NULL DEFAULT 0,
		current_streak INTEGER NOT NULL DEFAULT 0,
		longest_streak INTEGER NOT NULL DEFAULT 0,
		last_activity_date DATE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS words (
		id BIGSERIAL PRIMARY KEY,
		tamil_word TEXT NOT NULL UNIQUE,
		transliteration TEXT NOT NULL,
		meanings TEXT NOT NULL DEFAULT '[]',
		example_tamil TEXT NOT NULL DEFAULT '',
		example_english TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		difficulty INTEGER NOT NULL DEFAULT 1,
		frequency_rank INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS user_word_progress (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		word_id BIGINT NOT NULL REFERENCES words(id),
		mastery_level INTEGER NOT NULL DEFAULT 0,
		times_seen INTEGER NOT NULL DEFAULT 0,
		times_correct INTEGER NOT NULL DEFAULT 0,
		times_incorrect INTEGER NOT NULL DEFAULT 0,
		ease_factor DOUBLE PRECISION NOT NULL DEFAULT 2.5,
		review_interval_days INTEGER NOT NULL DEFAULT 1,
		next_review_date DATE NOT NULL,
		average_response_time DOUBLE PRECISION,
		last_response_time DOUBLE PRECISION,
		first_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_reviewed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE(user_id, word_id)
	)`,
	`CREATE TABLE IF NOT EXISTS quiz_sessions (
		id TEXT PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		quiz_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		total_questions INTEGER NOT NULL,
		correct_answers INTEGER NOT NULL DEFAULT 0,
		total_time_seconds INTEGER,
		xp_earned INTEGER NOT NULL DEFAULT 0,
		started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS quiz_questions (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES quiz_sessions(id),
		word_id BIGINT NOT NULL REFERENCES words(id),
		question_type TEXT NOT NULL,
		question_text TEXT NOT NULL,
		correct_answer TEXT NOT NULL,
		answer_options TEXT,
		user_answer TEXT NOT NULL DEFAULT '',
		is_correct BOOLEAN,
		response_time_seconds DOUBLE PRECISION,
		asked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		answered_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS achievements (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		icon TEXT NOT NULL DEFAULT '',
		criteria_type TEXT NOT NULL,
		criteria_value INTEGER NOT NULL,
		criteria_data TEXT NOT NULL DEFAULT '{}',
		xp_reward INTEGER NOT NULL DEFAULT 0,
		badge_color TEXT NOT NULL DEFAULT 'blue',
		is_hidden BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS user_achievements (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		achievement_id BIGINT NOT NULL REFERENCES achievements(id),
		earned_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE(user_id, achievement_id)
	)`,
}
