package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema holds the DDL shared by both engines. Types are kept to the
// portable subset (TEXT, INTEGER, BOOLEAN, TIMESTAMP).
var schema = []string{
	`CREATE TABLE IF NOT EXISTS instructors (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		instructor_id TEXT,
		member_number TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		registration_date TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS weekly_checks (
		week_key TEXT NOT NULL,
		student_id TEXT NOT NULL,
		dm BOOLEAN NOT NULL DEFAULT FALSE,
		dm_date TEXT NOT NULL DEFAULT '',
		lesson BOOLEAN NOT NULL DEFAULT FALSE,
		lesson_date TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (week_key, student_id)
	)`,
	`CREATE TABLE IF NOT EXISTS monthly_checks (
		month_key TEXT NOT NULL,
		student_id TEXT NOT NULL,
		paid BOOLEAN NOT NULL DEFAULT FALSE,
		last_paid TEXT NOT NULL DEFAULT '',
		survey BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (month_key, student_id)
	)`,
	`CREATE TABLE IF NOT EXISTS surveys (
		id TEXT PRIMARY KEY,
		member_number TEXT NOT NULL,
		student_name TEXT NOT NULL DEFAULT '',
		satisfaction INTEGER NOT NULL DEFAULT 0,
		nps_score INTEGER NOT NULL DEFAULT 0,
		instructor_feedback TEXT NOT NULL DEFAULT '',
		lesson_feedback TEXT NOT NULL DEFAULT '',
		learning_goals TEXT NOT NULL DEFAULT '',
		other_feedback TEXT NOT NULL DEFAULT '',
		submitted_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'instructor',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS report_jobs (
		id TEXT PRIMARY KEY,
		month_key TEXT NOT NULL DEFAULT '',
		format TEXT NOT NULL,
		status TEXT NOT NULL,
		progress INTEGER NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT '',
		result_url TEXT,
		created_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_students_instructor ON students (instructor_id)`,
	`CREATE INDEX IF NOT EXISTS idx_surveys_member ON surveys (member_number)`,
	`CREATE INDEX IF NOT EXISTS idx_surveys_submitted ON surveys (submitted_at)`,
	`CREATE INDEX IF NOT EXISTS idx_report_jobs_status ON report_jobs (status)`,
}

// EnsureSchema creates missing tables and indexes. Idempotent; safe to run
// on every startup.
func EnsureSchema(db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
