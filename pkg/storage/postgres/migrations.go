package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/learntracker/learntracker/pkg/observability"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all schema migrations in version order
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create courses and lessons tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS courses (
					id SERIAL PRIMARY KEY,
					title VARCHAR(255) NOT NULL,
					description TEXT,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS lessons (
					id SERIAL PRIMARY KEY,
					course_id INTEGER NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
					title VARCHAR(255) NOT NULL,
					content TEXT,
					order_num INTEGER NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_lessons_course_id ON lessons(course_id);
			`,
		},
		{
			Version:     2,
			Description: "Create students and enrollments tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS students (
					id SERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					email VARCHAR(255) NOT NULL UNIQUE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS enrollments (
					id SERIAL PRIMARY KEY,
					student_id INTEGER NOT NULL REFERENCES students(id),
					course_id INTEGER NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
					enrolled_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE(student_id, course_id)
				);

				CREATE INDEX IF NOT EXISTS idx_enrollments_course_id ON enrollments(course_id);
			`,
		},
		{
			Version:     3,
			Description: "Create lesson_completions and submissions tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS lesson_completions (
					id SERIAL PRIMARY KEY,
					student_id INTEGER NOT NULL REFERENCES students(id),
					lesson_id INTEGER NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
					completed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					time_spent INTEGER,
					UNIQUE(student_id, lesson_id)
				);

				CREATE TABLE IF NOT EXISTS submissions (
					id SERIAL PRIMARY KEY,
					student_id INTEGER NOT NULL REFERENCES students(id),
					lesson_id INTEGER NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
					content TEXT NOT NULL,
					status VARCHAR(50) NOT NULL DEFAULT 'pending',
					submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					reviewed_at TIMESTAMPTZ
				);

				CREATE INDEX IF NOT EXISTS idx_lesson_completions_lesson_id ON lesson_completions(lesson_id);
				CREATE INDEX IF NOT EXISTS idx_submissions_student_id ON submissions(student_id);
			`,
		},
	}
}

// RunMigrations executes all pending migrations, each in its own transaction
func RunMigrations(ctx context.Context, db *sql.DB, logger *observability.Logger) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	for _, migration := range GetMigrations() {
		if applied[migration.Version] {
			continue
		}

		logger.WithField("version", migration.Version).Infof("Running migration: %s", migration.Description)

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
