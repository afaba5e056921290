package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

type Database struct {
	db *sql.DB
}

// New открывает SQLite через драйвер "sqlite3" (mattn, cgo) или "sqlite" (modernc, pure Go).
func New(driver, path string) (*Database, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Один логический актор: все операции сериализуются через одно соединение.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	d := &Database{db: db}
	if err := d.init(); err != nil {
		db.Close()
		return nil, err
	}

	return d, nil
}

func (d *Database) init() error {
	queries := []string{
		`PRAGMA journal_mode = WAL`,

		`CREATE TABLE IF NOT EXISTS activities (
			id TEXT PRIMARY KEY,
			week_id TEXT NOT NULL,
			day_of_week INTEGER NOT NULL,
			date TEXT NOT NULL,
			title TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			planned_duration_min INTEGER NOT NULL,
			category_id TEXT,
			notify_before INTEGER NOT NULL DEFAULT 5,
			repeat_rule TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			activity_id TEXT NOT NULL,
			date TEXT NOT NULL,
			status TEXT NOT NULL,
			clock_in_time INTEGER,
			clock_out_time INTEGER,
			actual_duration_min INTEGER,
			was_late INTEGER NOT NULL DEFAULT 0,
			late_by_min INTEGER NOT NULL DEFAULT 0,
			was_auto_completed INTEGER NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			UNIQUE(activity_id, date)
		)`,

		`CREATE TABLE IF NOT EXISTS daily_reports (
			id TEXT PRIMARY KEY,
			date TEXT UNIQUE NOT NULL,
			week_id TEXT NOT NULL,
			generated_at INTEGER NOT NULL,
			payload TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS weekly_reports (
			id TEXT PRIMARY KEY,
			week_id TEXT UNIQUE NOT NULL,
			generated_at INTEGER NOT NULL,
			payload TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS categories (
			id TEXT PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			color TEXT NOT NULL,
			icon TEXT NOT NULL,
			is_default INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS preferences (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_activities_week ON activities(week_id)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_date ON activities(date)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_week_day ON activities(week_id, day_of_week)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_date ON sessions(date)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status)`,
		`CREATE INDEX IF NOT EXISTS idx_daily_reports_week ON daily_reports(week_id)`,
	}

	for _, query := range queries {
		if _, err := d.db.Exec(query); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) GetDB() *sql.DB {
	return d.db
}
