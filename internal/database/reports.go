package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Отчеты хранятся целиком в JSON: это производные данные, upsert заменяет запись полностью.

func (r *Repository) getPayload(ctx context.Context, query string, key string, out any) (bool, error) {
	var payload string
	err := r.q.QueryRowContext(ctx, query, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return false, fmt.Errorf("decode report: %w", err)
	}
	return true, nil
}

func (r *Repository) GetDailyReport(ctx context.Context, date string) (*DailyReport, error) {
	var report DailyReport
	found, err := r.getPayload(ctx, "SELECT payload FROM daily_reports WHERE date = ?", date, &report)
	if err != nil {
		return nil, fmt.Errorf("get daily report: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &report, nil
}

func (r *Repository) PutDailyReport(ctx context.Context, report DailyReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode daily report: %w", err)
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO daily_reports (id, date, week_id, generated_at, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			id = excluded.id,
			week_id = excluded.week_id,
			generated_at = excluded.generated_at,
			payload = excluded.payload
	`, report.ID, report.Date, report.WeekID, toMillis(report.GeneratedAt), string(payload))
	if err != nil {
		return fmt.Errorf("put daily report: %w", err)
	}
	return nil
}

func (r *Repository) DeleteDailyReport(ctx context.Context, date string) error {
	if _, err := r.q.ExecContext(ctx, "DELETE FROM daily_reports WHERE date = ?", date); err != nil {
		return fmt.Errorf("delete daily report: %w", err)
	}
	return nil
}

func (r *Repository) GetAllDailyReports(ctx context.Context) ([]DailyReport, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT payload FROM daily_reports ORDER BY date")
	if err != nil {
		return nil, fmt.Errorf("query daily reports: %w", err)
	}
	defer rows.Close()

	var reports []DailyReport
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan daily report: %w", err)
		}
		var report DailyReport
		if err := json.Unmarshal([]byte(payload), &report); err != nil {
			return nil, fmt.Errorf("decode daily report: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func (r *Repository) GetWeeklyReport(ctx context.Context, weekID string) (*WeeklyReport, error) {
	var report WeeklyReport
	found, err := r.getPayload(ctx, "SELECT payload FROM weekly_reports WHERE week_id = ?", weekID, &report)
	if err != nil {
		return nil, fmt.Errorf("get weekly report: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &report, nil
}

func (r *Repository) PutWeeklyReport(ctx context.Context, report WeeklyReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode weekly report: %w", err)
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO weekly_reports (id, week_id, generated_at, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(week_id) DO UPDATE SET
			id = excluded.id,
			generated_at = excluded.generated_at,
			payload = excluded.payload
	`, report.ID, report.WeekID, toMillis(report.GeneratedAt), string(payload))
	if err != nil {
		return fmt.Errorf("put weekly report: %w", err)
	}
	return nil
}

func (r *Repository) DeleteWeeklyReport(ctx context.Context, weekID string) error {
	if _, err := r.q.ExecContext(ctx, "DELETE FROM weekly_reports WHERE week_id = ?", weekID); err != nil {
		return fmt.Errorf("delete weekly report: %w", err)
	}
	return nil
}

func (r *Repository) GetAllWeeklyReports(ctx context.Context) ([]WeeklyReport, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT payload FROM weekly_reports ORDER BY week_id")
	if err != nil {
		return nil, fmt.Errorf("query weekly reports: %w", err)
	}
	defer rows.Close()

	var reports []WeeklyReport
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan weekly report: %w", err)
		}
		var report WeeklyReport
		if err := json.Unmarshal([]byte(payload), &report); err != nil {
			return nil, fmt.Errorf("decode weekly report: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

// ─── Categories ───

func (r *Repository) CountCategories(ctx context.Context) (int, error) {
	var count int
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM categories").Scan(&count); err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return count, nil
}

func (r *Repository) AddCategory(ctx context.Context, c Category) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO categories (id, name, color, icon, is_default, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.ID, c.Name, c.Color, c.Icon, c.IsDefault, toMillis(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *Repository) GetCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, name, color, icon, is_default, created_at
		FROM categories
		ORDER BY created_at, name
	`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		var createdAt int64
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.Icon, &c.IsDefault, &createdAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.CreatedAt = fromMillis(createdAt)
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// ─── Preferences (key/value) ───

func (r *Repository) GetPreference(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.q.QueryRowContext(ctx, "SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get preference %s: %w", key, err)
	}
	return value, true, nil
}

func (r *Repository) SetPreference(ctx context.Context, key, value string) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT OR REPLACE INTO preferences (key, value) VALUES (?, ?)
	`, key, value)
	if err != nil {
		return fmt.Errorf("set preference %s: %w", key, err)
	}
	return nil
}

func (r *Repository) DeletePreference(ctx context.Context, key string) error {
	if _, err := r.q.ExecContext(ctx, "DELETE FROM preferences WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete preference %s: %w", key, err)
	}
	return nil
}

// ClearAll удаляет все данные, включая настройки.
func (r *Repository) ClearAll(ctx context.Context) error {
	for _, table := range []string{"activities", "sessions", "daily_reports", "weekly_reports", "categories", "preferences"} {
		if _, err := r.q.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}
