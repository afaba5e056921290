package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repository struct {
	Db *Database
	q  querier
}

func NewRepository(db *Database) *Repository {
	return &Repository{Db: db, q: db.db}
}

// WithTx выполняет fn в одной транзакции. Внутри fn нужно использовать только
// переданный tx-репозиторий. Вложенный вызов переиспользует текущую транзакцию.
func (r *Repository) WithTx(ctx context.Context, fn func(tx *Repository) error) error {
	if _, ok := r.q.(*sql.Tx); ok {
		return fn(r)
	}

	tx, err := r.Db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&Repository{Db: r.Db, q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

// ─── Activities ───

const activityColumns = `id, week_id, day_of_week, date, title, start_time, end_time,
	planned_duration_min, category_id, notify_before, repeat_rule, created_at, updated_at`

func scanActivity(row scanner) (*Activity, error) {
	var a Activity
	var categoryID, repeatRule sql.NullString
	var createdAt, updatedAt int64
	if err := row.Scan(
		&a.ID,
		&a.WeekID,
		&a.DayOfWeek,
		&a.Date,
		&a.Title,
		&a.StartTime,
		&a.EndTime,
		&a.PlannedDurationMin,
		&categoryID,
		&a.NotifyBefore,
		&repeatRule,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	a.CategoryID = stringPtr(categoryID)
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	if repeatRule.Valid && repeatRule.String != "" {
		var rule RepeatRule
		if err := json.Unmarshal([]byte(repeatRule.String), &rule); err != nil {
			return nil, fmt.Errorf("decode repeat rule of %s: %w", a.ID, err)
		}
		a.RepeatRule = &rule
	}
	return &a, nil
}

func encodeRepeatRule(rule *RepeatRule) (sql.NullString, error) {
	if rule == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(rule)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func (r *Repository) queryActivities(ctx context.Context, query string, args ...any) ([]Activity, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	var activities []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, *a)
	}
	return activities, rows.Err()
}

func (r *Repository) AddActivity(ctx context.Context, a Activity) error {
	rule, err := encodeRepeatRule(a.RepeatRule)
	if err != nil {
		return fmt.Errorf("encode repeat rule: %w", err)
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO activities (`+activityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.WeekID, a.DayOfWeek, a.Date, a.Title, a.StartTime, a.EndTime,
		a.PlannedDurationMin, nullString(a.CategoryID), a.NotifyBefore, rule,
		toMillis(a.CreatedAt), toMillis(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// UpdateActivity перезаписывает запись целиком.
func (r *Repository) UpdateActivity(ctx context.Context, a Activity) error {
	rule, err := encodeRepeatRule(a.RepeatRule)
	if err != nil {
		return fmt.Errorf("encode repeat rule: %w", err)
	}
	_, err = r.q.ExecContext(ctx, `
		UPDATE activities
		SET week_id = ?, day_of_week = ?, date = ?, title = ?, start_time = ?, end_time = ?,
			planned_duration_min = ?, category_id = ?, notify_before = ?, repeat_rule = ?,
			created_at = ?, updated_at = ?
		WHERE id = ?
	`, a.WeekID, a.DayOfWeek, a.Date, a.Title, a.StartTime, a.EndTime,
		a.PlannedDurationMin, nullString(a.CategoryID), a.NotifyBefore, rule,
		toMillis(a.CreatedAt), toMillis(a.UpdatedAt), a.ID)
	if err != nil {
		return fmt.Errorf("update activity: %w", err)
	}
	return nil
}

// GetActivity возвращает nil, nil если активности нет.
func (r *Repository) GetActivity(ctx context.Context, id string) (*Activity, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = ?`, id)
	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get activity: %w", err)
	}
	return a, nil
}

func (r *Repository) DeleteActivity(ctx context.Context, id string) error {
	if _, err := r.q.ExecContext(ctx, "DELETE FROM activities WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	return nil
}

func (r *Repository) GetActivitiesByDate(ctx context.Context, date string) ([]Activity, error) {
	return r.queryActivities(ctx, `
		SELECT `+activityColumns+`
		FROM activities
		WHERE date = ?
		ORDER BY start_time, created_at
	`, date)
}

func (r *Repository) GetActivitiesByWeek(ctx context.Context, weekID string) ([]Activity, error) {
	return r.queryActivities(ctx, `
		SELECT `+activityColumns+`
		FROM activities
		WHERE week_id = ?
		ORDER BY day_of_week, start_time, created_at
	`, weekID)
}

func (r *Repository) GetAllActivities(ctx context.Context) ([]Activity, error) {
	return r.queryActivities(ctx, `SELECT `+activityColumns+` FROM activities ORDER BY date, start_time`)
}

// ─── Sessions ───

const sessionColumns = `id, activity_id, date, status, clock_in_time, clock_out_time,
	actual_duration_min, was_late, late_by_min, was_auto_completed, notes, created_at, updated_at`

func scanSession(row scanner) (*Session, error) {
	var s Session
	var clockIn, clockOut, actual sql.NullInt64
	var createdAt, updatedAt int64
	if err := row.Scan(
		&s.ID,
		&s.ActivityID,
		&s.Date,
		&s.Status,
		&clockIn,
		&clockOut,
		&actual,
		&s.WasLate,
		&s.LateByMin,
		&s.WasAutoCompleted,
		&s.Notes,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	s.ClockInTime = timePtr(clockIn)
	s.ClockOutTime = timePtr(clockOut)
	s.ActualDurationMin = intPtr(actual)
	s.CreatedAt = fromMillis(createdAt)
	s.UpdatedAt = fromMillis(updatedAt)
	return &s, nil
}

func (r *Repository) querySessions(ctx context.Context, query string, args ...any) ([]Session, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func (r *Repository) querySession(ctx context.Context, query string, args ...any) (*Session, error) {
	s, err := scanSession(r.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

func (r *Repository) AddSession(ctx context.Context, s Session) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.ActivityID, s.Date, s.Status, nullMillis(s.ClockInTime), nullMillis(s.ClockOutTime),
		nullInt(s.ActualDurationMin), s.WasLate, s.LateByMin, s.WasAutoCompleted, s.Notes,
		toMillis(s.CreatedAt), toMillis(s.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *Repository) UpdateSession(ctx context.Context, s Session) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE sessions
		SET activity_id = ?, date = ?, status = ?, clock_in_time = ?, clock_out_time = ?,
			actual_duration_min = ?, was_late = ?, late_by_min = ?, was_auto_completed = ?,
			notes = ?, created_at = ?, updated_at = ?
		WHERE id = ?
	`, s.ActivityID, s.Date, s.Status, nullMillis(s.ClockInTime), nullMillis(s.ClockOutTime),
		nullInt(s.ActualDurationMin), s.WasLate, s.LateByMin, s.WasAutoCompleted,
		s.Notes, toMillis(s.CreatedAt), toMillis(s.UpdatedAt), s.ID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

func (r *Repository) GetSession(ctx context.Context, id string) (*Session, error) {
	return r.querySession(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
}

// GetSessionByActivityDate ищет сессию по составному ключу (activity_id, date).
func (r *Repository) GetSessionByActivityDate(ctx context.Context, activityID, date string) (*Session, error) {
	return r.querySession(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE activity_id = ? AND date = ?
	`, activityID, date)
}

// GetActiveSession returns the active session, if any.
func (r *Repository) GetActiveSession(ctx context.Context) (*Session, error) {
	return r.querySession(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE status = ?
		ORDER BY clock_in_time DESC
		LIMIT 1
	`, StatusActive)
}

func (r *Repository) GetSessionsByStatus(ctx context.Context, status SessionStatus) ([]Session, error) {
	return r.querySessions(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE status = ?
		ORDER BY date, clock_in_time
	`, status)
}

func (r *Repository) GetSessionsByDate(ctx context.Context, date string) ([]Session, error) {
	return r.querySessions(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE date = ?`, date)
}

func (r *Repository) GetSessionsByActivity(ctx context.Context, activityID string) ([]Session, error) {
	return r.querySessions(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE activity_id = ?`, activityID)
}

func (r *Repository) GetAllSessions(ctx context.Context) ([]Session, error) {
	return r.querySessions(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY date, created_at`)
}

func (r *Repository) DeleteSessionsByActivity(ctx context.Context, activityID string) error {
	if _, err := r.q.ExecContext(ctx, "DELETE FROM sessions WHERE activity_id = ?", activityID); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	return nil
}
