package database

import "time"

type SessionStatus string

const (
	StatusPending       SessionStatus = "pending"
	StatusNotified      SessionStatus = "notified"
	StatusActive        SessionStatus = "active"
	StatusCompleted     SessionStatus = "completed"
	StatusAutoCompleted SessionStatus = "auto_completed"
	StatusMissed        SessionStatus = "missed"
	StatusDismissed     SessionStatus = "dismissed"
)

// IsTerminal reports whether no further transition is defined from s.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusAutoCompleted, StatusMissed, StatusDismissed:
		return true
	}
	return false
}

// IsDone is true for completed and auto_completed.
func (s SessionStatus) IsDone() bool {
	return s == StatusCompleted || s == StatusAutoCompleted
}

// IsMissed is true for missed and dismissed.
func (s SessionStatus) IsMissed() bool {
	return s == StatusMissed || s == StatusDismissed
}

type RepeatType string

const (
	RepeatDaily    RepeatType = "daily"
	RepeatWeekdays RepeatType = "weekdays"
	RepeatCustom   RepeatType = "custom"
)

type RepeatRule struct {
	Type RepeatType `json:"type"`
	Days []int      `json:"days,omitempty"` // 0=Mon ... 6=Sun
}

type Activity struct {
	ID                 string      `json:"id"`
	WeekID             string      `json:"week_id"` // "2026-W07"
	DayOfWeek          int         `json:"day_of_week"`
	Date               string      `json:"date"` // "2026-02-10"
	Title              string      `json:"title"`
	StartTime          string      `json:"start_time"` // "09:00"
	EndTime            string      `json:"end_time"`
	PlannedDurationMin int         `json:"planned_duration_min"`
	CategoryID         *string     `json:"category_id"`
	NotifyBefore       int         `json:"notify_before"` // minutes
	RepeatRule         *RepeatRule `json:"repeat_rule"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

type Session struct {
	ID                string        `json:"id"`
	ActivityID        string        `json:"activity_id"`
	Date              string        `json:"date"`
	Status            SessionStatus `json:"status"`
	ClockInTime       *time.Time    `json:"clock_in_time"`
	ClockOutTime      *time.Time    `json:"clock_out_time"`
	ActualDurationMin *int          `json:"actual_duration_min"`
	WasLate           bool          `json:"was_late"`
	LateByMin         int           `json:"late_by_min"`
	WasAutoCompleted  bool          `json:"was_auto_completed"`
	Notes             string        `json:"notes"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Icon      string    `json:"icon"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryTime суммирует план и факт по одной категории.
type CategoryTime struct {
	CategoryID   *string `json:"category_id"`
	CategoryName string  `json:"category_name"`
	PlannedMin   int     `json:"planned_min"`
	ActualMin    int     `json:"actual_min"`
}

type ActivityDaySummary struct {
	ActivityID         string        `json:"activity_id"`
	Title              string        `json:"title"`
	PlannedStartTime   string        `json:"planned_start_time"`
	PlannedEndTime     string        `json:"planned_end_time"`
	PlannedDurationMin int           `json:"planned_duration_min"`
	ActualStartTime    *time.Time    `json:"actual_start_time"`
	ActualEndTime      *time.Time    `json:"actual_end_time"`
	ActualDurationMin  int           `json:"actual_duration_min"`
	Status             SessionStatus `json:"status"`
	CompletionPercent  int           `json:"completion_percent"`
	CategoryID         *string       `json:"category_id"`
}

type DailyReport struct {
	ID                  string               `json:"id"`
	Date                string               `json:"date"`
	WeekID              string               `json:"week_id"`
	TotalPlannedMin     int                  `json:"total_planned_min"`
	TotalActualMin      int                  `json:"total_actual_min"`
	CompletionPercent   int                  `json:"completion_percent"`
	ActivitiesPlanned   int                  `json:"activities_planned"`
	ActivitiesCompleted int                  `json:"activities_completed"`
	ActivitiesMissed    int                  `json:"activities_missed"`
	ActivitiesPartial   int                  `json:"activities_partial"`
	CategoryBreakdown   []CategoryTime       `json:"category_breakdown"`
	ActivitySummaries   []ActivityDaySummary `json:"activity_summaries"`
	GeneratedAt         time.Time            `json:"generated_at"`
}

type DayScore struct {
	Date              string `json:"date"`
	CompletionPercent int    `json:"completion_percent"`
	PlannedMin        int    `json:"planned_min"`
	ActualMin         int    `json:"actual_min"`
}

type DayPercent struct {
	Date    string `json:"date"`
	Percent int    `json:"percent"`
}

type ActivityRate struct {
	Title          string `json:"title"`
	CompletionRate int    `json:"completion_rate"`
}

type ActivityMissRate struct {
	Title    string `json:"title"`
	MissRate int    `json:"miss_rate"`
}

type WeeklyReport struct {
	ID                     string            `json:"id"`
	WeekID                 string            `json:"week_id"`
	StartDate              string            `json:"start_date"`
	EndDate                string            `json:"end_date"`
	TotalPlannedMin        int               `json:"total_planned_min"`
	TotalActualMin         int               `json:"total_actual_min"`
	AvgCompletionPercent   int               `json:"avg_completion_percent"`
	DailyScores            []DayScore        `json:"daily_scores"`
	BestDay                *DayPercent       `json:"best_day"`
	WorstDay               *DayPercent       `json:"worst_day"`
	MostConsistentActivity *ActivityRate     `json:"most_consistent_activity"`
	MostMissedActivity     *ActivityMissRate `json:"most_missed_activity"`
	CategoryTrends         []CategoryTime    `json:"category_trends"`
	WrittenSummary         string            `json:"written_summary"`
	GeneratedAt            time.Time         `json:"generated_at"`
}

// LastActiveSession — указатель для восстановления UI после перезапуска.
type LastActiveSession struct {
	SessionID   string    `json:"session_id"`
	ActivityID  string    `json:"activity_id"`
	ClockInTime time.Time `json:"clock_in_time"`
}

type Preferences struct {
	WeekStartDay         int    `json:"week_start_day"` // 0=Mon, 1=Sun; presentation only
	TimeFormat           string `json:"time_format"`    // "12h" | "24h"
	NotificationsEnabled bool   `json:"notifications_enabled"`
	ReminderLeadMin      int    `json:"reminder_lead_min"`
	MissedClockInAlert   bool   `json:"missed_clock_in_alert"`
	DailyReportReminder  bool   `json:"daily_report_reminder"`
}

var DefaultPreferences = Preferences{
	WeekStartDay:         0,
	TimeFormat:           "12h",
	NotificationsEnabled: true,
	ReminderLeadMin:      5,
	MissedClockInAlert:   true,
	DailyReportReminder:  true,
}

// BackupVersion must match exactly for an import to be accepted.
const BackupVersion = 1

type Backup struct {
	Version       int            `json:"version"`
	ExportedAt    time.Time      `json:"exported_at"`
	Activities    []Activity     `json:"activities"`
	Sessions      []Session      `json:"sessions"`
	DailyReports  []DailyReport  `json:"daily_reports"`
	WeeklyReports []WeeklyReport `json:"weekly_reports"`
	Categories    []Category     `json:"categories"`
	Preferences   *Preferences   `json:"preferences,omitempty"`
}

// DefaultCategories засеваются при первом запуске.
var DefaultCategories = []Category{
	{ID: "cat-work", Name: "Work", Color: "#6366F1", Icon: "💼", IsDefault: true},
	{ID: "cat-health", Name: "Health", Color: "#10B981", Icon: "💪", IsDefault: true},
	{ID: "cat-learning", Name: "Learning", Color: "#F59E0B", Icon: "📚", IsDefault: true},
	{ID: "cat-personal", Name: "Personal", Color: "#EC4899", Icon: "🧘", IsDefault: true},
	{ID: "cat-creative", Name: "Creative", Color: "#8B5CF6", Icon: "🎨", IsDefault: true},
}
