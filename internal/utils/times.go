package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

var location = time.UTC

// SetLocation задает часовой пояс, в котором считаются "сегодня" и текущее время.
func SetLocation(name string) error {
	if name == "" {
		location = time.UTC
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("load location %q: %w", name, err)
	}
	location = loc
	return nil
}

func Location() *time.Location {
	return location
}

// ─── Week model ───

// WeekRange is the Monday..Sunday span of one ISO week.
type WeekRange struct {
	Start time.Time
	End   time.Time
	Days  [7]time.Time
}

// WeekID returns the ISO-8601 week identifier "YYYY-Www" of date.
// The year is the ISO week year and can differ from the calendar year.
func WeekID(date time.Time) string {
	year, week := date.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// ParseWeekID splits "YYYY-Www" into its ISO year and week number.
func ParseWeekID(weekID string) (int, int, error) {
	yearStr, weekStr, ok := strings.Cut(weekID, "-W")
	if !ok {
		return 0, 0, fmt.Errorf("invalid week id %q", weekID)
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid week id %q: %w", weekID, err)
	}
	week, err := strconv.Atoi(weekStr)
	if err != nil || week < 1 || week > 53 {
		return 0, 0, fmt.Errorf("invalid week id %q", weekID)
	}
	return year, week, nil
}

// WeekDates resolves a week id to its seven calendar dates.
// Week 1 is the week containing Jan 4; Days[0] is always Monday.
func WeekDates(weekID string) (WeekRange, error) {
	year, week, err := ParseWeekID(weekID)
	if err != nil {
		return WeekRange{}, err
	}

	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	start := jan4.AddDate(0, 0, -DayOfWeek(jan4)+(week-1)*7)
	// W53 есть не в каждом году.
	if WeekID(start) != fmt.Sprintf("%d-W%02d", year, week) {
		return WeekRange{}, fmt.Errorf("invalid week id %q: year %d has no week %d", weekID, year, week)
	}

	var r WeekRange
	r.Start = start
	r.End = start.AddDate(0, 0, 6)
	for i := range r.Days {
		r.Days[i] = start.AddDate(0, 0, i)
	}
	return r, nil
}

// DayOfWeek returns 0 for Monday through 6 for Sunday.
func DayOfWeek(date time.Time) int {
	return (int(date.Weekday()) + 6) % 7
}

func FormatDate(date time.Time) string {
	return date.Format(DateLayout)
}

// ParseDate parses "YYYY-MM-DD" as a UTC calendar date.
func ParseDate(date string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, date, time.UTC)
}

// DayName returns the English weekday name of a "YYYY-MM-DD" date.
func DayName(date string) string {
	d, err := ParseDate(date)
	if err != nil {
		return date
	}
	return d.Weekday().String()
}

// ─── Wall clock ───

// TimeToMinutes converts "HH:MM" to minutes since midnight.
// Malformed components count as zero.
func TimeToMinutes(clock string) int {
	hStr, mStr, _ := strings.Cut(clock, ":")
	h, _ := strconv.Atoi(strings.TrimSpace(hStr))
	m, _ := strconv.Atoi(strings.TrimSpace(mStr))
	return h*60 + m
}

func MinutesToTime(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// NormalizeClock zero-pads a valid "H:MM" to "HH:MM". Anything else is returned as is.
func NormalizeClock(clock string) string {
	t, err := time.Parse(ClockLayout, strings.TrimSpace(clock))
	if err != nil {
		return clock
	}
	return t.Format(ClockLayout)
}

// DurationMin is end minus start in minutes. It is not wrapped around midnight,
// so an end before start yields a negative value.
func DurationMin(start, end string) int {
	return TimeToMinutes(end) - TimeToMinutes(start)
}

// IsTimeInRange reports whether start <= clock < end.
func IsTimeInRange(clock, start, end string) bool {
	t := TimeToMinutes(clock)
	return t >= TimeToMinutes(start) && t < TimeToMinutes(end)
}

// FormatDuration renders minutes as "Xh Ym", dropping a zero component.
func FormatDuration(minutes int) string {
	if minutes < 0 {
		return "0m"
	}
	h, m := minutes/60, minutes%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh %dm", h, m)
	}
}

// FormatTimeDisplay renders "HH:MM" as "h:MM AM/PM" when use12h is set.
func FormatTimeDisplay(clock string, use12h bool) string {
	if !use12h {
		return clock
	}
	minutes := TimeToMinutes(clock)
	h, m := minutes/60, minutes%60
	period := "AM"
	if h >= 12 {
		period = "PM"
	}
	hour12 := h % 12
	if hour12 == 0 {
		hour12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", hour12, m, period)
}

// CurrentDate returns now's calendar date in the configured location.
func CurrentDate(now time.Time) string {
	return now.In(location).Format(DateLayout)
}

// CurrentTime24 returns now's wall clock "HH:MM" in the configured location.
func CurrentTime24(now time.Time) string {
	return now.In(location).Format(ClockLayout)
}

func CurrentMinutes(now time.Time) int {
	local := now.In(location)
	return local.Hour()*60 + local.Minute()
}

// CombineDateTime builds the instant of a "YYYY-MM-DD" date at "HH:MM"
// in the configured location. The clock goes through TimeToMinutes, so a
// malformed clock shifts the result instead of failing.
func CombineDateTime(date, clock string) (time.Time, error) {
	d, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, TimeToMinutes(clock), 0, 0, location), nil
}

// TimezoneInfo описывает текущее время в настроенном часовом поясе.
func TimezoneInfo(now time.Time) string {
	local := now.In(location)
	name, offset := local.Zone()
	return fmt.Sprintf("🕐 Now: %s %s (UTC%+d)", local.Format(ClockLayout), name, offset/3600)
}
