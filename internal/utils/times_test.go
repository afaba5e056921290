package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWeekID(t *testing.T) {
	cases := []struct {
		in   time.Time
		want string
	}{
		{date(2026, 2, 10), "2026-W07"},
		{date(2026, 1, 4), "2026-W01"},
		{date(2024, 12, 30), "2025-W01"},
		{date(2021, 1, 3), "2020-W53"},
		{date(2027, 1, 1), "2026-W53"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, WeekID(c.in), c.in.Format(DateLayout))
	}
}

func TestWeekDatesStartsOnMonday(t *testing.T) {
	r, err := WeekDates("2026-W07")
	require.NoError(t, err)

	week1, err := WeekDates("2026-W01")
	require.NoError(t, err)
	assert.Equal(t, "2025-12-29", FormatDate(week1.Start))
	assert.Equal(t, week1.Start.AddDate(0, 0, 6*7), r.Start)

	assert.Equal(t, "2026-02-09", FormatDate(r.Start))
	assert.Equal(t, "2026-02-15", FormatDate(r.End))
	assert.Equal(t, time.Monday, r.Days[0].Weekday())
	assert.Equal(t, time.Sunday, r.Days[6].Weekday())
}

func TestWeekDatesRoundTrip(t *testing.T) {
	start, err := WeekDates("2025-W40")
	require.NoError(t, err)

	monday := start.Start
	for i := 0; i < 104; i++ {
		id := WeekID(monday)
		r, err := WeekDates(id)
		require.NoError(t, err)
		assert.Equal(t, monday, r.Start, id)
		for d, day := range r.Days {
			assert.Equal(t, id, WeekID(day))
			assert.Equal(t, d, DayOfWeek(day))
		}
		monday = monday.AddDate(0, 0, 7)
	}
}

func TestWeekDatesRejectsMalformed(t *testing.T) {
	for _, id := range []string{"", "2026", "2026-07", "2026-W00", "2026-W54", "abcd-W01", "2025-W53"} {
		_, err := WeekDates(id)
		assert.Error(t, err, id)
	}
}

func TestWeekDatesLongYear(t *testing.T) {
	r, err := WeekDates("2026-W53")
	require.NoError(t, err)
	assert.Equal(t, date(2026, 12, 28), r.Start)
}

func TestDayOfWeek(t *testing.T) {
	assert.Equal(t, 0, DayOfWeek(date(2026, 2, 9)))
	assert.Equal(t, 2, DayOfWeek(date(2026, 2, 11)))
	assert.Equal(t, 6, DayOfWeek(date(2026, 2, 15)))
}

func TestWallClockArithmetic(t *testing.T) {
	assert.Equal(t, 9*60+30, TimeToMinutes("09:30"))
	assert.Equal(t, "09:30", MinutesToTime(570))
	assert.Equal(t, 60, DurationMin("09:00", "10:00"))
	assert.Equal(t, -60, DurationMin("23:00", "22:00"))
	assert.True(t, IsTimeInRange("09:00", "09:00", "10:00"))
	assert.False(t, IsTimeInRange("10:00", "09:00", "10:00"))
}

func TestNormalizeClock(t *testing.T) {
	assert.Equal(t, "09:00", NormalizeClock("9:00"))
	assert.Equal(t, "23:15", NormalizeClock("23:15"))
	assert.Equal(t, "7am", NormalizeClock("7am"))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0m", FormatDuration(-5))
	assert.Equal(t, "0m", FormatDuration(0))
	assert.Equal(t, "45m", FormatDuration(45))
	assert.Equal(t, "2h", FormatDuration(120))
	assert.Equal(t, "1h 5m", FormatDuration(65))
}

func TestFormatTimeDisplay(t *testing.T) {
	assert.Equal(t, "9:05 AM", FormatTimeDisplay("09:05", true))
	assert.Equal(t, "12:00 PM", FormatTimeDisplay("12:00", true))
	assert.Equal(t, "12:15 AM", FormatTimeDisplay("00:15", true))
	assert.Equal(t, "21:00", FormatTimeDisplay("21:00", false))
}

func TestCombineDateTimeUsesLocation(t *testing.T) {
	require.NoError(t, SetLocation("UTC"))
	got, err := CombineDateTime("2026-02-10", "10:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC), got)
	assert.Equal(t, "2026-02-10", CurrentDate(got))
	assert.Equal(t, "10:00", CurrentTime24(got))
	assert.Equal(t, 600, CurrentMinutes(got))
}
