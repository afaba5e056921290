package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tempo/internal/database"
	"tempo/internal/logger"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	return f.now
}

func (f *fakeClock) Set(t time.Time) {
	f.now = t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func at(date string, hour, min int) time.Time {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), hour, min, 0, 0, time.UTC)
}

func newTestManager(t *testing.T, clk Clock) *ServiceManager {
	t.Helper()

	db, err := database.New("sqlite3", filepath.Join(t.TempDir(), "tempo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sm := NewServiceManager(db, clk, DefaultReportTTL, logger.NewNop())
	require.NoError(t, sm.Category.SeedDefaults(context.Background()))
	return sm
}

func addActivity(t *testing.T, sm *ServiceManager, title, date, start, end string) string {
	t.Helper()

	id, err := sm.Activity.Add(context.Background(), ActivitySpec{
		Title:     title,
		Date:      date,
		StartTime: start,
		EndTime:   end,
	})
	require.NoError(t, err)
	return id
}
