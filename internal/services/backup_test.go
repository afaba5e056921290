package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempo/internal/database"
)

func TestBackupRoundTrip(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{now: at("2026-02-10", 9, 0)}
	src := newTestManager(t, clk)

	id := addActivity(t, src, "Deep work", "2026-02-10", "09:00", "10:00")
	clockInOut(t, src, clk, id, at("2026-02-10", 9, 0), at("2026-02-10", 9, 45))
	_, err := src.Report.GenerateDailyReport(ctx, "2026-02-10")
	require.NoError(t, err)

	prefs := database.DefaultPreferences
	prefs.TimeFormat = "24h"
	require.NoError(t, src.Preferences.SavePreferences(ctx, prefs))

	backup, err := src.Backup.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, database.BackupVersion, backup.Version)

	var buf bytes.Buffer
	require.NoError(t, WriteBackup(&buf, backup))
	decoded, err := ReadBackup(&buf)
	require.NoError(t, err)

	dst := newTestManager(t, clk)
	addActivity(t, dst, "Will be replaced", "2026-02-12", "10:00", "11:00")
	require.NoError(t, dst.Backup.Import(ctx, decoded))

	activities, err := dst.repository.GetAllActivities(ctx)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, id, activities[0].ID)

	sessions, err := dst.repository.GetAllSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 45, *sessions[0].ActualDurationMin)

	reports, err := dst.repository.GetAllDailyReports(ctx)
	require.NoError(t, err)
	assert.Len(t, reports, 1)

	categories, err := dst.Category.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, len(database.DefaultCategories))

	got, err := dst.Preferences.Preferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, "24h", got.TimeFormat)
}

func TestImportRejectsOtherVersion(t *testing.T) {
	ctx := context.Background()
	sm := newTestManager(t, &fakeClock{now: at("2026-02-10", 9, 0)})
	addActivity(t, sm, "Keep me", "2026-02-10", "09:00", "10:00")

	err := sm.Backup.Import(ctx, &database.Backup{Version: 2})
	assert.ErrorIs(t, err, ErrUnsupportedBackupVersion)

	activities, err := sm.repository.GetAllActivities(ctx)
	require.NoError(t, err)
	assert.Len(t, activities, 1)
}

func TestClearAllReseedsCategories(t *testing.T) {
	ctx := context.Background()
	sm := newTestManager(t, &fakeClock{now: at("2026-02-10", 9, 0)})
	addActivity(t, sm, "Gone", "2026-02-10", "09:00", "10:00")

	require.NoError(t, sm.Backup.ClearAll(ctx))

	activities, err := sm.repository.GetAllActivities(ctx)
	require.NoError(t, err)
	assert.Empty(t, activities)

	categories, err := sm.Category.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, len(database.DefaultCategories))
}
