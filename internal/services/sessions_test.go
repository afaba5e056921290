package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempo/internal/database"
)

func TestClockInLateThenClockOut(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{now: at("2026-02-10", 9, 10)}
	sm := newTestManager(t, clk)
	id := addActivity(t, sm, "Deep work", "2026-02-10", "09:00", "10:00")

	s, err := sm.Session.ClockIn(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, database.StatusActive, s.Status)
	assert.True(t, s.WasLate)
	assert.Equal(t, 10, s.LateByMin)
	assert.Equal(t, "2026-02-10", s.Date)

	pointer, err := sm.Preferences.LastActiveSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, pointer)
	assert.Equal(t, s.ID, pointer.SessionID)
	assert.Equal(t, id, pointer.ActivityID)

	clk.Set(at("2026-02-10", 9, 50))
	require.NoError(t, sm.Session.ClockOut(ctx, s.ID, nil))

	done, err := sm.Session.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusCompleted, done.Status)
	require.NotNil(t, done.ActualDurationMin)
	assert.Equal(t, 40, *done.ActualDurationMin)

	pointer, err = sm.Preferences.LastActiveSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, pointer)

	report, err := sm.Report.GenerateDailyReport(ctx, "2026-02-10")
	require.NoError(t, err)
	require.Len(t, report.ActivitySummaries, 1)
	assert.Equal(t, 67, report.ActivitySummaries[0].CompletionPercent)
	assert.Equal(t, 1, report.ActivitiesPartial)
}

func TestClockInOnTimeIsNotLate(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{now: at("2026-02-10", 8, 55)}
	sm := newTestManager(t, clk)
	id := addActivity(t, sm, "Deep work", "2026-02-10", "09:00", "10:00")

	s, err := sm.Session.ClockIn(ctx, id)
	require.NoError(t, err)
	assert.False(t, s.WasLate)
	assert.Zero(t, s.LateByMin)
}

func TestClockInClosesPreviousActiveSession(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{now: at("2026-02-10", 9, 0)}
	sm := newTestManager(t, clk)
	first := addActivity(t, sm, "Deep work", "2026-02-10", "09:00", "10:00")
	second := addActivity(t, sm, "Email", "2026-02-10", "09:30", "10:00")

	a, err := sm.Session.ClockIn(ctx, first)
	require.NoError(t, err)

	clk.Set(at("2026-02-10", 9, 30))
	b, err := sm.Session.ClockIn(ctx, second)
	require.NoError(t, err)

	actives, err := sm.repository.GetSessionsByStatus(ctx, database.StatusActive)
	require.NoError(t, err)
	require.Len(t, actives, 1)
	assert.Equal(t, b.ID, actives[0].ID)

	closed, err := sm.Session.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusCompleted, closed.Status)
	require.NotNil(t, closed.ClockOutTime)
	assert.True(t, closed.ClockOutTime.Equal(at("2026-02-10", 9, 30)))
	assert.Equal(t, 30, *closed.ActualDurationMin)

	pointer, err := sm.Preferences.LastActiveSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, pointer.SessionID)
}

func TestClockInTwiceKeepsSession(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{now: at("2026-02-10", 9, 0)}
	sm := newTestManager(t, clk)
	id := addActivity(t, sm, "Deep work", "2026-02-10", "09:00", "10:00")

	a, err := sm.Session.ClockIn(ctx, id)
	require.NoError(t, err)
	clk.Advance(5 * time.Minute)
	b, err := sm.Session.ClockIn(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	assert.True(t, b.ClockInTime.Equal(*a.ClockInTime))
}

func TestClockInOnTerminalSessionIsNoop(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{now: at("2026-02-10", 9, 0)}
	sm := newTestManager(t, clk)
	id := addActivity(t, sm, "Deep work", "2026-02-10", "09:00", "10:00")

	require.NoError(t, sm.Session.Dismiss(ctx, id))

	s, err := sm.Session.ClockIn(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, database.StatusDismissed, s.Status)

	active, err := sm.Session.Active(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestClockInReusesNotifiedSession(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{now: at("2026-02-10", 8, 56)}
	sm := newTestManager(t, clk)
	id := addActivity(t, sm, "Deep work", "2026-02-10", "09:00", "10:00")

	created, err := sm.Session.MarkNotified(ctx, id)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = sm.Session.MarkNotified(ctx, id)
	require.NoError(t, err)
	assert.False(t, created)

	notified, err := sm.repository.GetSessionByActivityDate(ctx, id, "2026-02-10")
	require.NoError(t, err)

	clk.Set(at("2026-02-10", 9, 0))
	s, err := sm.Session.ClockIn(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, notified.ID, s.ID)
	assert.Equal(t, database.StatusActive, s.Status)
}

func TestClockInMissingActivity(t *testing.T) {
	sm := newTestManager(t, &fakeClock{now: at("2026-02-10", 9, 0)})

	s, err := sm.Session.ClockIn(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestClockOutNoops(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{now: at("2026-02-10", 9, 0)}
	sm := newTestManager(t, clk)
	id := addActivity(t, sm, "Deep work", "2026-02-10", "09:00", "10:00")

	require.NoError(t, sm.Session.ClockOut(ctx, "missing", nil))

	require.NoError(t, sm.Session.MarkMissed(ctx, id))
	missed, err := sm.repository.GetSessionByActivityDate(ctx, id, "2026-02-10")
	require.NoError(t, err)
	require.NoError(t, sm.Session.ClockOut(ctx, missed.ID, nil))

	after, err := sm.Session.Get(ctx, missed.ID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusMissed, after.Status)
	assert.Nil(t, after.ClockOutTime)
}

func TestClockOutWithExplicitEnd(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{now: at("2026-02-10", 9, 0)}
	sm := newTestManager(t, clk)
	id := addActivity(t, sm, "Deep work", "2026-02-10", "09:00", "10:00")

	s, err := sm.Session.ClockIn(ctx, id)
	require.NoError(t, err)

	clk.Set(at("2026-02-10", 12, 0))
	end := at("2026-02-10", 9, 45).Add(29 * time.Second)
	require.NoError(t, sm.Session.ClockOut(ctx, s.ID, &end))

	done, err := sm.Session.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 45, *done.ActualDurationMin)
	assert.True(t, done.ClockOutTime.Equal(end))
}

func TestAutoComplete(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{now: at("2026-02-10", 9, 0)}
	sm := newTestManager(t, clk)
	id := addActivity(t, sm, "Deep work", "2026-02-10", "09:00", "10:00")

	s, err := sm.Session.ClockIn(ctx, id)
	require.NoError(t, err)

	clk.Set(at("2026-02-10", 10, 45))
	require.NoError(t, sm.Session.AutoComplete(ctx, s.ID, "10:00"))

	done, err := sm.Session.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusAutoCompleted, done.Status)
	assert.True(t, done.WasAutoCompleted)
	assert.Equal(t, 60, *done.ActualDurationMin)
	assert.True(t, done.ClockOutTime.Equal(at("2026-02-10", 10, 0)))

	pointer, err := sm.Preferences.LastActiveSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, pointer)
}

func TestAutoCompleteClampsNegativeDuration(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{now: at("2026-02-10", 10, 30)}
	sm := newTestManager(t, clk)
	id := addActivity(t, sm, "Deep work", "2026-02-10", "09:00", "10:00")

	s, err := sm.Session.ClockIn(ctx, id)
	require.NoError(t, err)
	require.NoError(t, sm.Session.AutoComplete(ctx, s.ID, "10:00"))

	done, err := sm.Session.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, *done.ActualDurationMin)
}

func TestMarkMissedAndDismiss(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{now: at("2026-02-10", 11, 0)}
	sm := newTestManager(t, clk)
	missedID := addActivity(t, sm, "Run", "2026-02-10", "07:00", "08:00")
	dismissedID := addActivity(t, sm, "Read", "2026-02-10", "20:00", "21:00")

	require.NoError(t, sm.Session.MarkMissed(ctx, missedID))
	require.NoError(t, sm.Session.MarkMissed(ctx, missedID))
	require.NoError(t, sm.Session.Dismiss(ctx, dismissedID))

	sessions, err := sm.Session.ListForDate(ctx, "2026-02-10")
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	for _, s := range sessions {
		require.NotNil(t, s.ActualDurationMin)
		assert.Zero(t, *s.ActualDurationMin)
		assert.Nil(t, s.ClockInTime)
		assert.Nil(t, s.ClockOutTime)
		assert.Empty(t, s.Notes)
		switch s.ActivityID {
		case missedID:
			assert.Equal(t, database.StatusMissed, s.Status)
		case dismissedID:
			assert.Equal(t, database.StatusDismissed, s.Status)
		}
	}

	require.NoError(t, sm.Session.MarkMissed(ctx, "missing"))
}

func TestMarkMissedFlipsActiveSession(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{now: at("2026-02-10", 9, 0)}
	sm := newTestManager(t, clk)
	id := addActivity(t, sm, "Deep work", "2026-02-10", "09:00", "10:00")

	s, err := sm.Session.ClockIn(ctx, id)
	require.NoError(t, err)
	require.NoError(t, sm.Session.MarkMissed(ctx, id))

	after, err := sm.Session.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusMissed, after.Status)

	pointer, err := sm.Preferences.LastActiveSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, pointer)
}

func TestMarkMissedLeavesCompletedSession(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{now: at("2026-02-10", 9, 0)}
	sm := newTestManager(t, clk)
	id := addActivity(t, sm, "Deep work", "2026-02-10", "09:00", "10:00")

	s, err := sm.Session.ClockIn(ctx, id)
	require.NoError(t, err)
	clk.Set(at("2026-02-10", 10, 0))
	require.NoError(t, sm.Session.ClockOut(ctx, s.ID, nil))
	require.NoError(t, sm.Session.MarkMissed(ctx, id))

	after, err := sm.Session.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusCompleted, after.Status)
}
