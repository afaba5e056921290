package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempo/internal/database"
)

func TestActivitySpecValidate(t *testing.T) {
	valid := ActivitySpec{Title: "Run", Date: "2026-02-10", StartTime: "07:00", EndTime: "07:45"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name string
		edit func(*ActivitySpec)
	}{
		{"empty title", func(s *ActivitySpec) { s.Title = "" }},
		{"bad date", func(s *ActivitySpec) { s.Date = "10.02.2026" }},
		{"bad clock", func(s *ActivitySpec) { s.StartTime = "7am" }},
		{"end before start", func(s *ActivitySpec) { s.EndTime = "06:00" }},
		{"end before start across digit width", func(s *ActivitySpec) { s.StartTime, s.EndTime = "10:00", "9:30" }},
		{"negative notify", func(s *ActivitySpec) { n := -1; s.NotifyBefore = &n }},
		{"repeat day out of range", func(s *ActivitySpec) {
			s.RepeatRule = &database.RepeatRule{Type: database.RepeatCustom, Days: []int{7}}
		}},
		{"unknown repeat type", func(s *ActivitySpec) { s.RepeatRule = &database.RepeatRule{Type: "monthly"} }},
	}
	unpadded := valid
	unpadded.StartTime, unpadded.EndTime = "9:00", "10:00"
	assert.NoError(t, unpadded.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := valid
			tt.edit(&spec)
			assert.ErrorIs(t, spec.Validate(), ErrInvalidActivity)
		})
	}
}

func TestAddComputesDerivedFields(t *testing.T) {
	ctx := context.Background()
	sm := newTestManager(t, &fakeClock{now: at("2026-02-09", 8, 0)})

	id := addActivity(t, sm, "Deep work", "2026-02-11", "09:00", "10:30")

	a, err := sm.Activity.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "2026-W07", a.WeekID)
	assert.Equal(t, 2, a.DayOfWeek)
	assert.Equal(t, 90, a.PlannedDurationMin)
	assert.Equal(t, 5, a.NotifyBefore)
}

func TestAddFansOutRecurrence(t *testing.T) {
	tests := []struct {
		name  string
		rule  database.RepeatRule
		dates []string
	}{
		{"daily", database.RepeatRule{Type: database.RepeatDaily},
			[]string{"2026-02-09", "2026-02-10", "2026-02-11", "2026-02-12", "2026-02-13", "2026-02-14", "2026-02-15"}},
		{"weekdays", database.RepeatRule{Type: database.RepeatWeekdays},
			[]string{"2026-02-09", "2026-02-10", "2026-02-11", "2026-02-12", "2026-02-13"}},
		{"custom", database.RepeatRule{Type: database.RepeatCustom, Days: []int{0, 2, 4}},
			[]string{"2026-02-09", "2026-02-11", "2026-02-13"}},
		{"custom without days", database.RepeatRule{Type: database.RepeatCustom},
			[]string{"2026-02-11"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			sm := newTestManager(t, &fakeClock{now: at("2026-02-09", 8, 0)})

			rule := tt.rule
			id, err := sm.Activity.Add(ctx, ActivitySpec{
				Title: "Stretch", Date: "2026-02-11", StartTime: "07:00", EndTime: "07:15", RepeatRule: &rule,
			})
			require.NoError(t, err)

			week, err := sm.Activity.ListForWeek(ctx, "2026-W07")
			require.NoError(t, err)
			require.Len(t, week, len(tt.dates))

			var dates []string
			for _, a := range week {
				dates = append(dates, a.Date)
			}
			assert.ElementsMatch(t, tt.dates, dates)

			first, err := sm.Activity.Get(ctx, id)
			require.NoError(t, err)
			require.NotNil(t, first)
			assert.Equal(t, tt.dates[0], first.Date)
		})
	}
}

func TestUpdateRecomputesPlannedDuration(t *testing.T) {
	ctx := context.Background()
	sm := newTestManager(t, &fakeClock{now: at("2026-02-09", 8, 0)})
	id := addActivity(t, sm, "Deep work", "2026-02-10", "09:00", "10:00")

	end := "11:30"
	title := "Deeper work"
	require.NoError(t, sm.Activity.Update(ctx, id, ActivityPatch{EndTime: &end, Title: &title}))

	a, err := sm.Activity.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 150, a.PlannedDurationMin)
	assert.Equal(t, "Deeper work", a.Title)

	require.NoError(t, sm.Activity.Update(ctx, "missing", ActivityPatch{Title: &title}))
}

func TestUpdateCategory(t *testing.T) {
	ctx := context.Background()
	sm := newTestManager(t, &fakeClock{now: at("2026-02-09", 8, 0)})
	id := addActivity(t, sm, "Deep work", "2026-02-10", "09:00", "10:00")

	cat := "cat-work"
	require.NoError(t, sm.Activity.Update(ctx, id, ActivityPatch{CategoryID: &cat}))
	a, err := sm.Activity.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, a.CategoryID)
	assert.Equal(t, "cat-work", *a.CategoryID)

	require.NoError(t, sm.Activity.Update(ctx, id, ActivityPatch{ClearCategory: true}))
	a, err = sm.Activity.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, a.CategoryID)
}

func TestDeleteCascadesSessions(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{now: at("2026-02-10", 9, 0)}
	sm := newTestManager(t, clk)
	id := addActivity(t, sm, "Deep work", "2026-02-10", "09:00", "10:00")

	_, err := sm.Session.ClockIn(ctx, id)
	require.NoError(t, err)

	require.NoError(t, sm.Activity.Delete(ctx, id))

	a, err := sm.Activity.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, a)

	sessions, err := sm.repository.GetSessionsByActivity(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestCopyWeekKeepsDayOfWeek(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{now: at("2026-02-11", 9, 0)}
	sm := newTestManager(t, clk)
	id := addActivity(t, sm, "Review", "2026-02-11", "16:00", "17:00")

	_, err := sm.Session.ClockIn(ctx, id)
	require.NoError(t, err)

	n, err := sm.Activity.CopyWeek(ctx, "2026-W07", "2026-W08")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	copied, err := sm.Activity.ListForWeek(ctx, "2026-W08")
	require.NoError(t, err)
	require.Len(t, copied, 1)
	assert.Equal(t, "2026-02-18", copied[0].Date)
	assert.Equal(t, 2, copied[0].DayOfWeek)
	assert.NotEqual(t, id, copied[0].ID)

	sessions, err := sm.Session.ListForDate(ctx, "2026-02-18")
	require.NoError(t, err)
	assert.Empty(t, sessions)

	_, err = sm.Activity.CopyWeek(ctx, "2026-W07", "not-a-week")
	assert.Error(t, err)

	_, err = sm.Activity.CopyWeek(ctx, "2026-W07", "2025-W53")
	assert.Error(t, err)
}
