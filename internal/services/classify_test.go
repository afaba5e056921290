package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempo/internal/database"
)

func TestClassifyDay(t *testing.T) {
	activities := []database.Activity{
		{ID: "run", Date: "2026-02-10", StartTime: "07:00", EndTime: "08:00"},
		{ID: "deep", Date: "2026-02-10", StartTime: "09:00", EndTime: "11:00"},
		{ID: "email", Date: "2026-02-10", StartTime: "08:00", EndTime: "08:30"},
		{ID: "lunch", Date: "2026-02-10", StartTime: "12:00", EndTime: "13:00"},
		{ID: "stretch", Date: "2026-02-10", StartTime: "06:00", EndTime: "06:15"},
		{ID: "call", Date: "2026-02-10", StartTime: "08:30", EndTime: "09:00"},
	}
	sessions := []database.Session{
		{ActivityID: "run", Status: database.StatusCompleted},
		{ActivityID: "deep", Status: database.StatusActive},
		{ActivityID: "stretch", Status: database.StatusDismissed},
		{ActivityID: "call", Status: database.StatusNotified},
	}
	active := &sessions[1]

	board := ClassifyDay(activities, sessions, active, at("2026-02-10", 9, 30))

	require.NotNil(t, board.Active)
	assert.Equal(t, "deep", board.Active.ID)
	assert.Equal(t, []string{"run"}, ids(board.Completed))
	assert.Equal(t, []string{"email", "stretch", "call"}, ids(board.Missed))
	assert.Equal(t, []string{"lunch"}, ids(board.Upcoming))
}

func TestClassifyOtherDays(t *testing.T) {
	past := []database.Activity{{ID: "a", Date: "2026-02-09", StartTime: "20:00", EndTime: "21:00"}}
	future := []database.Activity{{ID: "b", Date: "2026-02-11", StartTime: "06:00", EndTime: "07:00"}}
	now := at("2026-02-10", 12, 0)

	assert.Equal(t, []string{"a"}, ids(ClassifyDay(past, nil, nil, now).Missed))
	assert.Equal(t, []string{"b"}, ids(ClassifyDay(future, nil, nil, now).Upcoming))
}

func ids(list []database.Activity) []string {
	var out []string
	for _, a := range list {
		out = append(out, a.ID)
	}
	return out
}
