package services

import (
	"time"

	"tempo/internal/database"
	"tempo/internal/utils"
)

// DayBoard раскладывает занятия дня по состояниям для экрана "сегодня".
type DayBoard struct {
	Active    *database.Activity  `json:"active"`
	Upcoming  []database.Activity `json:"upcoming"`
	Completed []database.Activity `json:"completed"`
	Missed    []database.Activity `json:"missed"`
}

// ClassifyDay is computed lazily: an activity whose window has passed with no
// clock-in lands in Missed even if no missed session has been written yet.
func ClassifyDay(activities []database.Activity, sessions []database.Session, active *database.Session, now time.Time) DayBoard {
	byActivity := make(map[string]database.Session, len(sessions))
	for _, s := range sessions {
		byActivity[s.ActivityID] = s
	}

	today := utils.CurrentDate(now)
	nowMin := utils.CurrentMinutes(now)

	var board DayBoard
	for _, a := range activities {
		if active != nil && active.ActivityID == a.ID {
			a := a
			board.Active = &a
			continue
		}

		s, hasSession := byActivity[a.ID]
		switch {
		case hasSession && s.Status.IsDone():
			board.Completed = append(board.Completed, a)
		case hasSession && s.Status.IsMissed():
			board.Missed = append(board.Missed, a)
		case (!hasSession || s.Status == database.StatusNotified) && windowPassed(a, today, nowMin):
			board.Missed = append(board.Missed, a)
		default:
			board.Upcoming = append(board.Upcoming, a)
		}
	}
	return board
}

func windowPassed(a database.Activity, today string, nowMin int) bool {
	if a.Date != today {
		return a.Date < today
	}
	return utils.TimeToMinutes(a.EndTime) < nowMin
}
