package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tempo/internal/database"
	"tempo/internal/logger"
	"tempo/internal/services"
	"tempo/internal/utils"
)

type CopyWeekRequest struct {
	To string `json:"to" binding:"required"`
}

type ClockOutRequest struct {
	EndTime *time.Time `json:"end_time,omitempty"`
}

type TodayResponse struct {
	Date     string              `json:"date"`
	Board    services.DayBoard   `json:"board"`
	Sessions []database.Session  `json:"sessions"`
	Active   *database.Session   `json:"active"`
	Plan     []database.Activity `json:"activities"`
}

func wantFresh(c *gin.Context) bool {
	return c.Query("fresh") == "1" || c.Query("fresh") == "true"
}

func GetToday(sm *services.ServiceManager, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		now := sm.Clock().Now()
		date := c.DefaultQuery("date", utils.CurrentDate(now))
		if _, err := utils.ParseDate(date); err != nil {
			HandleError(c, log, err, http.StatusBadRequest, "Invalid date")
			return
		}

		activities, err := sm.Activity.ListForDate(ctx, date)
		if err != nil {
			HandleError(c, log, err, http.StatusInternalServerError, "Failed to fetch activities")
			return
		}
		sessions, err := sm.Session.ListForDate(ctx, date)
		if err != nil {
			HandleError(c, log, err, http.StatusInternalServerError, "Failed to fetch sessions")
			return
		}
		active, err := sm.Session.Active(ctx)
		if err != nil {
			HandleError(c, log, err, http.StatusInternalServerError, "Failed to fetch active session")
			return
		}

		HandleSuccess(c, log, http.StatusOK, TodayResponse{
			Date:     date,
			Board:    services.ClassifyDay(activities, sessions, active, now),
			Sessions: sessions,
			Active:   active,
			Plan:     activities,
		}, nil)
	}
}

func PostActivity(sm *services.ServiceManager, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body services.ActivitySpec
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleError(c, log, err, http.StatusBadRequest, "Invalid JSON")
			return
		}
		body.StartTime = utils.NormalizeClock(body.StartTime)
		body.EndTime = utils.NormalizeClock(body.EndTime)
		if err := body.Validate(); err != nil {
			HandleError(c, log, err, http.StatusBadRequest, "Invalid activity")
			return
		}

		id, err := sm.Activity.Add(c.Request.Context(), body)
		if err != nil {
			HandleError(c, log, err, http.StatusInternalServerError, "Failed to save activity")
			return
		}
		HandleSuccess(c, log, http.StatusCreated, gin.H{"id": id}, nil)
	}
}

// lookupActivity пишет 404 и возвращает nil, если занятия нет.
func lookupActivity(c *gin.Context, sm *services.ServiceManager, log logger.Logger) *database.Activity {
	a, err := sm.Activity.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, log, err, http.StatusInternalServerError, "Failed to fetch activity")
		return nil
	}
	if a == nil {
		HandleError(c, log, services.ErrActivityNotFound, http.StatusNotFound, "Unknown activity")
		return nil
	}
	return a
}

func PatchActivity(sm *services.ServiceManager, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		a := lookupActivity(c, sm, log)
		if a == nil {
			return
		}

		var patch services.ActivityPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			HandleError(c, log, err, http.StatusBadRequest, "Invalid JSON")
			return
		}

		spec := services.ActivitySpec{Title: a.Title, Date: a.Date, StartTime: a.StartTime, EndTime: a.EndTime}
		if patch.Title != nil {
			spec.Title = *patch.Title
		}
		if patch.StartTime != nil {
			*patch.StartTime = utils.NormalizeClock(*patch.StartTime)
			spec.StartTime = *patch.StartTime
		}
		if patch.EndTime != nil {
			*patch.EndTime = utils.NormalizeClock(*patch.EndTime)
			spec.EndTime = *patch.EndTime
		}
		if err := spec.Validate(); err != nil {
			HandleError(c, log, err, http.StatusBadRequest, "Invalid activity")
			return
		}

		ctx := c.Request.Context()
		if err := sm.Activity.Update(ctx, a.ID, patch); err != nil {
			HandleError(c, log, err, http.StatusInternalServerError, "Failed to update activity")
			return
		}
		updated, err := sm.Activity.Get(ctx, a.ID)
		if err != nil {
			HandleError(c, log, err, http.StatusInternalServerError, "Failed to fetch activity")
			return
		}
		HandleSuccess(c, log, http.StatusOK, updated, nil)
	}
}

func DeleteActivity(sm *services.ServiceManager, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		a := lookupActivity(c, sm, log)
		if a == nil {
			return
		}
		if err := sm.Activity.Delete(c.Request.Context(), a.ID); err != nil {
			HandleError(c, log, err, http.StatusInternalServerError, "Failed to delete activity")
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func GetWeekActivities(sm *services.ServiceManager, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		weekID := c.Param("week")
		if _, err := utils.WeekDates(weekID); err != nil {
			HandleError(c, log, err, http.StatusBadRequest, "Invalid week")
			return
		}
		activities, err := sm.Activity.ListForWeek(c.Request.Context(), weekID)
		if err != nil {
			HandleError(c, log, err, http.StatusInternalServerError, "Failed to fetch activities")
			return
		}
		HandleSuccess(c, log, http.StatusOK, activities, map[string]any{"count": len(activities)})
	}
}

func PostCopyWeek(sm *services.ServiceManager, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		src := c.Param("week")
		var body CopyWeekRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleError(c, log, err, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if _, err := utils.WeekDates(src); err != nil {
			HandleError(c, log, err, http.StatusBadRequest, "Invalid week")
			return
		}
		if _, err := utils.WeekDates(body.To); err != nil {
			HandleError(c, log, err, http.StatusBadRequest, "Invalid week")
			return
		}

		n, err := sm.Activity.CopyWeek(c.Request.Context(), src, body.To)
		if err != nil {
			HandleError(c, log, err, http.StatusInternalServerError, "Failed to copy week")
			return
		}
		HandleSuccess(c, log, http.StatusCreated, gin.H{"copied": n, "from": src, "to": body.To}, nil)
	}
}

func PostClockIn(sm *services.ServiceManager, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := sm.Session.ClockIn(c.Request.Context(), c.Param("id"))
		if err != nil {
			HandleError(c, log, err, http.StatusInternalServerError, "Failed to clock in")
			return
		}
		if session == nil {
			HandleError(c, log, services.ErrActivityNotFound, http.StatusNotFound, "Unknown activity")
			return
		}
		HandleSuccess(c, log, http.StatusOK, session, nil)
	}
}

func PostMissed(sm *services.ServiceManager, log logger.Logger, dismiss bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		a := lookupActivity(c, sm, log)
		if a == nil {
			return
		}

		ctx := c.Request.Context()
		mark := sm.Session.MarkMissed
		if dismiss {
			mark = sm.Session.Dismiss
		}
		if err := mark(ctx, a.ID); err != nil {
			HandleError(c, log, err, http.StatusInternalServerError, "Failed to update session")
			return
		}

		s, err := sm.Session.ListForDate(ctx, a.Date)
		if err != nil {
			HandleError(c, log, err, http.StatusInternalServerError, "Failed to fetch session")
			return
		}
		for _, session := range s {
			if session.ActivityID == a.ID {
				HandleSuccess(c, log, http.StatusOK, session, nil)
				return
			}
		}
		HandleSuccess(c, log, http.StatusOK, nil, nil)
	}
}

func PostClockOut(sm *services.ServiceManager, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body ClockOutRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&body); err != nil {
				HandleError(c, log, err, http.StatusBadRequest, "Invalid JSON")
				return
			}
		}

		ctx := c.Request.Context()
		id := c.Param("id")
		if err := sm.Session.ClockOut(ctx, id, body.EndTime); err != nil {
			HandleError(c, log, err, http.StatusInternalServerError, "Failed to clock out")
			return
		}
		session, err := sm.Session.Get(ctx, id)
		if err != nil {
			HandleError(c, log, err, http.StatusInternalServerError, "Failed to fetch session")
			return
		}
		if session == nil {
			HandleError(c, log, errors.New("session not found"), http.StatusNotFound, "Unknown session")
			return
		}
		HandleSuccess(c, log, http.StatusOK, session, nil)
	}
}

func GetActiveSession(sm *services.ServiceManager, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		active, err := sm.Session.Active(ctx)
		if err != nil {
			HandleError(c, log, err, http.StatusInternalServerError, "Failed to fetch active session")
			return
		}
		pointer, err := sm.Preferences.LastActiveSession(ctx)
		if err != nil {
			HandleError(c, log, err, http.StatusInternalServerError, "Failed to fetch last active session")
			return
		}
		HandleSuccess(c, log, http.StatusOK, gin.H{"session": active, "last_active": pointer}, nil)
	}
}

func GetDailyReport(sm *services.ServiceManager, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		date := c.Param("date")
		if _, err := utils.ParseDate(date); err != nil {
			HandleError(c, log, err, http.StatusBadRequest, "Invalid date")
			return
		}
		if wantFresh(c) {
			if err := sm.Report.Invalidate(ctx, date); err != nil {
				HandleError(c, log, err, http.StatusInternalServerError, "Failed to invalidate report")
				return
			}
		}

		report, err := sm.Report.GenerateDailyReport(ctx, date)
		if err != nil {
			HandleError(c, log, err, http.StatusInternalServerError, "Failed to generate report")
			return
		}
		HandleSuccess(c, log, http.StatusOK, report, nil)
	}
}

func GetWeeklyReport(sm *services.ServiceManager, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		weekID := c.Param("week")
		if _, err := utils.WeekDates(weekID); err != nil {
			HandleError(c, log, err, http.StatusBadRequest, "Invalid week")
			return
		}
		if wantFresh(c) {
			if err := sm.Report.InvalidateWeek(ctx, weekID); err != nil {
				HandleError(c, log, err, http.StatusInternalServerError, "Failed to invalidate report")
				return
			}
		}

		report, err := sm.Report.GenerateWeeklyReport(ctx, weekID)
		if err != nil {
			HandleError(c, log, err, http.StatusInternalServerError, "Failed to generate report")
			return
		}
		HandleSuccess(c, log, http.StatusOK, report, nil)
	}
}

func GetCategories(sm *services.ServiceManager, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		categories, err := sm.Category.Categories(c.Request.Context())
		if err != nil {
			HandleError(c, log, err, http.StatusInternalServerError, "Failed to fetch categories")
			return
		}
		HandleSuccess(c, log, http.StatusOK, categories, nil)
	}
}

func GetPreferences(sm *services.ServiceManager, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		prefs, err := sm.Preferences.Preferences(c.Request.Context())
		if err != nil {
			HandleError(c, log, err, http.StatusInternalServerError, "Failed to fetch preferences")
			return
		}
		HandleSuccess(c, log, http.StatusOK, prefs, nil)
	}
}

func PutPreferences(sm *services.ServiceManager, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var prefs database.Preferences
		if err := c.ShouldBindJSON(&prefs); err != nil {
			HandleError(c, log, err, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if prefs.TimeFormat != "12h" && prefs.TimeFormat != "24h" {
			HandleError(c, log, errors.New("time_format must be 12h or 24h"), http.StatusBadRequest, "Invalid preferences")
			return
		}
		if err := sm.Preferences.SavePreferences(c.Request.Context(), prefs); err != nil {
			HandleError(c, log, err, http.StatusInternalServerError, "Failed to save preferences")
			return
		}
		HandleSuccess(c, log, http.StatusOK, prefs, nil)
	}
}

// GetBackup отдает снимок как есть, без конверта: файл должен читаться ReadBackup.
func GetBackup(sm *services.ServiceManager, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		backup, err := sm.Backup.Export(c.Request.Context())
		if err != nil {
			HandleError(c, log, err, http.StatusInternalServerError, "Failed to export")
			return
		}
		c.Header("Content-Disposition", `attachment; filename="tempo-backup.json"`)
		c.JSON(http.StatusOK, backup)
	}
}

func PostBackup(sm *services.ServiceManager, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		backup, err := services.ReadBackup(c.Request.Body)
		if err != nil {
			HandleError(c, log, err, http.StatusBadRequest, "Invalid backup")
			return
		}
		if err := sm.Backup.Import(c.Request.Context(), backup); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, services.ErrUnsupportedBackupVersion) {
				status = http.StatusBadRequest
			}
			HandleError(c, log, err, status, "Failed to import")
			return
		}
		HandleSuccess(c, log, http.StatusOK, gin.H{
			"activities": len(backup.Activities),
			"sessions":   len(backup.Sessions),
		}, nil)
	}
}
