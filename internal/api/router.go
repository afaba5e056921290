package api

import (
	"github.com/gin-gonic/gin"

	"tempo/internal/logger"
	"tempo/internal/services"
)

func NewRouter(sm *services.ServiceManager, log logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggerMiddleware(log))

	api := r.Group("/api")
	api.GET("/today", GetToday(sm, log))

	api.POST("/activities", PostActivity(sm, log))
	api.PATCH("/activities/:id", PatchActivity(sm, log))
	api.DELETE("/activities/:id", DeleteActivity(sm, log))
	api.POST("/activities/:id/clock-in", PostClockIn(sm, log))
	api.POST("/activities/:id/missed", PostMissed(sm, log, false))
	api.POST("/activities/:id/dismiss", PostMissed(sm, log, true))

	api.GET("/weeks/:week/activities", GetWeekActivities(sm, log))
	api.POST("/weeks/:week/copy", PostCopyWeek(sm, log))

	api.GET("/sessions/active", GetActiveSession(sm, log))
	api.POST("/sessions/:id/clock-out", PostClockOut(sm, log))

	api.GET("/reports/daily/:date", GetDailyReport(sm, log))
	api.GET("/reports/weekly/:week", GetWeeklyReport(sm, log))

	api.GET("/categories", GetCategories(sm, log))
	api.GET("/preferences", GetPreferences(sm, log))
	api.PUT("/preferences", PutPreferences(sm, log))
	api.GET("/backup", GetBackup(sm, log))
	api.POST("/backup", PostBackup(sm, log))

	return r
}
