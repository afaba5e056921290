package app

import (
	"strings"

	"tempo/internal/database"
	"tempo/internal/logger"
)

// logSender пишет уведомления в лог, когда Telegram не настроен.
type logSender struct {
	log logger.Logger
}

func (s logSender) SendMessage(text string) error {
	s.log.Infof("📨 %s", text)
	return nil
}

func (s logSender) SendActivityReminder(a database.Activity) error {
	s.log.Infof("🔔 Скоро: %s в %s", a.Title, a.StartTime)
	return nil
}

func (s logSender) SendMissedActivities(activities []database.Activity) error {
	titles := make([]string, 0, len(activities))
	for _, a := range activities {
		titles = append(titles, a.Title)
	}
	s.log.Infof("❌ Пропущено: %s", strings.Join(titles, ", "))
	return nil
}
