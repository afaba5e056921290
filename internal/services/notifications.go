package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tempo/internal/database"
	"tempo/internal/logger"
	"tempo/internal/utils"
)

// AutoClockoutBuffer — через сколько после планового конца забытая сессия закрывается сама.
const AutoClockoutBuffer = 30 * time.Minute

// NotificationSender интерфейс для отправки уведомлений
type NotificationSender interface {
	SendMessage(text string) error
	SendActivityReminder(activity database.Activity) error
	SendMissedActivities(activities []database.Activity) error
}

type NotificationService struct {
	sender     NotificationSender
	activities *ActivityService
	sessions   *SessionService
	reports    *ReportService
	prefs      PreferenceStore
	clock      Clock
	log        logger.Logger
}

func NewNotificationService(sender NotificationSender, sm *ServiceManager) *NotificationService {
	return &NotificationService{
		sender:     sender,
		activities: sm.Activity,
		sessions:   sm.Session,
		reports:    sm.Report,
		prefs:      sm.Preferences,
		clock:      sm.clock,
		log:        sm.log,
	}
}

// CheckReminders напоминает о занятиях, которые начнутся в пределах NotifyBefore минут.
// Напоминание фиксируется сессией notified, поэтому уходит один раз.
func (ns *NotificationService) CheckReminders(ctx context.Context) {
	prefs, err := ns.prefs.Preferences(ctx)
	if err != nil {
		ns.log.Warnf("⚠️ Ошибка чтения настроек: %v", err)
		return
	}
	if !prefs.NotificationsEnabled {
		return
	}

	now := ns.clock.Now()
	today := utils.CurrentDate(now)
	nowMin := utils.CurrentMinutes(now)

	activities, err := ns.activities.ListForDate(ctx, today)
	if err != nil {
		ns.log.Warnf("⚠️ Ошибка получения занятий: %v", err)
		return
	}

	for _, a := range activities {
		start := utils.TimeToMinutes(a.StartTime)
		if nowMin < start-a.NotifyBefore || nowMin >= start {
			continue
		}
		created, err := ns.sessions.MarkNotified(ctx, a.ID)
		if err != nil {
			ns.log.Errorf("❌ Ошибка записи напоминания: %v", err)
			continue
		}
		if !created {
			continue
		}

		ns.log.Infof("📨 Напоминание: %s в %s", a.Title, a.StartTime)
		if err := ns.sender.SendActivityReminder(a); err != nil {
			ns.log.Errorf("❌ Ошибка отправки: %v", err)
		}
	}
}

// SweepOverdue закрывает забытые активные сессии и помечает пропущенными
// занятия, окно которых истекло без clock in.
func (ns *NotificationService) SweepOverdue(ctx context.Context) {
	now := ns.clock.Now()

	if active, err := ns.sessions.Active(ctx); err != nil {
		ns.log.Warnf("⚠️ Ошибка получения активной сессии: %v", err)
	} else if active != nil {
		ns.autoCompleteIfOverdue(ctx, *active, now)
	}

	today := utils.CurrentDate(now)
	yesterday := utils.CurrentDate(now.AddDate(0, 0, -1))

	var missed []database.Activity
	for _, date := range []string{yesterday, today} {
		activities, err := ns.activities.ListForDate(ctx, date)
		if err != nil {
			ns.log.Warnf("⚠️ Ошибка получения занятий: %v", err)
			return
		}
		sessions, err := ns.sessions.ListForDate(ctx, date)
		if err != nil {
			ns.log.Warnf("⚠️ Ошибка получения сессий: %v", err)
			return
		}

		board := ClassifyDay(activities, sessions, nil, now)
		bySession := make(map[string]bool, len(sessions))
		for _, s := range sessions {
			if s.Status.IsMissed() {
				bySession[s.ActivityID] = true
			}
		}
		for _, a := range board.Missed {
			if bySession[a.ID] {
				continue
			}
			if err := ns.sessions.MarkMissed(ctx, a.ID); err != nil {
				ns.log.Errorf("❌ Ошибка отметки пропуска: %v", err)
				continue
			}
			missed = append(missed, a)
		}
	}

	if len(missed) == 0 {
		return
	}
	ns.log.Infof("⏰ Пропущено занятий: %d", len(missed))

	prefs, err := ns.prefs.Preferences(ctx)
	if err != nil {
		ns.log.Warnf("⚠️ Ошибка чтения настроек: %v", err)
		return
	}
	if prefs.NotificationsEnabled && prefs.MissedClockInAlert {
		if err := ns.sender.SendMissedActivities(missed); err != nil {
			ns.log.Errorf("❌ Ошибка отправки: %v", err)
		}
	}
}

func (ns *NotificationService) autoCompleteIfOverdue(ctx context.Context, session database.Session, now time.Time) {
	activity, err := ns.activities.Get(ctx, session.ActivityID)
	if err != nil || activity == nil {
		return
	}
	end, err := utils.CombineDateTime(activity.Date, activity.EndTime)
	if err != nil || now.Before(end.Add(AutoClockoutBuffer)) {
		return
	}

	if err := ns.sessions.AutoComplete(ctx, session.ID, activity.EndTime); err != nil {
		ns.log.Errorf("❌ Ошибка автозавершения: %v", err)
		return
	}
	if err := ns.sender.SendMessage(fmt.Sprintf("⏱ <b>%s</b> завершено автоматически в %s", activity.Title, activity.EndTime)); err != nil {
		ns.log.Errorf("❌ Ошибка отправки: %v", err)
	}
}

// SendDailySummary отправляет итоги дня
func (ns *NotificationService) SendDailySummary(ctx context.Context) {
	prefs, err := ns.prefs.Preferences(ctx)
	if err != nil || !prefs.NotificationsEnabled || !prefs.DailyReportReminder {
		return
	}

	today := utils.CurrentDate(ns.clock.Now())
	report, err := ns.reports.GenerateDailyReport(ctx, today)
	if err != nil {
		ns.log.Warnf("⚠️ Ошибка получения сводки дня: %v", err)
		return
	}

	if err := ns.sender.SendMessage(FormatDailyReport(report, prefs.TimeFormat == "12h")); err != nil {
		ns.log.Errorf("❌ Ошибка отправки: %v", err)
	}
}

// SendWeeklySummary отправляет итоги недели
func (ns *NotificationService) SendWeeklySummary(ctx context.Context) {
	prefs, err := ns.prefs.Preferences(ctx)
	if err != nil || !prefs.NotificationsEnabled {
		return
	}

	weekID := utils.WeekID(ns.clock.Now().In(utils.Location()))
	report, err := ns.reports.GenerateWeeklyReport(ctx, weekID)
	if err != nil {
		ns.log.Warnf("⚠️ Ошибка получения сводки недели: %v", err)
		return
	}

	if err := ns.sender.SendMessage(FormatWeeklyReport(report)); err != nil {
		ns.log.Errorf("❌ Ошибка отправки: %v", err)
	}
}

// SendTodayOverview отправляет план на сегодня
func (ns *NotificationService) SendTodayOverview(ctx context.Context) {
	now := ns.clock.Now()
	today := utils.CurrentDate(now)
	activities, err := ns.activities.ListForDate(ctx, today)
	if err != nil {
		ns.log.Warnf("⚠️ Ошибка получения плана: %v", err)
		return
	}
	if len(activities) == 0 {
		return
	}

	prefs, err := ns.prefs.Preferences(ctx)
	if err != nil {
		ns.log.Warnf("⚠️ Ошибка чтения настроек: %v", err)
	}
	var message strings.Builder
	message.WriteString(fmt.Sprintf("📅 <b>План на %s</b>\n", today))
	message.WriteString(utils.TimezoneInfo(now) + "\n\n")
	for i, a := range activities {
		message.WriteString(FormatActivityLine(i+1, a, prefs.TimeFormat == "12h"))
	}

	if err := ns.sender.SendMessage(message.String()); err != nil {
		ns.log.Errorf("❌ Ошибка отправки: %v", err)
	}
}
