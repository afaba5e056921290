package telegram

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tempo/internal/database"
	"tempo/internal/services"
	"tempo/internal/utils"
)

// handlers.go - обработчики команд Telegram бота

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	b.SendMessageOrLogError("🎯 <b>Tempo</b> — план, clock in/out и отчеты.\n\n" + helpText)
}

func (b *Bot) handleHelp(ctx context.Context, msg *tgbotapi.Message) {
	b.SendMessageOrLogError(helpText)
}

func (b *Bot) today() string {
	return utils.CurrentDate(b.services.Clock().Now())
}

func (b *Bot) handleToday(ctx context.Context, msg *tgbotapi.Message) {
	date := b.today()
	if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
		if _, err := utils.ParseDate(arg); err != nil {
			b.SendMessageOrLogError("❌ Дата должна быть в формате YYYY-MM-DD")
			return
		}
		date = arg
	}

	activities, err := b.services.Activity.ListForDate(ctx, date)
	if err != nil {
		b.log.Errorf("❌ Ошибка получения занятий: %v", err)
		b.SendMessageOrLogError("❌ Ошибка получения занятий")
		return
	}
	sessions, err := b.services.Session.ListForDate(ctx, date)
	if err != nil {
		b.log.Errorf("❌ Ошибка получения сессий: %v", err)
		b.SendMessageOrLogError("❌ Ошибка получения сессий")
		return
	}
	active, err := b.services.Session.Active(ctx)
	if err != nil {
		b.log.Errorf("❌ Ошибка получения активной сессии: %v", err)
	}

	board := services.ClassifyDay(activities, sessions, active, b.services.Clock().Now())
	message := formatDay(date, activities, board, b.use12h(ctx))
	if active != nil && board.Active != nil {
		b.sendWithKeyboard(message, sessionKeyboard(active.ID))
		return
	}
	b.SendMessageOrLogError(message)
}

func (b *Bot) handlePlan(ctx context.Context, msg *tgbotapi.Message) {
	cmd, err := parsePlan(msg.CommandArguments(), b.services.Clock().Now())
	if err != nil {
		b.SendMessageOrLogError("❌ " + err.Error())
		return
	}

	if cmd.category != "" {
		id, err := b.resolveCategory(ctx, cmd.category)
		if err != nil {
			b.SendMessageOrLogError("❌ " + err.Error())
			return
		}
		cmd.spec.CategoryID = &id
	}

	if _, err := b.services.Activity.Add(ctx, cmd.spec); err != nil {
		b.log.Errorf("❌ Ошибка добавления занятия: %v", err)
		b.SendMessageOrLogError("❌ Ошибка добавления занятия")
		return
	}

	repeat := ""
	if cmd.spec.RepeatRule != nil {
		repeat = fmt.Sprintf("\n🔁 %s", cmd.spec.RepeatRule.Type)
	}
	b.SendMessageOrLogError(fmt.Sprintf("✅ Добавлено занятие:\n<b>%s</b>\n📅 %s ⏰ %s – %s%s",
		cmd.spec.Title, cmd.spec.Date, cmd.spec.StartTime, cmd.spec.EndTime, repeat))
}

func (b *Bot) resolveCategory(ctx context.Context, name string) (string, error) {
	categories, err := b.services.Category.Categories(ctx)
	if err != nil {
		return "", err
	}
	for _, c := range categories {
		if strings.EqualFold(c.Name, name) || strings.EqualFold(c.ID, name) {
			return c.ID, nil
		}
	}
	return "", fmt.Errorf("категория %q не найдена, см. /categories", name)
}

// activityByArg находит занятие по номеру из /today.
func (b *Bot) activityByArg(ctx context.Context, msg *tgbotapi.Message) (*database.Activity, bool) {
	activities, err := b.services.Activity.ListForDate(ctx, b.today())
	if err != nil {
		b.log.Errorf("❌ Ошибка получения занятий: %v", err)
		b.SendMessageOrLogError("❌ Ошибка получения занятий")
		return nil, false
	}
	if len(activities) == 0 {
		b.SendMessageOrLogError("📭 На сегодня занятий нет")
		return nil, false
	}

	i, err := parseIndex(msg.CommandArguments(), len(activities))
	if err != nil {
		b.SendMessageOrLogError("❌ " + err.Error())
		return nil, false
	}
	return &activities[i], true
}

func (b *Bot) handleClockIn(ctx context.Context, msg *tgbotapi.Message) {
	if a, ok := b.activityByArg(ctx, msg); ok {
		b.clockIn(ctx, a.ID)
	}
}

func (b *Bot) clockIn(ctx context.Context, activityID string) {
	session, err := b.services.Session.ClockIn(ctx, activityID)
	if err != nil {
		b.log.Errorf("❌ Ошибка clock in: %v", err)
		b.SendMessageOrLogError("❌ Ошибка clock in")
		return
	}
	if session == nil {
		b.SendMessageOrLogError("❌ Занятие не найдено")
		return
	}
	if session.Status != database.StatusActive {
		b.SendMessageOrLogError(fmt.Sprintf("%s Занятие уже закрыто: %s",
			utils.GetStatusEmoji(string(session.Status)), utils.GetStatusName(string(session.Status))))
		return
	}

	message := "▶️ Занятие начато"
	if session.WasLate {
		message += fmt.Sprintf(" (опоздание %s)", utils.FormatDuration(session.LateByMin))
	}
	b.sendWithKeyboard(message, sessionKeyboard(session.ID))
}

func (b *Bot) handleClockOut(ctx context.Context, msg *tgbotapi.Message) {
	active, err := b.services.Session.Active(ctx)
	if err != nil {
		b.log.Errorf("❌ Ошибка получения активной сессии: %v", err)
		b.SendMessageOrLogError("❌ Ошибка получения активной сессии")
		return
	}
	if active == nil {
		b.SendMessageOrLogError("⏸ Сейчас ничего не запущено")
		return
	}
	b.clockOut(ctx, active.ID)
}

func (b *Bot) clockOut(ctx context.Context, sessionID string) {
	if err := b.services.Session.ClockOut(ctx, sessionID, nil); err != nil {
		b.log.Errorf("❌ Ошибка clock out: %v", err)
		b.SendMessageOrLogError("❌ Ошибка clock out")
		return
	}

	session, err := b.services.Session.Get(ctx, sessionID)
	if err != nil || session == nil || session.ActualDurationMin == nil {
		b.SendMessageOrLogError("⏹ Готово")
		return
	}
	b.SendMessageOrLogError(fmt.Sprintf("⏹ Занятие завершено: %s", utils.FormatDuration(*session.ActualDurationMin)))
}

func (b *Bot) handleMiss(ctx context.Context, msg *tgbotapi.Message) {
	a, ok := b.activityByArg(ctx, msg)
	if !ok {
		return
	}
	if err := b.services.Session.MarkMissed(ctx, a.ID); err != nil {
		b.log.Errorf("❌ Ошибка отметки пропуска: %v", err)
		b.SendMessageOrLogError("❌ Ошибка отметки пропуска")
		return
	}
	b.SendMessageOrLogError(fmt.Sprintf("❌ %s — пропущено", a.Title))
}

func (b *Bot) handleDismiss(ctx context.Context, msg *tgbotapi.Message) {
	if a, ok := b.activityByArg(ctx, msg); ok {
		b.dismiss(ctx, a.ID)
	}
}

func (b *Bot) dismiss(ctx context.Context, activityID string) {
	if err := b.services.Session.Dismiss(ctx, activityID); err != nil {
		b.log.Errorf("❌ Ошибка: %v", err)
		b.SendMessageOrLogError("❌ Ошибка сохранения")
		return
	}
	b.SendMessageOrLogError("➖ Занятие пропущено")
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) {
	a, ok := b.activityByArg(ctx, msg)
	if !ok {
		return
	}
	if err := b.services.Activity.Delete(ctx, a.ID); err != nil {
		b.log.Errorf("❌ Ошибка удаления: %v", err)
		b.SendMessageOrLogError("❌ Ошибка удаления занятия")
		return
	}
	b.SendMessageOrLogError(fmt.Sprintf("🗑 Удалено: %s", a.Title))
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) {
	date := b.today()
	if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
		if _, err := utils.ParseDate(arg); err != nil {
			b.SendMessageOrLogError("❌ Дата должна быть в формате YYYY-MM-DD")
			return
		}
		date = arg
	}

	report, err := b.services.Report.GenerateDailyReport(ctx, date)
	if err != nil {
		b.log.Errorf("❌ Ошибка отчета: %v", err)
		b.SendMessageOrLogError("❌ Ошибка получения отчета")
		return
	}
	b.SendMessageOrLogError(services.FormatDailyReport(report, b.use12h(ctx)))
}

func (b *Bot) handleWeek(ctx context.Context, msg *tgbotapi.Message) {
	weekID := utils.WeekID(b.services.Clock().Now().In(utils.Location()))
	if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
		weekID = arg
	}

	report, err := b.services.Report.GenerateWeeklyReport(ctx, weekID)
	if err != nil {
		b.log.Errorf("❌ Ошибка недельного отчета: %v", err)
		b.SendMessageOrLogError("❌ Ошибка получения сводки за неделю")
		return
	}
	b.SendMessageOrLogError(services.FormatWeeklyReport(report))
}

func (b *Bot) handleCopyWeek(ctx context.Context, msg *tgbotapi.Message) {
	now := b.services.Clock().Now().In(utils.Location())
	src := utils.WeekID(now)
	dst := utils.WeekID(now.AddDate(0, 0, 7))

	args := strings.Fields(msg.CommandArguments())
	switch len(args) {
	case 0:
	case 2:
		src, dst = args[0], args[1]
	default:
		b.SendMessageOrLogError("❌ Формат: /copy [YYYY-Www] [YYYY-Www]")
		return
	}
	if _, err := utils.WeekDates(src); err != nil {
		b.SendMessageOrLogError("❌ Неделя должна быть в формате YYYY-Www")
		return
	}

	n, err := b.services.Activity.CopyWeek(ctx, src, dst)
	if err != nil {
		b.log.Errorf("❌ Ошибка копирования недели: %v", err)
		b.SendMessageOrLogError("❌ Ошибка копирования недели")
		return
	}
	b.SendMessageOrLogError(fmt.Sprintf("📋 Скопировано занятий: %d (%s → %s)", n, src, dst))
}

func (b *Bot) handleCategories(ctx context.Context, msg *tgbotapi.Message) {
	categories, err := b.services.Category.Categories(ctx)
	if err != nil {
		b.SendMessageOrLogError("❌ Ошибка получения категорий")
		return
	}

	var message strings.Builder
	message.WriteString("🏷 <b>Категории</b>\n\n")
	for _, c := range categories {
		message.WriteString(fmt.Sprintf("%s %s — #%s\n", utils.GetCategoryEmoji(c.Icon), c.Name, strings.ToLower(c.Name)))
	}
	b.SendMessageOrLogError(message.String())
}

func (b *Bot) handleTimeFormat(ctx context.Context, msg *tgbotapi.Message) {
	format := strings.TrimSpace(msg.CommandArguments())
	if format != "12h" && format != "24h" {
		b.SendMessageOrLogError("❌ Формат: /format 12h|24h")
		return
	}
	b.updatePreferences(ctx, func(p *database.Preferences) { p.TimeFormat = format }, "✅ Формат времени: "+format)
}

func (b *Bot) handleNotify(ctx context.Context, msg *tgbotapi.Message) {
	switch strings.TrimSpace(msg.CommandArguments()) {
	case "on":
		b.updatePreferences(ctx, func(p *database.Preferences) { p.NotificationsEnabled = true }, "🔔 Уведомления включены")
	case "off":
		b.updatePreferences(ctx, func(p *database.Preferences) { p.NotificationsEnabled = false }, "🔕 Уведомления выключены")
	default:
		b.SendMessageOrLogError("❌ Формат: /notify on|off")
	}
}

func (b *Bot) updatePreferences(ctx context.Context, edit func(*database.Preferences), done string) {
	prefs, err := b.services.Preferences.Preferences(ctx)
	if err != nil {
		b.SendMessageOrLogError("❌ Ошибка чтения настроек")
		return
	}
	edit(&prefs)
	if err := b.services.Preferences.SavePreferences(ctx, prefs); err != nil {
		b.SendMessageOrLogError("❌ Ошибка сохранения настроек")
		return
	}
	b.SendMessageOrLogError(done)
}

func (b *Bot) handleBackup(ctx context.Context, msg *tgbotapi.Message) {
	backup, err := b.services.Backup.Export(ctx)
	if err != nil {
		b.log.Errorf("❌ Ошибка экспорта: %v", err)
		b.SendMessageOrLogError("❌ Ошибка экспорта")
		return
	}

	var buf bytes.Buffer
	if err := services.WriteBackup(&buf, backup); err != nil {
		b.SendMessageOrLogError("❌ Ошибка экспорта")
		return
	}
	name := fmt.Sprintf("tempo-backup-%s.json", b.today())
	if err := b.sendDocument(name, buf.Bytes()); err != nil {
		b.log.Errorf("❌ Ошибка отправки файла: %v", err)
		b.SendMessageOrLogError("❌ Не удалось отправить файл")
	}
}
