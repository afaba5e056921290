package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tempo/internal/database"
	"tempo/internal/services"
	"tempo/internal/utils"
)

func (b *Bot) SendMessageOrLogError(message string) {
	if err := b.SendMessage(message); err != nil {
		b.log.Errorf("❌ Ошибка отправки сообщения: %v", err)
	}
}

const helpText = `📚 <b>Tempo — список команд</b>

<b>День:</b>
/today [дата] - Занятия на день
/in [N] - Начать занятие N из /today
/out - Завершить текущее занятие
/miss [N] - Отметить пропуск
/dismiss [N] - Отказаться от занятия
/delete [N] - Удалить занятие

<b>Планирование:</b>
/plan [today|tomorrow|YYYY-MM-DD] HH:MM-HH:MM [daily|weekdays|days=0,2,4] [#категория] Название
Пример: /plan today 07:00-07:45 weekdays #health Пробежка
/copy [YYYY-Www] [YYYY-Www] - Скопировать неделю (по умолчанию текущую в следующую)

<b>Отчеты:</b>
/report [дата] - Отчет за день
/week [YYYY-Www] - Отчет за неделю

<b>Настройки:</b>
/categories - Категории
/format 12h|24h - Формат времени
/notify on|off - Уведомления
/backup - Выгрузить резервную копию`

func formatMissed(activities []database.Activity, use12h bool) string {
	var message strings.Builder
	message.WriteString(fmt.Sprintf("⏰ <b>ПРОПУЩЕННЫЕ ЗАНЯТИЯ (%d)</b>\n\n", len(activities)))
	for i, a := range activities {
		message.WriteString(services.FormatActivityLine(i+1, a, use12h))
	}
	message.WriteString("\n<i>Окно занятия закончилось без clock in.</i>")
	return message.String()
}

// formatDay — нумерация совпадает с порядком ListForDate, на нее ссылаются /in, /miss и т.д.
func formatDay(date string, activities []database.Activity, board services.DayBoard, use12h bool) string {
	if len(activities) == 0 {
		return fmt.Sprintf("📭 На %s занятий нет", date)
	}

	status := make(map[string]string, len(activities))
	if board.Active != nil {
		status[board.Active.ID] = "active"
	}
	for _, a := range board.Completed {
		status[a.ID] = "completed"
	}
	for _, a := range board.Missed {
		status[a.ID] = "missed"
	}

	var message strings.Builder
	message.WriteString(fmt.Sprintf("📅 <b>%s, %s</b>\n\n", utils.DayName(date), date))
	for i, a := range activities {
		message.WriteString(fmt.Sprintf("%s %d. <b>%s</b>\n   %s – %s (%s)\n",
			utils.GetStatusEmoji(status[a.ID]), i+1, a.Title,
			utils.FormatTimeDisplay(a.StartTime, use12h),
			utils.FormatTimeDisplay(a.EndTime, use12h),
			utils.FormatDuration(a.PlannedDurationMin)))
	}
	return message.String()
}

type planCommand struct {
	spec     services.ActivitySpec
	category string
}

var errPlanFormat = errors.New("формат: /plan [today|tomorrow|YYYY-MM-DD] HH:MM-HH:MM [daily|weekdays|days=0,2,4] [#категория] Название")

// parsePlan разбирает аргументы /plan. Дата по умолчанию — сегодня.
func parsePlan(args string, now time.Time) (planCommand, error) {
	fields := strings.Fields(args)
	var cmd planCommand
	if len(fields) == 0 {
		return cmd, errPlanFormat
	}

	cmd.spec.Date = utils.CurrentDate(now)
	switch fields[0] {
	case "today":
		fields = fields[1:]
	case "tomorrow":
		cmd.spec.Date = utils.CurrentDate(now.AddDate(0, 0, 1))
		fields = fields[1:]
	default:
		if _, err := utils.ParseDate(fields[0]); err == nil {
			cmd.spec.Date = fields[0]
			fields = fields[1:]
		}
	}

	if len(fields) == 0 {
		return cmd, errPlanFormat
	}
	start, end, ok := strings.Cut(fields[0], "-")
	if !ok {
		return cmd, errPlanFormat
	}
	cmd.spec.StartTime, cmd.spec.EndTime = utils.NormalizeClock(start), utils.NormalizeClock(end)
	fields = fields[1:]

	if len(fields) > 0 {
		switch rule := fields[0]; {
		case rule == "daily":
			cmd.spec.RepeatRule = &database.RepeatRule{Type: database.RepeatDaily}
			fields = fields[1:]
		case rule == "weekdays":
			cmd.spec.RepeatRule = &database.RepeatRule{Type: database.RepeatWeekdays}
			fields = fields[1:]
		case strings.HasPrefix(rule, "days="):
			days, err := parseDays(strings.TrimPrefix(rule, "days="))
			if err != nil {
				return cmd, err
			}
			cmd.spec.RepeatRule = &database.RepeatRule{Type: database.RepeatCustom, Days: days}
			fields = fields[1:]
		}
	}

	if len(fields) > 0 && strings.HasPrefix(fields[0], "#") {
		cmd.category = strings.TrimPrefix(fields[0], "#")
		fields = fields[1:]
	}

	cmd.spec.Title = strings.Join(fields, " ")
	if err := cmd.spec.Validate(); err != nil {
		return cmd, err
	}
	return cmd, nil
}

func parseDays(s string) ([]int, error) {
	var days []int
	for _, part := range strings.Split(s, ",") {
		d, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("день недели %q: %w", part, err)
		}
		days = append(days, d)
	}
	return days, nil
}

// parseIndex переводит "N" из /today в индекс списка.
func parseIndex(arg string, n int) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || i < 1 || i > n {
		return 0, fmt.Errorf("номер занятия должен быть от 1 до %d", n)
	}
	return i - 1, nil
}
