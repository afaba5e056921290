package services

import (
	"fmt"
	"strings"

	"tempo/internal/database"
	"tempo/internal/utils"
)

// Форматирование отчетов и списков для Telegram (HTML parse mode).

func FormatActivityLine(n int, a database.Activity, use12h bool) string {
	return fmt.Sprintf("%d. <b>%s</b>\n   %s – %s (%s)\n",
		n, a.Title,
		utils.FormatTimeDisplay(a.StartTime, use12h),
		utils.FormatTimeDisplay(a.EndTime, use12h),
		utils.FormatDuration(a.PlannedDurationMin))
}

func FormatDailyReport(r *database.DailyReport, use12h bool) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>Итоги дня %s</b>\n\n", r.Date))
	b.WriteString(fmt.Sprintf("⏱ %s из %s (%d%%)\n", utils.FormatDuration(r.TotalActualMin), utils.FormatDuration(r.TotalPlannedMin), r.CompletionPercent))
	b.WriteString(fmt.Sprintf("✅ Выполнено: %d/%d", r.ActivitiesCompleted, r.ActivitiesPlanned))
	if r.ActivitiesPartial > 0 {
		b.WriteString(fmt.Sprintf(" (частично: %d)", r.ActivitiesPartial))
	}
	b.WriteString(fmt.Sprintf("\n❌ Пропущено: %d\n", r.ActivitiesMissed))

	if len(r.ActivitySummaries) > 0 {
		b.WriteString("\n")
		for _, s := range r.ActivitySummaries {
			b.WriteString(fmt.Sprintf("%s %s %s – %d%%\n",
				utils.GetStatusEmoji(string(s.Status)),
				utils.FormatTimeDisplay(s.PlannedStartTime, use12h),
				s.Title, s.CompletionPercent))
		}
	}

	if len(r.CategoryBreakdown) > 0 {
		b.WriteString("\n<b>По категориям:</b>\n")
		for _, c := range r.CategoryBreakdown {
			b.WriteString(fmt.Sprintf("• %s: %s / %s\n", c.CategoryName, utils.FormatDuration(c.ActualMin), utils.FormatDuration(c.PlannedMin)))
		}
	}
	return b.String()
}

func FormatWeeklyReport(r *database.WeeklyReport) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>Неделя %s</b> (%s – %s)\n\n", r.WeekID, r.StartDate, r.EndDate))
	b.WriteString(fmt.Sprintf("⏱ %s из %s, в среднем %d%%\n\n", utils.FormatDuration(r.TotalActualMin), utils.FormatDuration(r.TotalPlannedMin), r.AvgCompletionPercent))

	for _, d := range r.DailyScores {
		b.WriteString(fmt.Sprintf("%s %s: %d%%\n", d.Date, utils.DayName(d.Date)[:3], d.CompletionPercent))
	}

	if len(r.CategoryTrends) > 0 {
		b.WriteString("\n<b>По категориям:</b>\n")
		for _, c := range r.CategoryTrends {
			b.WriteString(fmt.Sprintf("• %s: %s / %s\n", c.CategoryName, utils.FormatDuration(c.ActualMin), utils.FormatDuration(c.PlannedMin)))
		}
	}

	b.WriteString("\n<i>" + r.WrittenSummary + "</i>")
	return b.String()
}
