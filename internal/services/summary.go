package services

import (
	"fmt"
	"strings"

	"tempo/internal/database"
	"tempo/internal/utils"
)

// SummaryMetrics — входные данные для текстового итога недели.
type SummaryMetrics struct {
	AvgCompletionPercent int
	TotalPlannedMin      int
	TotalActualMin       int
	BestDay              *database.DayPercent
	WorstDay             *database.DayPercent
	MostConsistent       *database.ActivityRate
	MostMissed           *database.ActivityMissRate
}

// WrittenSummary собирает короткий отзыв о неделе из готовых метрик.
func WrittenSummary(m SummaryMetrics) string {
	parts := []string{
		fmt.Sprintf("This week you completed %d%% of your planned activities, totaling %s out of %s planned.",
			m.AvgCompletionPercent, utils.FormatDuration(m.TotalActualMin), utils.FormatDuration(m.TotalPlannedMin)),
	}

	if m.BestDay != nil {
		parts = append(parts, fmt.Sprintf("Your strongest day was %s at %d%% completion.",
			utils.DayName(m.BestDay.Date), m.BestDay.Percent))
	}
	if m.WorstDay != nil && m.WorstDay.Percent < 80 {
		parts = append(parts, fmt.Sprintf("%s was more challenging with %d%% completion.",
			utils.DayName(m.WorstDay.Date), m.WorstDay.Percent))
	}
	if m.MostConsistent != nil {
		parts = append(parts, fmt.Sprintf("\"%s\" was your most consistent activity at %d%% follow-through.",
			m.MostConsistent.Title, m.MostConsistent.CompletionRate))
	}
	if m.MostMissed != nil && m.MostMissed.MissRate > 40 {
		parts = append(parts, fmt.Sprintf("Consider rescheduling \"%s\" — it had a %d%% miss rate.",
			m.MostMissed.Title, m.MostMissed.MissRate))
	}

	switch {
	case m.AvgCompletionPercent >= 90:
		parts = append(parts, "Outstanding consistency — keep up the great work!")
	case m.AvgCompletionPercent >= 70:
		parts = append(parts, "Solid week overall. Small improvements in consistency will compound over time.")
	case m.AvgCompletionPercent >= 50:
		parts = append(parts, "Consider reducing planned hours by 15-20% to build sustainable habits.")
	default:
		parts = append(parts, "This week was tough. Try focusing on just 2-3 key activities next week and build from there.")
	}

	return strings.Join(parts, " ")
}
