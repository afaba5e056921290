package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"tempo/internal/database"
	"tempo/internal/logger"
	"tempo/internal/utils"
)

// DefaultReportTTL — сколько сохраненный отчет считается свежим.
const DefaultReportTTL = 60 * time.Second

// partialThreshold: completed with less than 90% of the plan counts as partial.
const partialThreshold = 0.9

type ReportService struct {
	repository *database.Repository
	categories CategoryProvider
	clock      Clock
	ttl        time.Duration
	log        logger.Logger
}

func NewReportService(repo *database.Repository, categories CategoryProvider, clock Clock, ttl time.Duration, log logger.Logger) *ReportService {
	if ttl <= 0 {
		ttl = DefaultReportTTL
	}
	return &ReportService{
		repository: repo,
		categories: categories,
		clock:      clock,
		ttl:        ttl,
		log:        log,
	}
}

// roundPercent rounds half up.
func roundPercent(v float64) int {
	return int(math.Floor(v + 0.5))
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func (rs *ReportService) fresh(generatedAt time.Time) bool {
	return rs.clock.Now().Sub(generatedAt) < rs.ttl
}

// GenerateDailyReport строит отчет за дату или отдает сохраненный, если он свежий.
func (rs *ReportService) GenerateDailyReport(ctx context.Context, date string) (*database.DailyReport, error) {
	existing, err := rs.repository.GetDailyReport(ctx, date)
	if err != nil {
		return nil, err
	}
	if existing != nil && rs.fresh(existing.GeneratedAt) {
		return existing, nil
	}

	activities, err := rs.repository.GetActivitiesByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	sessions, err := rs.repository.GetSessionsByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	categories, err := rs.categories.Categories(ctx)
	if err != nil {
		return nil, err
	}

	report := buildDailyReport(date, activities, sessions, categoryNames(categories))
	report.ID = uuid.NewString()
	if existing != nil {
		report.ID = existing.ID
	}
	report.GeneratedAt = rs.clock.Now()

	if err := rs.repository.PutDailyReport(ctx, report); err != nil {
		return nil, err
	}
	rs.log.Debugf("📊 Дневной отчет %s: %d%% (%d/%d мин)", date, report.CompletionPercent, report.TotalActualMin, report.TotalPlannedMin)
	return &report, nil
}

func buildDailyReport(date string, activities []database.Activity, sessions []database.Session, names map[string]string) database.DailyReport {
	byActivity := make(map[string]database.Session, len(sessions))
	for _, s := range sessions {
		byActivity[s.ActivityID] = s
	}

	report := database.DailyReport{
		Date:              date,
		ActivitySummaries: make([]database.ActivityDaySummary, 0, len(activities)),
		CategoryBreakdown: []database.CategoryTime{},
	}
	if len(activities) > 0 {
		report.WeekID = activities[0].WeekID
	}

	catIndex := map[string]int{}
	for _, a := range activities {
		planned := a.PlannedDurationMin
		if planned < 0 {
			planned = 0
		}

		summary := database.ActivityDaySummary{
			ActivityID:         a.ID,
			Title:              a.Title,
			PlannedStartTime:   a.StartTime,
			PlannedEndTime:     a.EndTime,
			PlannedDurationMin: planned,
			Status:             database.StatusMissed,
			CategoryID:         a.CategoryID,
		}
		if s, ok := byActivity[a.ID]; ok {
			summary.Status = s.Status
			summary.ActualStartTime = s.ClockInTime
			summary.ActualEndTime = s.ClockOutTime
			if s.ActualDurationMin != nil {
				summary.ActualDurationMin = *s.ActualDurationMin
			}
		}
		if planned > 0 {
			summary.CompletionPercent = clampPercent(roundPercent(float64(summary.ActualDurationMin) / float64(planned) * 100))
		}

		report.TotalPlannedMin += planned
		report.TotalActualMin += summary.ActualDurationMin
		switch {
		case summary.Status.IsDone():
			report.ActivitiesCompleted++
		case summary.Status.IsMissed():
			report.ActivitiesMissed++
		}
		if summary.Status == database.StatusCompleted && float64(summary.ActualDurationMin) < float64(planned)*partialThreshold {
			report.ActivitiesPartial++
		}

		key := categoryKey(a.CategoryID)
		i, ok := catIndex[key]
		if !ok {
			i = len(report.CategoryBreakdown)
			catIndex[key] = i
			report.CategoryBreakdown = append(report.CategoryBreakdown, database.CategoryTime{
				CategoryID:   a.CategoryID,
				CategoryName: categoryName(names, a.CategoryID),
			})
		}
		report.CategoryBreakdown[i].PlannedMin += planned
		report.CategoryBreakdown[i].ActualMin += summary.ActualDurationMin

		report.ActivitySummaries = append(report.ActivitySummaries, summary)
	}

	report.ActivitiesPlanned = len(report.ActivitySummaries)
	if report.TotalPlannedMin > 0 {
		report.CompletionPercent = clampPercent(roundPercent(float64(report.TotalActualMin) / float64(report.TotalPlannedMin) * 100))
	}
	return report
}

// GenerateWeeklyReport агрегирует дневные отчеты недели; будущие дни не учитываются.
func (rs *ReportService) GenerateWeeklyReport(ctx context.Context, weekID string) (*database.WeeklyReport, error) {
	existing, err := rs.repository.GetWeeklyReport(ctx, weekID)
	if err != nil {
		return nil, err
	}
	if existing != nil && rs.fresh(existing.GeneratedAt) {
		return existing, nil
	}

	week, err := utils.WeekDates(weekID)
	if err != nil {
		return nil, err
	}

	today := utils.CurrentDate(rs.clock.Now())
	var daily []database.DailyReport
	for _, day := range week.Days {
		date := utils.FormatDate(day)
		if date > today {
			continue
		}
		r, err := rs.GenerateDailyReport(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("weekly report %s: %w", weekID, err)
		}
		daily = append(daily, *r)
	}

	report := buildWeeklyReport(weekID, week, daily)
	report.ID = uuid.NewString()
	if existing != nil {
		report.ID = existing.ID
	}
	report.GeneratedAt = rs.clock.Now()

	if err := rs.repository.PutWeeklyReport(ctx, report); err != nil {
		return nil, err
	}
	rs.log.Debugf("📈 Недельный отчет %s: %d%%", weekID, report.AvgCompletionPercent)
	return &report, nil
}

func buildWeeklyReport(weekID string, week utils.WeekRange, daily []database.DailyReport) database.WeeklyReport {
	report := database.WeeklyReport{
		WeekID:         weekID,
		StartDate:      utils.FormatDate(week.Start),
		EndDate:        utils.FormatDate(week.End),
		DailyScores:    make([]database.DayScore, 0, len(daily)),
		CategoryTrends: []database.CategoryTime{},
	}

	sum := 0
	for _, d := range daily {
		report.TotalPlannedMin += d.TotalPlannedMin
		report.TotalActualMin += d.TotalActualMin
		report.DailyScores = append(report.DailyScores, database.DayScore{
			Date:              d.Date,
			CompletionPercent: d.CompletionPercent,
			PlannedMin:        d.TotalPlannedMin,
			ActualMin:         d.TotalActualMin,
		})
		sum += d.CompletionPercent
	}

	if n := len(report.DailyScores); n > 0 {
		report.AvgCompletionPercent = roundPercent(float64(sum) / float64(n))

		sorted := make([]database.DayScore, n)
		copy(sorted, report.DailyScores)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].CompletionPercent > sorted[j].CompletionPercent
		})
		report.BestDay = &database.DayPercent{Date: sorted[0].Date, Percent: sorted[0].CompletionPercent}
		report.WorstDay = &database.DayPercent{Date: sorted[n-1].Date, Percent: sorted[n-1].CompletionPercent}
	}

	report.MostConsistentActivity, report.MostMissedActivity = consistency(daily)
	report.CategoryTrends = categoryTrends(daily)

	report.WrittenSummary = WrittenSummary(SummaryMetrics{
		AvgCompletionPercent: report.AvgCompletionPercent,
		TotalPlannedMin:      report.TotalPlannedMin,
		TotalActualMin:       report.TotalActualMin,
		BestDay:              report.BestDay,
		WorstDay:             report.WorstDay,
		MostConsistent:       report.MostConsistentActivity,
		MostMissed:           report.MostMissedActivity,
	})
	return report
}

// consistency группирует занятия по названию: повторяющееся занятие — это
// одинаковый title в разные дни. Учитываются только названия с 2+ повторами.
func consistency(daily []database.DailyReport) (*database.ActivityRate, *database.ActivityMissRate) {
	type tally struct{ planned, completed int }

	var titles []string
	tallies := map[string]*tally{}
	for _, d := range daily {
		for _, s := range d.ActivitySummaries {
			t, ok := tallies[s.Title]
			if !ok {
				t = &tally{}
				tallies[s.Title] = t
				titles = append(titles, s.Title)
			}
			t.planned++
			if s.Status.IsDone() {
				t.completed++
			}
		}
	}

	var best *database.ActivityRate
	var worst *database.ActivityMissRate
	for _, title := range titles {
		t := tallies[title]
		if t.planned < 2 {
			continue
		}
		rate := roundPercent(float64(t.completed) / float64(t.planned) * 100)
		if best == nil || rate > best.CompletionRate {
			best = &database.ActivityRate{Title: title, CompletionRate: rate}
		}
		if miss := 100 - rate; worst == nil || miss > worst.MissRate {
			worst = &database.ActivityMissRate{Title: title, MissRate: miss}
		}
	}
	return best, worst
}

func categoryTrends(daily []database.DailyReport) []database.CategoryTime {
	trends := []database.CategoryTime{}
	index := map[string]int{}
	for _, d := range daily {
		for _, c := range d.CategoryBreakdown {
			key := categoryKey(c.CategoryID)
			i, ok := index[key]
			if !ok {
				i = len(trends)
				index[key] = i
				trends = append(trends, database.CategoryTime{CategoryID: c.CategoryID, CategoryName: c.CategoryName})
			}
			trends[i].PlannedMin += c.PlannedMin
			trends[i].ActualMin += c.ActualMin
		}
	}
	return trends
}

// Invalidate сбрасывает сохраненные отчеты дня и его недели.
func (rs *ReportService) Invalidate(ctx context.Context, date string) error {
	d, err := utils.ParseDate(date)
	if err != nil {
		return fmt.Errorf("invalidate %s: %w", date, err)
	}
	if err := rs.repository.DeleteDailyReport(ctx, date); err != nil {
		return err
	}
	return rs.repository.DeleteWeeklyReport(ctx, utils.WeekID(d))
}

// InvalidateWeek сбрасывает недельный отчет и все дневные отчеты недели.
func (rs *ReportService) InvalidateWeek(ctx context.Context, weekID string) error {
	week, err := utils.WeekDates(weekID)
	if err != nil {
		return fmt.Errorf("invalidate %s: %w", weekID, err)
	}
	for _, day := range week.Days {
		if err := rs.repository.DeleteDailyReport(ctx, utils.FormatDate(day)); err != nil {
			return err
		}
	}
	return rs.repository.DeleteWeeklyReport(ctx, weekID)
}
