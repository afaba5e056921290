package services

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"tempo/internal/database"
	"tempo/internal/logger"
	"tempo/internal/utils"
)

var validate = validator.New()

const defaultNotifyBefore = 5

// ActivitySpec — входные данные для нового занятия.
type ActivitySpec struct {
	Title        string               `json:"title" validate:"required,max=200"`
	Date         string               `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime    string               `json:"start_time" validate:"required,datetime=15:04"`
	EndTime      string               `json:"end_time" validate:"required,datetime=15:04"`
	CategoryID   *string              `json:"category_id,omitempty"`
	NotifyBefore *int                 `json:"notify_before,omitempty" validate:"omitempty,gte=0,lte=1440"`
	RepeatRule   *database.RepeatRule `json:"repeat_rule,omitempty"`
}

// Validate is meant for presentation layers. The store itself accepts
// whatever it is given.
func (s ActivitySpec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidActivity, err)
	}
	if utils.TimeToMinutes(s.EndTime) <= utils.TimeToMinutes(s.StartTime) {
		return fmt.Errorf("%w: end time %s is not after start time %s", ErrInvalidActivity, s.EndTime, s.StartTime)
	}
	if rule := s.RepeatRule; rule != nil {
		switch rule.Type {
		case database.RepeatDaily, database.RepeatWeekdays:
		case database.RepeatCustom:
			for _, d := range rule.Days {
				if d < 0 || d > 6 {
					return fmt.Errorf("%w: repeat day %d out of range", ErrInvalidActivity, d)
				}
			}
		default:
			return fmt.Errorf("%w: unknown repeat type %q", ErrInvalidActivity, rule.Type)
		}
	}
	return nil
}

// ActivityPatch — частичное обновление; nil поля не меняются.
type ActivityPatch struct {
	Title         *string `json:"title,omitempty"`
	StartTime     *string `json:"start_time,omitempty"`
	EndTime       *string `json:"end_time,omitempty"`
	CategoryID    *string `json:"category_id,omitempty"`
	ClearCategory bool    `json:"clear_category,omitempty"`
	NotifyBefore  *int    `json:"notify_before,omitempty"`
}

type ActivityService struct {
	repository *database.Repository
	clock      Clock
	log        logger.Logger
}

func NewActivityService(repo *database.Repository, clock Clock, log logger.Logger) *ActivityService {
	return &ActivityService{
		repository: repo,
		clock:      clock,
		log:        log,
	}
}

// Add создает занятие. С правилом повтора строки сразу разворачиваются
// по дням недели, к которой относится дата; возвращается id первой строки.
func (as *ActivityService) Add(ctx context.Context, spec ActivitySpec) (string, error) {
	date, err := utils.ParseDate(spec.Date)
	if err != nil {
		return "", fmt.Errorf("add activity: %w", err)
	}

	notifyBefore := defaultNotifyBefore
	if spec.NotifyBefore != nil {
		notifyBefore = *spec.NotifyBefore
	}

	now := as.clock.Now()
	base := database.Activity{
		ID:                 uuid.NewString(),
		WeekID:             utils.WeekID(date),
		DayOfWeek:          utils.DayOfWeek(date),
		Date:               spec.Date,
		Title:              spec.Title,
		StartTime:          spec.StartTime,
		EndTime:            spec.EndTime,
		PlannedDurationMin: utils.DurationMin(spec.StartTime, spec.EndTime),
		CategoryID:         spec.CategoryID,
		NotifyBefore:       notifyBefore,
		RepeatRule:         spec.RepeatRule,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	activities := expandRecurrence(base)
	err = as.repository.WithTx(ctx, func(tx *database.Repository) error {
		for _, a := range activities {
			if err := tx.AddActivity(ctx, a); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("add activity: %w", err)
	}

	as.log.Infof("📝 Добавлено занятие %q (%s %s-%s), строк: %d", spec.Title, spec.Date, spec.StartTime, spec.EndTime, len(activities))
	return activities[0].ID, nil
}

// expandRecurrence разворачивает правило повтора в строки по дням недели.
// Если ни один день не подошел, остается одна исходная строка.
func expandRecurrence(base database.Activity) []database.Activity {
	if base.RepeatRule == nil {
		return []database.Activity{base}
	}

	week, err := utils.WeekDates(base.WeekID)
	if err != nil {
		return []database.Activity{base}
	}

	var out []database.Activity
	for _, day := range week.Days {
		dow := utils.DayOfWeek(day)
		if !matchesRule(*base.RepeatRule, dow) {
			continue
		}
		a := base
		a.ID = uuid.NewString()
		a.Date = utils.FormatDate(day)
		a.DayOfWeek = dow
		out = append(out, a)
	}

	if len(out) == 0 {
		return []database.Activity{base}
	}
	return out
}

func matchesRule(rule database.RepeatRule, dow int) bool {
	switch rule.Type {
	case database.RepeatDaily:
		return true
	case database.RepeatWeekdays:
		return dow <= 4
	case database.RepeatCustom:
		for _, d := range rule.Days {
			if d == dow {
				return true
			}
		}
	}
	return false
}

// Update применяет patch; при изменении начала или конца пересчитывает план.
// Отсутствующее занятие молча пропускается.
func (as *ActivityService) Update(ctx context.Context, id string, patch ActivityPatch) error {
	return as.repository.WithTx(ctx, func(tx *database.Repository) error {
		a, err := tx.GetActivity(ctx, id)
		if err != nil {
			return fmt.Errorf("update activity: %w", err)
		}
		if a == nil {
			as.log.Debugf("update: activity %s not found", id)
			return nil
		}

		if patch.Title != nil {
			a.Title = *patch.Title
		}
		if patch.StartTime != nil {
			a.StartTime = *patch.StartTime
		}
		if patch.EndTime != nil {
			a.EndTime = *patch.EndTime
		}
		if patch.StartTime != nil || patch.EndTime != nil {
			a.PlannedDurationMin = utils.DurationMin(a.StartTime, a.EndTime)
		}
		if patch.ClearCategory {
			a.CategoryID = nil
		} else if patch.CategoryID != nil {
			a.CategoryID = patch.CategoryID
		}
		if patch.NotifyBefore != nil {
			a.NotifyBefore = *patch.NotifyBefore
		}
		a.UpdatedAt = as.clock.Now()

		return tx.UpdateActivity(ctx, *a)
	})
}

// Delete удаляет занятие вместе со всеми его сессиями.
func (as *ActivityService) Delete(ctx context.Context, id string) error {
	err := as.repository.WithTx(ctx, func(tx *database.Repository) error {
		if err := tx.DeleteSessionsByActivity(ctx, id); err != nil {
			return err
		}
		return tx.DeleteActivity(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete activity %s: %w", id, err)
	}
	as.log.Infof("🗑 Удалено занятие %s", id)
	return nil
}

func (as *ActivityService) Get(ctx context.Context, id string) (*database.Activity, error) {
	return as.repository.GetActivity(ctx, id)
}

func (as *ActivityService) ListForDate(ctx context.Context, date string) ([]database.Activity, error) {
	return as.repository.GetActivitiesByDate(ctx, date)
}

func (as *ActivityService) ListForWeek(ctx context.Context, weekID string) ([]database.Activity, error) {
	return as.repository.GetActivitiesByWeek(ctx, weekID)
}

// CopyWeek клонирует все занятия недели src в неделю dst по дню недели.
// Сессии не копируются. Возвращает число созданных занятий.
func (as *ActivityService) CopyWeek(ctx context.Context, src, dst string) (int, error) {
	target, err := utils.WeekDates(dst)
	if err != nil {
		return 0, fmt.Errorf("copy week: %w", err)
	}

	now := as.clock.Now()
	copied := 0
	err = as.repository.WithTx(ctx, func(tx *database.Repository) error {
		source, err := tx.GetActivitiesByWeek(ctx, src)
		if err != nil {
			return err
		}
		for _, a := range source {
			if a.DayOfWeek < 0 || a.DayOfWeek > 6 {
				continue
			}
			a.ID = uuid.NewString()
			a.WeekID = dst
			a.Date = utils.FormatDate(target.Days[a.DayOfWeek])
			a.CreatedAt = now
			a.UpdatedAt = now
			if err := tx.AddActivity(ctx, a); err != nil {
				return err
			}
			copied++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("copy week %s -> %s: %w", src, dst, err)
	}

	as.log.Infof("📋 Неделя %s скопирована в %s: %d занятий", src, dst, copied)
	return copied, nil
}
