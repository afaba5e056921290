package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"tempo/internal/database"
	"tempo/internal/logger"
	"tempo/internal/utils"
)

// SessionService — машина состояний сессий: clock in/out, автозавершение, пропуски.
// Переход в terminal-статус окончательный.
type SessionService struct {
	repository *database.Repository
	prefs      PreferenceStore
	clock      Clock
	log        logger.Logger
}

func NewSessionService(repo *database.Repository, prefs PreferenceStore, clock Clock, log logger.Logger) *SessionService {
	return &SessionService{
		repository: repo,
		prefs:      prefs,
		clock:      clock,
		log:        log,
	}
}

// roundMinutes rounds half up, like the rest of the report math.
func roundMinutes(d time.Duration) int {
	return int(math.Floor(float64(d.Milliseconds())/60000 + 0.5))
}

// ClockIn открывает сессию занятия на его дату. Другая активная сессия
// закрывается в тот же момент и в той же транзакции.
// Returns nil when the activity does not exist.
func (ss *SessionService) ClockIn(ctx context.Context, activityID string) (*database.Session, error) {
	now := ss.clock.Now()
	var result *database.Session
	opened := false

	err := ss.repository.WithTx(ctx, func(tx *database.Repository) error {
		activity, err := tx.GetActivity(ctx, activityID)
		if err != nil {
			return err
		}
		if activity == nil {
			ss.log.Debugf("clock in: activity %s not found", activityID)
			return nil
		}

		existing, err := tx.GetSessionByActivityDate(ctx, activityID, activity.Date)
		if err != nil {
			return err
		}
		if existing != nil && (existing.Status.IsTerminal() || existing.Status == database.StatusActive) {
			result = existing
			return nil
		}

		actives, err := tx.GetSessionsByStatus(ctx, database.StatusActive)
		if err != nil {
			return err
		}
		for _, a := range actives {
			if err := completeSession(ctx, tx, a, now); err != nil {
				return err
			}
			ss.log.Infof("⏹ Сессия %s закрыта автоматически при старте новой", a.ID)
		}

		lateBy := utils.CurrentMinutes(now) - utils.TimeToMinutes(activity.StartTime)
		if lateBy < 0 {
			lateBy = 0
		}

		session := database.Session{
			ID:         uuid.NewString(),
			ActivityID: activityID,
			Date:       activity.Date,
			CreatedAt:  now,
		}
		if existing != nil {
			session = *existing
		}
		session.Status = database.StatusActive
		session.ClockInTime = &now
		session.WasLate = lateBy > 0
		session.LateByMin = lateBy
		session.UpdatedAt = now

		if existing != nil {
			err = tx.UpdateSession(ctx, session)
		} else {
			err = tx.AddSession(ctx, session)
		}
		if err != nil {
			return err
		}

		result = &session
		opened = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("clock in %s: %w", activityID, err)
	}

	if opened {
		pointer := database.LastActiveSession{
			SessionID:   result.ID,
			ActivityID:  result.ActivityID,
			ClockInTime: now,
		}
		if err := ss.prefs.SetLastActiveSession(ctx, pointer); err != nil {
			return result, fmt.Errorf("clock in %s: save pointer: %w", activityID, err)
		}
		ss.log.Infof("▶️ Clock in: %s (опоздание %d мин)", activityID, result.LateByMin)
	}
	return result, nil
}

func completeSession(ctx context.Context, tx *database.Repository, s database.Session, end time.Time) error {
	s.Status = database.StatusCompleted
	s.ClockOutTime = &end
	if s.ClockInTime != nil {
		d := roundMinutes(end.Sub(*s.ClockInTime))
		s.ActualDurationMin = &d
	}
	s.UpdatedAt = end
	return tx.UpdateSession(ctx, s)
}

// ClockOut завершает сессию. endTime nil означает "сейчас".
// Missing, never clocked-in or already terminal sessions are left as is.
func (ss *SessionService) ClockOut(ctx context.Context, sessionID string, endTime *time.Time) error {
	end := ss.clock.Now()
	if endTime != nil {
		end = *endTime
	}

	changed := false
	err := ss.repository.WithTx(ctx, func(tx *database.Repository) error {
		s, err := tx.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if s == nil || s.ClockInTime == nil || s.Status.IsTerminal() {
			ss.log.Debugf("clock out: session %s not clockable", sessionID)
			return nil
		}
		changed = true
		return completeSession(ctx, tx, *s, end)
	})
	if err != nil {
		return fmt.Errorf("clock out %s: %w", sessionID, err)
	}
	if !changed {
		return nil
	}

	if err := ss.prefs.ClearLastActiveSession(ctx); err != nil {
		return fmt.Errorf("clock out %s: clear pointer: %w", sessionID, err)
	}
	ss.log.Infof("⏹ Clock out: сессия %s", sessionID)
	return nil
}

// AutoComplete закрывает забытую сессию на плановом конце занятия.
func (ss *SessionService) AutoComplete(ctx context.Context, sessionID string, plannedEnd string) error {
	changed := false
	err := ss.repository.WithTx(ctx, func(tx *database.Repository) error {
		s, err := tx.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if s == nil || s.ClockInTime == nil || s.Status.IsTerminal() {
			ss.log.Debugf("auto complete: session %s not clockable", sessionID)
			return nil
		}

		end, err := utils.CombineDateTime(s.Date, plannedEnd)
		if err != nil {
			return err
		}
		d := roundMinutes(end.Sub(*s.ClockInTime))
		if d < 0 {
			d = 0
		}

		s.Status = database.StatusAutoCompleted
		s.ClockOutTime = &end
		s.ActualDurationMin = &d
		s.WasAutoCompleted = true
		s.UpdatedAt = ss.clock.Now()
		changed = true
		return tx.UpdateSession(ctx, *s)
	})
	if err != nil {
		return fmt.Errorf("auto complete %s: %w", sessionID, err)
	}
	if !changed {
		return nil
	}

	if err := ss.prefs.ClearLastActiveSession(ctx); err != nil {
		return fmt.Errorf("auto complete %s: clear pointer: %w", sessionID, err)
	}
	ss.log.Infof("⏱ Сессия %s завершена автоматически в %s", sessionID, plannedEnd)
	return nil
}

// MarkMissed помечает занятие пропущенным на его дату.
func (ss *SessionService) MarkMissed(ctx context.Context, activityID string) error {
	return ss.closeUnattended(ctx, activityID, database.StatusMissed)
}

// Dismiss — пользователь сам отказался от занятия.
func (ss *SessionService) Dismiss(ctx context.Context, activityID string) error {
	return ss.closeUnattended(ctx, activityID, database.StatusDismissed)
}

// MarkNotified записывает, что напоминание отправлено. Существующая сессия не трогается.
func (ss *SessionService) MarkNotified(ctx context.Context, activityID string) (bool, error) {
	now := ss.clock.Now()
	created := false
	err := ss.repository.WithTx(ctx, func(tx *database.Repository) error {
		activity, err := tx.GetActivity(ctx, activityID)
		if err != nil || activity == nil {
			return err
		}
		existing, err := tx.GetSessionByActivityDate(ctx, activityID, activity.Date)
		if err != nil || existing != nil {
			return err
		}
		created = true
		return tx.AddSession(ctx, database.Session{
			ID:         uuid.NewString(),
			ActivityID: activityID,
			Date:       activity.Date,
			Status:     database.StatusNotified,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	})
	if err != nil {
		return false, fmt.Errorf("mark notified %s: %w", activityID, err)
	}
	return created, nil
}

// closeUnattended — upsert сессии (activity, date) в missed/dismissed.
// Terminal sessions are not touched.
func (ss *SessionService) closeUnattended(ctx context.Context, activityID string, status database.SessionStatus) error {
	now := ss.clock.Now()
	changed, wasActive := false, false
	err := ss.repository.WithTx(ctx, func(tx *database.Repository) error {
		activity, err := tx.GetActivity(ctx, activityID)
		if err != nil {
			return err
		}
		if activity == nil {
			ss.log.Debugf("%s: activity %s not found", status, activityID)
			return nil
		}

		existing, err := tx.GetSessionByActivityDate(ctx, activityID, activity.Date)
		if err != nil {
			return err
		}
		if existing == nil {
			zero := 0
			changed = true
			return tx.AddSession(ctx, database.Session{
				ID:                uuid.NewString(),
				ActivityID:        activityID,
				Date:              activity.Date,
				Status:            status,
				ActualDurationMin: &zero,
				CreatedAt:         now,
				UpdatedAt:         now,
			})
		}
		if existing.Status.IsTerminal() {
			return nil
		}

		changed = true
		wasActive = existing.Status == database.StatusActive
		existing.Status = status
		existing.UpdatedAt = now
		return tx.UpdateSession(ctx, *existing)
	})
	if err != nil {
		return fmt.Errorf("%s %s: %w", status, activityID, err)
	}
	if !changed {
		return nil
	}

	if wasActive {
		if err := ss.prefs.ClearLastActiveSession(ctx); err != nil {
			return fmt.Errorf("%s %s: clear pointer: %w", status, activityID, err)
		}
	}
	ss.log.Infof("%s Занятие %s: %s", utils.GetStatusEmoji(string(status)), activityID, status)
	return nil
}

// Active returns the single active session, or nil.
func (ss *SessionService) Active(ctx context.Context) (*database.Session, error) {
	return ss.repository.GetActiveSession(ctx)
}

func (ss *SessionService) Get(ctx context.Context, id string) (*database.Session, error) {
	return ss.repository.GetSession(ctx, id)
}

func (ss *SessionService) ListForDate(ctx context.Context, date string) ([]database.Session, error) {
	return ss.repository.GetSessionsByDate(ctx, date)
}
