package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"tempo/internal/database"
	"tempo/internal/logger"
)

type BackupService struct {
	repository *database.Repository
	prefs      PreferenceStore
	clock      Clock
	log        logger.Logger
}

func NewBackupService(repo *database.Repository, prefs PreferenceStore, clock Clock, log logger.Logger) *BackupService {
	return &BackupService{
		repository: repo,
		prefs:      prefs,
		clock:      clock,
		log:        log,
	}
}

// Export собирает все данные в один снимок.
func (bs *BackupService) Export(ctx context.Context) (*database.Backup, error) {
	b := &database.Backup{
		Version:    database.BackupVersion,
		ExportedAt: bs.clock.Now(),
	}

	var err error
	if b.Activities, err = bs.repository.GetAllActivities(ctx); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	if b.Sessions, err = bs.repository.GetAllSessions(ctx); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	if b.DailyReports, err = bs.repository.GetAllDailyReports(ctx); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	if b.WeeklyReports, err = bs.repository.GetAllWeeklyReports(ctx); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	if b.Categories, err = bs.repository.GetCategories(ctx); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	prefs, err := bs.prefs.Preferences(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	b.Preferences = &prefs

	bs.log.Infof("💾 Экспорт: %d занятий, %d сессий", len(b.Activities), len(b.Sessions))
	return b, nil
}

// Import заменяет все данные содержимым снимка. Версия должна совпадать точно,
// иначе ничего не применяется.
func (bs *BackupService) Import(ctx context.Context, b *database.Backup) error {
	if b == nil || b.Version != database.BackupVersion {
		version := 0
		if b != nil {
			version = b.Version
		}
		return fmt.Errorf("%w: %d", ErrUnsupportedBackupVersion, version)
	}

	err := bs.repository.WithTx(ctx, func(tx *database.Repository) error {
		if err := tx.ClearAll(ctx); err != nil {
			return err
		}
		for _, a := range b.Activities {
			if err := tx.AddActivity(ctx, a); err != nil {
				return err
			}
		}
		for _, s := range b.Sessions {
			if err := tx.AddSession(ctx, s); err != nil {
				return err
			}
		}
		for _, r := range b.DailyReports {
			if err := tx.PutDailyReport(ctx, r); err != nil {
				return err
			}
		}
		for _, r := range b.WeeklyReports {
			if err := tx.PutWeeklyReport(ctx, r); err != nil {
				return err
			}
		}
		for _, c := range b.Categories {
			if err := tx.AddCategory(ctx, c); err != nil {
				return err
			}
		}
		if b.Preferences != nil {
			return savePreferences(ctx, tx, *b.Preferences)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	bs.log.Infof("♻️ Импорт: %d занятий, %d сессий", len(b.Activities), len(b.Sessions))
	return nil
}

// ClearAll удаляет все данные и заново засевает стандартные категории.
func (bs *BackupService) ClearAll(ctx context.Context) error {
	err := bs.repository.WithTx(ctx, func(tx *database.Repository) error {
		if err := tx.ClearAll(ctx); err != nil {
			return err
		}
		return seedCategories(ctx, tx, bs.clock, bs.log)
	})
	if err != nil {
		return fmt.Errorf("clear all: %w", err)
	}
	bs.log.Warn("🧹 Все данные удалены")
	return nil
}

func WriteBackup(w io.Writer, b *database.Backup) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}

func ReadBackup(r io.Reader) (*database.Backup, error) {
	var b database.Backup
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode backup: %w", err)
	}
	return &b, nil
}
