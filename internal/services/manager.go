package services

import (
	"time"

	"tempo/internal/database"
	"tempo/internal/logger"
)

type ServiceManager struct {
	Activity     *ActivityService
	Session      *SessionService
	Report       *ReportService
	Category     *CategoryService
	Preferences  *PreferencesService
	Backup       *BackupService
	Notification *NotificationService
	repository   *database.Repository
	clock        Clock
	log          logger.Logger
}

func NewServiceManager(db *database.Database, clock Clock, reportTTL time.Duration, log logger.Logger) *ServiceManager {
	repo := database.NewRepository(db)
	prefs := NewPreferencesService(repo)
	categories := NewCategoryService(repo, clock, log)

	return &ServiceManager{
		Activity:     NewActivityService(repo, clock, log),
		Session:      NewSessionService(repo, prefs, clock, log),
		Report:       NewReportService(repo, categories, clock, reportTTL, log),
		Category:     categories,
		Preferences:  prefs,
		Backup:       NewBackupService(repo, prefs, clock, log),
		Notification: nil,
		repository:   repo,
		clock:        clock,
		log:          log,
	}
}

func (sm *ServiceManager) SetNotificationSender(sender NotificationSender) {
	sm.Notification = NewNotificationService(sender, sm)
}

func (sm *ServiceManager) Clock() Clock {
	return sm.clock
}
