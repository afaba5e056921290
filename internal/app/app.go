package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"tempo/internal/api"
	"tempo/internal/config"
	"tempo/internal/database"
	"tempo/internal/logger"
	"tempo/internal/services"
	"tempo/internal/telegram"
	"tempo/internal/utils"
)

type Application struct {
	config     *config.Config
	log        logger.Logger
	db         *database.Database
	bot        *telegram.Bot
	services   *services.ServiceManager
	server     *http.Server
	cron       *cron.Cron
	cancelFunc context.CancelFunc
	ctx        context.Context
}

// Open поднимает хранилище и сервисы без бота и HTTP. Используется и сервером, и CLI.
func Open(cfg *config.Config, log logger.Logger) (*database.Database, *services.ServiceManager, error) {
	if err := utils.SetLocation(cfg.Timezone); err != nil {
		return nil, nil, err
	}

	db, err := database.New(cfg.Database.Driver, cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}

	sm := services.NewServiceManager(db, services.SystemClock{}, cfg.Reports.TTL, log)
	if err := sm.Category.SeedDefaults(context.Background()); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("seed categories: %w", err)
	}
	return db, sm, nil
}

func New(cfg *config.Config, log logger.Logger) (*Application, error) {
	db, serviceManager, err := Open(cfg, log)
	if err != nil {
		return nil, err
	}

	var bot *telegram.Bot
	if cfg.BotEnabled() {
		bot, err = telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.ChatID, serviceManager, log)
		if err != nil {
			db.Close()
			return nil, err
		}
		serviceManager.SetNotificationSender(bot)
	} else {
		serviceManager.SetNotificationSender(logSender{log: log})
	}

	ctx, cancel := context.WithCancel(context.Background())

	app := &Application{
		config:   cfg,
		log:      log,
		db:       db,
		bot:      bot,
		services: serviceManager,
		server: &http.Server{
			Addr:              ":" + cfg.Server.Port,
			Handler:           api.NewRouter(serviceManager, log),
			ReadHeaderTimeout: 10 * time.Second,
		},
		cron:       cron.New(cron.WithLocation(utils.Location())),
		cancelFunc: cancel,
		ctx:        ctx,
	}

	if err := app.setupCronJobs(); err != nil {
		cancel()
		db.Close()
		return nil, err
	}

	return app, nil
}

func (a *Application) Start() error {
	a.log.Info("🚀 Запуск приложения...")

	if pointer, err := a.services.Preferences.LastActiveSession(a.ctx); err != nil {
		a.log.Warnf("⚠️ Не удалось прочитать активную сессию: %v", err)
	} else if pointer != nil {
		a.log.Infof("▶️ Восстановлена активная сессия %s (с %s)", pointer.SessionID, pointer.ClockInTime.In(utils.Location()).Format(utils.ClockLayout))
	}

	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Errorf("❌ HTTP сервер: %v", err)
		}
	}()

	a.cron.Start()

	a.log.Info("🔍 Проверка пропущенных занятий...")
	a.services.Notification.SweepOverdue(a.ctx)

	if a.bot != nil {
		go a.bot.Start(a.ctx)
		a.services.Notification.SendTodayOverview(a.ctx)
		a.log.Infof("✅ Приложение запущено. Бот: @%s", a.bot.GetUsername())
	} else {
		a.log.Info("✅ Приложение запущено без Telegram-бота")
	}
	a.log.Infof("🌐 API доступен на порту: %s", a.config.Server.Port)

	return nil
}

func (a *Application) Stop() error {
	a.log.Info("🛑 Остановка приложения...")

	a.cancelFunc()
	<-a.cron.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.log.Warnf("⚠️ Ошибка остановки HTTP сервера: %v", err)
	}

	if err := a.db.Close(); err != nil {
		a.log.Warnf("⚠️ Ошибка закрытия БД: %v", err)
	}

	a.log.Info("✅ Приложение остановлено")
	return nil
}

func (a *Application) setupCronJobs() error {
	notifications := a.services.Notification

	jobs := []struct {
		spec string
		name string
		run  func(context.Context)
	}{
		// Напоминания и автозакрытие каждую минуту
		{"* * * * *", "reminders", func(ctx context.Context) {
			notifications.CheckReminders(ctx)
			notifications.SweepOverdue(ctx)
		}},
		{a.config.Reports.DailyCron, "daily summary", notifications.SendDailySummary},
		{a.config.Reports.WeeklyCron, "weekly summary", notifications.SendWeeklySummary},
		// План на день в 7 утра
		{"0 7 * * *", "today overview", notifications.SendTodayOverview},
	}

	for _, job := range jobs {
		run := job.run
		if _, err := a.cron.AddFunc(job.spec, func() { run(a.ctx) }); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", job.name, job.spec, err)
		}
	}
	return nil
}
