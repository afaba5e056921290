package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tempo/internal/app"
	"tempo/internal/config"
	"tempo/internal/database"
	"tempo/internal/logger"
	"tempo/internal/services"
	"tempo/internal/utils"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tempo",
		Short:         "Планировщик недели и трекер времени",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve()
		},
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newImportCmd())
	return root
}

func loadConfig() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// withServices открывает БД без бота и HTTP-сервера для разовых команд.
func withServices(run func(ctx context.Context, sm *services.ServiceManager) error) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	db, sm, err := app.Open(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	return run(context.Background(), sm)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить бота, планировщик и HTTP API",
		RunE: func(_ *cobra.Command, _ []string) error {
			return serve()
		},
	}
}

func serve() error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	application, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	if err := application.Start(); err != nil {
		return fmt.Errorf("start application: %w", err)
	}
	defer application.Stop()

	waitForShutdown()
	log.Info("👋 Приложение завершает работу")
	return nil
}

func waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newReportCmd() *cobra.Command {
	var fresh bool

	report := &cobra.Command{Use: "report", Short: "Показать отчет"}
	report.PersistentFlags().BoolVar(&fresh, "fresh", false, "пересчитать, не используя кэш")

	daily := &cobra.Command{
		Use:   "daily [YYYY-MM-DD]",
		Short: "Дневной отчет (по умолчанию за сегодня)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(func(ctx context.Context, sm *services.ServiceManager) error {
				date := utils.CurrentDate(sm.Clock().Now())
				if len(args) == 1 {
					date = args[0]
				}
				if _, err := utils.ParseDate(date); err != nil {
					return fmt.Errorf("invalid date %q: %w", date, err)
				}
				if fresh {
					if err := sm.Report.Invalidate(ctx, date); err != nil {
						return err
					}
				}
				r, err := sm.Report.GenerateDailyReport(ctx, date)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), r)
			})
		},
	}

	weekly := &cobra.Command{
		Use:   "weekly [YYYY-Www]",
		Short: "Недельный отчет (по умолчанию за текущую неделю)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(func(ctx context.Context, sm *services.ServiceManager) error {
				weekID := utils.WeekID(sm.Clock().Now().In(utils.Location()))
				if len(args) == 1 {
					weekID = args[0]
				}
				if fresh {
					if err := sm.Report.InvalidateWeek(ctx, weekID); err != nil {
						return err
					}
				}
				r, err := sm.Report.GenerateWeeklyReport(ctx, weekID)
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), r); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), r.WrittenSummary)
				return nil
			})
		},
	}

	report.AddCommand(daily, weekly)
	return report
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Сохранить резервную копию (stdout, если файл не указан)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(func(ctx context.Context, sm *services.ServiceManager) error {
				b, err := sm.Backup.Export(ctx)
				if err != nil {
					return err
				}
				if len(args) == 0 {
					return services.WriteBackup(cmd.OutOrStdout(), b)
				}

				f, err := os.Create(args[0])
				if err != nil {
					return fmt.Errorf("create %s: %w", args[0], err)
				}
				defer f.Close()
				if err := services.WriteBackup(f, b); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "💾 %d занятий, %d сессий -> %s\n", len(b.Activities), len(b.Sessions), args[0])
				return nil
			})
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Восстановить из резервной копии (текущие данные заменяются)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			b, err := services.ReadBackup(f)
			if err != nil {
				return err
			}
			if b.Version != database.BackupVersion {
				return fmt.Errorf("%w: %d", services.ErrUnsupportedBackupVersion, b.Version)
			}

			return withServices(func(ctx context.Context, sm *services.ServiceManager) error {
				if err := sm.Backup.Import(ctx, b); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✅ Восстановлено: %d занятий, %d сессий\n", len(b.Activities), len(b.Sessions))
				return nil
			})
		},
	}
}
