package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"aps-assistant/internal/agent"
	"aps-assistant/internal/config"
	"aps-assistant/internal/platform/telegram"
	"aps-assistant/internal/report"
	"aps-assistant/internal/seed"
	"aps-assistant/internal/triage"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "aps-server",
		Short:        "Acute Pain Service assistant API",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(triageCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations for the postgres data source",
	}

	for _, dir := range []seed.Direction{seed.Up, seed.Down} {
		sub := &cobra.Command{
			Use:   string(dir),
			Short: fmt.Sprintf("Migrate %s", dir),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				if cfg.DatabaseURL == "" {
					return errors.New("DATABASE_URL is required")
				}
				migrationsDir, _ := cmd.Flags().GetString("dir")
				if migrationsDir == "" {
					migrationsDir = cfg.MigrationsDir
				}

				applied, err := seed.Migrate(migrationsDir, cfg.DatabaseURL, dir)
				if err != nil {
					return err
				}
				if !applied {
					fmt.Println("No migrations to apply.")
					return nil
				}
				fmt.Printf("Migrations %s applied successfully.\n", dir)
				return nil
			},
		}
		sub.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
		cmd.AddCommand(sub)
	}
	return cmd
}

func triageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "triage",
		Short: "Run one triage pass over pending consults and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			ctx := cmd.Context()

			a, cleanup, err := buildApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			out, err := a.triage.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Requested %d, matched %d, escalated to High %d.\n", out.Requested, out.Matched, len(out.Escalated))
			fmt.Printf("%-4s %-8s %-16s %s\n", "ID", "URGENCY", "PATIENT", "REASON")
			for _, c := range triage.SortForDisplay(a.store.Consults()) {
				fmt.Printf("%-4d %-8s %-16s %s\n", c.ID, c.Urgency, c.PatientName, c.Reason)
			}
			return nil
		},
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func newGateway(ctx context.Context, cfg *config.Config) (agent.Gateway, error) {
	return agent.NewGeminiGateway(ctx, agent.Config{
		APIKey:         cfg.GeminiAPIKey,
		ChatModel:      cfg.ChatModel,
		ThinkingModel:  cfg.ThinkingModel,
		ThinkingBudget: cfg.ThinkingBudget,
		TriageModel:    cfg.TriageModel,
		AnalysisModel:  cfg.AnalysisModel,
	})
}

// loadDataset returns the reference data and a func releasing whatever was
// opened to read it.
func loadDataset(ctx context.Context, cfg *config.Config) (seed.Dataset, func(), error) {
	if cfg.DataSource != config.DataSourcePostgres {
		ds, err := seed.MockSource{}.Load(ctx)
		return ds, func() {}, err
	}

	db, err := seed.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return seed.Dataset{}, nil, err
	}
	ds, err := seed.NewPostgresSource(db).Load(ctx)
	if err != nil {
		db.Close()
		return seed.Dataset{}, nil, err
	}
	return ds, func() { db.Close() }, nil
}

func newReportService(cfg *config.Config, logger zerolog.Logger) *report.Service {
	var sender report.Sender
	if cfg.TelegramEnabled() {
		sender = telegram.NewClient(cfg.TelegramBotToken)
	}
	var fonts []string
	if cfg.ReportFontPath != "" {
		fonts = []string{cfg.ReportFontPath}
	}
	return report.NewService(sender, cfg.TelegramChatID, fonts, logger.With().Str("component", "report").Logger())
}

func buildApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, func(), error) {
	ds, cleanup, err := loadDataset(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s data: %w", cfg.DataSource, err)
	}
	logger.Info().
		Str("source", cfg.DataSource).
		Int("patients", len(ds.Patients)).
		Int("consults", len(ds.Consults)).
		Msg("reference data loaded")

	gw, err := newGateway(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return newApp(gw, ds, newReportService(cfg, logger), cfg, logger), cleanup, nil
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("startup failed")
		return err
	}
	defer cleanup()

	if cfg.AutoTriage {
		go func() {
			out, err := a.triage.Run(ctx)
			if err != nil {
				logger.Error().Err(err).Msg("startup triage failed")
				return
			}
			logger.Info().Int("matched", out.Matched).Bool("skipped", out.Skipped).Msg("startup triage finished")
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(a, cfg.CORSOrigins, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
