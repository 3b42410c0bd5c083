// Package cli wires the vetcare-server commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"vetcare-server/internal/config"
	"vetcare-server/internal/logger"
	"vetcare-server/internal/models"
	"vetcare-server/internal/notify"
	"vetcare-server/internal/routes"
	"vetcare-server/internal/verification"
)

const serviceName = "vetcare-server"

// Execute runs the root command. Without a subcommand it serves the API.
func Execute() error {
	rootCmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Veterinary clinic booking API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reconcileCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		return err
	}
	return nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			db, err := models.OpenDB(models.DatabaseConfig{Driver: cfg.Database.Driver, DSN: cfg.Database.DSN})
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			if err := models.Migrate(db.WithContext(cmd.Context())); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			log.Info().Str("driver", cfg.Database.Driver).Msg("schema migrated")
			return nil
		},
	}
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Retry failed steps of reviewed veterinarian applications",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			db, err := models.OpenDB(models.DatabaseConfig{Driver: cfg.Database.Driver, DSN: cfg.Database.DSN})
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			svc := verification.NewService(db, notify.NewMailerFromConfig(cfg.Mailer), notify.NewInApp(db), cfg.UploadMaxBytes)
			report, err := svc.Reconcile(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "attempted %d, succeeded %d, skipped %d, failed %d\n",
				report.Attempted, report.Succeeded, report.Skipped, report.Failed)
			if report.Failed > 0 {
				return fmt.Errorf("%d step(s) still failing", report.Failed)
			}
			return nil
		},
	}
}

// load reads the optional .env file and the configuration, then sets up logging.
func load() (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	logger.Init(serviceName, cfg.Environment)
	return cfg, nil
}

func runServer(ctx context.Context) error {
	cfg, err := load()
	if err != nil {
		return err
	}
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := models.InitDB(models.DatabaseConfig{Driver: cfg.Database.Driver, DSN: cfg.Database.DSN})
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}
	rdb, err := config.ConnectRedis(cfg.Redis)
	if err != nil {
		return err
	}
	if rdb == nil {
		log.Warn().Msg("REDIS_ADDR is not set, rate limits are per process and access tokens are not revoked early")
	} else {
		defer rdb.Close()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.NewRouter(db, rdb, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Environment).Msg("server running")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
