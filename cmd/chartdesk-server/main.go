package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/chartdesk/chartdesk/internal/config"
	"github.com/chartdesk/chartdesk/internal/domain/batch"
	"github.com/chartdesk/chartdesk/internal/domain/clinical"
	"github.com/chartdesk/chartdesk/internal/domain/extraction"
	"github.com/chartdesk/chartdesk/internal/domain/matching"
	"github.com/chartdesk/chartdesk/internal/domain/patient"
	"github.com/chartdesk/chartdesk/internal/domain/template"
	"github.com/chartdesk/chartdesk/internal/platform/auth"
	"github.com/chartdesk/chartdesk/internal/platform/coding"
	"github.com/chartdesk/chartdesk/internal/platform/db"
	"github.com/chartdesk/chartdesk/internal/platform/middleware"
	"github.com/chartdesk/chartdesk/internal/platform/ocr"
)

func main() {
	root := &cobra.Command{
		Use:   "chartdesk-server",
		Short: "Practice document reconciliation server",
	}

	root.AddCommand(serveCmd(), migrateCmd(), workspaceCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return logger
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()

			// repositories
			patientRepo := patient.NewRepoPG(pool)
			templateRepo := template.NewTemplateRepoPG(pool)
			mappingRepo := template.NewMappingRepoPG(pool)
			documentRepo := extraction.NewDocumentRepoPG(pool)
			historyRepo := extraction.NewHistoryRepoPG(pool)
			batchRepo := batch.NewRepoPG(pool)
			stores := clinical.Stores(pool)

			// platform clients
			ocrClient := ocr.NewClient(cfg.OCRServiceURL, cfg.OCRTimeout(), logger)
			lookup := coding.NewLookupPG(pool)
			suggester := coding.NewSuggestClient(cfg.CodingServiceURL, 30*time.Second, logger)

			// services
			patientSvc := patient.NewService(patientRepo)
			matcher := matching.NewMatcher(patientRepo)
			templateSvc := template.NewService(templateRepo, mappingRepo, logger)
			engine := extraction.NewEngine(lookup, suggester, cfg.AIMatchThreshold, logger)
			populator := extraction.NewPopulator(stores, engine, historyRepo, extraction.AdvisoryLocker{}, logger)
			extractionSvc := extraction.NewService(documentRepo, historyRepo, templateSvc, populator, ocrClient, logger)
			clinicalSvc := clinical.NewService(stores, logger)
			batchSvc := batch.NewService(batchRepo, extractionSvc, logger)

			e := echo.New()
			e.HideBanner = true
			e.HidePort = true
			e.Use(middleware.RequestID())
			e.Use(middleware.Logger(logger))
			e.Use(middleware.Recovery(logger))

			e.GET("/healthz", func(c echo.Context) error {
				if err := pool.Ping(c.Request().Context()); err != nil {
					return echo.NewHTTPError(http.StatusServiceUnavailable, "database unreachable")
				}
				return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
			})

			api := e.Group("/api/v1")
			if cfg.IsDev() && cfg.JWTSigningKey == "" {
				api.Use(auth.DevAuthMiddleware())
			} else {
				api.Use(auth.JWTMiddleware(auth.JWTConfig{
					Issuer:     cfg.JWTIssuer,
					SigningKey: []byte(cfg.JWTSigningKey),
				}))
			}
			api.Use(db.WorkspaceMiddleware(pool, cfg.DefaultWorkspace))

			patient.NewHandler(patientSvc).RegisterRoutes(api)
			matching.NewHandler(matcher).RegisterRoutes(api)
			template.NewHandler(templateSvc).RegisterRoutes(api)
			extraction.NewHandler(extractionSvc).RegisterRoutes(api)
			clinical.NewHandler(clinicalSvc).RegisterRoutes(api)
			batch.NewHandler(batchSvc).RegisterRoutes(api)

			srv := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           e,
				ReadHeaderTimeout: 10 * time.Second,
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Error().Err(err).Msg("server shutdown")
				}
			}()

			logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server listening")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	var workspace string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}
	cmd.PersistentFlags().StringVar(&workspace, "workspace", "default", "workspace to migrate")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			ctx := cmd.Context()

			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			m := db.NewMigrator(pool, cfg.MigrationsDir)
			applied, err := m.Up(ctx, "workspace_"+workspace)
			if err != nil {
				return err
			}
			logger.Info().Int("applied", applied).Str("workspace", workspace).Msg("migrations complete")
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			m := db.NewMigrator(pool, cfg.MigrationsDir)
			statuses, err := m.Status(ctx, "workspace_"+workspace)
			if err != nil {
				return err
			}
			for _, s := range statuses {
				state := "pending"
				if s.AppliedAt != nil {
					state = "applied " + s.AppliedAt.Format(time.RFC3339)
				}
				fmt.Printf("%04d  %-40s %s\n", s.Version, s.Name, state)
			}
			return nil
		},
	}

	cmd.AddCommand(up, status)
	return cmd
}

func workspaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Manage workspaces",
	}

	create := &cobra.Command{
		Use:   "create <workspace-id>",
		Short: "Create a workspace schema and run its migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			ctx := cmd.Context()

			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := db.CreateWorkspaceSchema(ctx, pool, args[0], cfg.MigrationsDir); err != nil {
				return err
			}
			logger.Info().Str("workspace", args[0]).Msg("workspace created")
			return nil
		},
	}

	cmd.AddCommand(create)
	return cmd
}
