package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"aanganwadi/internal/core/config"
	"aanganwadi/internal/core/container"
	"aanganwadi/internal/core/logger"
	"aanganwadi/internal/core/routes"
	"aanganwadi/internal/database"
	"aanganwadi/internal/database/migration"
	"aanganwadi/internal/middleware"
	"aanganwadi/pkg/roles"
	"aanganwadi/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run migrations manually.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log := logger.NewLogger(cfg.Env)
		defer log.Sync()

		migrationDir, _ := cmd.Flags().GetString("dir")
		if migrationDir == "" {
			migrationDir = cfg.MigrationsDir
		}

		if err := migration.Migrate(cfg.DatabaseURL, migrationDir, true, log); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		return nil
	},
}

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the appeal status watcher.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log := logger.NewLogger(cfg.Env)
		defer log.Sync()

		if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
			if err := migration.Migrate(cfg.DatabaseURL, cfg.MigrationsDir, false, log); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}
		}

		return serve(cmd.Context(), cfg, log)
	},
}

var TokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign an access token for a user, for local development.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		userID, _ := cmd.Flags().GetInt("user")
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if !roles.Role(role).IsValid() {
			return fmt.Errorf("unknown role %q", role)
		}

		token, err := security.GenerateJWT([]byte(cfg.JWTSecret), userID, roles.Role(role), ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	db, err := database.NewPostgresConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("Connected to the database")

	appContainer, err := container.NewAppContainer(ctx, db, cfg, log)
	if err != nil {
		return err
	}
	defer appContainer.Close()

	if cfg.WatcherEnabled {
		appealWatcher, err := appContainer.NewWatcher(cfg.DatabaseURL, log)
		if err != nil {
			return fmt.Errorf("start appeal watcher: %w", err)
		}
		if err := appealWatcher.Start(ctx); err != nil {
			return err
		}
		defer appealWatcher.Stop()
	} else {
		log.Info("Appeal status watcher disabled")
	}

	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		gin.Logger(),
		middleware.RecoveryMiddleware(log),
		middleware.CORS(cfg.CORSAllowedOrigins, cfg.Env == "prod"),
	)
	routes.RegisterUtilityRoutes(router, appContainer)
	routes.RegisterProtectedRoutes(router, appContainer, []byte(cfg.JWTSecret), cfg.RequestTimeout)

	srv := &http.Server{
		Addr:              cfg.AppHost,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.AppHost))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func Execute(ctx context.Context) {
	rootCmd := &cobra.Command{
		Use:          "aanganwadi",
		Short:        "Aanganwadi appeals and inventory service",
		SilenceUsage: true,
	}
	MigrateCmd.Flags().String("dir", "", "Directory containing the migration files (default MIGRATIONS_DIR)")
	ServeCmd.Flags().Bool("migrate", false, "Apply pending migrations before serving")
	TokenCmd.Flags().Int("user", 1, "User id to embed in the token")
	TokenCmd.Flags().String("role", string(roles.Admin), "Role to embed in the token")
	TokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	rootCmd.AddCommand(ServeCmd, MigrateCmd, TokenCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
