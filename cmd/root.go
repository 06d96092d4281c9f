package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/novozhilovsergeydisk/tool-system/internal/core/config"
	"github.com/novozhilovsergeydisk/tool-system/internal/core/container"
	"github.com/novozhilovsergeydisk/tool-system/internal/core/logger"
	"github.com/novozhilovsergeydisk/tool-system/internal/core/routes"
	"github.com/novozhilovsergeydisk/tool-system/internal/database"
	"github.com/novozhilovsergeydisk/tool-system/internal/locations"
	"github.com/novozhilovsergeydisk/tool-system/internal/repository"
	"github.com/novozhilovsergeydisk/tool-system/internal/users"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"
	"github.com/novozhilovsergeydisk/tool-system/pkg/roles"
	"github.com/novozhilovsergeydisk/tool-system/pkg/security"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.ValidateServer(); err != nil {
			return err
		}
		if err := security.Configure(cfg.JWTSecret); err != nil {
			return err
		}

		log := logger.NewLogger(cfg.Environment)
		defer log.Sync()
		zap.ReplaceGlobals(log)

		return serve(cmd.Context(), cfg, log)
	},
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if cfg.AutoMigrate {
		if err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir, log); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
	}

	db, err := database.NewPostgresConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("Connected to the database")

	app, err := container.NewAppContainer(ctx, cfg, db, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn("Failed to close movement publisher", zap.Error(err))
		}
	}()
	go app.LoginLimiter.RunCleanup(ctx, time.Minute)

	srv := &http.Server{
		Addr:              cfg.Host,
		Handler:           routes.NewRouter(cfg, app, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("address", cfg.Host), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("Server exited")
	return nil
}

var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run migrations manually.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		migrationDir, _ := cmd.Flags().GetString("dir")
		if migrationDir == "" {
			migrationDir = cfg.MigrationsDir
		}

		log := logger.NewLogger(cfg.Environment)
		defer log.Sync()
		if err := database.RunMigrations(cfg.DatabaseURL, migrationDir, log); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		return nil
	},
}

var CreateAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		username, _ := cmd.Flags().GetString("username")
		fullname, _ := cmd.Flags().GetString("fullname")
		password, _ := cmd.Flags().GetString("password")
		if len(password) < 6 {
			return fmt.Errorf("password must be at least 6 characters long")
		}

		db, err := database.NewPostgresConnection(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		repo := repository.NewRepository(db)
		service := users.NewService(users.NewRepository(repo), locations.NewLocationRepository(repo), cfg.DefaultWarehouseID)
		system := roles.Actor{Username: "system", Role: roles.Admin}
		user, err := service.Create(cmd.Context(), system, models.CreateUserRequest{
			Username: username,
			Password: password,
			Fullname: fullname,
			Role:     string(roles.Admin),
		})
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created administrator %s (id %d)\n", user.Username, user.ID)
		return nil
	},
}

func init() {
	MigrateCmd.Flags().String("dir", "", "Directory containing the migration files (defaults to MIGRATIONS_DIR)")
	CreateAdminCmd.Flags().String("username", "admin", "Login of the new administrator")
	CreateAdminCmd.Flags().String("fullname", "", "Display name of the new administrator")
	CreateAdminCmd.Flags().String("password", "", "Password of the new administrator")
	_ = CreateAdminCmd.MarkFlagRequired("password")
}

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tool-system",
		Short:         "Tool and consumables tracking service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(ServeCmd, MigrateCmd, CreateAdminCmd)
	return rootCmd
}

func Execute(ctx context.Context) {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
