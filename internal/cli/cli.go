// Package cli wires configuration, storage and the HTTP server behind the
// carebook-server command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"carebook-server/internal/apperrors"
	"carebook-server/internal/config"
	"carebook-server/internal/jobs"
	"carebook-server/internal/logger"
	"carebook-server/internal/models"
	"carebook-server/internal/routes"
	"carebook-server/internal/store"
	"carebook-server/internal/utils"
)

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "carebook-server",
		Short: "Healthcare appointment booking API",
		// Running without a subcommand starts the server.
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createAdminCmd())
	rootCmd.AddCommand(confirmEmailCmd())
	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			if _, err := openStore(cfg); err != nil {
				return err
			}
			log.Info().Str("database", cfg.Database.Name).Msg("schema migrated")
			return nil
		},
	}
}

func createAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator, or grant the admin role to an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			name, _ := cmd.Flags().GetString("name")

			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			userID, err := ensureAdmin(cmd.Context(), st, email, password, name)
			if err != nil {
				return err
			}
			log.Info().Str("user_id", userID).Str("email", email).Msg("admin ready")
			return nil
		},
	}
	cmd.Flags().String("email", "", "Administrator email address")
	cmd.Flags().String("password", "", "Password for a new administrator")
	cmd.Flags().String("name", "Administrator", "Full name for a new administrator")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func confirmEmailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm-email <email>",
		Short: "Mark a user's email address as confirmed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			email := strings.ToLower(strings.TrimSpace(args[0]))
			if err := st.ConfirmEmail(cmd.Context(), email); err != nil {
				return err
			}
			log.Info().Str("email", email).Msg("email confirmed")
			return nil
		},
	}
}

// ensureAdmin grants the admin role to the user with email, creating the
// user first when it does not exist.
func ensureAdmin(ctx context.Context, st *store.Store, email, password, name string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := st.UserByEmail(ctx, email)
	switch {
	case err == nil:
	case apperrors.Is(err, apperrors.KindNotFound):
		if !utils.StrongPassword(password) {
			return "", fmt.Errorf("a new administrator needs --password of 12 to %d characters with upper and lower case letters, a number and a symbol", utils.MaxPasswordBytes)
		}
		user = &models.User{Email: email, FullName: name, EmailConfirmed: true}
		if err := user.SetPassword(password); err != nil {
			return "", fmt.Errorf("hash password: %w", err)
		}
		if err := st.CreateIdentity(ctx, user); err != nil {
			return "", err
		}
	default:
		return "", err
	}

	if err := st.AssignRole(ctx, user.ID, models.RoleAdmin); err != nil {
		return "", err
	}
	return user.ID, nil
}

func serve(ctx context.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}

	scheduler := jobs.NewScheduler(st, log)
	if err := scheduler.Start(cfg.TokenPurgeSchedule); err != nil {
		return err
	}
	defer scheduler.Stop()

	router := routes.NewRouter(st, cfg, log)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Environment).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

// bootstrap loads .env (when present), the configuration and the logger.
func bootstrap() (*config.Config, zerolog.Logger, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, zerolog.Nop(), fmt.Errorf("error loading .env file: %w", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("error loading config: %w", err)
	}

	log := logger.New(cfg.Environment, cfg.LogLevel)
	zerolog.DefaultContextLogger = &log
	return cfg, log, nil
}

func openStore(cfg *config.Config) (*store.Store, error) {
	db, err := models.InitDB(models.DatabaseConfig{
		DSN:    cfg.Database.DSN,
		Silent: !cfg.IsDevelopment(),
	})
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	return store.New(db), nil
}
