package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/camazac/realty/internal/server"
	"github.com/camazac/realty/internal/server/config"
)

var serveFlags struct {
	addr         string
	env          string
	dbPath       string
	uploadsDir   string
	sessionStore string
	imageStore   string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logger, err := cfg.NewLogger(os.Stderr)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv, err := server.New(ctx, cfg, logger, Version)
		if err != nil {
			return fmt.Errorf("failed to initialize server: %w", err)
		}
		defer srv.Close()

		return srv.Run(ctx)
	},
}

func init() {
	flags := serveCmd.Flags()
	flags.StringVar(&serveFlags.addr, "addr", "", "listen address (overrides config and PORT)")
	flags.StringVar(&serveFlags.env, "env", "", "environment: development or production")
	flags.StringVar(&serveFlags.dbPath, "db", "", "path to SQLite database")
	flags.StringVar(&serveFlags.uploadsDir, "uploads", "", "directory for uploaded images")
	flags.StringVar(&serveFlags.sessionStore, "session-store", "", "session store: sqlite, memory, bolt or redis")
	flags.StringVar(&serveFlags.imageStore, "image-store", "", "image store: filesystem or s3")

	// root без подкоманды принимает те же флаги
	rootCmd.Flags().AddFlagSet(flags)
}

// loadConfig собирает конфиг: defaults -> файл -> env -> флаги
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	override := func(flag string, value string, dst *string) {
		if cmd.Flags().Changed(flag) {
			*dst = value
		}
	}
	override("addr", serveFlags.addr, &cfg.Server.Addr)
	override("env", serveFlags.env, &cfg.Server.Environment)
	override("db", serveFlags.dbPath, &cfg.Database.Path)
	override("uploads", serveFlags.uploadsDir, &cfg.Images.Dir)
	override("session-store", serveFlags.sessionStore, &cfg.Sessions.Type)
	override("image-store", serveFlags.imageStore, &cfg.Images.Type)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
