package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"kairos/internal/config"
	"kairos/internal/database"
	"kairos/internal/handler"
	"kairos/internal/logger"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	cfgFile string
	version = "dev"

	// set by loadConfig before any command runs
	cfg       *config.Config
	logCloser io.Closer = io.NopCloser(nil)
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "kairos",
		Short:             "Personal expense tracking API",
		Long:              `kairos keeps expense categories and entries in SQLite or PostgreSQL and serves them over a REST API.`,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
		RunE:              runServe,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(backupCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	_ = logCloser.Close()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads configuration and installs the default logger.
func loadConfig(_ *cobra.Command, _ []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, closer, err := logger.New(c.Log)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	slog.SetDefault(log)

	cfg = c
	logCloser = closer
	handler.Version = version
	return nil
}

// openDB connects to the configured database and brings the schema up to date.
func openDB() (*gorm.DB, error) {
	db, err := database.Init(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}
