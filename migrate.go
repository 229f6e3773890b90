package main

import (
	"fmt"
	"log/slog"

	"kairos/internal/backup"
	"kairos/internal/database"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()

			slog.Info("database schema is up to date", "driver", cfg.Database.Driver)
			return nil
		},
	}
}

func backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write a backup of all categories and entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()

			svc := backup.NewService(db, cfg.Backup.Dir, cfg.Security.EncryptionKey)
			b, err := svc.Create(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d categories, %d entries, %d bytes)\n",
				b.FilePath, b.Categories, b.Entries, b.Size)
			return nil
		},
	}
}
