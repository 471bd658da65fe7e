package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/lms-grades-api/migrations"
	"github.com/noah-isme/lms-grades-api/pkg/config"
	"github.com/noah-isme/lms-grades-api/pkg/database"
)

var migrateCommands = map[string]bool{"up": true, "down": true, "status": true, "version": true, "redo": true}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|version|redo]",
		Short:     "apply or inspect the database migrations",
		ValidArgs: []string{"up", "down", "status", "version", "redo"},
		Args:      cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command, err := migrateCommand(args)
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := database.NewPostgres(cfg.Database, "lmsctl")
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer db.Close()
			return database.Migrate(db, migrations.FS, command)
		},
	}
}

func migrateCommand(args []string) (string, error) {
	if len(args) == 0 {
		return "up", nil
	}
	if !migrateCommands[args[0]] {
		return "", fmt.Errorf("unknown migrate command %q", args[0])
	}
	return args[0], nil
}
