package main

import (
	"fmt"
	"log"

	"github.com/lewtec/rotulador-studio/internal/repository"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate up|down|version",
	Short: "Manage the schema of the SQLite storage",
	Long: `Applies, reverts or reports the embedded schema migrations of the SQLite
storage. The postgres backend migrates itself when opened.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"up", "down", "version"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Storage.Backend != "sqlite" {
			return fmt.Errorf("migrate only applies to the sqlite backend, config uses %s", cfg.Storage.Backend)
		}
		db, err := repository.OpenDatabase(cfg.Storage.SQLite)
		if err != nil {
			return err
		}
		defer db.Close()

		switch args[0] {
		case "up":
			if err := repository.Migrate(db); err != nil {
				return err
			}
		case "down":
			if err := repository.MigrateDown(db); err != nil {
				return err
			}
		case "version":
		default:
			return fmt.Errorf("unknown migrate action '%s'", args[0])
		}

		version, dirty, err := repository.SchemaVersion(db)
		if err != nil {
			return err
		}
		log.Printf("migrate: %s is at version %d", cfg.Storage.SQLite, version)
		fmt.Fprintf(cmd.OutOrStdout(), "version\t%d\ndirty\t%t\n", version, dirty)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
