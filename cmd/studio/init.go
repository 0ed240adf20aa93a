package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/lewtec/rotulador-studio/annotation"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [folder]",
	Short: "Initialize a new studio project folder",
	Long: `Initialize a studio folder by creating:
- A sample configuration file (studio.yaml)
- The storage it points to (an empty, migrated SQLite database by default)
- The blob folder for image files

Example:
  studio init ./dataset`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create folder: %w", err)
		}
		configFile := filepath.Join(dir, "studio.yaml")

		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			log.Printf("Creating default config: %s", configFile)
			if err := annotation.WriteSampleConfig(configFile); err != nil {
				return fmt.Errorf("failed to create config: %w", err)
			}
		} else {
			log.Printf("Config file already exists: %s", configFile)
		}

		cfg, err := annotation.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		app, err := annotation.NewStudioApp(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to prepare storage: %w", err)
		}
		defer app.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Initialized %s storage", cfg.Storage.Backend)
		if cfg.Storage.Backend == "sqlite" {
			fmt.Fprintf(out, " at %s", cfg.Storage.SQLite)
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, "\nNext steps:")
		fmt.Fprintf(out, "  1. Review and customize your config file: %s\n", configFile)
		fmt.Fprintf(out, "  2. Add images:  studio -c %s ingest --project <name> <folder>\n", configFile)
		fmt.Fprintf(out, "  3. Start the server:  studio -c %s serve\n", configFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
