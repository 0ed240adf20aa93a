package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lewtec/rotulador-studio/annotation"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "studio",
	Short: "Annotate images with boxes, polygons and labels",
	Long: strings.TrimSpace(`
Annotation studio backend: keeps projects, images, labels and annotations in
the configured storage and serves editing sessions over HTTP.
    `),
	SilenceUsage: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "studio.yaml", "Config file of the studio")
}

func loadConfig(cmd *cobra.Command) (*annotation.Config, error) {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := annotation.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openApp loads the config and opens every backend. The caller closes the app.
func openApp(cmd *cobra.Command) (*annotation.StudioApp, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return annotation.NewStudioApp(cmd.Context(), cfg)
}
