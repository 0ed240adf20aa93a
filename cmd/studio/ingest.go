package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest --project <id> <folder>...",
	Short: "Ingest folders of image files into a project",
	Long: `Walks the folders, re-encodes every image as PNG into the blob storage under
its content hash and adds it to the project. Files that are not images are
skipped. The project is created when missing.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.MinimumNArgs(1)(cmd, args); err != nil {
			return err
		}
		for i, input := range args {
			fileInfo, err := os.Stat(input)
			if err != nil {
				return fmt.Errorf("on %dth argument: %w", i+1, err)
			}
			if !fileInfo.IsDir() {
				return fmt.Errorf("on %dth argument: must be a directory", i+1)
			}
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, _ := cmd.Flags().GetString("project")
		if projectID == "" {
			return fmt.Errorf("--project is required")
		}
		jobs, _ := cmd.Flags().GetUint("jobs")

		app, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		images, err := app.Ingester(int(jobs)).Ingest(cmd.Context(), projectID, args)
		if err != nil {
			return err
		}
		if err := app.Cache.ClearImageCache(cmd.Context(), projectID); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, img := range images {
			fmt.Fprintf(out, "%s\t%s\n", img.ID, img.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringP("project", "p", "", "Project receiving the images")
	ingestCmd.Flags().UintP("jobs", "j", 1, "Amount of concurrent ingestors")
}
