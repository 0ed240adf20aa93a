package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/lewtec/rotulador-studio/internal/domain"
	"github.com/spf13/cobra"
)

func printRow(w io.Writer, fields ...string) {
	fmt.Fprintln(w, strings.Join(fields, "\t"))
}

var queryCmd = &cobra.Command{
	Use:   "query [project] [image]",
	Short: "Queries the annotation storage",
	Long: `Without arguments lists the projects. With a project lists its images, in
navigation order. With a project and an image lists the image's annotations.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		switch len(args) {
		case 0:
			projects, err := app.Store.ListProjects(ctx)
			if err != nil {
				return err
			}
			for _, p := range projects {
				printRow(out, p.ID, p.Name)
			}
		case 1:
			images, err := app.Store.FetchImageDataByProjectID(ctx, args[0])
			if err != nil {
				return err
			}
			for _, img := range images {
				printRow(out, img.ID, img.Name, fmt.Sprintf("%dx%d", img.Width, img.Height))
			}
		case 2:
			img, err := app.Store.GetImage(ctx, args[1])
			if err != nil {
				return err
			}
			if img == nil || img.ProjectID != args[0] {
				return fmt.Errorf("image %s in project %s: %w", args[1], args[0], domain.ErrNotFound)
			}
			anns, err := app.Store.GetAnnotations(ctx, img.ID)
			if err != nil {
				return err
			}
			for _, a := range anns {
				label := ""
				if a.Label != nil {
					label = a.Label.Name
				}
				printRow(out, a.ID, string(a.Type), label, fmt.Sprintf("%d points", len(a.Coordinates)))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
}
