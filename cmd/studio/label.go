package main

import (
	"fmt"

	"github.com/lewtec/rotulador-studio/internal/domain"
	"github.com/spf13/cobra"
)

var labelCmd = &cobra.Command{
	Use:   "label",
	Short: "Manage labels",
}

var labelEnsureCmd = &cobra.Command{
	Use:   "ensure <project> <name>",
	Short: "Print the id of a label, creating it when missing",
	Long: `Looks the label up with the configured editor.label_match mode and creates
it when no label matches. Running it twice returns the same label.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		color, _ := cmd.Flags().GetString("color")
		label, err := app.Resolver().GetOrCreate(cmd.Context(), args[0], args[1], color)
		if err != nil {
			return err
		}
		printRow(cmd.OutOrStdout(), label.ID, label.Name, label.Color)
		return nil
	},
}

var labelListCmd = &cobra.Command{
	Use:   "list [project]",
	Short: "List the labels of a project, or every label",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		var labels []domain.Label
		if len(args) == 1 {
			labels, err = app.Store.GetLabelsByProjectID(cmd.Context(), args[0])
		} else {
			labels, err = app.Store.GetLabels(cmd.Context())
		}
		if err != nil {
			return fmt.Errorf("while listing labels: %w", err)
		}
		for _, l := range labels {
			printRow(cmd.OutOrStdout(), l.ID, l.Name, l.Color, l.ProjectID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(labelCmd)
	labelCmd.AddCommand(labelEnsureCmd, labelListCmd)
	labelEnsureCmd.Flags().String("color", "#ff0000", "Color of a newly created label")
}
