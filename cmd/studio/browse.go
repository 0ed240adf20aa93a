package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Navigate the images of a project",
}

var browsePageCmd = &cobra.Command{
	Use:   "page <project>",
	Short: "Print one page of a project's images",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		page, _ := cmd.Flags().GetInt("page")
		size, _ := cmd.Flags().GetInt("size")
		pager := app.Pager(args[0])
		if size > 0 {
			if err := pager.SetPageSize(cmd.Context(), size); err != nil {
				return err
			}
		}
		if err := pager.SetPageIndex(cmd.Context(), page); err != nil {
			return err
		}
		state := pager.State()
		out := cmd.OutOrStdout()
		for _, img := range state.Images {
			printRow(out, img.ID, img.Name)
		}
		fmt.Fprintf(out, "page %d of %d (%d images)\n", state.PageIndex+1, state.PageCount, state.TotalCount)
		return nil
	},
}

func navigate(previous bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		current := ""
		if len(args) == 2 {
			current = args[1]
		}
		var id string
		var ok bool
		if previous {
			id, ok, err = app.Cache.PreviousImage(cmd.Context(), args[0], current)
		} else {
			id, ok, err = app.Cache.NextImage(cmd.Context(), args[0], current)
		}
		if err != nil {
			return err
		}
		if !ok {
			direction := "after"
			if previous {
				direction = "before"
			}
			return fmt.Errorf("no image %s %q in project %s", direction, current, args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	}
}

var browseNextCmd = &cobra.Command{
	Use:   "next <project> [image]",
	Short: "Print the image after the given one, or the first image",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  navigate(false),
}

var browsePreviousCmd = &cobra.Command{
	Use:   "previous <project> <image>",
	Short: "Print the image before the given one",
	Args:  cobra.ExactArgs(2),
	RunE:  navigate(true),
}

func init() {
	rootCmd.AddCommand(browseCmd)
	browseCmd.AddCommand(browsePageCmd, browseNextCmd, browsePreviousCmd)
	browsePageCmd.Flags().Int("page", 0, "Zero based page index")
	browsePageCmd.Flags().Int("size", 0, "Page size, defaults to browse.page_size")
}
