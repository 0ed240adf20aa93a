package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lewtec/rotulador-studio/internal/domain"
	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage the tasks of a project",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <project> <name>",
	Short: "Add a pending task to a project and print its id",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		project, err := app.Store.GetProject(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if project == nil {
			return fmt.Errorf("project %s: %w", args[0], domain.ErrNotFound)
		}
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		task := domain.Task{ID: id.String(), ProjectID: args[0], Name: args[1]}
		task.Description, _ = cmd.Flags().GetString("description")
		task.AssignedTo, _ = cmd.Flags().GetString("assign")
		if due, _ := cmd.Flags().GetString("due"); due != "" {
			d, err := time.Parse(time.DateOnly, due)
			if err != nil {
				return fmt.Errorf("while parsing --due: %w", err)
			}
			task.DueDate = &d
		}
		if err := app.Store.SaveTask(cmd.Context(), task); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), task.ID)
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list <project>",
	Short: "List the tasks of a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		tasks, err := app.Store.GetTasksByProjectID(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("while listing tasks: %w", err)
		}
		for _, t := range tasks {
			due := "-"
			if t.DueDate != nil {
				due = t.DueDate.Format(time.DateOnly)
			}
			printRow(cmd.OutOrStdout(), t.ID, t.Name, string(t.Status), t.AssignedTo, due)
		}
		return nil
	},
}

var taskStatusCmd = &cobra.Command{
	Use:   "status <id> <status>",
	Short: "Move a task to pending, in_progress, review, completed or archived",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		task, err := app.Store.GetTask(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if task == nil {
			return fmt.Errorf("task %s: %w", args[0], domain.ErrNotFound)
		}
		task.Status = domain.TaskStatus(args[1])
		task.UpdatedAt = time.Time{}
		return app.Store.SaveTask(cmd.Context(), *task)
	},
}

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskStatusCmd)
	taskAddCmd.Flags().String("description", "", "What the task is about")
	taskAddCmd.Flags().String("assign", "", "Who works on the task")
	taskAddCmd.Flags().String("due", "", "Due date as YYYY-MM-DD")
}
