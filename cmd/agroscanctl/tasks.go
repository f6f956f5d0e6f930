package main

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/25S2-PRT681-Group-D/server/internal/repository"
	"github.com/25S2-PRT681-Group-D/server/internal/service"
	"github.com/spf13/cobra"
)

func newTasksCommand(ctx *commandContext) *cobra.Command {
	tasksCmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect and manage the background task queue",
	}

	tasksCmd.AddCommand(newTasksStatusCommand(ctx))
	tasksCmd.AddCommand(newTasksListCommand(ctx))
	tasksCmd.AddCommand(newTasksCancelCommand(ctx))

	return tasksCmd
}

func newTasksStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show task counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueries(func(_ *sql.DB, queries *repository.Queries) error {
				stats, err := service.NewTaskService(queries, ctx.logger()).Stats(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Status", "Count"},
					buildTaskStatusRows(*stats),
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func newTasksListCommand(ctx *commandContext) *cobra.Command {
	var status string
	var limit int32

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := domain.TaskStatus(status)
			if s != "" && !s.IsValid() {
				return fmt.Errorf("unknown status %q (want one of %v)", status, domain.TaskStatuses)
			}
			return ctx.withQueries(func(_ *sql.DB, queries *repository.Queries) error {
				tasks, err := service.NewTaskService(queries, ctx.logger()).List(cmd.Context(), s, limit)
				if err != nil {
					return err
				}
				if len(tasks) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No tasks")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Task", "Status", "Attempts", "Scheduled", "Error"},
					buildTaskListRows(tasks),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only show tasks in this status")
	cmd.Flags().Int32Var(&limit, "limit", 50, "Maximum number of tasks")

	return cmd
}

func newTasksCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <task-id>",
		Short: "Cancel a queued task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueries(func(_ *sql.DB, queries *repository.Queries) error {
				cancelled, err := service.NewTaskService(queries, ctx.logger()).Cancel(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !cancelled {
					return fmt.Errorf("task %s is not queued", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cancelled task %s\n", args[0])
				return nil
			})
		},
	}
}

func buildTaskStatusRows(stats domain.TaskStats) [][]string {
	counts := map[domain.TaskStatus]int64{
		domain.TaskStatusQueued:     stats.Queued,
		domain.TaskStatusProcessing: stats.Processing,
		domain.TaskStatusCompleted:  stats.Completed,
		domain.TaskStatusFailed:     stats.Failed,
		domain.TaskStatusCancelled:  stats.Cancelled,
	}
	rows := make([][]string, 0, len(domain.TaskStatuses)+1)
	for _, status := range domain.TaskStatuses {
		rows = append(rows, []string{string(status), strconv.FormatInt(counts[status], 10)})
	}
	rows = append(rows, []string{"Total", strconv.FormatInt(stats.Total(), 10)})
	return rows
}

func buildTaskListRows(tasks []domain.Task) [][]string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			t.ID,
			string(t.Kind),
			string(t.Status),
			fmt.Sprintf("%d/%d", t.Attempts, t.MaxAttempts),
			t.ScheduledAt.Local().Format(time.DateTime),
			truncate(t.ErrorMessage, 48),
		})
	}
	return rows
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
