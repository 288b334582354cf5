package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/rlm/internal/logger"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Background task commands",
}

var schedulerRunCmd = &cobra.Command{
	Use:   "run [task-id]",
	Short: "Run scheduled tasks now",
	Long: `Runs one background task immediately, or lists the tasks and their
last results when no task is given.

Tasks:
  retention          - archive stale chunks (and purge when auto_purge is set)
  embedding-backfill - embed chunks missing a vector`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSchedulerRun,
}

var schedulerHistoryCmd = &cobra.Command{
	Use:   "history <task-id>",
	Short: "Show recent runs of a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchedulerHistory,
}

func init() {
	schedulerHistoryCmd.Flags().IntP("limit", "n", 10, "Number of runs to show")
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerHistoryCmd)
	rootCmd.AddCommand(schedulerCmd)
}

// startScheduler runs the scheduler in the background for long-running
// commands. The returned function stops it.
func startScheduler(ctx context.Context) func() {
	if scheduler == nil || !schedulerConfig.Enabled {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := scheduler.Start(ctx); err != nil {
			// scheduler errors shouldn't stop the foreground command
			logger.Warn("scheduler stopped: %v", err)
		}
	}()

	return func() {
		if err := scheduler.Stop(); err != nil {
			logger.Warn("scheduler stop error: %v", err)
		}
		cancel()
		<-done
	}
}

func runSchedulerRun(cmd *cobra.Command, args []string) error {
	if scheduler == nil {
		return errSchedulerUnavailable
	}
	ctx := commandContext(cmd)

	if len(args) == 0 {
		tasks, err := scheduler.Tasks(ctx)
		if err != nil {
			return err
		}
		if jsonFlag {
			return printJSON(cmd, tasks)
		}
		for _, t := range tasks {
			state := "enabled"
			if !t.Enabled {
				state = "disabled"
			}
			cmd.Printf("%-10s %-8s every %s, last run %s, next %s\n",
				t.ID, state, t.Interval, formatAge(t.LastRun), formatDate(t.NextRun))
			if t.LastError != "" {
				cmd.Printf("           last error: %s\n", t.LastError)
			}
		}
		return nil
	}

	result, err := scheduler.RunTask(ctx, args[0])
	if err != nil {
		return reportFailure(cmd, err)
	}
	if jsonFlag {
		return printJSON(cmd, result)
	}
	if !result.Success {
		cmd.Printf("Task %s failed: %s\n", result.TaskID, result.Error)
		return nil
	}
	cmd.Printf("Task %s completed: %d items in %s\n",
		result.TaskID, result.ItemsProcessed, result.Duration().Round(time.Millisecond))
	return nil
}

func runSchedulerHistory(cmd *cobra.Command, args []string) error {
	if scheduler == nil {
		return errSchedulerUnavailable
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	results, err := scheduler.History(commandContext(cmd), args[0], limit)
	if err != nil {
		return reportFailure(cmd, err)
	}
	if jsonFlag {
		return printJSON(cmd, results)
	}
	if len(results) == 0 {
		cmd.Printf("No runs recorded for %s\n", args[0])
		return nil
	}
	for _, r := range results {
		outcome := fmt.Sprintf("ok, %d items", r.ItemsProcessed)
		if !r.Success {
			outcome = "failed: " + r.Error
		}
		cmd.Printf("%s  %8s  %s\n",
			formatDate(r.StartedAt), r.Duration().Round(time.Millisecond), outcome)
	}
	return nil
}
