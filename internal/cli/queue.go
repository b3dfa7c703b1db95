package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovekit/grove/pkg/models"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Manage per-checkout task queues (add, next, done, remove, stats)",
	Long: `Task queue commands.

Every (project, branch) pair has its own ordered queue. Tasks are served
highest priority first, FIFO within a priority, with at most one active
task per checkout. Queue state survives restarts through a durable log.`,
}

var (
	queueAddID       string
	queueAddType     string
	queueAddPriority string
)

var queueAddCmd = &cobra.Command{
	Use:   "add <project> <branch> <title>",
	Short: "Enqueue a task on a checkout's queue",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("task queue not initialized")
		}
		if queueAddID == "" {
			return fmt.Errorf("--id is required")
		}

		err := Queue.Enqueue(args[0], args[1], queueAddID, args[2],
			models.TaskType(queueAddType), models.Priority(queueAddPriority))
		if err != nil {
			return err
		}
		fmt.Printf("Enqueued %s on %s/%s (%s)\n", queueAddID, args[0], args[1], queueAddPriority)
		return nil
	},
}

var queueNextCmd = &cobra.Command{
	Use:   "next <project> <branch>",
	Short: "Start the next task on a checkout's queue",
	Long: `Start the highest-priority pending task. If a task is already active
it is printed again; starting is idempotent.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("task queue not initialized")
		}

		task, err := Queue.StartNext(args[0], args[1])
		if err != nil {
			return err
		}
		if task == nil {
			fmt.Printf("Queue %s/%s is empty.\n", args[0], args[1])
			return nil
		}

		fmt.Printf("Active task %s\n", task.ID)
		fmt.Printf("  Title:    %s\n", task.Title)
		fmt.Printf("  Type:     %s\n", task.Type)
		fmt.Printf("  Priority: %s\n", task.Priority)
		return nil
	},
}

var queueDoneFailed bool

var queueDoneCmd = &cobra.Command{
	Use:   "done <project> <branch> <task-id>",
	Short: "Complete the active task",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("task queue not initialized")
		}

		if err := Queue.Complete(args[0], args[1], args[2], !queueDoneFailed); err != nil {
			return err
		}
		outcome := "completed"
		if queueDoneFailed {
			outcome = "failed"
		}
		fmt.Printf("Task %s %s on %s/%s\n", args[2], outcome, args[0], args[1])
		return nil
	},
}

var queueRemoveCmd = &cobra.Command{
	Use:   "remove <project> <branch> <task-id>",
	Short: "Remove a task from a queue regardless of status",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("task queue not initialized")
		}

		if err := Queue.Remove(args[0], args[1], args[2]); err != nil {
			return err
		}
		fmt.Printf("Removed task %s from %s/%s\n", args[2], args[0], args[1])
		return nil
	},
}

var queueStatsCmd = &cobra.Command{
	Use:   "stats <project> <branch>",
	Short: "Show queue counts for a checkout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("task queue not initialized")
		}

		stats, err := Queue.Stats(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Queue %s/%s\n", args[0], args[1])
		fmt.Printf("  Pending:   %d\n", stats.PendingCount)
		fmt.Printf("  Active:    %d\n", stats.ActiveCount)
		fmt.Printf("  Completed: %d\n", stats.CompletedCount)
		fmt.Printf("  Failed:    %d\n", stats.FailedCount)
		return nil
	},
}

func init() {
	queueAddCmd.Flags().StringVar(&queueAddID, "id", "", "Task ID (required, unique per queue)")
	queueAddCmd.Flags().StringVar(&queueAddType, "type", string(models.TaskTypeChore), "Task type (feature, bug, chore)")
	queueAddCmd.Flags().StringVar(&queueAddPriority, "priority", string(models.PriorityMedium), "Priority (critical, high, medium, low)")
	queueDoneCmd.Flags().BoolVar(&queueDoneFailed, "failed", false, "Mark the task as failed instead of completed")

	queueCmd.AddCommand(queueAddCmd)
	queueCmd.AddCommand(queueNextCmd)
	queueCmd.AddCommand(queueDoneCmd)
	queueCmd.AddCommand(queueRemoveCmd)
	queueCmd.AddCommand(queueStatsCmd)
	rootCmd.AddCommand(queueCmd)
}
