package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var watchNoIntake bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the sync scheduler and intake watcher until interrupted",
	Long: `Run Grove's background loops in the foreground:

  - the sync scheduler, reconciling every checkout on the configured interval
  - the intake watcher, enqueueing work items as files appear

Stop with Ctrl-C. Use --no-intake to run the scheduler alone.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Scheduler == nil {
			return fmt.Errorf("sync scheduler not initialized")
		}
		if Intake == nil && !watchNoIntake {
			return fmt.Errorf("intake service not initialized")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Watching: sync every %s", Config.SyncInterval)
		if !watchNoIntake {
			fmt.Printf(", intake at %s", Config.IntakeDir)
		}
		fmt.Println(" (Ctrl-C to stop)")

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			Scheduler.Run(gctx)
			return nil
		})
		if !watchNoIntake {
			g.Go(func() error {
				return Intake.Watch(gctx)
			})
		}
		return g.Wait()
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchNoIntake, "no-intake", false, "Run the sync scheduler without the intake watcher")
	rootCmd.AddCommand(watchCmd)
}
