package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grovekit/grove/pkg/models"
)

var syncCmd = &cobra.Command{
	Use:   "sync [project] [branch]",
	Short: "Reconcile checkouts with their remotes",
	Long: `Run one reconciliation pass.

With no arguments every checkout of every project is synced, in parallel up
to the configured worker count. With <project> every checkout of that
project is synced; with <project> <branch> only that checkout.

A checkout's failure never stops the others: failures show up as ERROR or
CONFLICT rows in the result.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if SyncEng == nil {
			return fmt.Errorf("sync engine not initialized")
		}

		var records []models.SyncRecord
		switch len(args) {
		case 2:
			records = append(records, SyncEng.SyncOne(cmd.Context(), args[0], args[1]))
		case 1:
			checkouts, err := Checkouts.ListCheckouts(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("listing checkouts: %w", err)
			}
			for _, c := range checkouts {
				records = append(records, SyncEng.SyncOne(cmd.Context(), c.Project, c.Branch))
			}
		default:
			var err error
			records, err = SyncEng.SyncAll(cmd.Context())
			if err != nil {
				return err
			}
		}

		if len(records) == 0 {
			fmt.Println("Nothing to sync.")
			return nil
		}
		printSyncRecords(records)
		return nil
	},
}

var resolveStrategy string

var resolveCmd = &cobra.Command{
	Use:   "resolve <project> <branch>",
	Short: "Resolve a conflicted checkout",
	Long: `Retry integrating remote changes into a conflicted checkout.

Strategies:
  auto-merge     retry the merge and keep only genuinely conflicting files
  prefer-local   resolve every conflict in favour of local changes
  prefer-remote  resolve every conflict in favour of remote changes`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if SyncEng == nil {
			return fmt.Errorf("sync engine not initialized")
		}

		result, err := SyncEng.ResolveConflicts(cmd.Context(), args[0], args[1],
			models.ResolveStrategy(resolveStrategy))
		if err != nil {
			return err
		}

		if result.Success {
			fmt.Printf("Resolved %s/%s with %s\n", args[0], args[1], resolveStrategy)
			return nil
		}
		fmt.Printf("Could not fully resolve %s/%s:\n", args[0], args[1])
		for _, f := range result.Record.ConflictingFiles {
			fmt.Printf("  %s\n", f)
		}
		return nil
	},
}

// printSyncRecords renders sync results as a table.
func printSyncRecords(records []models.SyncRecord) {
	fmt.Printf("%-20s %-25s %-10s %s\n", "PROJECT", "BRANCH", "STATUS", "DETAIL")
	for _, r := range records {
		detail := r.Message
		if len(r.ConflictingFiles) > 0 {
			detail = strings.Join(r.ConflictingFiles, ", ")
		}
		fmt.Printf("%-20s %-25s %-10s %s\n", r.Project, r.Branch, strings.ToUpper(string(r.Status)), detail)
	}
}

func init() {
	resolveCmd.Flags().StringVar(&resolveStrategy, "strategy", string(models.ResolveAutoMerge),
		"Resolution strategy (auto-merge, prefer-local, prefer-remote)")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(resolveCmd)
}
