package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	cleanupOlderThan time.Duration
	cleanupDryRun    bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove stale feature checkouts",
	Long: `Remove feature checkouts older than the retention age.

A checkout is removed only when it is clean, idle (no active task), and not
the project's primary checkout. Set retention.hours in .groveconfig or pass
--older-than. With neither, cleanup refuses to run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Checkouts == nil {
			return fmt.Errorf("checkout manager not initialized")
		}

		age := cleanupOlderThan
		if age <= 0 {
			age = Config.RetentionAge
		}
		if age <= 0 {
			return fmt.Errorf("no retention age configured: set retention.hours or pass --older-than")
		}

		cutoff := time.Now().Add(-age)
		projects, err := Checkouts.ListProjects()
		if err != nil {
			return fmt.Errorf("listing projects: %w", err)
		}

		removed := 0
		for _, project := range projects {
			checkouts, listErr := Checkouts.ListCheckouts(cmd.Context(), project)
			if listErr != nil {
				return fmt.Errorf("listing checkouts for %s: %w", project, listErr)
			}
			defaultBranch := Checkouts.DefaultBranch(project)

			for _, c := range checkouts {
				if c.Branch == defaultBranch {
					continue
				}
				if c.Created.IsZero() || c.Created.After(cutoff) {
					continue
				}
				if cleanupDryRun {
					fmt.Printf("Would remove %s/%s (last touched %s)\n",
						c.Project, c.Branch, c.Created.Format("2006-01-02"))
					removed++
					continue
				}
				if err := Checkouts.RemoveCheckout(cmd.Context(), c.Project, c.Branch, false); err != nil {
					// Dirty or busy checkouts are kept; cleanup is best-effort.
					fmt.Printf("Keeping %s/%s: %v\n", c.Project, c.Branch, err)
					continue
				}
				fmt.Printf("Removed %s/%s\n", c.Project, c.Branch)
				removed++
			}
		}

		if cleanupDryRun {
			fmt.Printf("%d checkout(s) would be removed.\n", removed)
		} else {
			fmt.Printf("%d checkout(s) removed.\n", removed)
		}
		return nil
	},
}

func init() {
	cleanupCmd.Flags().DurationVar(&cleanupOlderThan, "older-than", 0, "Remove checkouts older than this (e.g. 720h)")
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Report what would be removed without removing")
	rootCmd.AddCommand(cleanupCmd)
}
