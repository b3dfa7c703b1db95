package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grovekit/grove/internal/core"
	"github.com/grovekit/grove/pkg/models"
)

var statusProject string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display per-project sync health",
	Long: `Display the aggregate sync status of every project, derived from the
latest reconciliation records.

Project status precedence: error > conflict > attention > synced > pending.
A project with no records yet shows as pending. Use --project to also list
the per-branch records of one project.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if SyncEng == nil || Checkouts == nil {
			return fmt.Errorf("sync engine not initialized")
		}

		if statusProject != "" {
			records := SyncEng.Records(statusProject)
			fmt.Printf("== %s: %s ==\n", statusProject,
				strings.ToUpper(string(core.AggregateProjectStatus(records))))
			if len(records) == 0 {
				fmt.Println("No sync records yet. Run 'grove sync' first.")
				return nil
			}
			printSyncRecords(records)
			return nil
		}

		projects, err := Checkouts.ListProjects()
		if err != nil {
			return fmt.Errorf("listing projects: %w", err)
		}
		if len(projects) == 0 {
			fmt.Println("No projects found.")
			return nil
		}

		byProject := make(map[string][]models.SyncRecord)
		for _, r := range SyncEng.AllRecords() {
			byProject[r.Project] = append(byProject[r.Project], r)
		}

		sort.Strings(projects)
		fmt.Printf("%-20s %-10s %s\n", "PROJECT", "STATUS", "BRANCHES")
		for _, p := range projects {
			records := byProject[p]
			var attention []string
			for _, r := range records {
				if r.NeedsAttention {
					attention = append(attention, r.Branch)
				}
			}
			detail := fmt.Sprintf("%d synced", len(records))
			if len(attention) > 0 {
				detail += ", attention: " + strings.Join(attention, ", ")
			}
			fmt.Printf("%-20s %-10s %s\n", p,
				strings.ToUpper(string(core.AggregateProjectStatus(records))), detail)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusProject, "project", "", "Show per-branch records for one project")
	rootCmd.AddCommand(statusCmd)
}
