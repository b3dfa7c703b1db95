package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovekit/grove/internal/core"
	"github.com/grovekit/grove/pkg/models"
)

var intakeCmd = &cobra.Command{
	Use:   "intake",
	Short: "Ingest work items (scan, suggest)",
	Long: `Work-item intake commands.

Work items are markdown files with YAML front matter dropped into the
intake directory. Ingesting a file routes it to a branch and enqueues a
task; files whose task is already queued are skipped, so re-scanning is
safe.`,
}

var intakeScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Process every work item currently in the intake directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Intake == nil {
			return fmt.Errorf("intake service not initialized")
		}

		ingested, err := Intake.Scan(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Ingested %d work item(s).\n", ingested)
		return nil
	},
}

var (
	suggestType string
	suggestArea string
	suggestDesc string
)

var intakeSuggestCmd = &cobra.Command{
	Use:   "suggest <project> <title>",
	Short: "Preview the branch a work item would be routed to",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Categorizer == nil {
			return fmt.Errorf("categorizer not initialized")
		}

		var existing []string
		if Checkouts != nil {
			if list, err := Checkouts.ListBranches(cmd.Context(), args[0]); err == nil && list != nil {
				existing = append(existing, list.Active...)
				existing = append(existing, list.Inactive...)
			}
		}

		suggestion := Categorizer.Suggest(core.SuggestInput{
			Title:          args[1],
			Description:    suggestDesc,
			Type:           models.TaskType(suggestType),
			FunctionalArea: suggestArea,
		}, existing)

		fmt.Printf("Branch:   %s\n", suggestion.BranchName)
		fmt.Printf("Team:     %s\n", suggestion.Category.Team)
		fmt.Printf("Category: %s\n", suggestion.Category.Label)
		return nil
	},
}

func init() {
	intakeSuggestCmd.Flags().StringVar(&suggestType, "type", string(models.TaskTypeChore), "Task type (feature, bug, chore)")
	intakeSuggestCmd.Flags().StringVar(&suggestArea, "area", "", "Functional area hint")
	intakeSuggestCmd.Flags().StringVar(&suggestDesc, "description", "", "Work item description")

	intakeCmd.AddCommand(intakeScanCmd)
	intakeCmd.AddCommand(intakeSuggestCmd)
	rootCmd.AddCommand(intakeCmd)
}
