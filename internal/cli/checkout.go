package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovekit/grove/pkg/models"
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Manage checkouts (create, remove, list, branches, path)",
	Long: `Checkout lifecycle commands.

A checkout is one working directory for a (project, branch) pair. The
project's default branch is the primary clone; every other branch is a
linked worktree sharing the primary's object store.`,
}

var checkoutCreateBase string

var checkoutCreateCmd = &cobra.Command{
	Use:   "create <project> <branch>",
	Short: "Create a checkout for a project branch",
	Long: `Materialize the checkout for <project>/<branch> under the checkout root.

New branches start from the project's default branch unless --base names
another starting point.

Branch names must be lowercase, use only a-z, 0-9, and single hyphens, and
stay under the configured length limit. Invalid names are rejected with a
suggested alternative; they are never rewritten silently.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Checkouts == nil {
			return fmt.Errorf("checkout manager not initialized")
		}

		checkout, err := Checkouts.CreateCheckout(cmd.Context(), args[0], args[1], checkoutCreateBase)
		if err != nil {
			if errors.Is(err, models.ErrAlreadyExists) {
				return fmt.Errorf("checkout %s/%s already exists", args[0], args[1])
			}
			return err
		}

		fmt.Printf("Created checkout %s/%s\n", checkout.Project, checkout.Branch)
		fmt.Printf("  Path: %s\n", checkout.Path)
		return nil
	},
}

var checkoutRemoveForce bool

var checkoutRemoveCmd = &cobra.Command{
	Use:   "remove <project> <branch>",
	Short: "Remove a checkout",
	Long: `Remove the checkout for <project>/<branch>.

Checkouts with uncommitted changes are refused unless --force is given.
Checkouts whose queue has an active task are always refused.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Checkouts == nil {
			return fmt.Errorf("checkout manager not initialized")
		}

		if err := Checkouts.RemoveCheckout(cmd.Context(), args[0], args[1], checkoutRemoveForce); err != nil {
			return err
		}
		fmt.Printf("Removed checkout %s/%s\n", args[0], args[1])
		return nil
	},
}

var checkoutListCmd = &cobra.Command{
	Use:   "list <project>",
	Short: "List a project's checkouts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Checkouts == nil {
			return fmt.Errorf("checkout manager not initialized")
		}

		checkouts, err := Checkouts.ListCheckouts(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("listing checkouts: %w", err)
		}
		if len(checkouts) == 0 {
			fmt.Printf("No checkouts for %s.\n", args[0])
			return nil
		}

		fmt.Printf("%-30s %s\n", "BRANCH", "PATH")
		for _, c := range checkouts {
			fmt.Printf("%-30s %s\n", c.Branch, c.Path)
		}
		return nil
	},
}

var checkoutBranchesCmd = &cobra.Command{
	Use:   "branches <project>",
	Short: "List a project's branches, split by checkout state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Checkouts == nil {
			return fmt.Errorf("checkout manager not initialized")
		}

		list, err := Checkouts.ListBranches(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("listing branches: %w", err)
		}

		fmt.Printf("Checked out (%d):\n", len(list.Active))
		for _, b := range list.Active {
			fmt.Printf("  %s\n", b)
		}
		fmt.Printf("Not checked out (%d):\n", len(list.Inactive))
		for _, b := range list.Inactive {
			fmt.Printf("  %s\n", b)
		}
		return nil
	},
}

var checkoutPathCmd = &cobra.Command{
	Use:   "path <project> <branch>",
	Short: "Print the canonical path for a checkout",
	Long: `Print where the checkout for <project>/<branch> lives (or would live).
The path is derived, never looked up, so it works for checkouts that do not
exist yet.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Resolver == nil {
			return fmt.Errorf("path resolver not initialized")
		}

		if v := Resolver.ValidateBranchName(args[1]); !v.Valid {
			for _, e := range v.Errors {
				fmt.Printf("error: %s\n", e)
			}
			for _, s := range v.Suggestions {
				fmt.Printf("suggestion: %s\n", s)
			}
			return fmt.Errorf("%w: %s", models.ErrInvalidBranchName, args[1])
		}

		fmt.Println(Resolver.ResolvePath(args[0], args[1]))
		return nil
	},
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List projects under the checkout root",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Checkouts == nil {
			return fmt.Errorf("checkout manager not initialized")
		}

		projects, err := Checkouts.ListProjects()
		if err != nil {
			return fmt.Errorf("listing projects: %w", err)
		}
		if len(projects) == 0 {
			fmt.Println("No projects found.")
			return nil
		}
		for _, p := range projects {
			fmt.Println(p)
		}
		return nil
	},
}

func init() {
	checkoutCreateCmd.Flags().StringVar(&checkoutCreateBase, "base", "", "Branch to start the new branch from (default branch when unset)")
	checkoutRemoveCmd.Flags().BoolVar(&checkoutRemoveForce, "force", false, "Remove even with uncommitted changes")

	checkoutCmd.AddCommand(checkoutCreateCmd)
	checkoutCmd.AddCommand(checkoutRemoveCmd)
	checkoutCmd.AddCommand(checkoutListCmd)
	checkoutCmd.AddCommand(checkoutBranchesCmd)
	checkoutCmd.AddCommand(checkoutPathCmd)
	rootCmd.AddCommand(checkoutCmd)
	rootCmd.AddCommand(projectsCmd)
}
