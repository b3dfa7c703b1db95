package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// defaultConfigContent is the starter .groveconfig written by "grove init".
const defaultConfigContent = `# Grove configuration
root_dir: checkouts
defaults:
  branch: main
sync:
  interval_seconds: 300
  workers: 4
git:
  timeout_seconds: 120
branch:
  max_length: 50
intake:
  dir: workitems
# remotes:
#   myproject: git@example.com:org/myproject.git
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a Grove workspace in the current directory",
	Long: `Create the directory layout and a starter .groveconfig in the base path.

An existing .groveconfig is left untouched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Checkouts == nil {
			return fmt.Errorf("checkout manager not initialized")
		}

		configPath := filepath.Join(BasePath, ".groveconfig")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			if err := os.WriteFile(configPath, []byte(defaultConfigContent), 0o644); err != nil {
				return fmt.Errorf("writing .groveconfig: %w", err)
			}
			fmt.Printf("Created %s\n", configPath)
		} else {
			fmt.Printf("Keeping existing %s\n", configPath)
		}

		if err := Checkouts.Initialize(); err != nil {
			return fmt.Errorf("initializing workspace: %w", err)
		}
		fmt.Printf("Workspace ready at %s\n", BasePath)
		fmt.Printf("  Checkout root: %s\n", Config.RootDir)
		fmt.Printf("  Intake dir:    %s\n", Config.IntakeDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
