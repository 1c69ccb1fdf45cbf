package cmd

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"pkgforge/src/internal/installer"
)

var autoremoveFlag bool

var removeCmd = &cobra.Command{
	Use:   "remove <package_name>...",
	Short: "Remove one or more packages and everything that depends on them",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		wd, err := os.Getwd()
		if err != nil {
			pterm.Error.Printf("Failed to get cwd: %v\n", err)
			return
		}
		pc, err := loadProjectContext(wd)
		if err != nil {
			pterm.Error.Printf("Failed to load project: %v\n", err)
			return
		}

		removed, err := installer.Uninstall(&pc.Man, &pc.Lock, pc.Project.InstallDir(), args, autoremoveFlag)
		if err != nil {
			pterm.Error.Printf("Remove failed: %v\n", err)
			return
		}
		if err := pc.save(); err != nil {
			pterm.Warning.Printf("Removed but failed to persist manifest/lock: %v\n", err)
			return
		}
		pterm.Success.Printf("Removed %d package(s): %v\n", len(removed), removed)
	},
}

func init() {
	removeCmd.Flags().BoolVar(&autoremoveFlag, "autoremove", false, "also remove now-orphaned non-direct dependencies")
	rootCmd.AddCommand(removeCmd)
}
