package cmd

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"pkgforge/src/internal/snapshot"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [message]",
	Short: "Commit the project tree into the workspace snapshot history",
	Args:  cobra.MaximumNArgs(1),
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
		message := "manual snapshot"
		if len(args) == 1 {
			message = args[0]
		}
		ws := snapshot.New(pc.Project)
		if err := ws.Commit(message); err != nil {
			pterm.Error.Printf("Snapshot failed: %v\n", err)
			return
		}
		pterm.Success.Println("Snapshot committed.")
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset-hard",
	Short: "Discard changes since the last snapshot",
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
		ws := snapshot.New(pc.Project)
		if err := ws.ResetHard(); err != nil {
			pterm.Error.Printf("Reset failed: %v\n", err)
			return
		}
		pterm.Success.Println("Project tree reset to last snapshot.")
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(resetCmd)
}
