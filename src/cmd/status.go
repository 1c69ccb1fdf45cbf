package cmd

import (
	"os"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the lock's recorded files against the live install tree",
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

		if pc.Project.IsDirty() {
			pterm.Warning.Println("A prior transaction did not complete; the install tree may be inconsistent.")
		}

		missing := 0
		for name, pkg := range pc.Lock.Packages {
			for _, rel := range pkg.Files {
				if _, err := os.Stat(filepath.Join(pc.Project.InstallDir(), rel)); err != nil {
					pterm.Warning.Printf("%s: missing recorded file %s\n", name, rel)
					missing++
				}
			}
		}
		if missing == 0 {
			pterm.Success.Printf("%d package(s) locked, install tree consistent.\n", len(pc.Lock.Packages))
			return
		}
		pterm.Error.Printf("%d missing file(s) across the install tree.\n", missing)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
