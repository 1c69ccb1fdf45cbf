package cmd

import (
	"os"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"pkgforge/src/internal/manifest"
	"pkgforge/src/internal/pkgdir"
)

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Initialize a project with an empty pkgforge.json manifest",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := ""
		if len(args) > 0 {
			name = args[0]
		}

		wd, err := os.Getwd()
		if err != nil {
			pterm.Error.Printf("Failed to get cwd: %v\n", err)
			return
		}
		if name != "" && name != "." {
			wd = filepath.Join(wd, name)
			if err := os.MkdirAll(wd, 0o755); err != nil {
				pterm.Error.Printf("Failed to create %s: %v\n", wd, err)
				return
			}
		}

		project := pkgdir.NewProject(wd)
		if err := project.EnsureContainer(); err != nil {
			pterm.Error.Printf("Failed to prepare container: %v\n", err)
			return
		}

		man, err := manifest.LoadOrCreate(project.ManifestPath(), wd)
		if err != nil {
			pterm.Error.Printf("Failed to load manifest: %v\n", err)
			return
		}
		if err := manifest.Save(project.ManifestPath(), man); err != nil {
			pterm.Error.Printf("Failed to write %s: %v\n", project.ManifestPath(), err)
			return
		}
		pterm.Success.Printf("Initialized %s\n", project.ManifestPath())
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
