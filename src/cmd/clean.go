package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"pkgforge/src/internal/pkgdir"
)

var forceFlag bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove all global pkgforge state (registry cache, settings)",
	Long: `Remove the global pkgforge home directory (registry cache, ambient
settings). WARNING: this operation is destructive and does not touch any
project's own manifest, lock, or install tree.`,
	Run: func(cmd *cobra.Command, args []string) {
		home := pkgdir.MustHome()
		if !forceFlag {
			pterm.Warning.Printf("This will delete %s (settings, registry cache).\n", home)
			fmt.Print("Are you sure you want to proceed? (y/N): ")

			reader := bufio.NewReader(os.Stdin)
			input, _ := reader.ReadString('\n')
			input = strings.TrimSpace(strings.ToLower(input))
			if input != "y" && input != "yes" {
				pterm.Info.Println("Cleanup cancelled.")
				return
			}
		}

		if _, err := os.Stat(home); err == nil {
			pterm.Info.Printf("Removing %s...\n", home)
			if err := os.RemoveAll(home); err != nil {
				pterm.Error.Printf("Failed to remove %s: %v\n", home, err)
				return
			}
		}
		pterm.Success.Println("Global pkgforge state removed.")
	},
}

func init() {
	cleanCmd.Flags().BoolVarP(&forceFlag, "force", "f", false, "clean without confirmation prompt")
	rootCmd.AddCommand(cleanCmd)
}
