package cmd

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every package recorded in the lock",
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

		names := pc.Lock.AllPackageNames()
		if len(names) == 0 {
			pterm.Info.Println("No packages locked yet.")
			return
		}
		rows := pterm.TableData{{"PACKAGE", "VERSION", "DIRECT", "USE"}}
		for _, name := range names {
			pkg := pc.Lock.Packages[name]
			direct := ""
			if pc.Man.IsDirect(name) {
				direct = "yes"
			}
			rows = append(rows, []string{name, pkg.Version, direct, joinTokens(pkg.Use)})
		}
		_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}

func joinTokens(tokens []string) string {
	out := ""
	for i, t := range tokens {
		if i > 0 {
			out += " "
		}
		out += t
	}
	return out
}

func init() {
	rootCmd.AddCommand(listCmd)
}
