package cmd

import (
	"context"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"pkgforge/src/internal/registry"
)

var addCmd = &cobra.Command{
	Use:   "add <package_name[@range_expr]>...",
	Short: "Add one or more packages as direct dependencies and install them",
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

		names := make([]string, 0, len(args))
		for _, a := range args {
			name, expr := splitRequirement(a)
			pc.Man.SetDependency(name, expr)
			names = append(names, name)
		}

		ctx := context.Background()
		if _, err := registry.FetchVersionsConcurrently(ctx, pc.Client, names, 8); err != nil {
			pterm.Warning.Printf("Prefetch warm-up failed, continuing: %v\n", err)
		}

		pterm.Info.Printf("Resolving %d direct requirement(s)...\n", len(names))
		sr, err := pc.Engine.Solve(ctx, pc.Man, pc.Lock)
		if err != nil {
			pterm.Error.Printf("Resolve failed: %v\n", err)
			return
		}

		globalUse, err := globalUseMap(pc.Man)
		if err != nil {
			pterm.Error.Printf("Invalid useFlags: %v\n", err)
			return
		}
		actions, err := pc.Engine.PlanAndInstall(ctx, sr, &pc.Man, &pc.Lock, nil, globalUse)
		if err != nil {
			pterm.Error.Printf("Install failed: %v\n", err)
			return
		}
		if len(actions) == 0 {
			pterm.Info.Println("Nothing to do, already up to date.")
			return
		}
		if err := pc.save(); err != nil {
			pterm.Warning.Printf("Installed but failed to persist manifest/lock: %v\n", err)
			return
		}
		pterm.Success.Printf("Installed %d package(s)\n", len(actions))
	},
}

// splitRequirement parses "name" or "name@range_expr" into a dependency
// name and the range expression to record in the manifest.
func splitRequirement(arg string) (name, expr string) {
	for i := 0; i < len(arg); i++ {
		if arg[i] == '@' {
			return arg[:i], arg[i+1:]
		}
	}
	return arg, ""
}

func init() {
	rootCmd.AddCommand(addCmd)
}
