package cmd

import (
	"os"
	"sort"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"pkgforge/src/internal/useflags"
)

var useCmd = &cobra.Command{
	Use:   "use [+flag|-flag]...",
	Short: "Add, remove, or list global USE flags (C6 pseudo-package encoding)",
	Long: `With no arguments, lists the project's current USE flag selection.
With one or more "+name"/"-name" tokens, merges them into the manifest's
useFlags list and re-resolves, the same way an added package would.`,
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

		if len(args) == 0 {
			st, err := useflags.NewState(pc.Man.UseFlags)
			if err != nil {
				pterm.Error.Printf("Invalid useFlags in manifest: %v\n", err)
				return
			}
			names := make([]string, 0, len(st))
			for n := range st {
				names = append(names, n)
			}
			sort.Strings(names)
			for _, n := range names {
				pterm.Println(useflags.Flag{Name: n, Positive: st[n]}.String())
			}
			return
		}

		st, err := useflags.NewState(pc.Man.UseFlags)
		if err != nil {
			pterm.Error.Printf("Invalid useFlags in manifest: %v\n", err)
			return
		}
		for _, tok := range args {
			f, err := useflags.Parse(tok)
			if err != nil {
				pterm.Error.Printf("Invalid USE flag %q: %v\n", tok, err)
				return
			}
			st[f.Name] = f.Positive
		}
		pc.Man.UseFlags = st.Tokens()

		ctx := cmd.Context()
		sr, err := pc.Engine.Solve(ctx, pc.Man, pc.Lock)
		if err != nil {
			pterm.Error.Printf("Resolve failed: %v\n", err)
			return
		}
		globalUse, _ := globalUseMap(pc.Man)
		actions, err := pc.Engine.PlanAndInstall(ctx, sr, &pc.Man, &pc.Lock, nil, globalUse)
		if err != nil {
			pterm.Error.Printf("Install failed: %v\n", err)
			return
		}
		if err := pc.save(); err != nil {
			pterm.Warning.Printf("Updated useFlags but failed to persist: %v\n", err)
			return
		}
		if len(actions) == 0 {
			pterm.Success.Println("USE flags updated, no rebuild required.")
			return
		}
		pterm.Success.Printf("USE flags updated, %d package(s) rebuilt\n", len(actions))
	},
}

func init() {
	rootCmd.AddCommand(useCmd)
}
