package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <script_name>",
	Short: "Run a named script recorded in the manifest's scripts table",
	Args:  cobra.ExactArgs(1),
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

		body, ok := pc.Man.Scripts[args[0]]
		if !ok {
			pterm.Error.Printf("No script named %q in the manifest\n", args[0])
			return
		}

		scriptPath, err := materializeRunScript(pc.Project.BuildDir(), args[0], body)
		if err != nil {
			pterm.Error.Printf("Failed to materialize script: %v\n", err)
			return
		}
		runner := shellRunnerFor()
		exitCode, err := runner.Run(context.Background(), scriptPath, wd)
		if err != nil {
			pterm.Error.Printf("Script failed: %v\n", err)
			return
		}
		if exitCode != 0 {
			pterm.Error.Printf("Script %q exited %d\n", args[0], exitCode)
			os.Exit(exitCode)
		}
	},
}

func materializeRunScript(buildDir, name, body string) (string, error) {
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return "", err
	}
	path := fmt.Sprintf("%s/run-%s.sh", buildDir, name)
	script := "#!/bin/sh\nset -e\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		return "", err
	}
	return path, nil
}

func init() {
	rootCmd.AddCommand(runCmd)
}
