package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"pkgforge/src/internal/settings"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or edit ambient pkgforge settings (registry URL, concurrency, telemetry)",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved ambient settings",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := settings.LoadOrCreate()
		if err != nil {
			pterm.Error.Printf("Failed to load settings: %v\n", err)
			return
		}
		pterm.Printf("registry.url = %s\n", cfg.Registry.URL)
		pterm.Printf("resolver.fetch_concurrency = %d\n", cfg.Resolver.FetchConcurrency)
		pterm.Printf("telemetry.enabled = %v\n", cfg.Telemetry.Enabled)
	},
}

var configSetRegistryCmd = &cobra.Command{
	Use:   "set-registry <url>",
	Short: "Point pkgforge at a different registry",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := settings.LoadOrCreate()
		if err != nil {
			pterm.Error.Printf("Failed to load settings: %v\n", err)
			return
		}
		cfg.Registry.URL = args[0]
		if err := settings.Save(cfg); err != nil {
			pterm.Error.Printf("Failed to save settings: %v\n", err)
			return
		}
		pterm.Success.Printf("Registry set to %s\n", args[0])
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetRegistryCmd)
	rootCmd.AddCommand(configCmd)
}
