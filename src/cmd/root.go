package cmd

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pkgforge/src/internal/pkgdir"
	"pkgforge/src/internal/telemetry"
)

var cfgFile string
var profileEnabled bool
var profileDir string

var rootCmd = &cobra.Command{
	Use:   "pkgforge",
	Short: "pkgforge resolves and installs source-built packages into a project-local tree",
	Long: `pkgforge resolves package and USE-flag requirements with a CDCL solver,
plans a minimal action list against the project's lock, and performs
atomic, rollback-safe installs by driving an external build script inside
a monitored filesystem sandbox.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !profileEnabled {
			return nil
		}
		dir := strings.TrimSpace(profileDir)
		if dir == "" {
			dir = filepath.Join(pkgdir.MustHome(), "profiles")
		}
		info, err := telemetry.Start(dir)
		if err != nil {
			return err
		}
		telemetry.Event(
			"command.start",
			"command", cmd.CommandPath(),
			"args_count", len(args),
			"config", viper.ConfigFileUsed(),
		)
		fmt.Printf("Profiling enabled.\nLogs: %s\nCPU: %s\nHeap: %s\n", info.LogPath, info.CPUPath, info.HeapPath)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if !profileEnabled {
			return
		}
		telemetry.Event("command.stop", "command", cmd.CommandPath())
		if _, err := telemetry.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to flush profiling artifacts: %v\n", err)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "settings file (default is the pkgforge home settings.toml)")
	rootCmd.PersistentFlags().BoolVar(&profileEnabled, "profile", false, "collect CPU/heap profiles and structured timing logs")
	rootCmd.PersistentFlags().StringVar(&profileDir, "profile-dir", "", "directory for profiling artifacts (default: <pkgforge-home>/profiles)")
	rootCmd.PersistentFlags().String("metrics-addr", "", "if set, serve Prometheus metrics (telemetry.Registry) on this address for the command's duration")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigFile(pkgdir.SettingsFile())
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		// settings file found and read
	}

	if addr, _ := rootCmd.PersistentFlags().GetString("metrics-addr"); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(telemetry.Registry, promhttp.HandlerOpts{}))
		go http.ListenAndServe(addr, mux)
	}
}
