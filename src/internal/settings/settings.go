// Package settings holds ambient, machine-local configuration that is
// NOT part of the project manifest or lock: the registry URL, resolver
// worker count, and telemetry toggle. It is read from (and written to) a
// TOML file in the user's home directory, the way a project's own
// pkgforge.json/-lock.json never are.
//
// Grounded on aaravmaloo-xe/src/internal/project/config.go's
// load-or-create-default TOML pattern.
package settings

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"pkgforge/src/internal/pkgdir"
)

// Settings is the ambient configuration record.
type Settings struct {
	Registry  RegistryConfig  `toml:"registry"`
	Resolver  ResolverConfig  `toml:"resolver"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// RegistryConfig points at the external registry HTTP collaborator.
type RegistryConfig struct {
	URL       string `toml:"url"`
	MachineID string `toml:"machine_id"`
}

// ResolverConfig bounds resolver-side concurrency.
type ResolverConfig struct {
	FetchConcurrency int `toml:"fetch_concurrency"`
}

// TelemetryConfig records the local telemetry toggle. Sending telemetry
// off-machine is out of scope (spec §1). Enabled is stored and shown by
// `config show`; spans, metrics and profiling do not read it.
type TelemetryConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns the out-of-the-box settings.
func Default() Settings {
	return Settings{
		Registry: RegistryConfig{URL: "https://registry.pkgforge.dev"},
		Resolver: ResolverConfig{FetchConcurrency: 8},
		Telemetry: TelemetryConfig{
			Enabled: true,
		},
	}
}

// LoadOrCreate reads settings.toml from the pkgforge home directory,
// creating it with Default values if absent.
func LoadOrCreate() (Settings, error) {
	path := pkgdir.SettingsFile()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := Save(cfg); err != nil {
			return Settings{}, err
		}
		return cfg, nil
	}
	var cfg Settings
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Settings{}, err
	}
	if cfg.Registry.URL == "" {
		cfg.Registry.URL = Default().Registry.URL
	}
	if cfg.Resolver.FetchConcurrency <= 0 {
		cfg.Resolver.FetchConcurrency = Default().Resolver.FetchConcurrency
	}
	return cfg, nil
}

// Save persists cfg to the pkgforge home directory, creating it first if
// needed.
func Save(cfg Settings) error {
	path := pkgdir.SettingsFile()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
