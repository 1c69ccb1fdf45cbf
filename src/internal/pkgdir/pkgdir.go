// Package pkgdir resolves the on-disk layout spec.md §6 mandates, both
// the per-user home (registry cache, global config) and the per-project
// container holding the install tree, build scratch space, and the
// transaction's dirty marker.
//
// Grounded on aaravmaloo-xe/src/internal/xedir/xedir.go's OS-aware home
// directory resolution, generalized from a single venvs/shims layout to
// spec.md §6's project-container layout.
package pkgdir

import (
	"os"
	"path/filepath"
	"runtime"
)

// Home returns the per-user directory pkgforge keeps its global registry
// cache and settings under.
func Home() (string, error) {
	if runtime.GOOS == "windows" {
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, "pkgforge"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "AppData", "Local", "pkgforge"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "pkgforge"), nil
}

// MustHome returns Home, falling back to a relative "pkgforge" directory
// if the OS user-home lookup fails.
func MustHome() string {
	home, err := Home()
	if err != nil {
		return "pkgforge"
	}
	return home
}

// SettingsFile is the ambient (non-manifest, non-lock) settings file path.
func SettingsFile() string { return filepath.Join(MustHome(), "settings.toml") }

// GlobalCacheDir holds the registry response cache shared across projects.
func GlobalCacheDir() string { return filepath.Join(MustHome(), "cache") }

// Project is the resolved layout for one project root, matching spec.md
// §6's "on-disk layout (relative to project root)" table.
type Project struct {
	Root string
}

// NewProject resolves layout paths under root.
func NewProject(root string) Project { return Project{Root: root} }

// ManifestPath is "<manifest>.json" at the project root.
func (p Project) ManifestPath() string { return filepath.Join(p.Root, "pkgforge.json") }

// LockPath is "<lock>.json" at the project root.
func (p Project) LockPath() string { return filepath.Join(p.Root, "pkgforge-lock.json") }

// ContainerDir is the ".venv/ or equivalent" project container spec.md §6
// names.
func (p Project) ContainerDir() string { return filepath.Join(p.Root, ".pkgforge") }

// InstallDir is the target tree builds deposit files into.
func (p Project) InstallDir() string { return filepath.Join(p.ContainerDir(), "install") }

// BuildDir is per-package source/build/log scratch space.
func (p Project) BuildDir() string { return filepath.Join(p.ContainerDir(), "build") }

// BuildPackageDir is one package's subtree under BuildDir.
func (p Project) BuildPackageDir(name, version string) string {
	return filepath.Join(p.BuildDir(), name+"-"+version)
}

// TempDir is backup staging for in-flight transactions.
func (p Project) TempDir() string { return filepath.Join(p.ContainerDir(), "temp") }

// DirtyMarker is the sentinel file present while a transaction is in
// flight (spec §5's "shared-resource policy" and §6).
func (p Project) DirtyMarker() string { return filepath.Join(p.ContainerDir(), ".dirty") }

// SnapshotDir is the version-control metadata root the snapshot API
// manages; opaque to the core per spec §6.
func (p Project) SnapshotDir() string { return filepath.Join(p.ContainerDir(), "snapshots") }

// EnsureContainer creates every directory the container needs, idempotently.
func (p Project) EnsureContainer() error {
	for _, dir := range []string{p.ContainerDir(), p.InstallDir(), p.BuildDir(), p.TempDir(), p.SnapshotDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// IsDirty reports whether a prior transaction left the dirty marker
// behind (spec §5: its presence at startup means rollback is needed
// before a new transaction begins).
func (p Project) IsDirty() bool {
	_, err := os.Stat(p.DirtyMarker())
	return err == nil
}

// MarkDirty creates the dirty marker.
func (p Project) MarkDirty() error {
	return os.WriteFile(p.DirtyMarker(), []byte{}, 0o644)
}

// ClearDirty removes the dirty marker; missing is not an error.
func (p Project) ClearDirty() error {
	err := os.Remove(p.DirtyMarker())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
