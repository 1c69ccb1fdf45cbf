package cmd

import (
	"log/slog"
	"runtime"

	"pkgforge/src/internal/engine"
	"pkgforge/src/internal/installer"
	"pkgforge/src/internal/lockfile"
	"pkgforge/src/internal/manifest"
	"pkgforge/src/internal/pkgdir"
	"pkgforge/src/internal/registry"
	"pkgforge/src/internal/settings"
	"pkgforge/src/internal/shellrunner"
)

// shellRunnerFor returns the default shellrunner.Runner used outside tests.
func shellRunnerFor() shellrunner.Runner { return shellrunner.New() }

// projectContext bundles the manifest, lock, and engine every project-scoped
// subcommand needs, loaded once per invocation.
type projectContext struct {
	Project pkgdir.Project
	Man     manifest.Manifest
	Lock    lockfile.Lockfile
	Engine  *engine.Engine
	Client  registry.Client
}

// loadProjectContext resolves the project rooted at wd, creating a fresh
// manifest if none exists yet, and wires an Engine backed by the ambient
// settings' registry URL.
func loadProjectContext(wd string) (*projectContext, error) {
	cfg, err := settings.LoadOrCreate()
	if err != nil {
		return nil, err
	}

	project := pkgdir.NewProject(wd)
	if err := project.EnsureContainer(); err != nil {
		return nil, err
	}

	man, err := manifest.LoadOrCreate(project.ManifestPath(), wd)
	if err != nil {
		return nil, err
	}
	lock, err := lockfile.LoadOrNew(project.LockPath())
	if err != nil {
		return nil, err
	}

	http := registry.NewHTTPClient(cfg.Registry.URL)
	http.MachineID = cfg.Registry.MachineID
	client := registry.NewCachingClient(http)

	inst := installer.New(project, client, shellRunnerFor(), installer.Platform{OS: runtime.GOOS, Arch: runtime.GOARCH}, slog.Default())
	eng := engine.New(client, inst)

	return &projectContext{Project: project, Man: man, Lock: lock, Engine: eng, Client: client}, nil
}

// save persists both the manifest and lock atomically, mirroring the
// installer's own write-sibling-then-rename pattern.
func (pc *projectContext) save() error {
	if err := manifest.Save(pc.Project.ManifestPath(), pc.Man); err != nil {
		return err
	}
	return lockfile.Save(pc.Project.LockPath(), pc.Lock)
}
